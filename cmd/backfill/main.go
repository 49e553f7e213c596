// Package main is the offline backfill job that assigns owner and client
// codes to legacy records lacking them. Safe to rerun: existing codes are
// returned unchanged, never reminted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/agendly/clientlink/internal/config"
	"github.com/agendly/clientlink/internal/identity"
	"github.com/agendly/clientlink/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	batchSize := flag.Int("batch", 500, "clients fetched per batch")
	dryRun := flag.Bool("dry-run", false, "report missing codes without writing")
	flag.Parse()

	if err := run(*batchSize, *dryRun); err != nil {
		slog.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}

func run(batchSize int, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	pgStore := store.NewPostgresStore(pool)
	registry := identity.NewRegistry(pgStore)
	generator := identity.NewGenerator(pgStore, registry)

	var assigned, failed int
	for {
		clients, err := pgStore.ListClientsMissingCodes(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("list clients: %w", err)
		}
		if len(clients) == 0 {
			break
		}

		if dryRun {
			for _, c := range clients {
				slog.Info("would assign code", "client_id", c.ID, "owner_id", c.OwnerID)
			}
			assigned += len(clients)
			break
		}

		batchAssigned := 0
		for _, c := range clients {
			code, err := generator.Generate(ctx, c.OwnerID, c.ID)
			if err != nil {
				// Keep going; a single bad record must not block the batch.
				slog.Error("assign code", "client_id", c.ID, "error", err)
				failed++
				continue
			}
			slog.Info("code assigned", "client_id", c.ID, "owner_id", c.OwnerID, "code", code)
			assigned++
			batchAssigned++
		}

		// Failed records stay code-less and would be refetched forever.
		if batchAssigned == 0 {
			break
		}
	}

	slog.Info("backfill complete", "assigned", assigned, "failed", failed, "dry_run", dryRun)
	if failed > 0 {
		return fmt.Errorf("%d clients could not be assigned codes", failed)
	}
	return nil
}
