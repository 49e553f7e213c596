package cache

import "fmt"

func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}

func RevocationKey(clientCode string) string {
	return fmt.Sprintf("revoked:%s", clientCode)
}
