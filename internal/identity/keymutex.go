package identity

import "sync"

// keyMutex serializes work per key without serializing the whole registry.
// Lazy code creation is a read-then-maybe-write critical section; only calls
// contending on the same id need to queue.
type keyMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[int64]*sync.Mutex)}
}

func (k *keyMutex) lock(id int64) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m
}
