package page

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// KeyedLocks hands out a mutex per key so concurrent saves of the same
// (user, URL) serialize while unrelated saves proceed in parallel. Locks are
// held in an LRU so the map cannot grow without bound; the unique index in
// the metadata store backstops the rare eviction race.
type KeyedLocks struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *sync.Mutex]
}

// NewKeyedLocks creates a lock table retaining up to size recent keys.
func NewKeyedLocks(size int) (*KeyedLocks, error) {
	cache, err := lru.New[string, *sync.Mutex](size)
	if err != nil {
		return nil, err
	}
	return &KeyedLocks{cache: cache}, nil
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedLocks) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.cache.Get(key)
	if !ok {
		m = &sync.Mutex{}
		k.cache.Add(key, m)
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
