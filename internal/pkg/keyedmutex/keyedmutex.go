// Package keyedmutex provides per-key mutual exclusion. It is used to
// serialize order placement and auto-trade checks per (instrument, mode)
// pair, and fill reconciliation per broker order reference.
package keyedmutex

import "sync"

type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use. The per-key
// mutex is retained for the process lifetime; the key space here is bounded
// by the instrument universe, so no eviction is needed.
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
