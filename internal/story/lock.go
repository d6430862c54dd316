// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import "sync"

// # Per-Story Serialization

// keyedMutex serializes work per story ID. Callbacks and reconciliation for
// the same story must not interleave, while distinct stories proceed in
// parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// newKeyedMutex constructs an empty keyed mutex.
func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given key, creating it on first use.
// The returned function releases it.
func (keyed *keyedMutex) Lock(key string) func() {

	// Resolve or create the per-key lock under the registry lock
	keyed.mu.Lock()
	lock, ok := keyed.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		keyed.locks[key] = lock
	}
	keyed.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
