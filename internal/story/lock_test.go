// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestKeyedMutex_SerializesPerKey verifies concurrent holders of the same
key never overlap while distinct keys proceed independently.
*/
func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	keyed := newKeyedMutex()

	const workers = 32
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := keyed.Lock("story-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	// Every increment ran under the lock
	assert.Equal(t, workers, counter)
}

/*
TestKeyedMutex_IndependentKeys verifies a held key does not block another.
*/
func TestKeyedMutex_IndependentKeys(t *testing.T) {
	keyed := newKeyedMutex()

	unlockA := keyed.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := keyed.Lock("b")
		unlockB()
		close(done)
	}()

	// Key "b" must be acquirable while "a" is held
	<-done
}
