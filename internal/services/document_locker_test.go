package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentLocker_SerializesSameDocument(t *testing.T) {
	locker := NewDocumentLocker()

	var mu sync.Mutex
	inside, maxInside := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("doc-1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Zero(t, locker.Held())
}

func TestDocumentLocker_IndependentDocuments(t *testing.T) {
	locker := NewDocumentLocker()

	unlockA := locker.Lock("doc-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("doc-b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another document blocked")
	}
	assert.Equal(t, 1, locker.Held())
}

func TestDocumentLocker_UnlockTwice(t *testing.T) {
	locker := NewDocumentLocker()

	unlock := locker.Lock("doc-1")
	unlock()
	unlock()
	assert.Zero(t, locker.Held())

	// still usable afterwards
	again := locker.Lock("doc-1")
	assert.Equal(t, 1, locker.Held())
	again()
}
