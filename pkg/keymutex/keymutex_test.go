package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameKeySerializes(t *testing.T) {
	km := New()
	const workers = 50

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("order-1")
			counter++
			km.Unlock("order-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
}

func TestEntriesAreReclaimed(t *testing.T) {
	km := New()
	km.Lock("transient")
	km.Unlock("transient")
	assert.Empty(t, km.locks)
}
