package lru

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVictimOrdering(t *testing.T) {
	r := New[int]()
	r.Insert(1)
	r.Insert(2)
	r.Insert(3)
	r.Insert(1) // touch 1, making it MRU again

	v, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, 2, v, "victim should be the least-recently-touched value")
}

func TestEraseRemovesValue(t *testing.T) {
	r := New[string]()
	r.Insert("a")
	r.Insert("b")

	assert.True(t, r.Erase("a"))
	assert.False(t, r.Erase("a"), "erase is a no-op once already removed")
	assert.Equal(t, 1, r.Size())
}

func TestVictimOnEmptyFails(t *testing.T) {
	r := New[int]()
	_, ok := r.Victim()
	assert.False(t, ok)
}

func TestConcurrentInsertAndVictimIsRaceFree(t *testing.T) {
	r := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			r.Insert(v)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, r.Size())

	drained := 0
	for {
		if _, ok := r.Victim(); !ok {
			break
		}
		drained++
	}
	assert.Equal(t, 100, drained)
}
