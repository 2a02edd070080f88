package hashindex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSplitScenario(t *testing.T) {
	// bucket_size=2, insert (0,a),(1,b),(2,c): the third insert forces a
	// split, so global_depth should be 1 and num_buckets 2.
	tbl := New[int, string](2, IntHasher[int]())

	tbl.Insert(0, "a")
	tbl.Insert(1, "b")
	tbl.Insert(2, "c")

	assert.Equal(t, 1, tbl.GlobalDepth())
	assert.Equal(t, 2, tbl.NumBuckets())

	v, ok := tbl.Find(0)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = tbl.Find(2)
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestFindRemoveRoundTrip(t *testing.T) {
	tbl := New[int, string](4, IntHasher[int]())

	tbl.Insert(10, "x")
	v, ok := tbl.Find(10)
	require.True(t, ok)
	assert.Equal(t, "x", v)

	assert.True(t, tbl.Remove(10))
	_, ok = tbl.Find(10)
	assert.False(t, ok)

	assert.False(t, tbl.Remove(10), "remove of absent key returns false")
}

func TestInsertUpsertsExistingKey(t *testing.T) {
	tbl := New[int, string](4, IntHasher[int]())
	tbl.Insert(1, "first")
	tbl.Insert(1, "second")

	v, ok := tbl.Find(1)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestNumBucketsMatchesDistinctDirectoryEntries(t *testing.T) {
	tbl := New[int, int](2, IntHasher[int]())
	for i := 0; i < 50; i++ {
		tbl.Insert(i, i*i)
	}

	seen := make(map[*bucket[int, int]]struct{})
	tbl.dirMu.RLock()
	for _, b := range tbl.directory {
		seen[b] = struct{}{}
	}
	numBuckets := tbl.numBuckets
	tbl.dirMu.RUnlock()

	assert.Equal(t, numBuckets, len(seen))
}

func TestConcurrentInsertFindDisjointKeys(t *testing.T) {
	tbl := New[int, int](4, IntHasher[int]())
	const perWorker = 200
	const workers = 8

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := base*perWorker + i
				tbl.Insert(key, key*2)
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			key := w*perWorker + i
			v, ok := tbl.Find(key)
			require.True(t, ok, "key %d missing", key)
			assert.Equal(t, key*2, v)
		}
	}
}

func TestGlobalDepthNondecreasingUnderGrowth(t *testing.T) {
	tbl := New[int, int](4, IntHasher[int]())
	prevDepth := tbl.GlobalDepth()
	for i := 0; i < 500; i++ {
		tbl.Insert(i, i)
		d := tbl.GlobalDepth()
		if d < prevDepth {
			t.Fatalf("global depth decreased from %d to %d", prevDepth, d)
		}
		prevDepth = d
	}
}
