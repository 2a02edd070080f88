package hashindex

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// IntHasher returns a Hasher[K] for fixed-width signed/unsigned
// integer-like keys, hashing their big-endian byte representation with
// xxhash the way the buffer pool's page-id page table would.
func IntHasher[K ~int | ~int32 | ~int64 | ~uint32 | ~uint64]() Hasher[K] {
	return func(key K) uint64 {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(key))
		return xxhash.Sum64(buf[:])
	}
}

// StringHasher hashes string keys with xxhash.
func StringHasher() Hasher[string] {
	return func(key string) uint64 {
		return xxhash.Sum64String(key)
	}
}

// BytesHasher adapts any key to a Hasher by hashing its byte slice
// view with xxhash.
func BytesHasher[K any](toBytes func(K) []byte) Hasher[K] {
	return func(key K) uint64 {
		return xxhash.Sum64(toBytes(key))
	}
}
