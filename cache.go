package tycho

import (
	"context"
	"time"
)

// Cache is the interface for an optional read-through cache in front of
// read_by_key and exists_by_key. Users implement this with their
// preferred caching solution (Redis, Memcached, in-memory); the engine
// never assumes a particular backend. Cache is off by default, and
// enabling it never changes count or read_many semantics — those always
// hit storage.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey addresses a single cached document the same way storage
// addresses a row: by Key, FullTypeName, and Partition.
type CacheKey struct {
	Key          string
	FullTypeName string
	Partition    string
}

// String returns the string representation of the cache key, used as the
// literal key for Get, Set and Delete.
func (k CacheKey) String() string {
	return k.FullTypeName + ":" + k.Partition + ":" + k.Key
}

// TypePrefix returns the prefix covering every cached document of a given
// type within a partition, for use with Cache.DeletePrefix after a
// partition-scoped delete_many. delete_by_partition, delete_all,
// delete_by_type and an unscoped delete_many call Cache.Clear instead.
func TypePrefix(fullTypeName, partition string) string {
	return fullTypeName + ":" + partition + ":"
}
