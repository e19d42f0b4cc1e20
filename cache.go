package cache

import (
	"context"
	"io"
	"time"
)

// DefaultTimeToLive is the entry lifetime used when config does not set one.
const DefaultTimeToLive = 10 * time.Second

// Reader reads from cache.
type Reader interface {
	// Read returns cached value or error.
	//
	// Missing or expired entry results in error that matches ErrCacheItemNotFound.
	// Backend failures are reported with *StorageError.
	Read(ctx context.Context, key string) (interface{}, error)
}

// Writer writes to cache.
type Writer interface {
	// Write stores value in cache with a given key.
	Write(ctx context.Context, key string, value interface{}) error
}

// ReadWriter reads from and writes to cache.
type ReadWriter interface {
	Reader
	Writer
}

// Deleter removes cache entries.
type Deleter interface {
	// Delete removes value by key, ErrCacheItemNotFound is returned for missing key.
	Delete(ctx context.Context, key string) error
}

// Entry is a cached value with its write time.
type Entry interface {
	Key() string
	Value() interface{}
	CreatedAt() time.Time
}

// Walker calls function for every entry in cache and fails on first error returned by that function.
//
// Count of processed entries is returned.
type Walker interface {
	Walk(func(entry Entry) error) (int, error)
}

// Dumper dumps cache entries in binary format.
type Dumper interface {
	Dump(w io.Writer) (int, error)
}

// Restorer restores cache entries from binary dump.
type Restorer interface {
	Restore(r io.Reader) (int, error)
}
