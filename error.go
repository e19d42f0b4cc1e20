package cache

import (
	"strconv"
)

// SentinelError is an error.
type SentinelError string

const (
	// ErrExpiredCacheItem indicates expired cache entry.
	ErrExpiredCacheItem = SentinelError("expired cache item")

	// ErrCacheItemNotFound indicates missing cache entry.
	ErrCacheItemNotFound = SentinelError("missing cache item")

	// ErrNothingToInvalidate indicates no caches were added to Invalidator.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrAlreadyInvalidated indicates recent invalidation.
	ErrAlreadyInvalidated = SentinelError("already invalidated")

	// ErrAlreadyInProgress indicates a rejected request while another one is in flight.
	ErrAlreadyInProgress = SentinelError("call already in progress")

	// ErrNotFound indicates that remote source has no results for a key.
	ErrNotFound = SentinelError("no results found")

	// ErrFetchFailed indicates that remote source failed to respond.
	ErrFetchFailed = SentinelError("fetch failed")

	// ErrIncompatibleDump indicates that dump was made with different registered types.
	ErrIncompatibleDump = SentinelError("incompatible dump")

	// ErrEmptyKey indicates an empty request key.
	ErrEmptyKey = SentinelError("empty key")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}

// FetchError describes a failed or empty remote fetch.
//
// Both kinds render the same message, use errors.Is with ErrNotFound or ErrFetchFailed to tell them apart.
type FetchError struct {
	Key   string
	Kind  SentinelError
	Cause error
}

// Error implements error.
func (e *FetchError) Error() string {
	return "no results found for " + strconv.Quote(e.Key)
}

// Is matches error kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// StorageError indicates a failure of cache storage backend.
//
// Callers treat it as a cache miss.
type StorageError struct {
	Op  string
	Key string
	Err error
}

// Error implements error.
func (e *StorageError) Error() string {
	msg := "cache storage " + e.Op + " failed"
	if e.Key != "" {
		msg += " for " + strconv.Quote(e.Key)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}
