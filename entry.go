package cache

import (
	"reflect"
	"time"
)

// entryOverhead approximates map slot, entry struct and interface headers.
const entryOverhead = 64

// entry is a cache entry, it is never mutated after being stored.
type entry struct {
	K string
	V interface{}
	C time.Time
	E time.Time
	S int64
}

var _ Entry = &entry{}

func (e *entry) Key() string {
	return e.K
}

func (e *entry) Value() interface{} {
	return e.V
}

func (e *entry) CreatedAt() time.Time {
	return e.C
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.E)
}

type errExpired struct {
	entry *entry
}

func (e errExpired) Error() string {
	return ErrExpiredCacheItem.Error()
}

// Is matches both ErrExpiredCacheItem and ErrCacheItemNotFound, expired entry is a miss.
func (e errExpired) Is(err error) bool {
	return err == ErrExpiredCacheItem || err == ErrCacheItemNotFound
}

// Sizer is implemented by values that know their size in bytes.
type Sizer interface {
	Size() int
}

// EstimateSize returns approximate memory footprint of a cache entry in bytes.
func EstimateSize(key string, value interface{}) int {
	n := len(key) + entryOverhead

	switch v := value.(type) {
	case nil:
	case Sizer:
		n += v.Size()
	case string:
		n += len(v)
	case []byte:
		n += len(v)
	case []string:
		for _, s := range v {
			n += len(s) + 16
		}
	default:
		n += int(reflect.TypeOf(value).Size())
	}

	return n
}
