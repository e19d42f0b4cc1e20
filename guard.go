package cache

import (
	"sync"

	"github.com/puzpuzpuz/xsync"
)

// Guard admits at most one in-flight operation per scope, it never queues.
//
// Every successful TryAcquire must be followed by exactly one Release with the same key.
type Guard interface {
	// TryAcquire marks operation for key as in-flight, false is returned if scope is busy.
	TryAcquire(key string) bool

	// Release returns scope of key to idle state.
	Release(key string)

	// Pending returns key of operation that keeps the scope of key busy.
	Pending(key string) (string, bool)
}

var (
	_ Guard = &Latch{}
	_ Guard = &KeyLatch{}
)

// Latch is a single in-flight flag shared by all keys.
//
// Zero value is ready to use.
type Latch struct {
	mu       sync.Mutex
	inFlight bool
	pending  string
}

// TryAcquire switches latch to in-flight state if it is idle.
func (l *Latch) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inFlight {
		return false
	}

	l.inFlight = true
	l.pending = key

	return true
}

// Release switches latch to idle state, releasing an idle latch has no effect.
func (l *Latch) Release(_ string) {
	l.mu.Lock()
	l.inFlight = false
	l.pending = ""
	l.mu.Unlock()
}

// InFlight tells if latch is acquired.
func (l *Latch) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.inFlight
}

// Pending returns key of in-flight operation.
func (l *Latch) Pending(_ string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pending, l.inFlight
}

// KeyLatch keeps a set of in-flight keys, operations for distinct keys do not block each other.
//
// Please use NewKeyLatch to create instance.
type KeyLatch struct {
	keys *xsync.Map
}

// NewKeyLatch creates per-key guard.
func NewKeyLatch() *KeyLatch {
	return &KeyLatch{keys: xsync.NewMap()}
}

// TryAcquire marks key as in-flight if it is not yet.
func (l *KeyLatch) TryAcquire(key string) bool {
	_, loaded := l.keys.LoadOrStore(key, struct{}{})

	return !loaded
}

// Release removes key from in-flight set.
func (l *KeyLatch) Release(key string) {
	l.keys.Delete(key)
}

// InFlight tells if key is acquired.
func (l *KeyLatch) InFlight(key string) bool {
	_, ok := l.keys.Load(key)

	return ok
}

// Pending returns key itself if it is in-flight.
func (l *KeyLatch) Pending(key string) (string, bool) {
	if l.InFlight(key) {
		return key, true
	}

	return "", false
}
