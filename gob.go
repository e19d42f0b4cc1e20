package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"reflect"
	"sync"
)

// restorer is implemented by in-memory backends.
type restorer interface {
	Walker
	restore(e *entry)
}

// Dump saves cached entries and returns a number of processed entries.
//
// Dump uses encoding/gob to serialize cache entries, therefore it is necessary to
// register cached types in advance with GobRegister.
func (c *Memory) Dump(w io.Writer) (int, error) {
	return dump(c, w)
}

// Restore loads cached entries and returns number of processed entries.
//
// Entries keep their original creation and expiration time.
// Dump made with different registered types fails with ErrIncompatibleDump.
func (c *Memory) Restore(r io.Reader) (int, error) {
	return restore(c.memory, r)
}

// Dump saves cached entries and returns a number of processed entries.
func (c *ShardedMap) Dump(w io.Writer) (int, error) {
	return dump(c, w)
}

// Restore loads cached entries and returns number of processed entries.
func (c *ShardedMap) Restore(r io.Reader) (int, error) {
	return restore(c.shardedMap, r)
}

func dump(c Walker, w io.Writer) (int, error) {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(GobTypesHash()); err != nil {
		return 0, err
	}

	return c.Walk(func(e Entry) error {
		return encoder.Encode(e.(*entry))
	})
}

func restore(c restorer, r io.Reader) (int, error) {
	decoder := gob.NewDecoder(r)
	n := 0

	var typesHash uint64
	if err := decoder.Decode(&typesHash); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}

		return 0, err
	}

	if typesHash != GobTypesHash() {
		return 0, fmt.Errorf("%w: %x, expected %x", ErrIncompatibleDump, typesHash, GobTypesHash())
	}

	for {
		e := &entry{}

		err := decoder.Decode(e)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return n, err
		}

		c.restore(e)

		n++
	}

	return n, nil
}

// gobValue wraps opaque value to keep its dynamic type in encoded form.
type gobValue struct {
	V interface{}
}

// encodeValue serializes value with encoding/gob.
func encodeValue(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(gobValue{V: v}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeValue unserializes value encoded with encodeValue.
func decodeValue(data []byte) (interface{}, error) {
	var gv gobValue

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gv); err != nil {
		return nil, err
	}

	return gv.V, nil
}

var (
	gobTypesMu   sync.Mutex
	gobTypesHash uint64
)

// GobTypesHash returns a fingerprint of types registered with GobRegister.
//
// Dump writes it ahead of entries and Restore rejects a dump with a different fingerprint.
func GobTypesHash() uint64 {
	gobTypesMu.Lock()
	defer gobTypesMu.Unlock()

	return gobTypesHash
}

// GobRegister enables cached type transferring.
//
// Registering the same type again toggles it out of the fingerprint.
func GobRegister(values ...interface{}) {
	for _, value := range values {
		gob.Register(value)

		th := typeHasher{h: fnv.New64(), seen: map[reflect.Type]bool{}}
		t := reflect.TypeOf(value)

		th.write(t.PkgPath() + t.String())
		th.hash(t)

		gobTypesMu.Lock()
		gobTypesHash ^= th.h.Sum64()
		gobTypesMu.Unlock()
	}
}

// typeHasher fingerprints exported structure of a type.
type typeHasher struct {
	h    hash.Hash64
	seen map[reflect.Type]bool
}

func (th typeHasher) write(s string) {
	_, _ = th.h.Write([]byte(s)) // fnv never fails.
}

func (th typeHasher) hash(t reflect.Type) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if th.seen[t] {
		return
	}

	th.seen[t] = true

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}

			if !f.Anonymous {
				th.write(f.Name)
			}

			th.hash(f.Type)
		}
	case reflect.Slice, reflect.Array:
		th.hash(t.Elem())
	case reflect.Map:
		th.hash(t.Key())
		th.hash(t.Elem())
	default:
		th.write(t.String())
	}
}

// nolint:gochecknoinits // Registering types to a package level registry of "encoding/gob".
func init() {
	// Registering commonly used types.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}
