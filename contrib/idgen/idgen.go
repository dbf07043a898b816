// Package idgen provides entity id generation strategies.
//
//	engine, _ := graph.NewEngine(s, p, graph.WithIDFunc(idgen.ULID()))
package idgen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// Func returns a new unique id.
type Func func() string

// UUID returns random (version 4) UUIDs.
func UUID() Func {
	return func() string {
		return uuid.NewString()
	}
}

// UUIDv7 returns time-ordered (version 7) UUIDs.
func UUIDv7() Func {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// NanoID returns URL-safe random ids of the given length. A length of zero
// uses the library default of 21.
func NanoID(length int) Func {
	return func() string {
		var (
			id  string
			err error
		)
		if length > 0 {
			id, err = gonanoid.New(length)
		} else {
			id, err = gonanoid.New()
		}
		if err != nil {
			panic(fmt.Sprintf("idgen: nanoid: %v", err))
		}
		return id
	}
}

// ULID returns lexicographically sortable ids that are monotonic within the
// same millisecond.
func ULID() Func {
	var (
		mu      sync.Mutex
		entropy = ulid.Monotonic(rand.Reader, 0)
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}

// Prefixed prepends prefix to the ids of f, e.g. "post_01HV...".
func Prefixed(prefix string, f Func) Func {
	return func() string {
		return prefix + f()
	}
}

// ByName returns the strategy registered under name: "uuid", "uuidv7",
// "nanoid" or "ulid".
func ByName(name string) (Func, error) {
	switch name {
	case "", "uuid":
		return UUID(), nil
	case "uuidv7":
		return UUIDv7(), nil
	case "nanoid":
		return NanoID(0), nil
	case "ulid":
		return ULID(), nil
	}
	return nil, fmt.Errorf("idgen: unknown strategy %q", name)
}
