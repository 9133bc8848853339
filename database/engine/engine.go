package engine

import (
	"errors"
	"fmt"
)

// Engine is a minimal ordered key/value store.  Writes go through atomic
// transactions and reads through point in time snapshots.
type Engine interface {
	Transaction() (Transaction, error)
	Snapshot() (Snapshot, error)
	Close() error
}

type Transaction interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}

type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(*Range) Iterator
	Releaser
}

type Releaser interface {
	Release()
}

var (
	// ErrUnknownType is returned by Open for a kind no backend registered.
	ErrUnknownType = errors.New("engine: unknown backend type")

	// ErrNotFound is returned by Snapshot.Get for a missing key.
	ErrNotFound = errors.New("engine: key not found")
)

// Driver defines a structure for backends to use when they register
// themselves as an implementation of the Engine interface.
type Driver struct {
	// Kind is the name the backend is selected by.
	Kind string

	// Open opens the database at path.  When create is true the database
	// must not exist yet.
	Open func(path string, create bool) (Engine, error)
}

// drivers holds all of the registered backends.
var drivers []Driver

// RegisterDriver adds a backend to the available ones.  Registering a kind
// twice is an error.
func RegisterDriver(driver Driver) error {
	for _, drv := range drivers {
		if drv.Kind == driver.Kind {
			return fmt.Errorf("engine: backend %q already registered",
				driver.Kind)
		}
	}
	drivers = append(drivers, driver)
	return nil
}

// Open opens the database at path with the backend registered for kind.
func Open(kind, path string, create bool) (Engine, error) {
	for _, drv := range drivers {
		if drv.Kind == kind {
			return drv.Open(path, create)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
}

// SupportedKinds returns the kinds of every registered backend.
func SupportedKinds() []string {
	kinds := make([]string, 0, len(drivers))
	for _, drv := range drivers {
		kinds = append(kinds, drv.Kind)
	}
	return kinds
}
