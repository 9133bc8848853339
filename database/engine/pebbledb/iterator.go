package pebbledb

import (
	"github.com/btcsuite/smartfee/database/engine"
	"github.com/cockroachdb/pebble"
)

// iterator adapts a pebble iterator, which starts unpositioned, to the engine
// iterator contract.
type iterator struct {
	iter     *pebble.Iterator
	released bool
}

func (i *iterator) First() bool {
	return !i.released && i.iter.First()
}

func (i *iterator) Seek(key []byte) bool {
	return !i.released && i.iter.SeekGE(key)
}

func (i *iterator) Next() bool {
	return !i.released && i.iter.Next()
}

// Key returns nil once the iterator is exhausted or released.
func (i *iterator) Key() []byte {
	if i.released || !i.iter.Valid() {
		return nil
	}
	return i.iter.Key()
}

// Value returns nil once the iterator is exhausted or released.
func (i *iterator) Value() []byte {
	if i.released || !i.iter.Valid() {
		return nil
	}
	return i.iter.Value()
}

func (i *iterator) Release() {
	if !i.released {
		i.released = true
		i.iter.Close()
	}
}

func (i *iterator) Error() error {
	if i.released {
		return engine.ErrIterReleased
	}
	return i.iter.Error()
}

// errIterator is an empty iterator that only reports err.
type errIterator struct {
	err error
}

func (i *errIterator) First() bool          { return false }
func (i *errIterator) Seek(key []byte) bool { return false }
func (i *errIterator) Next() bool           { return false }
func (i *errIterator) Key() []byte          { return nil }
func (i *errIterator) Value() []byte        { return nil }
func (i *errIterator) Release()             {}
func (i *errIterator) Error() error         { return i.err }
