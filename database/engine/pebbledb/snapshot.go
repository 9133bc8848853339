package pebbledb

import (
	"errors"

	"github.com/btcsuite/smartfee/database/engine"
	"github.com/cockroachdb/pebble"
)

type snapshot struct {
	snap     *pebble.Snapshot
	released bool
}

func (s *snapshot) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Get returns a copy of the value since pebble only guarantees it until the
// closer is called.
func (s *snapshot) Get(key []byte) ([]byte, error) {
	if s.released {
		return nil, ErrSnapshotReleased
	}

	val, closer, err := s.snap.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), val...), nil
}

func (s *snapshot) Release() {
	if !s.released {
		s.released = true
		s.snap.Close()
	}
}

// NewIterator returns an iterator over r.  It is positioned before the first
// key so that Next moves to it, as with leveldb.  A snapshot that is released
// or fails to open the iterator yields an empty iterator reporting why.
func (s *snapshot) NewIterator(r *engine.Range) engine.Iterator {
	if s.released {
		return &errIterator{err: ErrSnapshotReleased}
	}

	iter, err := s.snap.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	if err != nil {
		return &errIterator{err: err}
	}
	iter.SeekLT(r.Start)
	return &iterator{iter: iter}
}
