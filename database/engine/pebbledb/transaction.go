package pebbledb

import (
	"github.com/cockroachdb/pebble"
)

// transaction buffers writes in a batch that is applied atomically on commit.
type transaction struct {
	batch    *pebble.Batch
	released bool
}

func (t *transaction) Put(key, value []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.batch.Set(key, value, pebble.NoSync)
}

func (t *transaction) Delete(key []byte) error {
	if t.released {
		return ErrTxClosed
	}
	return t.batch.Delete(key, pebble.NoSync)
}

func (t *transaction) Discard() {
	if !t.released {
		t.released = true
		t.batch.Close()
	}
}

// Commit syncs the batch to disk and closes the transaction.
func (t *transaction) Commit() error {
	if t.released {
		return ErrTxClosed
	}
	t.released = true
	defer t.batch.Close()
	return t.batch.Commit(pebble.Sync)
}
