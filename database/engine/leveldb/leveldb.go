// Package leveldb implements the engine interfaces on top of goleveldb.
package leveldb

import (
	"github.com/btcsuite/smartfee/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Kind is the name the backend registers under.
const Kind = "leveldb"

func init() {
	err := engine.RegisterDriver(engine.Driver{Kind: Kind, Open: NewDB})
	if err != nil {
		panic(err)
	}
}

// NewDB opens the leveldb database at dbPath, creating it when missing.  With
// create set an existing database is an error.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	opts := opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	}
	ldb, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, err
	}
	return &DB{ldb: ldb}, nil
}

// DB is a leveldb backed engine.
type DB struct {
	ldb *leveldb.DB
}

// Transaction opens a write transaction.  Only one can be open at a time;
// leveldb blocks other writers until it is committed or discarded.
func (d *DB) Transaction() (engine.Transaction, error) {
	tx, err := d.ldb.OpenTransaction()
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

// Snapshot returns a point in time view of the database.
func (d *DB) Snapshot() (engine.Snapshot, error) {
	snap, err := d.ldb.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot{snap: snap}, nil
}

// Close closes the database.  Closing twice returns an error.
func (d *DB) Close() error {
	return d.ldb.Close()
}

type transaction struct {
	tx *leveldb.Transaction
}

func (t *transaction) Put(key, value []byte) error {
	return t.tx.Put(key, value, nil)
}

func (t *transaction) Delete(key []byte) error {
	return t.tx.Delete(key, nil)
}

func (t *transaction) Commit() error {
	return t.tx.Commit()
}

func (t *transaction) Discard() {
	t.tx.Discard()
}

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *snapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(key, nil)
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	val, err := s.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	return val, err
}

func (s *snapshot) NewIterator(r *engine.Range) engine.Iterator {
	return s.snap.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
}

func (s *snapshot) Release() {
	s.snap.Release()
}
