// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package feedb persists fee estimator snapshots into a key/value engine so that
estimates are available right after a restart.

Every value is stored big endian.  The layout is:

	version           uint32
	bucketFeeBounds   float64 per bucket, +Inf sentinel included
	heights           best seen, historical first, historical best (int64)
	0x01701d00 || h   one record per horizon h (uint32):
	                  max periods (uint32), scale (uint32), decay (float64),
	                  fee sums, confirmed counts, then the confirmed and
	                  failed averages period by period (float64)
*/
package feedb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/btcsuite/smartfee/database/engine"
	"github.com/btcsuite/smartfee/fees"
)

const (
	// currentDbVersion is the version of the layout written by Save.
	currentDbVersion = 1

	// maxStoredBuckets and maxStoredPeriods bound the sizes accepted from
	// the database before allocating anything.
	maxStoredBuckets = 2000
	maxStoredPeriods = 1008
)

var (
	// dbByteOrder is the byte order used to encode every value.
	dbByteOrder = binary.BigEndian

	dbKeyVersion       = []byte("version")
	dbKeyBucketFees    = []byte("bucketFeeBounds")
	dbKeyHeights       = []byte("heights")
	dbKeyHorizonPrefix = []byte{0x01, 0x70, 0x1d, 0x00}
)

var (
	// ErrNoSnapshot is returned by Load when nothing was saved yet.
	ErrNoSnapshot = errors.New("feedb: no snapshot stored")

	// ErrCorrupt is returned by Load when stored data can't be decoded.
	ErrCorrupt = errors.New("feedb: corrupt snapshot")
)

// Store saves and loads estimator snapshots.
type Store struct {
	db engine.Engine
}

// New returns a store backed by the given engine.  The store does not take
// ownership of the engine.
func New(db engine.Engine) *Store {
	return &Store{db: db}
}

func horizonKey(h int) []byte {
	key := make([]byte, len(dbKeyHorizonPrefix)+4)
	copy(key, dbKeyHorizonPrefix)
	dbByteOrder.PutUint32(key[len(dbKeyHorizonPrefix):], uint32(h))
	return key
}

func putFloats(b *bytes.Buffer, vals []float64) {
	var fbytes [8]byte
	for _, f := range vals {
		dbByteOrder.PutUint64(fbytes[:], math.Float64bits(f))
		b.Write(fbytes[:])
	}
}

func readFloats(b *bytes.Reader, n int) ([]float64, error) {
	vals := make([]float64, n)
	if err := binary.Read(b, dbByteOrder, vals); err != nil {
		return nil, err
	}
	return vals, nil
}

// encodeHorizon serializes the data of a single horizon.
func encodeHorizon(h *fees.HorizonSnapshot) []byte {
	var b bytes.Buffer
	var header [16]byte
	dbByteOrder.PutUint32(header[0:], uint32(h.MaxPeriods))
	dbByteOrder.PutUint32(header[4:], uint32(h.Scale))
	dbByteOrder.PutUint64(header[8:], math.Float64bits(h.Decay))
	b.Write(header[:])

	putFloats(&b, h.FeeSum)
	putFloats(&b, h.Confirmed)
	for _, row := range h.ConfAvg {
		putFloats(&b, row)
	}
	for _, row := range h.FailAvg {
		putFloats(&b, row)
	}
	return b.Bytes()
}

// decodeHorizon deserializes the data of a single horizon stored for a table
// of numBuckets buckets.
func decodeHorizon(v []byte, numBuckets int) (*fees.HorizonSnapshot, error) {
	if len(v) < 16 {
		return nil, fmt.Errorf("%w: short horizon header", ErrCorrupt)
	}
	h := &fees.HorizonSnapshot{
		MaxPeriods: int(dbByteOrder.Uint32(v[0:])),
		Scale:      int(dbByteOrder.Uint32(v[4:])),
		Decay:      math.Float64frombits(dbByteOrder.Uint64(v[8:])),
	}
	if h.MaxPeriods <= 0 || h.MaxPeriods > maxStoredPeriods {
		return nil, fmt.Errorf("%w: stored period count %d outside of "+
			"[1, %d]", ErrCorrupt, h.MaxPeriods, maxStoredPeriods)
	}
	want := 16 + 8*numBuckets*(2+2*h.MaxPeriods)
	if len(v) != want {
		return nil, fmt.Errorf("%w: horizon record has %d bytes, want %d",
			ErrCorrupt, len(v), want)
	}

	r := bytes.NewReader(v[16:])
	var err error
	if h.FeeSum, err = readFloats(r, numBuckets); err != nil {
		return nil, err
	}
	if h.Confirmed, err = readFloats(r, numBuckets); err != nil {
		return nil, err
	}
	h.ConfAvg = make([][]float64, h.MaxPeriods)
	for p := range h.ConfAvg {
		if h.ConfAvg[p], err = readFloats(r, numBuckets); err != nil {
			return nil, err
		}
	}
	h.FailAvg = make([][]float64, h.MaxPeriods)
	for p := range h.FailAvg {
		if h.FailAvg[p], err = readFloats(r, numBuckets); err != nil {
			return nil, err
		}
	}

	rows := append([][]float64{h.FeeSum, h.Confirmed}, h.ConfAvg...)
	for _, row := range append(rows, h.FailAvg...) {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("%w: stored aggregate %v",
					ErrCorrupt, v)
			}
		}
	}
	return h, nil
}

// Save atomically replaces the stored snapshot.
func (s *Store) Save(snap *fees.Snapshot) error {
	tx, err := s.db.Transaction()
	if err != nil {
		return fmt.Errorf("unable to open fee database transaction: %w", err)
	}
	defer tx.Discard()

	var version [4]byte
	dbByteOrder.PutUint32(version[:], currentDbVersion)
	if err := tx.Put(dbKeyVersion, version[:]); err != nil {
		return fmt.Errorf("error writing version to db: %w", err)
	}

	var bounds bytes.Buffer
	putFloats(&bounds, snap.BucketBounds)
	if err := tx.Put(dbKeyBucketFees, bounds.Bytes()); err != nil {
		return fmt.Errorf("error writing bucket fees to db: %w", err)
	}

	var heights [24]byte
	dbByteOrder.PutUint64(heights[0:], uint64(snap.BestSeenHeight))
	dbByteOrder.PutUint64(heights[8:], uint64(snap.HistoricalFirst))
	dbByteOrder.PutUint64(heights[16:], uint64(snap.HistoricalBest))
	if err := tx.Put(dbKeyHeights, heights[:]); err != nil {
		return fmt.Errorf("error writing heights to db: %w", err)
	}

	for h := range snap.Horizons {
		err := tx.Put(horizonKey(h), encodeHorizon(&snap.Horizons[h]))
		if err != nil {
			return fmt.Errorf("error writing horizon %d to db: %w", h, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing fee estimates: %w", err)
	}

	log.Debugf("Saved fee estimates at height %d", snap.BestSeenHeight)
	return nil
}

// Load returns the stored snapshot.  ErrNoSnapshot is returned when nothing
// was saved yet.
func (s *Store) Load() (*fees.Snapshot, error) {
	dbSnap, err := s.db.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("unable to open fee database snapshot: %w",
			err)
	}
	defer dbSnap.Release()

	version, err := dbSnap.Get(dbKeyVersion)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("error reading version from db: %w", err)
	}
	if len(version) != 4 {
		return nil, fmt.Errorf("%w: wrong number of bytes in stored version",
			ErrCorrupt)
	}
	if v := dbByteOrder.Uint32(version); v != currentDbVersion {
		return nil, fmt.Errorf("incompatible database version: %d", v)
	}

	feesBytes, err := dbSnap.Get(dbKeyBucketFees)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, fmt.Errorf("%w: missing bucket fee bounds", ErrCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading fee bounds from db: %w", err)
	}
	numBuckets := len(feesBytes) / 8
	if len(feesBytes)%8 != 0 || numBuckets == 0 ||
		numBuckets > maxStoredBuckets {

		return nil, fmt.Errorf("%w: %d bytes of bucket fee bounds",
			ErrCorrupt, len(feesBytes))
	}

	snap := new(fees.Snapshot)
	snap.BucketBounds, err = readFloats(bytes.NewReader(feesBytes),
		numBuckets)
	if err != nil {
		return nil, err
	}

	heights, err := dbSnap.Get(dbKeyHeights)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, fmt.Errorf("%w: missing heights", ErrCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading heights from db: %w", err)
	}
	if len(heights) != 24 {
		return nil, fmt.Errorf("%w: wrong number of bytes in stored heights",
			ErrCorrupt)
	}
	snap.BestSeenHeight = int64(dbByteOrder.Uint64(heights[0:]))
	snap.HistoricalFirst = int64(dbByteOrder.Uint64(heights[8:]))
	snap.HistoricalBest = int64(dbByteOrder.Uint64(heights[16:]))

	found := make([]bool, len(snap.Horizons))
	iter := dbSnap.NewIterator(engine.BytesPrefix(dbKeyHorizonPrefix))
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(dbKeyHorizonPrefix)+4 {
			return nil, fmt.Errorf("%w: horizon key %x", ErrCorrupt, key)
		}
		idx := int(dbByteOrder.Uint32(key[len(dbKeyHorizonPrefix):]))
		if idx >= len(snap.Horizons) {
			return nil, fmt.Errorf("%w: unknown horizon %d", ErrCorrupt,
				idx)
		}
		h, err := decodeHorizon(iter.Value(), numBuckets)
		if err != nil {
			return nil, fmt.Errorf("horizon %d: %w", idx, err)
		}
		snap.Horizons[idx] = *h
		found[idx] = true
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("error iterating horizons: %w", err)
	}
	for idx, ok := range found {
		if !ok {
			return nil, fmt.Errorf("%w: horizon %d missing", ErrCorrupt,
				idx)
		}
	}

	log.Debugf("Loaded fee estimates at height %d (history %d-%d)",
		snap.BestSeenHeight, snap.HistoricalFirst, snap.HistoricalBest)
	return snap, nil
}
