// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package feedb

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/smartfee/database/engine"
	_ "github.com/btcsuite/smartfee/database/engine/leveldb"
	_ "github.com/btcsuite/smartfee/database/engine/pebbledb"
	"github.com/btcsuite/smartfee/fees"
	"github.com/stretchr/testify/require"
)

// populatedEstimator returns an estimator that processed a few blocks.
func populatedEstimator(t *testing.T) *fees.Estimator {
	t.Helper()

	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	var txNum uint64
	for height := int64(0); height < 8; height++ {
		var mined []chainhash.Hash
		for i := 0; i < 40; i++ {
			var hash chainhash.Hash
			hash[0], hash[1] = byte(txNum), byte(txNum>>8)
			txNum++
			rate := 1000 + rng.Int63n(50000)
			est.AddMemPoolTransaction(&fees.MemPoolTx{
				Hash:   hash,
				Height: height,
				Fee:    btcutil.Amount(rate),
				Size:   1000,
			}, true)
			if rate > 20000 {
				mined = append(mined, hash)
			}
		}
		require.NoError(t, est.ProcessBlock(height+1, mined))
	}
	est.FlushUnconfirmed()
	return est
}

func openEngine(t *testing.T, kind string) engine.Engine {
	t.Helper()

	db, err := engine.Open(kind, filepath.Join(t.TempDir(), "feedb"), true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreRoundTrip(t *testing.T) {
	for _, kind := range []string{"leveldb", "pebble"} {
		t.Run(kind, func(t *testing.T) {
			store := New(openEngine(t, kind))

			_, err := store.Load()
			require.True(t, errors.Is(err, ErrNoSnapshot))

			est := populatedEstimator(t)
			snap := est.Snapshot()
			require.NoError(t, store.Save(snap))

			loaded, err := store.Load()
			require.NoError(t, err)
			require.Equal(t, snap, loaded)

			// The loaded snapshot warm starts a fresh estimator.
			restored, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
			require.NoError(t, err)
			require.NoError(t, restored.Restore(loaded))
			want, _ := est.EstimateSmartFee(2, true)
			got, _ := restored.EstimateSmartFee(2, true)
			require.Equal(t, want, got)

			// Saving again replaces the previous snapshot.
			empty, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
			require.NoError(t, err)
			require.NoError(t, store.Save(empty.Snapshot()))
			loaded, err = store.Load()
			require.NoError(t, err)
			require.Equal(t, empty.Snapshot(), loaded)
		})
	}
}

func TestStoreCorrupt(t *testing.T) {
	snap := populatedEstimator(t).Snapshot()

	nanHorizon := snap.Horizons[fees.ShortHorizon]
	nanHorizon.Confirmed = append([]float64(nil), nanHorizon.Confirmed...)
	nanHorizon.Confirmed[3] = math.NaN()

	negHorizon := snap.Horizons[fees.LongHorizon]
	negHorizon.FailAvg = append([][]float64(nil), negHorizon.FailAvg...)
	negHorizon.FailAvg[2] = append([]float64(nil), negHorizon.FailAvg[2]...)
	negHorizon.FailAvg[2][9] = -1

	tests := []struct {
		name    string
		key     []byte
		value   []byte
		corrupt bool
	}{
		{"bad version", dbKeyVersion, []byte{0, 0, 0, 2}, false},
		{"short version", dbKeyVersion, []byte{1}, true},
		{"odd bounds", dbKeyBucketFees, []byte{1, 2, 3}, true},
		{"short heights", dbKeyHeights, []byte{1, 2, 3}, true},
		{"short horizon", horizonKey(1), []byte{0, 0, 0, 1}, true},
		{"unknown horizon", horizonKey(7), encodeHorizon(
			&fees.HorizonSnapshot{MaxPeriods: 1, Scale: 1, Decay: 0.5}), true},
		{"nan confirmed", horizonKey(0), encodeHorizon(&nanHorizon), true},
		{"negative failed average", horizonKey(2),
			encodeHorizon(&negHorizon), true},
	}

	for _, test := range tests {
		db := openEngine(t, "leveldb")
		store := New(db)
		require.NoError(t, store.Save(snap))

		tx, err := db.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Put(test.key, test.value))
		require.NoError(t, tx.Commit())

		_, err = store.Load()
		require.Error(t, err, test.name)
		if test.corrupt {
			require.ErrorIs(t, err, ErrCorrupt, test.name)
		}
	}
}

func TestStoreMissingHorizon(t *testing.T) {
	db := openEngine(t, "pebble")
	store := New(db)
	require.NoError(t, store.Save(populatedEstimator(t).Snapshot()))

	tx, err := db.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Delete(horizonKey(2)))
	require.NoError(t, tx.Commit())

	_, err = store.Load()
	require.True(t, errors.Is(err, ErrCorrupt))
}

func TestStoreMissingRecords(t *testing.T) {
	for _, key := range [][]byte{dbKeyBucketFees, dbKeyHeights} {
		db := openEngine(t, "leveldb")
		store := New(db)
		require.NoError(t, store.Save(populatedEstimator(t).Snapshot()))

		tx, err := db.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Delete(key))
		require.NoError(t, tx.Commit())

		_, err = store.Load()
		require.ErrorIs(t, err, ErrCorrupt, string(key))
	}
}
