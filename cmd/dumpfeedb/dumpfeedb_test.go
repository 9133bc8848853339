// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/smartfee/database/engine"
	"github.com/btcsuite/smartfee/fees"
	"github.com/btcsuite/smartfee/fees/feedb"
	"github.com/stretchr/testify/require"
)

// writeTestDB saves the state of an estimator that saw 20 blocks, in which
// only transactions paying at least 50000 sat/kB were mined, and returns the
// database path.
func writeTestDB(t *testing.T) string {
	t.Helper()

	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	var txNum uint64
	for height := int64(0); height < 20; height++ {
		var mined []chainhash.Hash
		for i := 0; i < 100; i++ {
			var hash chainhash.Hash
			hash[0], hash[1] = byte(txNum), byte(txNum>>8)
			txNum++
			rate := 1000 + rng.Int63n(99000)
			est.AddMemPoolTransaction(&fees.MemPoolTx{
				Hash:   hash,
				Height: height,
				Fee:    btcutil.Amount(rate),
				Size:   1000,
			}, true)
			if rate >= 50000 {
				mined = append(mined, hash)
			}
		}
		require.NoError(t, est.ProcessBlock(height+1, mined))
	}

	path := filepath.Join(t.TempDir(), "feesdb")
	db, err := engine.Open("leveldb", path, true)
	require.NoError(t, err)
	require.NoError(t, feedb.New(db).Save(est.Snapshot()))
	require.NoError(t, db.Close())
	return path
}

func TestDumpRawFees(t *testing.T) {
	path := writeTestDB(t)

	tests := []struct {
		name      string
		horizon   string
		target    int
		threshold float64
		contains  []string
		missing   []string
	}{{
		name:      "all horizons",
		target:    2,
		threshold: 0.85,
		contains: []string{
			"Raw estimates for target 2 at 85% success",
			"short: ", "medium: ", "long: ", "sat/kB", "scale 24",
		},
		missing: []string{"not tracked"},
	}, {
		name:      "above short",
		target:    20,
		threshold: 0.95,
		contains: []string{
			"short: target not tracked (1 - 12)", "medium: ", "long: ",
		},
	}, {
		name:      "single horizon",
		horizon:   "long",
		target:    1008,
		threshold: 0.6,
		contains:  []string{"long: "},
		missing:   []string{"short: ", "medium: "},
	}, {
		name:      "above every horizon",
		target:    2000,
		threshold: 0.95,
		contains:  []string{"long: target not tracked (1 - 1008)"},
	}}

	for _, test := range tests {
		var out bytes.Buffer
		err := dump(&out, &config{
			DB:        path,
			DbType:    "leveldb",
			Horizon:   test.horizon,
			Target:    test.target,
			Threshold: test.threshold,
		})
		require.NoError(t, err, test.name)
		for _, s := range test.contains {
			require.Contains(t, out.String(), s, test.name)
		}
		for _, s := range test.missing {
			require.NotContains(t, out.String(), s, test.name)
		}
	}
}

func TestDumpErrors(t *testing.T) {
	path := writeTestDB(t)

	tests := []struct {
		name string
		cfg  config
	}{
		{"zero threshold", config{Target: 2}},
		{"threshold above one", config{Target: 2, Threshold: 1.5}},
		{"unknown horizon", config{Horizon: "weekly"}},
		{"missing db", config{DB: filepath.Join(t.TempDir(), "none")}},
	}
	for _, test := range tests {
		cfg := test.cfg
		if cfg.DB == "" {
			cfg.DB = path
		}
		cfg.DbType = "leveldb"
		require.Error(t, dump(&bytes.Buffer{}, &cfg), test.name)
	}
}

func TestDumpBuckets(t *testing.T) {
	path := writeTestDB(t)

	var out bytes.Buffer
	require.NoError(t, dump(&out, &config{DB: path, DbType: "leveldb",
		Horizon: "medium"}))
	require.Contains(t, out.String(), "Best seen height: 20")
	require.Contains(t, out.String(), "medium horizon")
	require.NotContains(t, out.String(), "short horizon")

	out.Reset()
	require.NoError(t, dump(&out, &config{DB: path, DbType: "leveldb",
		Raw: true}))
	require.Contains(t, out.String(), "Horizons")
}
