// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/btcsuite/smartfee/database/engine"
	"github.com/btcsuite/smartfee/fees"
	"github.com/btcsuite/smartfee/fees/feedb"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T, cfg *config) *simulator {
	t.Helper()
	est, err := fees.NewEstimator(fees.DefaultEstimatorConfig())
	require.NoError(t, err)
	return &simulator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed)), est: est}
}

func TestSimulatorMinesBestPaying(t *testing.T) {
	cfg := &config{Capacity: 2, MedianRate: 10000, Sigma: 1, Seed: 7}
	sim := newTestSimulator(t, cfg)

	for i := 0; i < 5; i++ {
		sim.newTx(0)
	}
	best := make([]fees.FeeRate, 0, len(sim.mempool))
	for _, tx := range sim.mempool {
		best = append(best, tx.rate)
	}

	require.NoError(t, sim.mineBlock(1))
	require.Len(t, sim.mempool, 3)
	for _, left := range sim.mempool {
		mined := 0
		for _, rate := range best {
			if rate > left.rate {
				mined++
			}
		}
		require.GreaterOrEqual(t, mined, 2)
		require.True(t, sim.est.IsTracked(&left.hash))
	}
}

func TestSimulatorRun(t *testing.T) {
	cfg := &config{
		Blocks:     60,
		Arrivals:   40,
		Capacity:   35,
		MedianRate: 10000,
		Sigma:      1,
		Seed:       3,
		DbType:     "pebble",
		SaveDB:     filepath.Join(t.TempDir(), "sim"),
	}
	sim := newTestSimulator(t, cfg)
	require.NoError(t, sim.run())
	require.EqualValues(t, cfg.Blocks, sim.est.BestSeenHeight())

	rate, calc := sim.est.EstimateSmartFee(6, true)
	require.Greater(t, rate, fees.FeeRate(0))
	require.GreaterOrEqual(t, calc.ReturnedTarget, 6)

	require.NoError(t, saveState(cfg, sim.est))
	db, err := engine.Open(cfg.DbType, cfg.SaveDB, false)
	require.NoError(t, err)
	defer db.Close()
	snap, err := feedb.New(db).Load()
	require.NoError(t, err)
	require.EqualValues(t, cfg.Blocks, snap.BestSeenHeight)
}
