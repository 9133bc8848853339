// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStats returns horizon statistics over the [1000, 2000, 3000, +Inf]
// bucket table.
func newTestStats(t *testing.T, maxPeriods, scale int, decay float64) *txConfirmStats {
	t.Helper()

	buckets, err := NewBucketTableFromBounds([]float64{1000, 2000, 3000})
	require.NoError(t, err)
	stats, err := newTxConfirmStats(buckets, &HorizonConfig{
		MaxPeriods: maxPeriods,
		Scale:      scale,
		Decay:      decay,
	})
	require.NoError(t, err)
	return stats
}

func TestTxConfirmStatsInvalidConfig(t *testing.T) {
	buckets, err := NewBucketTableFromBounds([]float64{1000})
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  HorizonConfig
	}{
		{"zero scale", HorizonConfig{MaxPeriods: 4, Scale: 0, Decay: 0.8}},
		{"zero periods", HorizonConfig{MaxPeriods: 0, Scale: 1, Decay: 0.8}},
		{"too many periods", HorizonConfig{MaxPeriods: 1009, Scale: 1, Decay: 0.8}},
		{"decay one", HorizonConfig{MaxPeriods: 4, Scale: 1, Decay: 1}},
		{"decay above one", HorizonConfig{MaxPeriods: 4, Scale: 1, Decay: 1.2}},
		{"zero decay", HorizonConfig{MaxPeriods: 4, Scale: 1, Decay: 0}},
		{"nan decay", HorizonConfig{MaxPeriods: 4, Scale: 1, Decay: math.NaN()}},
	}
	for _, test := range tests {
		_, err := newTxConfirmStats(buckets, &test.cfg)
		require.True(t, IsErrorCode(err, ErrInvalidConfig), test.name)
	}
}

func TestTxConfirmStatsRecordSentinel(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	require.NoError(t, stats.record(1, 3500))
	require.NoError(t, stats.record(1, 4000))

	require.Equal(t, 7500.0, stats.feeSum[3])
	require.Equal(t, 2.0, stats.confirmed[3])
	for p := 0; p < 4; p++ {
		require.Equal(t, 2.0, stats.confAvg[p][3])
		require.Equal(t, 0.0, stats.confAvg[p][2])
	}
}

func TestTxConfirmStatsRecordPeriods(t *testing.T) {
	stats := newTestStats(t, 4, 2, 0.8)

	// Confirming after 3 blocks with a scale of 2 lands in the second
	// period and every one after it.
	require.NoError(t, stats.record(3, 1500))
	require.Equal(t, 0.0, stats.confAvg[0][1])
	for p := 1; p < 4; p++ {
		require.Equal(t, 1.0, stats.confAvg[p][1])
	}
	require.Equal(t, 1.0, stats.confirmed[1])
	require.Equal(t, 1500.0, stats.feeSum[1])

	// Delays beyond the tracked window only count as confirmed.
	require.NoError(t, stats.record(100, 2500))
	for p := 0; p < 4; p++ {
		require.Equal(t, 0.0, stats.confAvg[p][2])
	}
	require.Equal(t, 1.0, stats.confirmed[2])

	err := stats.record(0, 1500)
	require.True(t, IsErrorCode(err, ErrNegativeConfirmDelay))
	require.Equal(t, 1.0, stats.confirmed[1])
}

func TestTxConfirmStatsAddRemove(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	bucket := stats.addTx(10, 1500)
	require.Equal(t, 1, bucket)
	require.Equal(t, 1, stats.unconfTxs[stats.slot(10)][bucket])

	// Removing at the same height has no net effect and is not a failure.
	require.NoError(t, stats.removeTx(10, 10, bucket, false))
	for slot := range stats.unconfTxs {
		for b := range stats.unconfTxs[slot] {
			require.Zero(t, stats.unconfTxs[slot][b])
		}
	}
	for p := range stats.failAvg {
		require.Zero(t, stats.failAvg[p][bucket])
	}

	// Removing again is a desync and must not record a failure.
	err := stats.removeTx(10, 13, bucket, false)
	require.True(t, IsErrorCode(err, ErrTrackingDesync))
	for p := range stats.failAvg {
		require.Zero(t, stats.failAvg[p][bucket])
	}

	err = stats.removeTx(12, 10, bucket, false)
	require.True(t, IsErrorCode(err, ErrHeightInversion))
}

func TestTxConfirmStatsRemoveFailures(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	bucket := stats.addTx(10, 2500)
	require.NoError(t, stats.removeTx(10, 13, bucket, false))
	require.Equal(t, 1.0, stats.failAvg[0][bucket])
	require.Equal(t, 1.0, stats.failAvg[1][bucket])
	require.Equal(t, 1.0, stats.failAvg[2][bucket])
	require.Equal(t, 0.0, stats.failAvg[3][bucket])

	// Mined transactions are never failures.
	bucket = stats.addTx(10, 500)
	require.NoError(t, stats.removeTx(10, 13, bucket, true))
	for p := range stats.failAvg {
		require.Zero(t, stats.failAvg[p][bucket])
	}
}

func TestTxConfirmStatsAgedOut(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	bucket := stats.addTx(10, 3500)
	for h := int64(11); h <= 14; h++ {
		stats.clearCurrent(h)
	}

	// Height 14 reuses the slot of height 10.
	require.Equal(t, 1, stats.oldUnconfTxs[bucket])
	require.Zero(t, stats.unconfTxs[stats.slot(10)][bucket])

	require.NoError(t, stats.removeTx(10, 14, bucket, false))
	require.Zero(t, stats.oldUnconfTxs[bucket])
	for p := 0; p < 4; p++ {
		require.Equal(t, 1.0, stats.failAvg[p][bucket])
	}

	err := stats.removeTx(10, 14, bucket, false)
	require.True(t, IsErrorCode(err, ErrTrackingDesync))
}

func TestTxConfirmStatsDecay(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	require.NoError(t, stats.record(1, 3500))
	bucket := stats.addTx(0, 1500)
	require.NoError(t, stats.removeTx(0, 2, bucket, false))

	for i := 0; i < 3; i++ {
		stats.updateMovingAverages()
	}

	want := math.Pow(0.8, 3)
	require.InDelta(t, 3500*want, stats.feeSum[3], 1e-9)
	require.InDelta(t, want, stats.confirmed[3], 1e-12)
	require.InDelta(t, want, stats.confAvg[0][3], 1e-12)
	require.InDelta(t, want, stats.failAvg[1][bucket], 1e-12)
}

func TestTxConfirmStatsUnconfirmedSince(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	// Heights below zero never occurred and are not consulted.
	stats.addTx(3, 3500)
	require.Zero(t, stats.unconfirmedSince(1, 2, 3))

	stats.addTx(1, 3500)
	stats.addTx(0, 3500)
	require.Equal(t, 2.0, stats.unconfirmedSince(1, 2, 3))
	require.Equal(t, 1.0, stats.unconfirmedSince(2, 2, 3))

	stats.oldUnconfTxs[3] = 5
	require.Equal(t, 7.0, stats.unconfirmedSince(1, 2, 3))
}

func TestEstimateMedianValEmpty(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)

	median, result := stats.estimateMedianVal(1, 0.5, 0.85, true, 10)
	require.Equal(t, -1.0, median)
	require.Equal(t, -1.0, result.Pass.Start)
	require.Equal(t, 0.8, result.Decay)
	require.Equal(t, 1, result.Scale)

	median, _ = stats.estimateMedianVal(0, 0.5, 0.85, true, 10)
	require.Equal(t, -1.0, median)
	median, _ = stats.estimateMedianVal(5, 0.5, 0.85, true, 10)
	require.Equal(t, -1.0, median)
}

func TestEstimateMedianValPass(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)
	for i := 0; i < 20; i++ {
		require.NoError(t, stats.record(1, 3500))
	}

	median, result := stats.estimateMedianVal(1, 0.5, 0.85, true, 0)
	require.Equal(t, 3500.0, median)
	require.Equal(t, 3000.0, result.Pass.Start)
	require.True(t, math.IsInf(result.Pass.End, 1))
	require.Equal(t, 20.0, result.Pass.WithinTarget)
	require.Equal(t, 20.0, result.Pass.TotalConfirmed)

	// The lower buckets never gathered enough data and are reported as
	// the trailing failed range.
	require.Equal(t, 0.0, result.Fail.Start)
	require.Equal(t, 3000.0, result.Fail.End)
}

func TestEstimateMedianValFail(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)
	for i := 0; i < 20; i++ {
		require.NoError(t, stats.record(3, 1500))
	}

	median, result := stats.estimateMedianVal(1, 0.5, 0.85, true, 0)
	require.Equal(t, -1.0, median)
	require.Equal(t, -1.0, result.Pass.Start)
	require.Equal(t, 1000.0, result.Fail.Start)
	require.True(t, math.IsInf(result.Fail.End, 1))
	require.Equal(t, 20.0, result.Fail.TotalConfirmed)
	require.Equal(t, 0.0, result.Fail.WithinTarget)

	median, _ = stats.estimateMedianVal(3, 0.5, 0.85, true, 0)
	require.Equal(t, 1500.0, median)
}

func TestEstimateMedianValPendingCounts(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)
	for i := 0; i < 20; i++ {
		require.NoError(t, stats.record(1, 3500))
	}

	// Transactions of the same bucket still waiting past the target lower
	// the success rate below the threshold.
	for i := 0; i < 10; i++ {
		stats.addTx(5, 3500)
	}
	median, result := stats.estimateMedianVal(1, 0.5, 0.85, true, 6)
	require.Equal(t, -1.0, median)
	require.Equal(t, 10.0, result.Fail.InMempool)

	median, _ = stats.estimateMedianVal(1, 0.5, 0.6, true, 6)
	require.Equal(t, 3500.0, median)
}

func TestEstimateMedianValMonotonic(t *testing.T) {
	stats := newTestStats(t, 4, 1, 0.8)
	rates := []float64{3500, 2500, 1500, 500}
	for i, rate := range rates {
		for j := 0; j < 20; j++ {
			require.NoError(t, stats.record(i+1, rate))
		}
	}

	// Longer targets never require a higher fee rate.
	prev := math.Inf(1)
	for target := 1; target <= stats.maxConfirms(); target++ {
		median, _ := stats.estimateMedianVal(target, 0.5, 0.85, true, 0)
		require.Equal(t, rates[target-1], median, "target %d", target)
		require.LessOrEqual(t, median, prev)
		prev = median
	}
}
