// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"
	"math"
)

// HorizonSnapshot holds the historical data of a single horizon.
type HorizonSnapshot struct {
	MaxPeriods int
	Scale      int
	Decay      float64

	// FeeSum and Confirmed are indexed by bucket.
	FeeSum    []float64
	Confirmed []float64

	// ConfAvg and FailAvg are indexed by period, then bucket.
	ConfAvg [][]float64
	FailAvg [][]float64
}

// Snapshot is the persistable state of an estimator.  Only historical data is
// included; transactions currently tracked from the mempool are not.
type Snapshot struct {
	// BucketBounds are the bucket upper bounds, including the final +Inf
	// sentinel.
	BucketBounds []float64

	BestSeenHeight  int64
	HistoricalFirst int64
	HistoricalBest  int64

	// Horizons holds the short, medium and long horizon data, indexed by
	// Horizon.
	Horizons [numHorizons]HorizonSnapshot
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i := range rows {
		out[i] = append([]float64(nil), rows[i]...)
	}
	return out
}

// snapshot returns a deep copy of the historical data of the horizon.
func (stats *txConfirmStats) snapshot() HorizonSnapshot {
	return HorizonSnapshot{
		MaxPeriods: stats.maxPeriods,
		Scale:      stats.scale,
		Decay:      stats.decay,
		FeeSum:     append([]float64(nil), stats.feeSum...),
		Confirmed:  append([]float64(nil), stats.confirmed...),
		ConfAvg:    copyRows(stats.confAvg),
		FailAvg:    copyRows(stats.failAvg),
	}
}

// checkSnapshot verifies that the horizon snapshot has the shape of the
// horizon it would be restored into.
func (stats *txConfirmStats) checkSnapshot(snap *HorizonSnapshot) error {
	if snap.MaxPeriods != stats.maxPeriods || snap.Scale != stats.scale ||
		snap.Decay != stats.decay {

		return fmt.Errorf("stored horizon (periods %d, scale %d, decay %v) "+
			"does not match configured horizon (periods %d, scale %d, "+
			"decay %v)", snap.MaxPeriods, snap.Scale, snap.Decay,
			stats.maxPeriods, stats.scale, stats.decay)
	}

	n := stats.buckets.Len()
	if len(snap.FeeSum) != n || len(snap.Confirmed) != n {
		return fmt.Errorf("stored per bucket data has %d/%d entries, want %d",
			len(snap.FeeSum), len(snap.Confirmed), n)
	}
	if len(snap.ConfAvg) != stats.maxPeriods ||
		len(snap.FailAvg) != stats.maxPeriods {

		return fmt.Errorf("stored per period data has %d/%d periods, want %d",
			len(snap.ConfAvg), len(snap.FailAvg), stats.maxPeriods)
	}
	for p := 0; p < stats.maxPeriods; p++ {
		if len(snap.ConfAvg[p]) != n || len(snap.FailAvg[p]) != n {
			return fmt.Errorf("stored period %d has %d/%d buckets, want %d",
				p, len(snap.ConfAvg[p]), len(snap.FailAvg[p]), n)
		}
	}

	// Decayed sums and counts are never negative.  A NaN would make every
	// sample size and success rate comparison false.
	if err := checkAggregates("fee sum", snap.FeeSum); err != nil {
		return err
	}
	if err := checkAggregates("confirmed count", snap.Confirmed); err != nil {
		return err
	}
	for p := 0; p < stats.maxPeriods; p++ {
		if err := checkAggregates("confirmed average", snap.ConfAvg[p]); err != nil {
			return fmt.Errorf("period %d: %w", p, err)
		}
		if err := checkAggregates("failed average", snap.FailAvg[p]); err != nil {
			return fmt.Errorf("period %d: %w", p, err)
		}
	}
	return nil
}

// checkAggregates returns an error for the first value that is not a finite
// non-negative number.
func checkAggregates(name string, vals []float64) error {
	for b, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid %s %v in bucket %d", name, v, b)
		}
	}
	return nil
}

// restore installs the historical data of a previously checked snapshot.
func (stats *txConfirmStats) restore(snap *HorizonSnapshot) {
	copy(stats.feeSum, snap.FeeSum)
	copy(stats.confirmed, snap.Confirmed)
	for p := 0; p < stats.maxPeriods; p++ {
		copy(stats.confAvg[p], snap.ConfAvg[p])
		copy(stats.failAvg[p], snap.FailAvg[p])
	}
}

// Snapshot returns the historical state of the estimator.
//
// The recorded history bounds are those of this run when it covers more than
// half of the previously restored history, otherwise the restored bounds are
// carried forward.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) Snapshot() *Snapshot {
	est.lock.RLock()
	defer est.lock.RUnlock()

	snap := &Snapshot{
		BucketBounds:   est.buckets.Bounds(),
		BestSeenHeight: est.bestSeenHeight,
	}
	if est.blockSpanOrZero() > est.historicalBlockSpanOrZero()/2 {
		snap.HistoricalFirst = est.firstRecordedHeight
		snap.HistoricalBest = est.bestSeenHeight
	} else {
		snap.HistoricalFirst = est.historicalFirst
		snap.HistoricalBest = est.historicalBest
	}
	for h, stats := range est.stats {
		snap.Horizons[h] = stats.snapshot()
	}

	return snap
}

// Restore replaces the historical state of the estimator with a snapshot.  It
// must be called before any mempool transaction is tracked.  The snapshot
// must have been taken with the same bucket table and horizon configuration.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) Restore(snap *Snapshot) error {
	est.lock.Lock()
	defer est.lock.Unlock()

	if len(est.memPoolTxs) > 0 {
		str := fmt.Sprintf("cannot restore while tracking %d mempool txs",
			len(est.memPoolTxs))
		return ruleError(ErrSnapshotMismatch, str)
	}

	bounds, err := NewBucketTableFromBounds(snap.BucketBounds)
	if err != nil {
		str := fmt.Sprintf("invalid stored bucket bounds: %v", err)
		return ruleError(ErrSnapshotMismatch, str)
	}
	if !bounds.Equal(est.buckets) {
		str := fmt.Sprintf("stored bucket table (%d buckets) does not "+
			"match the configured one (%d buckets)", bounds.Len(),
			est.buckets.Len())
		return ruleError(ErrBucketMismatch, str)
	}

	if snap.BestSeenHeight < 0 || snap.HistoricalFirst < 0 ||
		snap.HistoricalFirst > snap.HistoricalBest ||
		snap.HistoricalBest > snap.BestSeenHeight {

		str := fmt.Sprintf("corrupt stored heights: first %d, best %d, "+
			"seen %d", snap.HistoricalFirst, snap.HistoricalBest,
			snap.BestSeenHeight)
		return ruleError(ErrSnapshotMismatch, str)
	}

	for h, stats := range est.stats {
		if err := stats.checkSnapshot(&snap.Horizons[h]); err != nil {
			str := fmt.Sprintf("%s horizon: %v", Horizon(h), err)
			return ruleError(ErrSnapshotMismatch, str)
		}
	}

	for h, stats := range est.stats {
		stats.restore(&snap.Horizons[h])
	}
	est.bestSeenHeight = snap.BestSeenHeight
	est.firstRecordedHeight = 0
	est.historicalFirst = snap.HistoricalFirst
	est.historicalBest = snap.HistoricalBest

	log.Infof("Restored fee estimates at height %d with history from %d "+
		"to %d", est.bestSeenHeight, est.historicalFirst, est.historicalBest)

	return nil
}
