// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"
)

// txConfirmStats tracks how long transactions of each fee rate bucket took to
// be mined for a single horizon.  Confirmations are grouped into periods of
// scale blocks and every historical aggregate decays by decay on each new
// block.
//
// Mempool tracking is independent from the historical data: unconfTxs is a
// circular buffer indexed by the height a transaction entered the mempool
// modulo maxConfirms, and oldUnconfTxs collects transactions that have been
// waiting longer than the buffer covers.
type txConfirmStats struct {
	buckets *BucketTable

	// feeSum is the decayed sum of the fee rates of all confirmed
	// transactions per bucket.
	feeSum []float64

	// confirmed is the decayed count of all confirmed transactions per
	// bucket, regardless of how long they took.
	confirmed []float64

	// confAvg[p][b] is the decayed count of bucket b transactions confirmed
	// within p+1 periods.
	confAvg [][]float64

	// failAvg[p][b] is the decayed count of bucket b transactions that left
	// the mempool unconfirmed after waiting at least p+1 periods.
	failAvg [][]float64

	// unconfTxs[h % maxConfirms][b] is the number of bucket b transactions
	// that entered the mempool at height h and are still unconfirmed.
	unconfTxs [][]int

	// oldUnconfTxs[b] is the number of bucket b transactions unconfirmed
	// for longer than unconfTxs can track.
	oldUnconfTxs []int

	decay      float64
	scale      int
	maxPeriods int
}

// newTxConfirmStats returns empty statistics for one horizon.
func newTxConfirmStats(buckets *BucketTable, cfg *HorizonConfig) (*txConfirmStats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	n := buckets.Len()
	stats := &txConfirmStats{
		buckets:      buckets,
		feeSum:       make([]float64, n),
		confirmed:    make([]float64, n),
		confAvg:      make([][]float64, cfg.MaxPeriods),
		failAvg:      make([][]float64, cfg.MaxPeriods),
		unconfTxs:    make([][]int, cfg.MaxConfirms()),
		oldUnconfTxs: make([]int, n),
		decay:        cfg.Decay,
		scale:        cfg.Scale,
		maxPeriods:   cfg.MaxPeriods,
	}
	for p := range stats.confAvg {
		stats.confAvg[p] = make([]float64, n)
		stats.failAvg[p] = make([]float64, n)
	}
	for i := range stats.unconfTxs {
		stats.unconfTxs[i] = make([]int, n)
	}

	return stats, nil
}

// maxConfirms returns the highest number of confirmations tracked.
func (stats *txConfirmStats) maxConfirms() int {
	return stats.scale * stats.maxPeriods
}

// slot returns the circular buffer slot of the given height.
func (stats *txConfirmStats) slot(height int64) int {
	return int(height % int64(len(stats.unconfTxs)))
}

// clearCurrent prepares the circular buffer slot of a new block height for
// reuse by moving whatever is still counted there into oldUnconfTxs.
func (stats *txConfirmStats) clearCurrent(height int64) {
	cur := stats.unconfTxs[stats.slot(height)]
	for b := range cur {
		stats.oldUnconfTxs[b] += cur[b]
		cur[b] = 0
	}
}

// record adds a transaction that was mined after blocksToConfirm blocks with
// the given fee rate to the historical data.
func (stats *txConfirmStats) record(blocksToConfirm int, rate float64) error {
	if blocksToConfirm < 1 {
		str := fmt.Sprintf("cannot record a transaction confirmed after %d "+
			"blocks", blocksToConfirm)
		return ruleError(ErrNegativeConfirmDelay, str)
	}

	periodsToConfirm := (blocksToConfirm + stats.scale - 1) / stats.scale
	bucketIdx := stats.buckets.Index(rate)

	// A transaction mined within N periods was also mined within any number
	// of periods above N, so every one of those is increased.  This makes
	// estimation only need to look at a single period.
	for p := periodsToConfirm - 1; p < stats.maxPeriods; p++ {
		stats.confAvg[p][bucketIdx]++
	}
	stats.confirmed[bucketIdx]++
	stats.feeSum[bucketIdx] += rate

	return nil
}

// updateMovingAverages decays every historical aggregate.  It must be called
// once per new block, after clearCurrent and before the transactions of the
// block are recorded.
func (stats *txConfirmStats) updateMovingAverages() {
	for b := range stats.confirmed {
		for p := 0; p < stats.maxPeriods; p++ {
			stats.confAvg[p][b] *= stats.decay
			stats.failAvg[p][b] *= stats.decay
		}
		stats.feeSum[b] *= stats.decay
		stats.confirmed[b] *= stats.decay
	}
}

// addTx starts tracking a mempool transaction that entered at the given height
// and returns its bucket.
func (stats *txConfirmStats) addTx(height int64, rate float64) int {
	bucketIdx := stats.buckets.Index(rate)
	stats.unconfTxs[stats.slot(height)][bucketIdx]++
	return bucketIdx
}

// removeTx stops tracking a mempool transaction that entered at entryHeight.
// Transactions that leave the mempool without being mined count as failures
// for every period they waited through.
func (stats *txConfirmStats) removeTx(entryHeight, bestSeenHeight int64,
	bucketIdx int, inBlock bool) error {

	blocksAgo := bestSeenHeight - entryHeight
	if bestSeenHeight == 0 {
		blocksAgo = 0
	}
	if blocksAgo < 0 {
		str := fmt.Sprintf("transaction entered the mempool at height %d "+
			"above the best seen height %d", entryHeight, bestSeenHeight)
		return ruleError(ErrHeightInversion, str)
	}

	if blocksAgo >= int64(len(stats.unconfTxs)) {
		if stats.oldUnconfTxs[bucketIdx] <= 0 {
			str := fmt.Sprintf("mempool tx removed past the tracked "+
				"window but old unconfirmed count of bucket %d is already "+
				"zero", bucketIdx)
			return ruleError(ErrTrackingDesync, str)
		}
		stats.oldUnconfTxs[bucketIdx]--
	} else {
		slot := stats.slot(entryHeight)
		if stats.unconfTxs[slot][bucketIdx] <= 0 {
			str := fmt.Sprintf("mempool tx removed but unconfirmed count "+
				"of block slot %d bucket %d is already zero", slot,
				bucketIdx)
			return ruleError(ErrTrackingDesync, str)
		}
		stats.unconfTxs[slot][bucketIdx]--
	}

	if !inBlock && blocksAgo >= int64(stats.scale) {
		periodsAgo := int(blocksAgo / int64(stats.scale))
		for p := 0; p < periodsAgo && p < stats.maxPeriods; p++ {
			stats.failAvg[p][bucketIdx]++
		}
	}

	return nil
}

// unconfirmedSince returns the number of bucket b transactions that have been
// waiting for at least confTarget blocks at the given height.  Only heights
// that actually occurred are consulted.
func (stats *txConfirmStats) unconfirmedSince(confTarget int, height int64, b int) float64 {
	var n int
	for confct := confTarget; confct < stats.maxConfirms(); confct++ {
		entry := height - int64(confct)
		if entry < 0 {
			break
		}
		n += stats.unconfTxs[stats.slot(entry)][b]
	}
	n += stats.oldUnconfTxs[b]
	return float64(n)
}

// estimateMedianVal searches for the cheapest (requireGreater) or most
// expensive (!requireGreater) range of buckets whose transactions were mined
// within confTarget blocks at least successBreakPoint of the time, and
// returns the fee rate of the median transaction of that range.  It returns -1
// when no range qualified.
//
// Buckets are combined while they do not hold at least sufficientTxVal
// transactions per block on average, so that every evaluated range carries a
// statistically meaningful amount of data.
func (stats *txConfirmStats) estimateMedianVal(confTarget int, sufficientTxVal,
	successBreakPoint float64, requireGreater bool, height int64) (float64, EstimationResult) {

	result := newEstimationResult()
	result.Decay = stats.decay
	result.Scale = stats.scale
	if confTarget < 1 || confTarget > stats.maxConfirms() {
		return -1, result
	}

	// Counters for the current range of buckets.
	var (
		nConf    float64 // confirmed within the target
		totalNum float64 // ever confirmed
		extraNum float64 // still in the mempool after the target
		failNum  float64 // left the mempool unconfirmed after the target
	)
	periodTarget := (confTarget + stats.scale - 1) / stats.scale
	maxBucketIdx := stats.buckets.Len() - 1
	sufficient := sufficientTxVal / (1 - stats.decay)

	// requireGreater means we are looking for the lowest fee rate such that
	// all higher values pass, so we start at the highest bucket and walk
	// down until reaching failure.  Otherwise we are looking for the highest
	// fee rate such that all lower values fail and walk the other way.
	startBucket, step := 0, 1
	if requireGreater {
		startBucket, step = maxBucketIdx, -1
	}

	// The cur range is the one being accumulated and the best range is the
	// last one that had a high enough confirmation rate.
	curNear, curFar := startBucket, startBucket
	bestNear, bestFar := startBucket, startBucket

	foundAnswer := false
	newBucketRange := true
	passing := true
	passBucket := emptyEstimatorBucket()
	failBucket := emptyEstimatorBucket()

	fillRange := func(dst *EstimatorBucket, near, far int) {
		lo, hi := near, far
		if lo > hi {
			lo, hi = hi, lo
		}
		dst.Start = stats.buckets.lowerBound(lo)
		dst.End = stats.buckets.Bound(hi)
		dst.WithinTarget = nConf
		dst.TotalConfirmed = totalNum
		dst.InMempool = extraNum
		dst.LeftMempool = failNum
	}

	for b := startBucket; b >= 0 && b <= maxBucketIdx; b += step {
		if newBucketRange {
			curNear = b
			newBucketRange = false
		}
		curFar = b
		nConf += stats.confAvg[periodTarget-1][b]
		totalNum += stats.confirmed[b]
		failNum += stats.failAvg[periodTarget-1][b]
		extraNum += stats.unconfirmedSince(confTarget, height, b)

		// Only the confirmed data points are used to decide whether there
		// is enough data, so that every target looks at the same amount of
		// data and the same bucket breaks.
		if totalNum < sufficient {
			continue
		}

		curPct := nConf / (totalNum + failNum + extraNum)
		if (requireGreater && curPct < successBreakPoint) ||
			(!requireGreater && curPct > successBreakPoint) {

			// Keep accumulating the range but only report the first
			// failure.
			if passing {
				fillRange(&failBucket, curNear, curFar)
				passing = false
			}
			continue
		}

		failBucket = emptyEstimatorBucket()
		foundAnswer = true
		passing = true
		passBucket.WithinTarget = nConf
		passBucket.TotalConfirmed = totalNum
		passBucket.InMempool = extraNum
		passBucket.LeftMempool = failNum
		nConf, totalNum, extraNum, failNum = 0, 0, 0, 0
		bestNear, bestFar = curNear, curFar
		newBucketRange = true
	}

	median := -1.0
	minBucket, maxBucket := bestNear, bestFar
	if minBucket > maxBucket {
		minBucket, maxBucket = maxBucket, minBucket
	}
	var txSum float64
	for b := minBucket; b <= maxBucket; b++ {
		txSum += stats.confirmed[b]
	}

	// The median can't be computed exactly since individual transactions
	// are not kept, so report the average fee rate of the bucket holding the
	// median transaction of the best range instead.
	if foundAnswer && txSum != 0 {
		txSum /= 2
		for b := minBucket; b <= maxBucket; b++ {
			if stats.confirmed[b] < txSum {
				txSum -= stats.confirmed[b]
				continue
			}
			median = stats.feeSum[b] / stats.confirmed[b]
			break
		}
		passBucket.Start = stats.buckets.lowerBound(minBucket)
		passBucket.End = stats.buckets.Bound(maxBucket)
	}

	// A trailing range that was still accumulating without ever reaching
	// a decision is reported as failed.
	if passing && !newBucketRange {
		fillRange(&failBucket, curNear, curFar)
	}

	cmp := "<"
	if requireGreater {
		cmp = ">"
	}
	log.Tracef("FeeEst: %d %s%.0f%% decay %.5f: feerate: %g from %v "+
		"Fail: %v", confTarget, cmp, 100*successBreakPoint, stats.decay,
		median, passBucket, failBucket)

	result.Pass = passBucket
	result.Fail = failBucket
	return median, result
}
