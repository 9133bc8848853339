// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// MemPoolTx describes a transaction that entered the mempool.
type MemPoolTx struct {
	// Hash is the transaction identity.
	Hash chainhash.Hash

	// Height is the best chain height at the time the transaction entered
	// the mempool.
	Height int64

	// Fee is the total fee paid by the transaction.
	Fee btcutil.Amount

	// Size is the serialized size of the transaction in bytes.
	Size int64
}

// memPoolTxDesc is an aux structure used to track the local estimator mempool.
type memPoolTxDesc struct {
	height      int64
	bucketIndex int
	rate        FeeRate
}

// EstimatorStats is a point in time summary of the estimator state.
type EstimatorStats struct {
	BestSeenHeight      int64
	FirstRecordedHeight int64
	HistoricalFirst     int64
	HistoricalBest      int64

	// TrackedMemPoolTxs is the number of mempool transactions currently
	// counted in the horizons.
	TrackedMemPoolTxs int

	// BlockTrackedTxs and BlockUntrackedTxs count the mempool transactions
	// accepted and rejected for estimation since the last block.
	BlockTrackedTxs   int
	BlockUntrackedTxs int

	// MaxUsableEstimate is the highest target the current history supports.
	MaxUsableEstimate int
}

// Estimator tracks historical data for published and mined transactions in
// order to estimate fees to be used in new transactions for confirmation
// within a target block window.
//
// Three horizons with different decays and granularity are fed the same
// events and their answers are combined when a smart fee is requested.
type Estimator struct {
	cfg     EstimatorConfig
	buckets *BucketTable

	// stats holds the short, medium and long horizons indexed by Horizon.
	stats [numHorizons]*txConfirmStats

	// memPoolTxs is the map of transaction hashes and data of known mempool
	// txs that are counted in every horizon.
	memPoolTxs map[chainhash.Hash]memPoolTxDesc

	// minedTxs remembers recently mined transactions so that a late mempool
	// announcement of one of them is not tracked until it ages out.
	minedTxs lru.Cache

	bestSeenHeight      int64
	firstRecordedHeight int64
	historicalFirst     int64
	historicalBest      int64
	trackedTxs          int
	untrackedTxs        int

	lock sync.RWMutex
}

// NewEstimator returns an empty estimator given a config.  This estimator then
// needs to be fed data for published and mined transactions before it can be
// used to estimate fees for new transactions.
func NewEstimator(cfg *EstimatorConfig) (*Estimator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	buckets, err := NewBucketTable(cfg.MinBucketFeeRate,
		cfg.MaxBucketFeeRate, cfg.FeeSpacing)
	if err != nil {
		return nil, err
	}

	est := &Estimator{
		cfg:        *cfg,
		buckets:    buckets,
		memPoolTxs: make(map[chainhash.Hash]memPoolTxDesc),
		minedTxs:   lru.NewCache(cfg.MinedTxCacheSize),
	}
	for h := range est.stats {
		est.stats[h], err = newTxConfirmStats(buckets, &cfg.Horizons[h])
		if err != nil {
			return nil, err
		}
	}

	log.Debugf("Created fee estimator with %d buckets, tracking up to %d "+
		"confirmations", buckets.Len(), est.stats[LongHorizon].maxConfirms())

	return est, nil
}

// Buckets returns the bucket table shared by every horizon.
func (est *Estimator) Buckets() *BucketTable {
	return est.buckets
}

// AddMemPoolTransaction adds a mempool transaction to the estimator in order to
// account for it in the estimations.  Transactions are only tracked when they
// enter the mempool at the currently recorded best height; anything else comes
// from a reorg or a lagging source and is ignored.  Transactions not valid for
// fee estimation (such as those depending on other unconfirmed transactions)
// are only counted.
//
// This is safe to be called from multiple goroutines.
func (est *Estimator) AddMemPoolTransaction(tx *MemPoolTx, validFeeEstimate bool) {
	est.lock.Lock()
	defer est.lock.Unlock()

	if _, exists := est.memPoolTxs[tx.Hash]; exists {
		log.Tracef("Blockpolicy error mempool tx %v already being tracked",
			tx.Hash)
		return
	}

	if est.cfg.MinedTxCacheSize > 0 && est.minedTxs.Contains(tx.Hash) {
		log.Tracef("Ignoring mempool tx %v already mined", tx.Hash)
		return
	}

	if tx.Height != est.bestSeenHeight {
		// Ignore side chains and re-orgs.  Assuming they are random they
		// don't affect the estimate.
		return
	}

	if !validFeeEstimate {
		est.untrackedTxs++
		return
	}
	est.trackedTxs++

	rate := NewFeeRate(tx.Fee, tx.Size)
	bucketIdx := -1
	for h, stats := range est.stats {
		idx := stats.addTx(tx.Height, float64(rate))
		if bucketIdx != -1 && idx != bucketIdx {
			// All horizons share the same bucket table so this can only
			// happen on memory corruption.
			log.Errorf("Mempool tx %v mapped to bucket %d by the %s "+
				"horizon but %d by the others", tx.Hash, idx, Horizon(h),
				bucketIdx)
		}
		bucketIdx = idx
	}

	est.memPoolTxs[tx.Hash] = memPoolTxDesc{
		height:      tx.Height,
		bucketIndex: bucketIdx,
		rate:        rate,
	}

	log.Tracef("Adding mempool tx %v using fee rate %v (bucket %d)",
		tx.Hash, rate, bucketIdx)
}

// removeTx stops tracking a mempool transaction in every horizon.  It returns
// whether the transaction was tracked.  The tracking record is dropped even if
// a horizon reports an invariant violation, since its counters can't be
// repaired by retrying.
//
// This function MUST be called with the estimator lock held (for writes).
func (est *Estimator) removeTx(hash *chainhash.Hash, inBlock bool) (bool, error) {
	desc, exists := est.memPoolTxs[*hash]
	if !exists {
		return false, nil
	}

	var errs []error
	for h, stats := range est.stats {
		err := stats.removeTx(desc.height, est.bestSeenHeight,
			desc.bucketIndex, inBlock)
		if err != nil {
			log.Errorf("Unable to remove tx %v from the %s horizon: %v",
				hash, Horizon(h), err)
			errs = append(errs, err)
		}
	}
	delete(est.memPoolTxs, *hash)

	if len(errs) > 0 {
		return true, errs[0]
	}
	return true, nil
}

// RemoveMemPoolTransaction removes a mempool transaction that left the mempool
// without being mined from statistics tracking.  It returns false when the
// transaction was not being tracked, which callers should not treat as an
// error.
//
// This is safe to be called from multiple goroutines.
func (est *Estimator) RemoveMemPoolTransaction(hash *chainhash.Hash) (bool, error) {
	est.lock.Lock()
	defer est.lock.Unlock()

	log.Tracef("Removing tx %v from mempool", hash)
	return est.removeTx(hash, false)
}

// processBlockTx moves a tracked mempool transaction into the historical data
// of every horizon.  It returns whether the transaction was counted.
//
// This function MUST be called with the estimator lock held (for writes).
func (est *Estimator) processBlockTx(blockHeight int64, hash *chainhash.Hash) (bool, error) {
	desc, exists := est.memPoolTxs[*hash]
	if !exists {
		// Transactions unknown to the mempool can't be used since that
		// would let miners add dummy high fee transactions to skew the
		// estimates.
		return false, nil
	}
	if _, err := est.removeTx(hash, true); err != nil {
		return false, err
	}

	// A transaction can't be mined at or before the height it entered the
	// mempool at.
	blocksToConfirm := blockHeight - desc.height
	if blocksToConfirm <= 0 {
		str := fmt.Sprintf("mined tx %v at height %d was known from the "+
			"mempool at height %d", hash, blockHeight, desc.height)
		log.Errorf("Blockpolicy error: %s", str)
		return false, ruleError(ErrNegativeConfirmDelay, str)
	}

	for _, stats := range est.stats {
		err := stats.record(int(blocksToConfirm), float64(desc.rate))
		if err != nil {
			return false, err
		}
	}

	log.Tracef("Processing mined tx %v (rate %v, delay %d)", hash,
		desc.rate, blocksToConfirm)
	return true, nil
}

// ProcessBlock processes all transactions mined in the block at the given
// height.  Blocks at or below the best seen height are ignored since reorgs
// are not tracked.  Per transaction invariant violations do not abort the
// block; they are joined and returned after the whole block is processed.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) ProcessBlock(blockHeight int64, txHashes []chainhash.Hash) error {
	est.lock.Lock()
	defer est.lock.Unlock()

	if blockHeight <= est.bestSeenHeight {
		// Ignore side chains and re-orgs.  Assuming they are random they
		// don't affect the estimate.  And if an attacker can re-org the
		// chain at will, then there are much bigger problems than "attacker
		// can influence transaction fees."
		log.Warnf("Trying to process mined transactions at block %d when "+
			"previous best block was at height %d", blockHeight,
			est.bestSeenHeight)
		return nil
	}

	// Must update bestSeenHeight in sync with clearCurrent so that calls
	// to removeTx (via processBlockTx) correctly calculate age of unconfirmed
	// transactions being removed from mempool tracking.
	est.bestSeenHeight = blockHeight

	// Update unconfirmed circular buffer and decay the historical data
	// before the mined transactions are recorded.
	for _, stats := range est.stats {
		stats.clearCurrent(blockHeight)
		stats.updateMovingAverages()
	}

	var (
		countedTxs int
		errs       []error
	)
	for i := range txHashes {
		hash := &txHashes[i]
		if est.cfg.MinedTxCacheSize > 0 {
			est.minedTxs.Add(*hash)
		}
		counted, err := est.processBlockTx(blockHeight, hash)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if counted {
			countedTxs++
		}
	}

	if est.firstRecordedHeight == 0 && countedTxs > 0 {
		est.firstRecordedHeight = est.bestSeenHeight
		log.Infof("Blockpolicy first recorded height %d",
			est.firstRecordedHeight)
	}

	maxUsable, spanErr := est.maxUsableEstimate()
	if spanErr != nil {
		errs = append(errs, spanErr)
	}
	log.Debugf("Blockpolicy estimates updated by %d of %d block txs, since "+
		"last block %d of %d tracked, mempool map size %d, max target %d "+
		"from %s", countedTxs, len(txHashes), est.trackedTxs,
		est.trackedTxs+est.untrackedTxs, len(est.memPoolTxs), maxUsable,
		newLogClosure(func() string {
			if est.historicalBlockSpanOrZero() > est.blockSpanOrZero() {
				return "historical"
			}
			return "current"
		}))

	est.trackedTxs = 0
	est.untrackedTxs = 0

	return errors.Join(errs...)
}

// FlushUnconfirmed removes every tracked mempool transaction as if it left the
// mempool without being mined and returns how many were removed.  It is meant
// to be called on shutdown before persisting the estimator state.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) FlushUnconfirmed() int {
	est.lock.Lock()
	defer est.lock.Unlock()

	var removed int
	for hash := range est.memPoolTxs {
		hash := hash
		if _, err := est.removeTx(&hash, false); err != nil {
			log.Errorf("Unable to flush tx %v: %v", hash, err)
		}
		removed++
	}
	log.Debugf("Recorded %d unconfirmed txs from mempool", removed)

	return removed
}

// blockSpan returns the number of blocks data has been recorded for since
// this estimator started.
func (est *Estimator) blockSpan() (int64, error) {
	if est.firstRecordedHeight == 0 {
		return 0, nil
	}
	if est.bestSeenHeight < est.firstRecordedHeight {
		str := fmt.Sprintf("best seen height %d is below the first "+
			"recorded height %d", est.bestSeenHeight,
			est.firstRecordedHeight)
		return 0, ruleError(ErrHeightInversion, str)
	}
	return est.bestSeenHeight - est.firstRecordedHeight, nil
}

// historicalBlockSpan returns the number of blocks covered by restored
// history, or zero when that history is too old to be used.
func (est *Estimator) historicalBlockSpan() (int64, error) {
	if est.historicalFirst == 0 {
		return 0, nil
	}
	if est.historicalBest < est.historicalFirst {
		str := fmt.Sprintf("historical best height %d is below the "+
			"historical first height %d", est.historicalBest,
			est.historicalFirst)
		return 0, ruleError(ErrHeightInversion, str)
	}
	if est.bestSeenHeight-est.historicalBest > est.cfg.OldestEstimateHistory {
		return 0, nil
	}
	return est.historicalBest - est.historicalFirst, nil
}

func (est *Estimator) blockSpanOrZero() int64 {
	span, _ := est.blockSpan()
	return span
}

func (est *Estimator) historicalBlockSpanOrZero() int64 {
	span, _ := est.historicalBlockSpan()
	return span
}

// maxUsableEstimate returns the highest target the recorded history can
// support.  Spans are halved so that there are enough potential failing data
// points for an estimate, not only confirming ones.
func (est *Estimator) maxUsableEstimate() (int, error) {
	span, err := est.blockSpan()
	if err != nil {
		return 0, err
	}
	histSpan, err := est.historicalBlockSpan()
	if err != nil {
		return 0, err
	}
	if histSpan > span {
		span = histSpan
	}
	maxConfirms := int64(est.stats[LongHorizon].maxConfirms())
	if usable := span / 2; usable < maxConfirms {
		return int(usable), nil
	}
	return int(maxConfirms), nil
}

// BlockSpan returns the number of blocks data has been recorded for since the
// first block that confirmed a tracked transaction.
func (est *Estimator) BlockSpan() (int64, error) {
	est.lock.RLock()
	defer est.lock.RUnlock()
	return est.blockSpan()
}

// HistoricalBlockSpan returns the number of blocks covered by restored
// history, or zero if none was restored or it is stale.
func (est *Estimator) HistoricalBlockSpan() (int64, error) {
	est.lock.RLock()
	defer est.lock.RUnlock()
	return est.historicalBlockSpan()
}

// MaxUsableEstimate returns the highest confirmation target the current
// history can produce an estimate for.
func (est *Estimator) MaxUsableEstimate() (int, error) {
	est.lock.RLock()
	defer est.lock.RUnlock()
	return est.maxUsableEstimate()
}

// sufficientTxs returns the sample size threshold of a horizon.
func sufficientTxs(h Horizon) float64 {
	if h == ShortHorizon {
		return sufficientTxsShort
	}
	return sufficientFeeTxs
}

// estimateMedianVal queries a single horizon.
func (est *Estimator) estimateMedianVal(h Horizon, confTarget int,
	successThreshold float64) (float64, EstimationResult) {

	return est.stats[h].estimateMedianVal(confTarget, sufficientTxs(h),
		successThreshold, true, est.bestSeenHeight)
}

// estimateCombinedFee returns a fee estimate at the required success threshold
// from the shortest time horizon which tracks confirmations up to the desired
// target.  If checkShorterHorizon is requested, also allow short time horizon
// estimates for a lower target to reduce the given answer.
func (est *Estimator) estimateCombinedFee(confTarget int, successThreshold float64,
	checkShorterHorizon bool) (float64, EstimationResult) {

	estimate := -1.0
	result := newEstimationResult()
	short := est.stats[ShortHorizon].maxConfirms()
	medium := est.stats[MediumHorizon].maxConfirms()
	long := est.stats[LongHorizon].maxConfirms()
	if confTarget < 1 || confTarget > long {
		return estimate, result
	}

	switch {
	case confTarget <= short:
		estimate, result = est.estimateMedianVal(ShortHorizon, confTarget,
			successThreshold)
	case confTarget <= medium:
		estimate, result = est.estimateMedianVal(MediumHorizon, confTarget,
			successThreshold)
	default:
		estimate, result = est.estimateMedianVal(LongHorizon, confTarget,
			successThreshold)
	}

	if !checkShorterHorizon {
		return estimate, result
	}

	// If a lower target from a more recent horizon returns a lower answer
	// use it.
	if confTarget > medium {
		medMax, medResult := est.estimateMedianVal(MediumHorizon, medium,
			successThreshold)
		if medMax > 0 && (estimate == -1 || medMax < estimate) {
			estimate, result = medMax, medResult
		}
	}
	if confTarget > short {
		shortMax, shortResult := est.estimateMedianVal(ShortHorizon, short,
			successThreshold)
		if shortMax > 0 && (estimate == -1 || shortMax < estimate) {
			estimate, result = shortMax, shortResult
		}
	}

	return estimate, result
}

// estimateConservativeFee returns the maximum of the medium and long horizon
// estimates at doubleTarget with the strictest success threshold.  Targets are
// only checked on horizons that track at least twice them, so that enough
// failing data points are available.
func (est *Estimator) estimateConservativeFee(doubleTarget int) (float64, EstimationResult) {
	estimate := -1.0
	result := newEstimationResult()
	if doubleTarget <= est.stats[ShortHorizon].maxConfirms() {
		estimate, result = est.estimateMedianVal(MediumHorizon,
			doubleTarget, doubleSuccessPct)
	}
	if doubleTarget <= est.stats[MediumHorizon].maxConfirms() {
		longEstimate, longResult := est.estimateMedianVal(LongHorizon,
			doubleTarget, doubleSuccessPct)
		if longEstimate > estimate {
			estimate, result = longEstimate, longResult
		}
	}
	return estimate, result
}

// EstimateSmartFee returns the fee rate a transaction should pay to be mined
// within confTarget blocks, together with a description of how the estimate
// was derived.  A zero fee rate means no estimate is available, which is the
// expected outcome while not enough history has been recorded.
//
// The estimate is the maximum of:
//   - the half target estimate at a 60% success threshold
//   - the target estimate at an 85% success threshold
//   - the double target estimate at a 95% success threshold
//   - in conservative mode, or when none of the above produced an answer, the
//     double target estimate of the medium and long horizons at 95%
//
// Shorter horizons are allowed to lower the first three answers so that
// estimates increase monotonically with the target, except for the double
// target in conservative mode where short term drops are not trusted.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) EstimateSmartFee(confTarget int, conservative bool) (FeeRate, FeeCalculation) {
	est.lock.RLock()
	defer est.lock.RUnlock()

	calc := FeeCalculation{
		Est:            newEstimationResult(),
		Reason:         ReasonNone,
		DesiredTarget:  confTarget,
		ReturnedTarget: confTarget,
	}

	// Return failure if trying to analyze a target we're not tracking.
	if confTarget <= 0 || confTarget > est.stats[LongHorizon].maxConfirms() {
		return 0, calc
	}

	// It's not possible to get reasonable estimates for a target of 1.
	if confTarget == 1 {
		confTarget = 2
	}

	maxUsable, err := est.maxUsableEstimate()
	if err != nil {
		log.Errorf("Unable to compute max usable estimate: %v", err)
		return 0, calc
	}
	if confTarget > maxUsable {
		confTarget = maxUsable
	}
	calc.ReturnedTarget = confTarget
	if confTarget <= 1 {
		return 0, calc
	}

	halfEst, result := est.estimateCombinedFee(confTarget/2, halfSuccessPct,
		true)
	calc.Est = result
	calc.Reason = ReasonHalfEstimate
	median := halfEst

	actualEst, result := est.estimateCombinedFee(confTarget, successPct, true)
	if actualEst > median {
		median = actualEst
		calc.Est = result
		calc.Reason = ReasonFullEstimate
	}

	doubleEst, result := est.estimateCombinedFee(2*confTarget,
		doubleSuccessPct, !conservative)
	if doubleEst > median {
		median = doubleEst
		calc.Est = result
		calc.Reason = ReasonDoubleEstimate
	}

	if conservative || median == -1 {
		consEst, result := est.estimateConservativeFee(2 * confTarget)
		if consEst > median {
			median = consEst
			calc.Est = result
			calc.Reason = ReasonConservative
		}
	}

	if median < 0 {
		return 0, calc
	}

	return FeeRate(median), calc
}

// EstimateRawFee returns the estimate of a single horizon for confTarget at
// the given success threshold without any of the smart fee adjustments.  A
// negative fee rate means no bucket range qualified.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) EstimateRawFee(confTarget int, successThreshold float64,
	horizon Horizon) (FeeRate, EstimationResult, error) {

	if horizon < 0 || horizon >= numHorizons {
		str := fmt.Sprintf("unknown horizon %d", int(horizon))
		return -1, newEstimationResult(), ruleError(ErrInvalidHorizon, str)
	}

	est.lock.RLock()
	defer est.lock.RUnlock()

	stats := est.stats[horizon]
	if confTarget <= 0 || confTarget > stats.maxConfirms() {
		str := fmt.Sprintf("target %d outside of the range [1, %d] tracked "+
			"by the %s horizon", confTarget, stats.maxConfirms(), horizon)
		return -1, newEstimationResult(), ruleError(ErrTargetOutOfRange, str)
	}

	median, result := est.estimateMedianVal(horizon, confTarget,
		successThreshold)
	return FeeRate(median), result, nil
}

// HighestTargetTracked returns the highest confirmation target the given
// horizon tracks.
func (est *Estimator) HighestTargetTracked(horizon Horizon) (int, error) {
	if horizon < 0 || horizon >= numHorizons {
		str := fmt.Sprintf("unknown horizon %d", int(horizon))
		return 0, ruleError(ErrInvalidHorizon, str)
	}
	return est.stats[horizon].maxConfirms(), nil
}

// BestSeenHeight returns the height of the last processed block.
func (est *Estimator) BestSeenHeight() int64 {
	est.lock.RLock()
	defer est.lock.RUnlock()
	return est.bestSeenHeight
}

// IsTracked returns whether the transaction is currently tracked.
func (est *Estimator) IsTracked(hash *chainhash.Hash) bool {
	est.lock.RLock()
	_, ok := est.memPoolTxs[*hash]
	est.lock.RUnlock()
	return ok
}

// Stats returns a summary of the estimator state.
//
// This function is safe to be called from multiple goroutines.
func (est *Estimator) Stats() EstimatorStats {
	est.lock.RLock()
	defer est.lock.RUnlock()

	maxUsable, err := est.maxUsableEstimate()
	if err != nil {
		maxUsable = 0
	}
	return EstimatorStats{
		BestSeenHeight:      est.bestSeenHeight,
		FirstRecordedHeight: est.firstRecordedHeight,
		HistoricalFirst:     est.historicalFirst,
		HistoricalBest:      est.historicalBest,
		TrackedMemPoolTxs:   len(est.memPoolTxs),
		BlockTrackedTxs:     est.trackedTxs,
		BlockUntrackedTxs:   est.untrackedTxs,
		MaxUsableEstimate:   maxUsable,
	}
}

// DumpBuckets returns the historical data of a horizon as a table with one
// row per bucket: its upper bound, the average fee rate and decayed count of
// confirmed transactions, followed by the decayed count confirmed within each
// period.
func (est *Estimator) DumpBuckets(horizon Horizon) (string, error) {
	if horizon < 0 || horizon >= numHorizons {
		str := fmt.Sprintf("unknown horizon %d", int(horizon))
		return "", ruleError(ErrInvalidHorizon, str)
	}

	est.lock.RLock()
	defer est.lock.RUnlock()

	return dumpStats(est.stats[horizon]), nil
}

// dumpStats formats the historical data of a single horizon.
func dumpStats(stats *txConfirmStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%14s|%12s|%8s", "bucket", "avg", "count")
	for p := 0; p < stats.maxPeriods; p++ {
		fmt.Fprintf(&sb, "|%7d", (p+1)*stats.scale)
	}
	sb.WriteString("\n")

	for b := 0; b < stats.buckets.Len(); b++ {
		bound := stats.buckets.Bound(b)
		if math.IsInf(bound, 1) {
			fmt.Fprintf(&sb, "%14s", "+Inf")
		} else {
			fmt.Fprintf(&sb, "%14.2f", bound)
		}
		avg := float64(0)
		if stats.confirmed[b] > 0 {
			avg = stats.feeSum[b] / stats.confirmed[b]
		}
		fmt.Fprintf(&sb, "|%12.2f|%8.2f", avg, stats.confirmed[b])
		for p := 0; p < stats.maxPeriods; p++ {
			fmt.Fprintf(&sb, "|%7.2f", stats.confAvg[p][b])
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
