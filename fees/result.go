// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"
)

// EstimatorBucket summarizes a contiguous range of fee rate buckets that was
// evaluated while searching for an estimate.
type EstimatorBucket struct {
	// Start and End are the lowest and highest fee rates covered by the
	// range.  Both are -1 when no range was recorded.
	Start float64
	End   float64

	// WithinTarget is the decayed number of transactions of the range that
	// confirmed within the target.
	WithinTarget float64

	// TotalConfirmed is the decayed number of transactions of the range that
	// ever confirmed.
	TotalConfirmed float64

	// InMempool is the number of transactions of the range that are still
	// unconfirmed after at least the target.
	InMempool float64

	// LeftMempool is the decayed number of transactions of the range that
	// left the mempool unconfirmed after at least the target.
	LeftMempool float64
}

// emptyEstimatorBucket returns a bucket summary with no recorded range.
func emptyEstimatorBucket() EstimatorBucket {
	return EstimatorBucket{Start: -1, End: -1}
}

// successPct returns the confirmation ratio of the range in percent.
func (b *EstimatorBucket) successPct() float64 {
	total := b.TotalConfirmed + b.InMempool + b.LeftMempool
	if total == 0 {
		return 0
	}
	return 100 * b.WithinTarget / total
}

// String returns a compact description of the range in the same shape used by
// the estimator debug logs.
func (b EstimatorBucket) String() string {
	return fmt.Sprintf("(%g - %g) %.2f%% %.1f/(%.1f %.0f mem %.1f out)",
		b.Start, b.End, b.successPct(), b.WithinTarget, b.TotalConfirmed,
		b.InMempool, b.LeftMempool)
}

// EstimationResult is the diagnostic record produced by a single horizon
// query: the best passing range, the first failing range and the parameters
// of the horizon that produced them.
type EstimationResult struct {
	Pass  EstimatorBucket
	Fail  EstimatorBucket
	Decay float64
	Scale int
}

// newEstimationResult returns a result with no recorded ranges.
func newEstimationResult() EstimationResult {
	return EstimationResult{
		Pass: emptyEstimatorBucket(),
		Fail: emptyEstimatorBucket(),
	}
}

// FeeReason identifies which step of the smart fee computation produced the
// returned estimate.
type FeeReason int

const (
	// ReasonNone means no estimate was produced.
	ReasonNone FeeReason = iota

	// ReasonHalfEstimate means the half target estimate at the 60%
	// threshold was the highest.
	ReasonHalfEstimate

	// ReasonFullEstimate means the full target estimate at the 85%
	// threshold was the highest.
	ReasonFullEstimate

	// ReasonDoubleEstimate means the double target estimate at the 95%
	// threshold was the highest.
	ReasonDoubleEstimate

	// ReasonConservative means the conservative double target estimate over
	// the longer horizons was the highest.
	ReasonConservative
)

var feeReasonStrings = map[FeeReason]string{
	ReasonNone:           "None",
	ReasonHalfEstimate:   "Half Target 60% Threshold",
	ReasonFullEstimate:   "Target 85% Threshold",
	ReasonDoubleEstimate: "Double Target 95% Threshold",
	ReasonConservative:   "Conservative Double Target longer horizon",
}

// String returns the FeeReason as a human-readable description.
func (r FeeReason) String() string {
	if s, ok := feeReasonStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown FeeReason (%d)", int(r))
}

// FeeCalculation describes how a smart fee estimate was derived.
type FeeCalculation struct {
	Est            EstimationResult
	Reason         FeeReason
	DesiredTarget  int
	ReturnedTarget int
}
