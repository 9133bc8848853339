// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"
)

const (
	// DefaultMinBucketFeeRate is the lowest bucket bound in sat/kB.
	DefaultMinBucketFeeRate float64 = 1000

	// DefaultMaxBucketFeeRate is the highest finite bucket bound in sat/kB.
	DefaultMaxBucketFeeRate float64 = 1e7

	// DefaultFeeSpacing is the multiplier between two consecutive bucket
	// bounds.  Buckets are spaced exponentially so that a wide range of fee
	// rates can be tracked with a bounded number of buckets.
	DefaultFeeSpacing float64 = 1.05

	// DefaultOldestEstimateHistory is how many blocks a persisted history
	// stays usable for after it was last updated.
	DefaultOldestEstimateHistory int64 = 6 * 1008

	// DefaultMinedTxCacheSize is the number of recently mined transaction
	// hashes remembered to reject late mempool announcements.
	DefaultMinedTxCacheSize uint = 4096

	// halfSuccessPct is the success rate required at half the target.
	halfSuccessPct = 0.6

	// successPct is the success rate required at the target.
	successPct = 0.85

	// doubleSuccessPct is the success rate required at twice the target.
	doubleSuccessPct = 0.95

	// sufficientFeeTxs is the average number of transactions per block a
	// bucket range needs on the medium and long horizons to be considered
	// statistically significant.
	sufficientFeeTxs = 0.1

	// sufficientTxsShort is the equivalent of sufficientFeeTxs for the
	// short horizon, which considers fewer blocks.
	sufficientTxsShort = 0.5

	// maxAllowedPeriods bounds the number of periods a horizon may track.
	maxAllowedPeriods = 1008
)

// Horizon identifies one of the three time horizons tracked by the estimator.
type Horizon int

const (
	// ShortHorizon tracks confirmations up to 12 blocks with a half-life of
	// about 18 blocks.
	ShortHorizon Horizon = iota

	// MediumHorizon tracks confirmations up to 48 blocks with a half-life of
	// about 144 blocks.
	MediumHorizon

	// LongHorizon tracks confirmations up to 1008 blocks with a half-life of
	// about 1008 blocks.
	LongHorizon

	numHorizons
)

var horizonStrings = map[Horizon]string{
	ShortHorizon:  "short",
	MediumHorizon: "medium",
	LongHorizon:   "long",
}

// String returns the horizon name.
func (h Horizon) String() string {
	if s, ok := horizonStrings[h]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Horizon (%d)", int(h))
}

// ParseHorizon returns the horizon with the given name.
func ParseHorizon(s string) (Horizon, error) {
	for h, name := range horizonStrings {
		if name == s {
			return h, nil
		}
	}
	str := fmt.Sprintf("unknown horizon %q", s)
	return 0, ruleError(ErrInvalidHorizon, str)
}

// HorizonConfig is the configuration of a single horizon.
type HorizonConfig struct {
	// MaxPeriods is the number of confirmation periods tracked.
	MaxPeriods int

	// Scale is the number of blocks in a period.
	Scale int

	// Decay is the per block multiplier applied to all historical data.
	Decay float64
}

// MaxConfirms returns the highest confirmation target tracked.
func (c *HorizonConfig) MaxConfirms() int {
	return c.Scale * c.MaxPeriods
}

// validate checks the horizon parameters.
func (c *HorizonConfig) validate() error {
	if c.Scale <= 0 {
		return ruleError(ErrInvalidConfig, "scale must be non-zero")
	}
	if c.MaxPeriods <= 0 || c.MaxPeriods > maxAllowedPeriods {
		str := fmt.Sprintf("max periods %d outside of the allowed range "+
			"[1, %d]", c.MaxPeriods, maxAllowedPeriods)
		return ruleError(ErrInvalidConfig, str)
	}
	// A decay of 1 makes the sufficient sample size threshold infinite.
	if !(c.Decay > 0 && c.Decay < 1) {
		str := fmt.Sprintf("decay %v must be within (0, 1)", c.Decay)
		return ruleError(ErrInvalidConfig, str)
	}
	return nil
}

// EstimatorConfig stores the configuration parameters for a fee estimator.
type EstimatorConfig struct {
	// MinBucketFeeRate is the bound of the lowest fee rate bucket.
	MinBucketFeeRate float64

	// MaxBucketFeeRate is the highest finite bucket bound.  It MUST NOT be
	// lower than MinBucketFeeRate.
	MaxBucketFeeRate float64

	// FeeSpacing is the multiplier between consecutive bucket bounds.  It
	// MUST be > 1.0.
	FeeSpacing float64

	// Horizons holds the short, medium and long horizon configurations,
	// indexed by Horizon.  Each horizon must track strictly more
	// confirmations than the previous one.
	Horizons [numHorizons]HorizonConfig

	// OldestEstimateHistory is how many blocks restored history stays
	// usable after the block it was last updated at.
	OldestEstimateHistory int64

	// MinedTxCacheSize is the number of recently mined transactions
	// remembered so that late mempool announcements of them are ignored.
	// Zero disables the cache.
	MinedTxCacheSize uint
}

// DefaultEstimatorConfig returns the default estimator configuration.
func DefaultEstimatorConfig() *EstimatorConfig {
	return &EstimatorConfig{
		MinBucketFeeRate: DefaultMinBucketFeeRate,
		MaxBucketFeeRate: DefaultMaxBucketFeeRate,
		FeeSpacing:       DefaultFeeSpacing,
		Horizons: [numHorizons]HorizonConfig{
			ShortHorizon:  {MaxPeriods: 12, Scale: 1, Decay: 0.962},
			MediumHorizon: {MaxPeriods: 24, Scale: 2, Decay: 0.9952},
			LongHorizon:   {MaxPeriods: 42, Scale: 24, Decay: 0.99931},
		},
		OldestEstimateHistory: DefaultOldestEstimateHistory,
		MinedTxCacheSize:      DefaultMinedTxCacheSize,
	}
}

// validate checks the horizon ordering.  The bucket parameters are checked
// while building the bucket table.
func (cfg *EstimatorConfig) validate() error {
	for h := Horizon(0); h < numHorizons; h++ {
		hcfg := &cfg.Horizons[h]
		if err := hcfg.validate(); err != nil {
			str := fmt.Sprintf("%s horizon: %v", h, err)
			return ruleError(ErrInvalidConfig, str)
		}
		if h > 0 && hcfg.MaxConfirms() <= cfg.Horizons[h-1].MaxConfirms() {
			str := fmt.Sprintf("%s horizon must track more confirmations "+
				"than the %s horizon", h, h-1)
			return ruleError(ErrInvalidConfig, str)
		}
	}
	if cfg.OldestEstimateHistory < 0 {
		return ruleError(ErrInvalidConfig, "oldest estimate history must "+
			"not be negative")
	}
	return nil
}
