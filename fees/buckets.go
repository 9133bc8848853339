// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"
	"math"
	"sort"
)

// maxAllowedBuckets is an upper bound of how many fee rate buckets a table may
// hold.  It is verified during construction and snapshot loading.
const maxAllowedBuckets = 2000

// BucketTable is the ordered set of fee rate upper bounds shared by every
// horizon of an estimator.  The last bound is always +Inf so that any rate has
// a bucket.  A table is immutable once created.
type BucketTable struct {
	bounds []float64
}

// NewBucketTable creates a table whose bounds start at minRate and grow
// geometrically by spacing while they do not exceed maxRate.  A final +Inf
// bound catches every rate above the highest finite one.
func NewBucketTable(minRate, maxRate, spacing float64) (*BucketTable, error) {
	switch {
	case minRate <= 0:
		return nil, ruleError(ErrInvalidConfig, "minimum bucket fee rate "+
			"must be > 0")
	case maxRate < minRate:
		return nil, ruleError(ErrInvalidConfig, "maximum bucket fee rate "+
			"must not be lower than the minimum bucket fee rate")
	case spacing <= 1:
		return nil, ruleError(ErrInvalidConfig, "fee spacing must be > 1.0")
	}

	var bounds []float64
	for b := minRate; b <= maxRate; b *= spacing {
		bounds = append(bounds, b)
		if len(bounds) >= maxAllowedBuckets {
			str := fmt.Sprintf("bucket count exceeds the maximum allowed "+
				"(%d)", maxAllowedBuckets)
			return nil, ruleError(ErrInvalidConfig, str)
		}
	}
	bounds = append(bounds, math.Inf(1))

	return &BucketTable{bounds: bounds}, nil
}

// NewBucketTableFromBounds creates a table from an explicit list of strictly
// increasing finite bounds.  The +Inf sentinel is appended when missing.
func NewBucketTableFromBounds(bounds []float64) (*BucketTable, error) {
	if len(bounds) == 0 {
		return nil, ruleError(ErrInvalidConfig, "bucket table needs at "+
			"least one bound")
	}
	if len(bounds) >= maxAllowedBuckets {
		str := fmt.Sprintf("bucket count %d exceeds the maximum allowed "+
			"(%d)", len(bounds), maxAllowedBuckets)
		return nil, ruleError(ErrInvalidConfig, str)
	}

	res := make([]float64, 0, len(bounds)+1)
	for i, b := range bounds {
		if math.IsNaN(b) {
			return nil, ruleError(ErrInvalidConfig, "bucket bound is NaN")
		}
		if i > 0 && b <= bounds[i-1] {
			str := fmt.Sprintf("bucket bound %v at index %d is not above "+
				"the previous bound %v", b, i, bounds[i-1])
			return nil, ruleError(ErrInvalidConfig, str)
		}
		if math.IsInf(b, 1) && i != len(bounds)-1 {
			return nil, ruleError(ErrInvalidConfig, "+Inf bound must be "+
				"the last one")
		}
		res = append(res, b)
	}
	if !math.IsInf(res[len(res)-1], 1) {
		res = append(res, math.Inf(1))
	}

	return &BucketTable{bounds: res}, nil
}

// Index returns the index of the smallest bound that is >= rate.  Rates above
// every finite bound map to the +Inf sentinel.
func (t *BucketTable) Index(rate float64) int {
	return sort.Search(len(t.bounds), func(i int) bool {
		return t.bounds[i] >= rate
	})
}

// Len returns the number of buckets, sentinel included.
func (t *BucketTable) Len() int {
	return len(t.bounds)
}

// Bound returns the upper bound of bucket i.
func (t *BucketTable) Bound(i int) float64 {
	return t.bounds[i]
}

// lowerBound returns the lower bound of bucket i, which is the upper bound of
// the previous bucket or zero for the first one.
func (t *BucketTable) lowerBound(i int) float64 {
	if i == 0 {
		return 0
	}
	return t.bounds[i-1]
}

// Bounds returns a copy of every bucket bound.
func (t *BucketTable) Bounds() []float64 {
	res := make([]float64, len(t.bounds))
	copy(res, t.bounds)
	return res
}

// Equal returns whether both tables use exactly the same bounds.
func (t *BucketTable) Equal(other *BucketTable) bool {
	if len(t.bounds) != len(other.bounds) {
		return false
	}
	for i, b := range t.bounds {
		if other.bounds[i] != b {
			return false
		}
	}
	return true
}
