// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketTableDefaults(t *testing.T) {
	cfg := DefaultEstimatorConfig()
	table, err := NewBucketTable(cfg.MinBucketFeeRate,
		cfg.MaxBucketFeeRate, cfg.FeeSpacing)
	require.NoError(t, err)

	// 1000 * 1.05^n <= 1e7 for n in [0, 188], plus the sentinel.
	require.Equal(t, 190, table.Len())
	require.Equal(t, 1000.0, table.Bound(0))
	require.True(t, math.IsInf(table.Bound(table.Len()-1), 1))

	for i := 1; i < table.Len(); i++ {
		require.Greater(t, table.Bound(i), table.Bound(i-1))
	}
	require.LessOrEqual(t, table.Bound(table.Len()-2), 1e7)
}

func TestBucketTableIndex(t *testing.T) {
	table, err := NewBucketTableFromBounds([]float64{1000, 2000, 3000})
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	tests := []struct {
		rate float64
		want int
	}{
		{0, 0},
		{999, 0},
		{1000, 0},
		{1000.5, 1},
		{1500, 1},
		{2000, 2},
		{3000, 2},
		{3001, 3},
		{1e12, 3},
		{math.Inf(1), 3},
	}
	for _, test := range tests {
		require.Equal(t, test.want, table.Index(test.rate),
			"rate %v", test.rate)
	}
}

func TestBucketTableInvalid(t *testing.T) {
	tests := []struct {
		name                      string
		minRate, maxRate, spacing float64
	}{
		{"zero min", 0, 1e7, 1.05},
		{"max below min", 1000, 999, 1.05},
		{"spacing one", 1000, 1e7, 1},
		{"spacing below one", 1000, 1e7, 0.5},
		{"too many buckets", 1, 1e300, 1.0001},
	}
	for _, test := range tests {
		_, err := NewBucketTable(test.minRate, test.maxRate,
			test.spacing)
		require.Error(t, err, test.name)
		require.True(t, IsErrorCode(err, ErrInvalidConfig), test.name)
	}

	_, err := NewBucketTableFromBounds([]float64{1000, 1000})
	require.True(t, IsErrorCode(err, ErrInvalidConfig))
	_, err = NewBucketTableFromBounds(nil)
	require.True(t, IsErrorCode(err, ErrInvalidConfig))
	_, err = NewBucketTableFromBounds([]float64{1, math.Inf(1), 2})
	require.True(t, IsErrorCode(err, ErrInvalidConfig))
}

func TestBucketTableEqual(t *testing.T) {
	a, err := NewBucketTable(1000, 1e7, 1.05)
	require.NoError(t, err)
	b, err := NewBucketTableFromBounds(a.Bounds())
	require.NoError(t, err)
	require.True(t, a.Equal(b))

	c, err := NewBucketTable(1000, 1e7, 1.1)
	require.NoError(t, err)
	require.False(t, a.Equal(c))

	// Bounds returns a copy.
	bounds := a.Bounds()
	bounds[0] = 1
	require.Equal(t, 1000.0, a.Bound(0))
}
