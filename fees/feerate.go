// Copyright (c) 2016-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// bytesPerKB is the size unit fee rates are expressed against.
const bytesPerKB = 1000

// FeeRate is a fee rate expressed in satoshis per 1000 bytes.  The zero value
// is used by the estimator to signal that no estimate is available.
type FeeRate float64

// NewFeeRate creates a FeeRate from the total fee paid by a transaction and its
// serialized size in bytes.  A non positive size results in a zero rate.
func NewFeeRate(fee btcutil.Amount, size int64) FeeRate {
	if size <= 0 {
		return 0
	}
	return FeeRate(float64(fee) * bytesPerKB / float64(size))
}

// Fee returns the fee for a transaction of the given size at this rate.  A
// rate that would round down to a zero fee for a non empty transaction pays
// one satoshi instead (negative rates pay minus one).
func (rate FeeRate) Fee(size int64) btcutil.Amount {
	fee := btcutil.Amount(float64(rate) * float64(size) / bytesPerKB)
	if fee == 0 && size != 0 {
		switch {
		case rate > 0:
			fee = 1
		case rate < 0:
			fee = -1
		}
	}
	return fee
}

// FeePerKB returns the fee paid by a transaction of exactly 1000 bytes.
func (rate FeeRate) FeePerKB() btcutil.Amount {
	return rate.Fee(bytesPerKB)
}

// String returns the fee rate in a human readable form.
func (rate FeeRate) String() string {
	return fmt.Sprintf("%.3f sat/kB", float64(rate))
}
