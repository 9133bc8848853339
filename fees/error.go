// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrInvalidConfig indicates the estimator or one of its horizons was
	// configured with parameters the algorithm cannot operate on, such as a
	// zero scale or a decay outside of (0, 1).
	ErrInvalidConfig ErrorCode = iota

	// ErrNegativeConfirmDelay indicates a transaction was reported as
	// confirmed at or before the height at which it entered the mempool.
	ErrNegativeConfirmDelay

	// ErrTrackingDesync indicates an unconfirmed transaction counter would
	// have been decremented below zero.  This means a transaction was removed
	// twice or was never added, and the affected counter can no longer be
	// trusted.
	ErrTrackingDesync

	// ErrHeightInversion indicates two heights that must be ordered are not,
	// such as a tracked transaction that entered the mempool above the best
	// seen height.
	ErrHeightInversion

	// ErrBucketMismatch indicates persisted data was recorded with a
	// different bucket table than the one configured.
	ErrBucketMismatch

	// ErrInvalidHorizon indicates an unknown horizon was requested.
	ErrInvalidHorizon

	// ErrTargetOutOfRange indicates a confirmation target outside of what
	// the requested horizon tracks.
	ErrTargetOutOfRange

	// ErrSnapshotMismatch indicates a persisted snapshot is corrupt or was
	// taken with a different horizon configuration than the estimator it is
	// being restored into.
	ErrSnapshotMismatch

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrInvalidConfig:        "ErrInvalidConfig",
	ErrNegativeConfirmDelay: "ErrNegativeConfirmDelay",
	ErrTrackingDesync:       "ErrTrackingDesync",
	ErrHeightInversion:      "ErrHeightInversion",
	ErrBucketMismatch:       "ErrBucketMismatch",
	ErrInvalidHorizon:       "ErrInvalidHorizon",
	ErrTargetOutOfRange:     "ErrTargetOutOfRange",
	ErrSnapshotMismatch:     "ErrSnapshotMismatch",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a violated estimator rule.  Configuration problems and
// per event invariant violations are both reported with it.  The caller can
// use errors.As to determine if a failure was specifically due to a rule
// violation and access the ErrorCode field to ascertain the specific reason.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is a RuleError with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.ErrorCode == c
}
