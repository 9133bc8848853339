// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"
	"testing"
)

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrInvalidConfig, "ErrInvalidConfig"},
		{ErrNegativeConfirmDelay, "ErrNegativeConfirmDelay"},
		{ErrTrackingDesync, "ErrTrackingDesync"},
		{ErrHeightInversion, "ErrHeightInversion"},
		{ErrBucketMismatch, "ErrBucketMismatch"},
		{ErrInvalidHorizon, "ErrInvalidHorizon"},
		{ErrTargetOutOfRange, "ErrTargetOutOfRange"},
		{ErrSnapshotMismatch, "ErrSnapshotMismatch"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	// Detect additional error codes that don't have the stringer added.
	if len(tests)-1 != int(numErrorCodes) {
		t.Errorf("It appears an error code was added without adding an " +
			"associated stringer test")
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestRuleError tests the error output for the RuleError type.
func TestRuleError(t *testing.T) {
	tests := []struct {
		in   RuleError
		want string
	}{
		{RuleError{Description: "duplicate block"},
			"duplicate block",
		},
		{RuleError{Description: "human-readable error"},
			"human-readable error",
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("Error #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestIsErrorCode ensures wrapped rule errors are detected.
func TestIsErrorCode(t *testing.T) {
	err := ruleError(ErrTrackingDesync, "desync")
	wrapped := fmt.Errorf("processing block: %w", err)

	if !IsErrorCode(wrapped, ErrTrackingDesync) {
		t.Fatalf("IsErrorCode did not detect wrapped %v", ErrTrackingDesync)
	}
	if IsErrorCode(wrapped, ErrInvalidConfig) {
		t.Fatalf("IsErrorCode matched the wrong code")
	}
	if IsErrorCode(fmt.Errorf("plain"), ErrTrackingDesync) {
		t.Fatalf("IsErrorCode matched a non rule error")
	}
}

// TestFeeReasonStringer tests the stringized output for the FeeReason type.
func TestFeeReasonStringer(t *testing.T) {
	tests := []struct {
		in   FeeReason
		want string
	}{
		{ReasonNone, "None"},
		{ReasonHalfEstimate, "Half Target 60% Threshold"},
		{ReasonFullEstimate, "Target 85% Threshold"},
		{ReasonDoubleEstimate, "Double Target 95% Threshold"},
		{ReasonConservative, "Conservative Double Target longer horizon"},
		{0xff, "Unknown FeeReason (255)"},
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
		}
	}
}
