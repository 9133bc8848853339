// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		pre   string
		build string
	}{
		{"empty", "", "", ""},
		{"plain", "beta", "beta", "beta"},
		{"dots", "rc.1", "rc1", "rc.1"},
		{"junk", "a b+c_d", "abcd", "abcd"},
		{"hyphen", "x-y", "x-y", "x-y"},
	}

	for _, test := range tests {
		require.Equal(t, test.pre, NormalizePreRelString(test.in), test.name)
		require.Equal(t, test.build, NormalizeBuildString(test.in), test.name)
	}
}

func TestString(t *testing.T) {
	oldPre, oldBuild := PreRelease, BuildMetadata
	defer func() {
		PreRelease, BuildMetadata = oldPre, oldBuild
	}()

	base := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)

	PreRelease, BuildMetadata = "", ""
	require.Equal(t, base, String())

	PreRelease, BuildMetadata = "rc1", ""
	require.Equal(t, base+"-rc1", String())

	PreRelease, BuildMetadata = "", "abc.def"
	require.Equal(t, base+"+abc.def", String())

	PreRelease, BuildMetadata = "r_c", "x y"
	require.Equal(t, base+"-rc+xy", String())
	require.Equal(t, "smartfeed/"+base+"-rc+xy", UserAgent("smartfeed"))
}
