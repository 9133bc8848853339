// Copyright (c) 2017 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for smartfeed.  smartfeed writes it to the
default configuration file path on first start so every option is documented
next to the values in use.
*/
package sampleconfig
