// Copyright (c) 2017 The Decred developers
// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

func zero(b []byte) {
	for i := 0; i < len(b); i++ {
		b[i] = 0x00
	}
}

// promptRPCPass reads the node RPC password from the terminal without echoing
// it.
func promptRPCPass() (string, error) {
	fmt.Fprint(os.Stderr, "Node RPC password: ")
	secret, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprint(os.Stderr, "\n")
	if err != nil {
		return "", fmt.Errorf("unable to read password: %w", err)
	}
	pass := string(secret)
	zero(secret)
	return pass, nil
}
