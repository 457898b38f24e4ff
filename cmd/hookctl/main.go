// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// "hookctl" derives transfer hook addresses, runs the hook against a local
// ledger and serves its state over JSON-RPC.
package main

import (
	"fmt"
	"os"

	"github.com/BlockDevsUnited/transferhook/cmd/hookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hookctl failed: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
