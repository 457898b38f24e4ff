// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"github.com/ava-labs/avalanchego/utils/units"

	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
)

// Limits bounds what a transaction may do.
type Limits struct {
	// Maximum size of an account's data in bytes
	MaxAccountDataLen uint32

	// Maximum growth of an account's data within one transaction
	MaxPermittedDataIncrease uint32

	// Maximum number of accounts referenced by one instruction
	MaxInstructionAccounts uint32

	// Maximum number of instructions in one transaction
	MaxInstructions uint32

	// Maximum depth of nested program invocations
	MaxCallDepth uint32
}

// DefaultLimits returns limits with safe default values
func DefaultLimits() Limits {
	return Limits{
		MaxAccountDataLen:        10 * units.MiB, // 10MB
		MaxPermittedDataIncrease: 10 * units.KiB, // 10KB
		MaxInstructionAccounts:   64,
		MaxInstructions:          64,
		MaxCallDepth:             4,
	}
}

func (l Limits) account() chain.Limits {
	return chain.Limits{
		MaxDataLen:  int(l.MaxAccountDataLen),
		MaxIncrease: int(l.MaxPermittedDataIncrease),
	}
}

const (
	lamportsPerByte = 6960
	accountOverhead = 128
)

// MinimumBalance is the balance an account of [space] bytes is created with.
func MinimumBalance(space uint64) uint64 {
	return (accountOverhead + space) * lamportsPerByte
}
