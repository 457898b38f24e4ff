// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain holds the types shared between programs and the ledger that
// runs them.
package chain

import (
	"context"

	"github.com/BlockDevsUnited/transferhook/codec"
)

type AccountMeta struct {
	Address    codec.Address `json:"address" yaml:"address"`
	IsSigner   bool          `json:"isSigner" yaml:"signer"`
	IsWritable bool          `json:"isWritable" yaml:"writable"`
}

func Writable(addr codec.Address) AccountMeta {
	return AccountMeta{Address: addr, IsWritable: true}
}

func Readonly(addr codec.Address) AccountMeta {
	return AccountMeta{Address: addr}
}

func Signer(addr codec.Address, writable bool) AccountMeta {
	return AccountMeta{Address: addr, IsSigner: true, IsWritable: writable}
}

type Instruction struct {
	ProgramID codec.Address
	Accounts  []AccountMeta
	Data      []byte
}

// InvokeContext is the running program's handle on the ledger.
type InvokeContext interface {
	// ProgramID is the address of the executing program.
	ProgramID() codec.Address
	// Invoke runs [ix] against the accounts of the current transaction.
	// Each entry of [signerSeeds] is a seed list, including the bump, that
	// derives an address under the calling program; those addresses are
	// treated as signers.
	Invoke(ctx context.Context, ix Instruction, signerSeeds ...[][]byte) error
}

type Program interface {
	Process(ctx context.Context, ic InvokeContext, accounts []*AccountInfo, data []byte) error
}

// Fetcher reads committed accounts. A missing account is (nil, nil).
type Fetcher interface {
	Account(ctx context.Context, addr codec.Address) (*Account, error)
}
