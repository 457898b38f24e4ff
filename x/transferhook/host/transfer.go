// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"context"
	"fmt"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/resolution"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// NewTransferCheckedWithHook builds a transfer of [mint] and, if the
// resource carries a hook, appends every account the hook needs as resolved
// from committed state.
func NewTransferCheckedWithHook(
	ctx context.Context,
	f chain.Fetcher,
	source, mint, destination, owner codec.Address,
	amount uint64,
	decimals uint8,
	opts ...resolution.Option,
) (chain.Instruction, error) {
	ix := NewTransferChecked(source, mint, destination, owner, amount, decimals)

	acct, err := f.Account(ctx, mint)
	if err != nil {
		return chain.Instruction{}, err
	}
	if !acct.Exists() {
		return chain.Instruction{}, fmt.Errorf("%w: resource %s", hookerrors.ErrUninitializedAccount, mint)
	}
	m, err := UnmarshalMint(acct.Data)
	if err != nil {
		return chain.Instruction{}, err
	}
	if m.TransferHook == codec.EmptyAddress {
		return ix, nil
	}

	execute := chain.Instruction{
		ProgramID: m.TransferHook,
		Accounts: []chain.AccountMeta{
			chain.Readonly(source),
			chain.Readonly(mint),
			chain.Readonly(destination),
			chain.Readonly(owner),
		},
	}
	if err := resolution.AddExtraAccountMetasForExecute(ctx, f, &execute, opts...); err != nil {
		return chain.Instruction{}, err
	}
	ix.Accounts = append(ix.Accounts, execute.Accounts[instruction.ExecuteValidationIndex:]...)
	return ix, nil
}
