// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"context"
	"fmt"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

const createAssociatedTag byte = 0

// NewCreateAssociated creates [wallet]'s holding of [mint] at its associated
// address, paid for by [payer].
//
// Accounts:
//
//	0. [w+s] payer
//	1. [w]   associated holding
//	2. []    wallet
//	3. []    resource
//	4. []    system program
//	5. []    base ledger program
func NewCreateAssociated(payer, wallet, mint codec.Address) (chain.Instruction, error) {
	account, err := state.AssociatedAddress(wallet, mint)
	if err != nil {
		return chain.Instruction{}, err
	}
	return chain.Instruction{
		ProgramID: state.AssociatedProgramID,
		Accounts: []chain.AccountMeta{
			chain.Signer(payer, true),
			chain.Writable(account),
			chain.Readonly(wallet),
			chain.Readonly(mint),
			chain.Readonly(state.SystemProgramID),
			chain.Readonly(state.LedgerProgramID),
		},
		Data: []byte{createAssociatedTag},
	}, nil
}

type associatedProgram struct{}

func (associatedProgram) Process(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo, data []byte) error {
	tag, _, err := untag(data)
	if err != nil {
		return err
	}
	if tag != createAssociatedTag {
		return fmt.Errorf("%w: unknown associated instruction %d", hookerrors.ErrInvalidInstructionData, tag)
	}
	if err := chain.Expect(accounts, 6); err != nil {
		return err
	}
	payer, account, wallet, mint, ledger := accounts[0], accounts[1], accounts[2], accounts[3], accounts[5]

	if ledger.Key != state.LedgerProgramID {
		return fmt.Errorf("%w: ledger %s", hookerrors.ErrIncorrectProgramID, ledger.Key)
	}
	addr, bump, err := pda.FindExternal(wallet.Key, ledger.Key, mint.Key, ic.ProgramID())
	if err != nil {
		return err
	}
	if addr != account.Key {
		return fmt.Errorf("%w: associated holding of %s is %s, got %s", hookerrors.ErrInvalidArgument, wallet.Key, addr, account.Key)
	}
	if account.Exists() {
		return fmt.Errorf("%w: holding %s", hookerrors.ErrAccountAlreadyInitialized, account.Key)
	}

	create := NewCreateAccount(payer.Key, account.Key, MinimumBalance(HoldingLen), HoldingLen, ledger.Key)
	seeds := [][]byte{wallet.Key[:], ledger.Key[:], mint.Key[:], {bump}}
	if err := ic.Invoke(ctx, create, seeds); err != nil {
		return err
	}
	return ic.Invoke(ctx, NewInitializeAccount(account.Key, mint.Key, wallet.Key))
}
