// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"context"
	"fmt"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

const (
	createAccountTag byte = iota
	transferTag
)

type CreateAccountArgs struct {
	Lamports uint64
	Space    uint64
	Owner    codec.Address
}

type TransferArgs struct {
	Lamports uint64
}

// NewCreateAccount funds [account] from [payer], allocates [space] zeroed
// bytes and assigns it to [owner]. Both accounts must sign.
func NewCreateAccount(payer, account codec.Address, lamports, space uint64, owner codec.Address) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.SystemProgramID,
		Accounts: []chain.AccountMeta{
			chain.Signer(payer, true),
			chain.Signer(account, true),
		},
		Data: tagged(createAccountTag, CreateAccountArgs{Lamports: lamports, Space: space, Owner: owner}),
	}
}

// NewTransfer moves [lamports] from [from] to [to].
func NewTransfer(from, to codec.Address, lamports uint64) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.SystemProgramID,
		Accounts: []chain.AccountMeta{
			chain.Signer(from, true),
			chain.Writable(to),
		},
		Data: tagged(transferTag, TransferArgs{Lamports: lamports}),
	}
}

type systemProgram struct{}

func (systemProgram) Process(_ context.Context, _ chain.InvokeContext, accounts []*chain.AccountInfo, data []byte) error {
	tag, payload, err := untag(data)
	if err != nil {
		return err
	}
	switch tag {
	case createAccountTag:
		var args CreateAccountArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return createAccount(accounts, args)
	case transferTag:
		var args TransferArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return transfer(accounts, args)
	default:
		return fmt.Errorf("%w: unknown system instruction %d", hookerrors.ErrInvalidInstructionData, tag)
	}
}

func createAccount(accounts []*chain.AccountInfo, args CreateAccountArgs) error {
	if err := chain.Expect(accounts, 2); err != nil {
		return err
	}
	payer, account := accounts[0], accounts[1]
	if !payer.IsSigner || !account.IsSigner {
		return hookerrors.ErrMissingRequiredSignature
	}
	if account.Exists() || len(account.Data) != 0 || account.Owner != state.SystemProgramID {
		return fmt.Errorf("%w: %s is already in use", hookerrors.ErrAccountAlreadyInitialized, account.Key)
	}
	if args.Space > uint64(account.Limits().MaxDataLen) {
		return fmt.Errorf("%w: %d bytes exceeds the maximum of %d", hookerrors.ErrInvalidArgument, args.Space, account.Limits().MaxDataLen)
	}
	if args.Lamports == 0 {
		return fmt.Errorf("%w: account must be funded", hookerrors.ErrInvalidArgument)
	}
	if err := debit(payer, args.Lamports); err != nil {
		return err
	}
	account.Lamports = args.Lamports
	account.Allocate(int(args.Space))
	account.Owner = args.Owner
	return nil
}

func transfer(accounts []*chain.AccountInfo, args TransferArgs) error {
	if err := chain.Expect(accounts, 2); err != nil {
		return err
	}
	from, to := accounts[0], accounts[1]
	if !from.IsSigner {
		return hookerrors.ErrMissingRequiredSignature
	}
	if len(from.Data) != 0 {
		return fmt.Errorf("%w: %s carries data", hookerrors.ErrInvalidArgument, from.Key)
	}
	if to.Lamports+args.Lamports < to.Lamports {
		return hookerrors.ErrArithmeticOverflow
	}
	if err := debit(from, args.Lamports); err != nil {
		return err
	}
	to.Lamports += args.Lamports
	return nil
}

func debit(info *chain.AccountInfo, lamports uint64) error {
	if info.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", hookerrors.ErrInsufficientFunds, info.Key, info.Lamports, lamports)
	}
	info.Lamports -= lamports
	return nil
}

func tagged(tag byte, args any) []byte {
	return append([]byte{tag}, mustSerialize(args)...)
}

func untag(data []byte) (byte, []byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty", hookerrors.ErrInvalidInstructionData)
	}
	return data[0], data[1:], nil
}

func decodeArgs(payload []byte, args any) error {
	if err := codec.Deserialize(args, payload); err != nil {
		return fmt.Errorf("%w: %w", hookerrors.ErrInvalidInstructionData, err)
	}
	return nil
}
