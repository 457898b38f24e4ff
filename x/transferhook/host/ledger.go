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
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

const (
	initializeMintTag byte = iota
	initializeTransferHookTag
	initializeMetadataTag
	initializeAccountTag
	mintToTag
	transferCheckedTag
)

type InitializeMintArgs struct {
	Decimals        uint8
	Authority       codec.Address
	NonTransferable bool
}

type InitializeTransferHookArgs struct {
	Program codec.Address
}

type InitializeMetadataArgs struct {
	Name   string
	Symbol string
	URI    string
}

type MintToArgs struct {
	Amount uint64
}

type TransferCheckedArgs struct {
	Amount   uint64
	Decimals uint8
}

// NewInitializeMint initializes the allocated resource [mint].
func NewInitializeMint(mint codec.Address, args InitializeMintArgs) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.LedgerProgramID,
		Accounts:  []chain.AccountMeta{chain.Writable(mint)},
		Data:      tagged(initializeMintTag, args),
	}
}

// NewInitializeTransferHook attaches [program] to [mint]. It must precede
// NewInitializeMint.
func NewInitializeTransferHook(mint, program codec.Address) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.LedgerProgramID,
		Accounts:  []chain.AccountMeta{chain.Writable(mint)},
		Data:      tagged(initializeTransferHookTag, InitializeTransferHookArgs{Program: program}),
	}
}

// NewInitializeMetadata records descriptive metadata on [mint], growing it
// as needed.
func NewInitializeMetadata(mint, authority codec.Address, args InitializeMetadataArgs) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.LedgerProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(mint),
			chain.Signer(authority, false),
		},
		Data: tagged(initializeMetadataTag, args),
	}
}

// NewInitializeAccount initializes the allocated holding [account] of [mint]
// for [owner].
func NewInitializeAccount(account, mint, owner codec.Address) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.LedgerProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(account),
			chain.Readonly(mint),
			chain.Readonly(owner),
		},
		Data: []byte{initializeAccountTag},
	}
}

func NewMintTo(mint, account, authority codec.Address, amount uint64) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.LedgerProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(mint),
			chain.Writable(account),
			chain.Signer(authority, false),
		},
		Data: tagged(mintToTag, MintToArgs{Amount: amount}),
	}
}

// NewTransferChecked moves [amount] from [source] to [destination]. Resources
// with a transfer hook need the hook's accounts appended; see
// NewTransferCheckedWithHook.
func NewTransferChecked(source, mint, destination, owner codec.Address, amount uint64, decimals uint8) chain.Instruction {
	return chain.Instruction{
		ProgramID: state.LedgerProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(source),
			chain.Readonly(mint),
			chain.Writable(destination),
			chain.Signer(owner, false),
		},
		Data: tagged(transferCheckedTag, TransferCheckedArgs{Amount: amount, Decimals: decimals}),
	}
}

type ledgerProgram struct{}

func (ledgerProgram) Process(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo, data []byte) error {
	tag, payload, err := untag(data)
	if err != nil {
		return err
	}
	switch tag {
	case initializeMintTag:
		var args InitializeMintArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return initializeMint(accounts, args)
	case initializeTransferHookTag:
		var args InitializeTransferHookArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return initializeTransferHook(accounts, args)
	case initializeMetadataTag:
		var args InitializeMetadataArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return initializeMetadata(accounts, args)
	case initializeAccountTag:
		return initializeAccount(accounts)
	case mintToTag:
		var args MintToArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return mintTo(accounts, args)
	case transferCheckedTag:
		var args TransferCheckedArgs
		if err := decodeArgs(payload, &args); err != nil {
			return err
		}
		return transferChecked(ctx, ic, accounts, args)
	default:
		return fmt.Errorf("%w: unknown ledger instruction %d", hookerrors.ErrInvalidInstructionData, tag)
	}
}

func ledgerOwned(info *chain.AccountInfo) error {
	if info.Owner != state.LedgerProgramID {
		return fmt.Errorf("%w: %s is owned by %s", hookerrors.ErrIncorrectProgramID, info.Key, info.Owner)
	}
	return nil
}

func loadMint(info *chain.AccountInfo) (*Mint, error) {
	if err := ledgerOwned(info); err != nil {
		return nil, err
	}
	return UnmarshalMint(info.Data)
}

func loadInitializedMint(info *chain.AccountInfo) (*Mint, error) {
	m, err := loadMint(info)
	if err != nil {
		return nil, err
	}
	if !m.Initialized {
		return nil, fmt.Errorf("%w: resource %s", hookerrors.ErrUninitializedAccount, info.Key)
	}
	return m, nil
}

func loadHolding(info *chain.AccountInfo, mint codec.Address) (*Holding, error) {
	if err := ledgerOwned(info); err != nil {
		return nil, err
	}
	h, err := UnmarshalHolding(info.Data)
	if err != nil {
		return nil, err
	}
	if !h.Initialized {
		return nil, fmt.Errorf("%w: holding %s", hookerrors.ErrUninitializedAccount, info.Key)
	}
	if h.Resource != mint {
		return nil, fmt.Errorf("%w: %s holds %s", hookerrors.ErrMintMismatch, info.Key, h.Resource)
	}
	return h, nil
}

func writeMint(info *chain.AccountInfo, m *Mint) error {
	b := m.Marshal()
	if len(b) > len(info.Data) {
		if err := info.Resize(len(b)); err != nil {
			return err
		}
	}
	return info.Write(b)
}

func initializeMint(accounts []*chain.AccountInfo, args InitializeMintArgs) error {
	if err := chain.Expect(accounts, 1); err != nil {
		return err
	}
	info := accounts[0]
	m, err := loadMint(info)
	if err != nil {
		return err
	}
	if m.Initialized {
		return fmt.Errorf("%w: resource %s", hookerrors.ErrAccountAlreadyInitialized, info.Key)
	}
	m.Initialized = true
	m.Decimals = args.Decimals
	m.Authority = args.Authority
	m.NonTransferable = args.NonTransferable
	return writeMint(info, m)
}

func initializeTransferHook(accounts []*chain.AccountInfo, args InitializeTransferHookArgs) error {
	if err := chain.Expect(accounts, 1); err != nil {
		return err
	}
	info := accounts[0]
	m, err := loadMint(info)
	if err != nil {
		return err
	}
	if m.Initialized {
		return fmt.Errorf("%w: resource %s", hookerrors.ErrAccountAlreadyInitialized, info.Key)
	}
	m.TransferHook = args.Program
	return writeMint(info, m)
}

func initializeMetadata(accounts []*chain.AccountInfo, args InitializeMetadataArgs) error {
	if err := chain.Expect(accounts, 2); err != nil {
		return err
	}
	info, authority := accounts[0], accounts[1]
	m, err := loadInitializedMint(info)
	if err != nil {
		return err
	}
	if authority.Key != m.Authority {
		return fmt.Errorf("%w: %s is not the authority of %s", hookerrors.ErrOwnerMismatch, authority.Key, info.Key)
	}
	if !authority.IsSigner {
		return hookerrors.ErrMissingRequiredSignature
	}
	m.Name = args.Name
	m.Symbol = args.Symbol
	m.URI = args.URI
	return writeMint(info, m)
}

func initializeAccount(accounts []*chain.AccountInfo) error {
	if err := chain.Expect(accounts, 3); err != nil {
		return err
	}
	info, mintInfo, owner := accounts[0], accounts[1], accounts[2]
	if err := ledgerOwned(info); err != nil {
		return err
	}
	h, err := UnmarshalHolding(info.Data)
	if err != nil {
		return err
	}
	if h.Initialized {
		return fmt.Errorf("%w: holding %s", hookerrors.ErrAccountAlreadyInitialized, info.Key)
	}
	m, err := loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}
	h = &Holding{
		Resource:        mintInfo.Key,
		Owner:           owner.Key,
		Initialized:     true,
		NonTransferable: m.NonTransferable,
	}
	return info.Write(h.Marshal())
}

func mintTo(accounts []*chain.AccountInfo, args MintToArgs) error {
	if err := chain.Expect(accounts, 3); err != nil {
		return err
	}
	mintInfo, info, authority := accounts[0], accounts[1], accounts[2]
	m, err := loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}
	if authority.Key != m.Authority {
		return fmt.Errorf("%w: %s is not the authority of %s", hookerrors.ErrOwnerMismatch, authority.Key, mintInfo.Key)
	}
	if !authority.IsSigner {
		return hookerrors.ErrMissingRequiredSignature
	}
	h, err := loadHolding(info, mintInfo.Key)
	if err != nil {
		return err
	}
	if m.Supply+args.Amount < m.Supply || h.Amount+args.Amount < h.Amount {
		return hookerrors.ErrArithmeticOverflow
	}
	m.Supply += args.Amount
	h.Amount += args.Amount
	if err := writeMint(mintInfo, m); err != nil {
		return err
	}
	return info.Write(h.Marshal())
}

// transferChecked moves the balance and, when the resource carries a hook,
// invokes the hook while both holdings are flagged as transferring. Accounts
// after the fourth start with the hook's validation account and must match
// what its descriptors resolve to.
func transferChecked(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo, args TransferCheckedArgs) error {
	if err := chain.Expect(accounts, 4); err != nil {
		return err
	}
	srcInfo, mintInfo, dstInfo, owner := accounts[0], accounts[1], accounts[2], accounts[3]
	m, err := loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}
	src, err := loadHolding(srcInfo, mintInfo.Key)
	if err != nil {
		return err
	}
	dst := src
	if dstInfo.Key != srcInfo.Key {
		dst, err = loadHolding(dstInfo, mintInfo.Key)
		if err != nil {
			return err
		}
	}
	if owner.Key != src.Owner {
		return fmt.Errorf("%w: %s does not own %s", hookerrors.ErrOwnerMismatch, owner.Key, srcInfo.Key)
	}
	if !owner.IsSigner {
		return hookerrors.ErrMissingRequiredSignature
	}
	if args.Decimals != m.Decimals {
		return fmt.Errorf("%w: resource has %d decimals, got %d", hookerrors.ErrInvalidArgument, m.Decimals, args.Decimals)
	}
	if m.NonTransferable || src.NonTransferable {
		return hookerrors.ErrNonTransferable
	}
	if src.Amount < args.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", hookerrors.ErrInsufficientFunds, srcInfo.Key, src.Amount, args.Amount)
	}
	src.Amount -= args.Amount
	if dst.Amount+args.Amount < dst.Amount {
		return hookerrors.ErrArithmeticOverflow
	}
	dst.Amount += args.Amount

	if m.TransferHook == codec.EmptyAddress {
		return writeHoldings(srcInfo, src, dstInfo, dst)
	}

	extras := accounts[4:]
	validation, _, err := state.ValidationAddress(mintInfo.Key, m.TransferHook)
	if err != nil {
		return err
	}
	if len(extras) == 0 || extras[0].Key != validation {
		return fmt.Errorf("%w: validation account %s of %s", hookerrors.ErrNotEnoughAccountKeys, validation, mintInfo.Key)
	}

	metas, err := hookAccounts(ctx, m.TransferHook, accounts)
	if err != nil {
		return err
	}

	src.Transferring, dst.Transferring = true, true
	if err := writeHoldings(srcInfo, src, dstInfo, dst); err != nil {
		return err
	}
	if err := ic.Invoke(ctx, instruction.NewExecute(m.TransferHook, metas, args.Amount)); err != nil {
		return err
	}

	src.Transferring, dst.Transferring = false, false
	return writeHoldings(srcInfo, src, dstInfo, dst)
}

// hookAccounts resolves the Execute accounts of [hook] from the descriptors
// in the validation account at [instruction.ExecuteValidationIndex]. Every
// resolved account must have been passed at the same position with at least
// the privileges it is described with. Accounts past the resolved ones are
// not forwarded.
func hookAccounts(ctx context.Context, hook codec.Address, accounts []*chain.AccountInfo) ([]chain.AccountMeta, error) {
	validation := accounts[instruction.ExecuteValidationIndex]
	descriptors, err := resolution.Unpack(validation.Data)
	if err != nil {
		return nil, fmt.Errorf("validation account %s: %w", validation.Key, err)
	}

	base := make([]chain.AccountMeta, 0, instruction.ExecuteValidationIndex+1)
	for _, info := range accounts[:instruction.ExecuteValidationIndex+1] {
		base = append(base, chain.Readonly(info.Key))
	}
	resolved, err := resolution.NewResolver(hook, resolution.InfoData(accounts)).ResolveAll(ctx, descriptors, base)
	if err != nil {
		return nil, err
	}

	provided := accounts[len(base):]
	if len(provided) < len(descriptors) {
		return nil, fmt.Errorf("%w: %s needs %d accounts after its validation account, found %d", hookerrors.ErrNotEnoughAccountKeys, hook, len(descriptors), len(provided))
	}
	for i, want := range resolved[len(base):] {
		got := provided[i]
		if got.Key != want.Address || (want.IsWritable && !got.IsWritable) || (want.IsSigner && !got.IsSigner) {
			return nil, fmt.Errorf("%w: account %d is %+v, %s resolves %+v", hookerrors.ErrIncorrectAccount, len(base)+i, got.Meta(), hook, want)
		}
	}
	return resolved, nil
}

func writeHoldings(srcInfo *chain.AccountInfo, src *Holding, dstInfo *chain.AccountInfo, dst *Holding) error {
	if err := srcInfo.Write(src.Marshal()); err != nil {
		return err
	}
	return dstInfo.Write(dst.Marshal())
}
