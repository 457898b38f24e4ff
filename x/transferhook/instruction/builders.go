// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package instruction

import (
	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"
)

// Execute account positions. Descriptors reference accounts by these
// indices, so they are part of the wire format.
const (
	ExecuteSourceIndex = iota
	ExecuteResourceIndex
	ExecuteDestinationIndex
	ExecuteOwnerIndex
	ExecuteValidationIndex
	ExecuteLedgerIndex
	ExecuteAssociatedIndex
	ExecuteCredentialResourceIndex
	ExecuteSourceCredentialIndex
	ExecuteSourceProfileIndex
	ExecuteDestinationCredentialIndex
	ExecuteDestinationProfileIndex
	ExecuteVolumeTrackerIndex

	ExecuteAccounts
)

// NewInitializeLedger creates the credential resource and the volume
// tracker, paid for by [payer].
//
// Accounts:
//
//	0. [w]   credential resource
//	1. [w]   volume tracker
//	2. [w+s] payer
//	3. []    base ledger program
//	4. []    system program
func NewInitializeLedger(payer codec.Address) (chain.Instruction, error) {
	data, err := InitializeLedger{}.Marshal()
	if err != nil {
		return chain.Instruction{}, err
	}
	return chain.Instruction{
		ProgramID: state.ProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(state.CredentialResourceAddress()),
			chain.Writable(state.VolumeTrackerAddress()),
			chain.Signer(payer, true),
			chain.Readonly(state.LedgerProgramID),
			chain.Readonly(state.SystemProgramID),
		},
		Data: data,
	}, nil
}

// NewRegisterResource initializes the already allocated [resource] with the
// hook attached and writes its validation account.
//
// Accounts:
//
//	0. [w]   resource
//	1. [w]   validation account
//	2. [w+s] resource authority, pays for the validation account
//	3. []    base ledger program
//	4. []    system program
func NewRegisterResource(resource, authority codec.Address, args RegisterResource) (chain.Instruction, error) {
	validation, _, err := state.ValidationAddress(resource, state.ProgramID)
	if err != nil {
		return chain.Instruction{}, err
	}
	data, err := args.Marshal()
	if err != nil {
		return chain.Instruction{}, err
	}
	return chain.Instruction{
		ProgramID: state.ProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(resource),
			chain.Writable(validation),
			chain.Signer(authority, true),
			chain.Readonly(state.LedgerProgramID),
			chain.Readonly(state.SystemProgramID),
		},
		Data: data,
	}, nil
}

// NewRegisterProfile issues a credential to [owner] and creates their
// profile. The owner's credential holding must already exist.
//
// Accounts:
//
//	0. [w]   credential resource
//	1. [w]   owner's credential holding
//	2. [w]   owner's profile
//	3. [w+s] owner
//	4. []    mint authority
//	5. []    base ledger program
//	6. []    system program
func NewRegisterProfile(owner codec.Address, displayName string) (chain.Instruction, error) {
	credential, err := state.CredentialAccountAddress(owner)
	if err != nil {
		return chain.Instruction{}, err
	}
	profile, _, err := state.ProfileAddress(owner)
	if err != nil {
		return chain.Instruction{}, err
	}
	data, err := RegisterProfile{DisplayName: displayName}.Marshal()
	if err != nil {
		return chain.Instruction{}, err
	}
	return chain.Instruction{
		ProgramID: state.ProgramID,
		Accounts: []chain.AccountMeta{
			chain.Writable(state.CredentialResourceAddress()),
			chain.Writable(credential),
			chain.Writable(profile),
			chain.Signer(owner, true),
			chain.Readonly(state.MintAuthorityAddress()),
			chain.Readonly(state.LedgerProgramID),
			chain.Readonly(state.SystemProgramID),
		},
		Data: data,
	}, nil
}

// NewExecute builds the hook invocation the base ledger makes mid-transfer.
// [accounts] must follow the Execute account positions.
func NewExecute(program codec.Address, accounts []chain.AccountMeta, amount uint64) chain.Instruction {
	data, _ := Execute{Amount: amount}.Marshal()
	return chain.Instruction{
		ProgramID: program,
		Accounts:  accounts,
		Data:      data,
	}
}
