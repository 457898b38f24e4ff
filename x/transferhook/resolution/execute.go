// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolution

import (
	"context"
	"fmt"
	"slices"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// ownerOf reads the owner recorded in the holding at [index].
func ownerOf(index uint8) Seed {
	return AccountDataSlice{AccountIndex: index, Offset: state.HoldingOwnerOffset, Length: state.HoldingOwnerLen}
}

func credentialOf(holding uint8) Descriptor {
	return ExternalPda{
		AuthorityIndex: instruction.ExecuteAssociatedIndex,
		Seeds: []Seed{
			ownerOf(holding),
			AccountKey{Index: instruction.ExecuteLedgerIndex},
			AccountKey{Index: instruction.ExecuteCredentialResourceIndex},
		},
	}
}

func profileOf(holding uint8) Descriptor {
	return PdaFromSeeds{
		Seeds:      []Seed{Literal{Bytes: []byte(state.ProfileSeed)}, ownerOf(holding)},
		IsWritable: true,
	}
}

// ExecuteDescriptors lists the accounts Execute needs beyond the five the
// base ledger always passes. They resolve to positions 5 through 12.
func ExecuteDescriptors() []Descriptor {
	return []Descriptor{
		Fixed{Address: state.LedgerProgramID},
		Fixed{Address: state.AssociatedProgramID},
		Fixed{Address: state.CredentialResourceAddress()},
		credentialOf(instruction.ExecuteSourceIndex),
		profileOf(instruction.ExecuteSourceIndex),
		credentialOf(instruction.ExecuteDestinationIndex),
		profileOf(instruction.ExecuteDestinationIndex),
		PdaFromSeeds{
			Seeds:      []Seed{Literal{Bytes: []byte(state.VolumeTrackerSeed)}},
			IsWritable: true,
		},
	}
}

// AddExtraAccountMetasForExecute completes an Execute instruction whose
// accounts are the source, resource, destination and owner. It appends the
// resource's validation account and every account it describes, reading
// committed state through [f].
func AddExtraAccountMetasForExecute(ctx context.Context, f chain.Fetcher, ix *chain.Instruction, opts ...Option) error {
	if len(ix.Accounts) != instruction.ExecuteValidationIndex {
		return fmt.Errorf("%w: expected %d base accounts, found %d", hookerrors.ErrNotEnoughAccountKeys, instruction.ExecuteValidationIndex, len(ix.Accounts))
	}
	resource := ix.Accounts[instruction.ExecuteResourceIndex].Address
	validation, _, err := state.ValidationAddress(resource, ix.ProgramID)
	if err != nil {
		return err
	}
	descriptors, err := LoadDescriptors(ctx, f, validation)
	if err != nil {
		return err
	}

	base := append(slices.Clip(ix.Accounts), chain.Readonly(validation))
	accounts, err := NewResolver(ix.ProgramID, FetcherData(f), opts...).ResolveAll(ctx, descriptors, base)
	if err != nil {
		return err
	}
	ix.Accounts = accounts
	return nil
}

// LoadDescriptors reads the validation account at [validation].
func LoadDescriptors(ctx context.Context, f chain.Fetcher, validation codec.Address) ([]Descriptor, error) {
	acct, err := f.Account(ctx, validation)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() {
		return nil, fmt.Errorf("%w: validation account %s", hookerrors.ErrUninitializedAccount, validation)
	}
	return Unpack(acct.Data)
}
