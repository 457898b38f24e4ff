// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"
)

// Addresses are the accounts the hook derives for an owner and, if one is
// given, a resource.
type Addresses struct {
	ProgramID          codec.Address `json:"programID" yaml:"program"`
	CredentialResource codec.Address `json:"credentialResource" yaml:"credential_resource"`
	MintAuthority      codec.Address `json:"mintAuthority" yaml:"mint_authority"`
	VolumeTracker      codec.Address `json:"volumeTracker" yaml:"volume_tracker"`

	Profile           *codec.Address `json:"profile,omitempty" yaml:"profile,omitempty"`
	CredentialAccount *codec.Address `json:"credentialAccount,omitempty" yaml:"credential_account,omitempty"`

	Validation *codec.Address `json:"validation,omitempty" yaml:"validation,omitempty"`
	Holding    *codec.Address `json:"holding,omitempty" yaml:"holding,omitempty"`
}

// Derive computes the addresses for [owner] and [resource]. An empty address
// leaves out the entries that depend on it.
func Derive(owner, resource codec.Address) (*Addresses, error) {
	a := &Addresses{
		ProgramID:          state.ProgramID,
		CredentialResource: state.CredentialResourceAddress(),
		MintAuthority:      state.MintAuthorityAddress(),
		VolumeTracker:      state.VolumeTrackerAddress(),
	}
	if owner != codec.EmptyAddress {
		profile, _, err := state.ProfileAddress(owner)
		if err != nil {
			return nil, err
		}
		credential, err := state.CredentialAccountAddress(owner)
		if err != nil {
			return nil, err
		}
		a.Profile = &profile
		a.CredentialAccount = &credential
	}
	if resource != codec.EmptyAddress {
		validation, _, err := state.ValidationAddress(resource, state.ProgramID)
		if err != nil {
			return nil, err
		}
		a.Validation = &validation
	}
	if owner != codec.EmptyAddress && resource != codec.EmptyAddress {
		holding, err := state.AssociatedAddress(owner, resource)
		if err != nil {
			return nil, err
		}
		a.Holding = &holding
	}
	return a, nil
}
