// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package processor

import (
	"fmt"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// CheckError names the precondition an instruction failed.
type CheckError struct {
	Rule  string
	Cause error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s failed: %v", e.Rule, e.Cause)
}

func (e *CheckError) Unwrap() error {
	return e.Cause
}

// rule is one precondition over the accounts of an instruction.
type rule[T any] struct {
	name  string
	check func(T) error
}

// validate runs [rules] in order and stops at the first failure. Nothing is
// written until every rule has passed.
func validate[T any](subject T, rules []rule[T]) error {
	for _, r := range rules {
		if err := r.check(subject); err != nil {
			return &CheckError{Rule: r.name, Cause: err}
		}
	}
	return nil
}

func expectAddress(info *chain.AccountInfo, want codec.Address, err error) error {
	if info.Key != want {
		return fmt.Errorf("%w: expected %s, got %s", err, want, info.Key)
	}
	return nil
}

func expectSigner(info *chain.AccountInfo) error {
	if !info.IsSigner {
		return fmt.Errorf("%w: %s", hookerrors.ErrMissingRequiredSignature, info.Key)
	}
	return nil
}

// ledgerHolding decodes a holding of the base ledger.
func ledgerHolding(info *chain.AccountInfo) (*host.Holding, error) {
	if info.Owner != state.LedgerProgramID {
		return nil, fmt.Errorf("%w: %s is owned by %s", hookerrors.ErrIncorrectProgramID, info.Key, info.Owner)
	}
	return host.UnmarshalHolding(info.Data)
}

// party is one side of a transfer.
type party struct {
	side       string
	holding    *chain.AccountInfo
	credential *chain.AccountInfo
	profile    *chain.AccountInfo

	decoded *host.Holding
}

type executeSubject struct {
	resource           *chain.AccountInfo
	validation         *chain.AccountInfo
	credentialResource *chain.AccountInfo
	tracker            *chain.AccountInfo

	source      *party
	destination *party
}

func decodeHolding(p *party) error {
	h, err := ledgerHolding(p.holding)
	if err != nil {
		return fmt.Errorf("%s holding: %w", p.side, err)
	}
	p.decoded = h
	return nil
}

func credentialHeld(p *party) error {
	want, err := state.CredentialAccountAddress(p.decoded.Owner)
	if err != nil {
		return err
	}
	if err := expectAddress(p.credential, want, hookerrors.ErrIncorrectCredentialAccount); err != nil {
		return fmt.Errorf("%s: %w", p.side, err)
	}
	if !p.credential.Exists() {
		return fmt.Errorf("%w: %s has no credential holding", hookerrors.ErrCredentialAccountEmpty, p.side)
	}
	h, err := ledgerHolding(p.credential)
	if err != nil {
		return err
	}
	if h.Amount < 1 {
		return fmt.Errorf("%w: %s", hookerrors.ErrCredentialAccountEmpty, p.side)
	}
	return nil
}

func profileInitialized(p *party) error {
	want, _, err := state.ProfileAddress(p.decoded.Owner)
	if err != nil {
		return err
	}
	if err := expectAddress(p.profile, want, hookerrors.ErrIncorrectProfileAccount); err != nil {
		return fmt.Errorf("%s: %w", p.side, err)
	}
	if !p.profile.Exists() || p.profile.Owner != state.ProgramID {
		return fmt.Errorf("%w: %s", hookerrors.ErrProfileNotInitialized, p.side)
	}
	return nil
}

var executeRules = []rule[*executeSubject]{
	{
		name: "validation-account",
		check: func(s *executeSubject) error {
			want, _, err := state.ValidationAddress(s.resource.Key, state.ProgramID)
			if err != nil {
				return err
			}
			return expectAddress(s.validation, want, hookerrors.ErrIncorrectValidationAccount)
		},
	},
	{
		name: "credential-resource",
		check: func(s *executeSubject) error {
			return expectAddress(s.credentialResource, state.CredentialResourceAddress(), hookerrors.ErrIncorrectCredentialResource)
		},
	},
	{
		name: "holdings",
		check: func(s *executeSubject) error {
			if err := decodeHolding(s.source); err != nil {
				return err
			}
			return decodeHolding(s.destination)
		},
	},
	{
		name: "source-credential",
		check: func(s *executeSubject) error {
			return credentialHeld(s.source)
		},
	},
	{
		name: "destination-credential",
		check: func(s *executeSubject) error {
			return credentialHeld(s.destination)
		},
	},
	{
		name: "source-profile",
		check: func(s *executeSubject) error {
			return profileInitialized(s.source)
		},
	},
	{
		name: "destination-profile",
		check: func(s *executeSubject) error {
			return profileInitialized(s.destination)
		},
	},
	{
		name: "volume-tracker",
		check: func(s *executeSubject) error {
			if err := expectAddress(s.tracker, state.VolumeTrackerAddress(), hookerrors.ErrIncorrectVolumeTracker); err != nil {
				return err
			}
			if !s.tracker.Exists() || s.tracker.Owner != state.ProgramID {
				return fmt.Errorf("%w: volume tracker", hookerrors.ErrUninitializedAccount)
			}
			return nil
		},
	},
	{
		name: "transferring",
		check: func(s *executeSubject) error {
			if !s.source.decoded.Transferring || !s.destination.decoded.Transferring {
				return hookerrors.ErrCalledOutsideOfTransfer
			}
			return nil
		},
	},
}

type registerProfileSubject struct {
	credentialResource *chain.AccountInfo
	credential         *chain.AccountInfo
	profile            *chain.AccountInfo
	owner              *chain.AccountInfo
	mintAuthority      *chain.AccountInfo
	displayName        string

	profileBump uint8
}

var registerProfileRules = []rule[*registerProfileSubject]{
	{
		name: "credential-resource",
		check: func(s *registerProfileSubject) error {
			return expectAddress(s.credentialResource, state.CredentialResourceAddress(), hookerrors.ErrIncorrectCredentialResource)
		},
	},
	{
		name: "credential-account",
		check: func(s *registerProfileSubject) error {
			want, err := state.CredentialAccountAddress(s.owner.Key)
			if err != nil {
				return err
			}
			return expectAddress(s.credential, want, hookerrors.ErrIncorrectCredentialAccount)
		},
	},
	{
		name: "credential-empty",
		check: func(s *registerProfileSubject) error {
			if !s.credential.Exists() {
				return fmt.Errorf("%w: credential holding %s", hookerrors.ErrUninitializedAccount, s.credential.Key)
			}
			h, err := ledgerHolding(s.credential)
			if err != nil {
				return err
			}
			if h.Amount != 0 {
				return hookerrors.ErrCredentialAccountHasBalance
			}
			return nil
		},
	},
	{
		name: "profile-uninitialized",
		check: func(s *registerProfileSubject) error {
			want, bump, err := state.ProfileAddress(s.owner.Key)
			if err != nil {
				return err
			}
			if err := expectAddress(s.profile, want, hookerrors.ErrIncorrectProfileAccount); err != nil {
				return err
			}
			// A funded address counts as taken, whoever funded it. Account
			// creation refuses a funded target as well.
			if s.profile.Lamports != 0 {
				return hookerrors.ErrProfileAlreadyInitialized
			}
			s.profileBump = bump
			return nil
		},
	},
	{
		name: "display-name",
		check: func(s *registerProfileSubject) error {
			if len(s.displayName) > state.MaxDisplayNameLen {
				return fmt.Errorf("%w: %d bytes", hookerrors.ErrDisplayNameTooLong, len(s.displayName))
			}
			return nil
		},
	},
	{
		name: "owner-signature",
		check: func(s *registerProfileSubject) error {
			return expectSigner(s.owner)
		},
	},
	{
		name: "mint-authority",
		check: func(s *registerProfileSubject) error {
			return expectAddress(s.mintAuthority, state.MintAuthorityAddress(), hookerrors.ErrIncorrectAccount)
		},
	},
}

type initializeLedgerSubject struct {
	credentialResource *chain.AccountInfo
	tracker            *chain.AccountInfo
	payer              *chain.AccountInfo
	ledger             *chain.AccountInfo
}

var initializeLedgerRules = []rule[*initializeLedgerSubject]{
	{
		name: "payer-signature",
		check: func(s *initializeLedgerSubject) error {
			return expectSigner(s.payer)
		},
	},
	{
		name: "credential-resource",
		check: func(s *initializeLedgerSubject) error {
			return expectAddress(s.credentialResource, state.CredentialResourceAddress(), hookerrors.ErrIncorrectCredentialResource)
		},
	},
	{
		name: "volume-tracker",
		check: func(s *initializeLedgerSubject) error {
			return expectAddress(s.tracker, state.VolumeTrackerAddress(), hookerrors.ErrIncorrectVolumeTracker)
		},
	},
	{
		name: "ledger-program",
		check: func(s *initializeLedgerSubject) error {
			return expectAddress(s.ledger, state.LedgerProgramID, hookerrors.ErrIncorrectProgramID)
		},
	},
	{
		name: "uninitialized",
		check: func(s *initializeLedgerSubject) error {
			if s.tracker.Exists() || s.credentialResource.Exists() {
				return hookerrors.ErrAccountAlreadyInitialized
			}
			return nil
		},
	},
}

type registerResourceSubject struct {
	resource   *chain.AccountInfo
	validation *chain.AccountInfo
	authority  *chain.AccountInfo
	ledger     *chain.AccountInfo

	validationBump uint8
}

var registerResourceRules = []rule[*registerResourceSubject]{
	{
		name: "validation-account",
		check: func(s *registerResourceSubject) error {
			want, bump, err := state.ValidationAddress(s.resource.Key, state.ProgramID)
			if err != nil {
				return err
			}
			if err := expectAddress(s.validation, want, hookerrors.ErrIncorrectValidationAccount); err != nil {
				return err
			}
			s.validationBump = bump
			return nil
		},
	},
	{
		name: "authority-signature",
		check: func(s *registerResourceSubject) error {
			return expectSigner(s.authority)
		},
	},
	{
		name: "ledger-program",
		check: func(s *registerResourceSubject) error {
			return expectAddress(s.ledger, state.LedgerProgramID, hookerrors.ErrIncorrectProgramID)
		},
	},
	{
		name: "uninitialized",
		check: func(s *registerResourceSubject) error {
			if s.validation.Exists() {
				return fmt.Errorf("%w: validation account %s", hookerrors.ErrAccountAlreadyInitialized, s.validation.Key)
			}
			return nil
		},
	},
}
