// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"sync"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
)

var (
	// ProgramID is the address of the transfer hook program.
	ProgramID = codec.MustParseAddress("2SGkwjFUC4PUgA9LK7VnRsbFbsndA5792RViBnRVzKK6")
	// LedgerProgramID is the base ledger that owns resources and holdings.
	LedgerProgramID = codec.MustParseAddress("HyrvPGVetmoYfA85jtgZzPVXYKcswJcXcHJUn2DtCCj6")
	// AssociatedProgramID owns the address space of associated holdings.
	AssociatedProgramID = codec.MustParseAddress("81niGN1N26HZKmkPsP7foZ2NAKzG2b7DJjUUq5zFUSDK")
	// SystemProgramID creates accounts. It owns every unassigned address.
	SystemProgramID = codec.EmptyAddress
)

const (
	CredentialResourceSeed = "credential"
	MintAuthoritySeed      = "mint_authority"
	VolumeTrackerSeed      = "volume_tracker"
	ProfileSeed            = "profile"
	ValidationSeed         = "extra-account-metas"
)

// Holdings of the base ledger record their owner at this range. Account
// resolution reads it to find who is on either side of a transfer.
const (
	HoldingOwnerOffset = 32
	HoldingOwnerLen    = codec.AddressLen
)

var deriver = pda.NewDeriver(pda.DefaultConfig())

func find(program codec.Address, seeds ...[]byte) (pda.Derived, error) {
	addr, bump, err := deriver.Find(seeds, program)
	return pda.Derived{Address: addr, Bump: bump}, err
}

func mustFind(seeds ...[]byte) func() pda.Derived {
	return sync.OnceValue(func() pda.Derived {
		d, err := find(ProgramID, seeds...)
		if err != nil {
			panic(err)
		}
		return d
	})
}

var (
	credentialResource = mustFind([]byte(CredentialResourceSeed))
	mintAuthority      = mustFind([]byte(MintAuthoritySeed))
	volumeTracker      = mustFind([]byte(VolumeTrackerSeed))
)

// CredentialResourceAddress is the non-transferable resource whose units
// prove eligibility.
func CredentialResourceAddress() codec.Address { return credentialResource().Address }

// CredentialResourceSeeds signs for the credential resource account.
func CredentialResourceSeeds() [][]byte {
	return signerSeeds(credentialResource().Bump, []byte(CredentialResourceSeed))
}

// MintAuthorityAddress may issue credentials.
func MintAuthorityAddress() codec.Address { return mintAuthority().Address }

func MintAuthoritySeeds() [][]byte {
	return signerSeeds(mintAuthority().Bump, []byte(MintAuthoritySeed))
}

// VolumeTrackerAddress is the single global volume tracker.
func VolumeTrackerAddress() codec.Address { return volumeTracker().Address }

func VolumeTrackerSeeds() [][]byte {
	return signerSeeds(volumeTracker().Bump, []byte(VolumeTrackerSeed))
}

// ProfileAddress returns the address of [owner]'s profile and its bump.
func ProfileAddress(owner codec.Address) (codec.Address, uint8, error) {
	d, err := find(ProgramID, []byte(ProfileSeed), owner[:])
	return d.Address, d.Bump, err
}

func ProfileSeeds(owner codec.Address, bump uint8) [][]byte {
	return signerSeeds(bump, []byte(ProfileSeed), owner[:])
}

// CredentialAccountAddress is [owner]'s associated holding of the
// credential resource.
func CredentialAccountAddress(owner codec.Address) (codec.Address, error) {
	return AssociatedAddress(owner, CredentialResourceAddress())
}

// AssociatedAddress is [owner]'s associated holding of [resource].
func AssociatedAddress(owner, resource codec.Address) (codec.Address, error) {
	d, err := find(AssociatedProgramID, owner[:], LedgerProgramID[:], resource[:])
	return d.Address, err
}

// ValidationAddress is where the account descriptors for transfers of
// [resource] through the hook at [program] are stored.
func ValidationAddress(resource, program codec.Address) (codec.Address, uint8, error) {
	d, err := find(program, []byte(ValidationSeed), resource[:])
	return d.Address, d.Bump, err
}

func ValidationSeeds(resource codec.Address, bump uint8) [][]byte {
	return signerSeeds(bump, []byte(ValidationSeed), resource[:])
}

func signerSeeds(bump uint8, seeds ...[]byte) [][]byte {
	return append(seeds, []byte{bump})
}
