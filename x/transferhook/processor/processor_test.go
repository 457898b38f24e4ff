// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package processor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/processor"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/resolution"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/testutils"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

func TestInitializeLedger(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := testutils.NewSimulator(t)

	credential, err := s.Resource(ctx, state.CredentialResourceAddress())
	require.NoError(err)
	require.True(credential.Initialized)
	require.True(credential.NonTransferable)
	require.Equal(state.MintAuthorityAddress(), credential.Authority)
	require.Zero(credential.Decimals)
	require.Zero(credential.Supply)

	acct, err := s.Account(ctx, state.VolumeTrackerAddress())
	require.NoError(err)
	require.Equal(state.ProgramID, acct.Owner)
	require.Equal(make([]byte, state.TrackerHeaderLen), acct.Data)

	ix, err := instruction.NewInitializeLedger(s.Payer.Address())
	require.NoError(err)
	err = s.Submit(ctx, []*host.Keypair{s.Payer}, ix)
	require.ErrorIs(err, hookerrors.ErrAccountAlreadyInitialized)
}

func TestRegisterResource(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := testutils.NewSimulator(t)

	resource, authority := testutils.Resource(t, s, "GLD")
	m, err := s.Resource(ctx, resource)
	require.NoError(err)
	require.Equal(state.ProgramID, m.TransferHook)
	require.Equal(authority.Address(), m.Authority)
	require.Equal(uint8(2), m.Decimals)
	require.Equal("GLD", m.Symbol)
	require.False(m.NonTransferable)

	validation, _, err := state.ValidationAddress(resource, state.ProgramID)
	require.NoError(err)
	descriptors, err := resolution.LoadDescriptors(ctx, s, validation)
	require.NoError(err)
	require.Equal(resolution.ExecuteDescriptors(), descriptors)

	acct, err := s.Account(ctx, validation)
	require.NoError(err)
	require.Equal(state.ProgramID, acct.Owner)
	require.Len(acct.Data, resolution.GetLen(len(descriptors)))

	// registering twice
	ix, err := instruction.NewRegisterResource(resource, authority.Address(), instruction.RegisterResource{})
	require.NoError(err)
	err = s.Submit(ctx, []*host.Keypair{authority}, ix)
	require.ErrorIs(err, hookerrors.ErrAccountAlreadyInitialized)
}

func TestRegisterResourceChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ix *chain.Instruction)
		err    error
	}{
		{
			name: "validation account",
			mutate: func(ix *chain.Instruction) {
				ix.Accounts[1] = chain.Writable(codec.Address{7})
			},
			err: hookerrors.ErrIncorrectValidationAccount,
		},
		{
			name: "authority signature",
			mutate: func(ix *chain.Instruction) {
				ix.Accounts[2].IsSigner = false
			},
			err: hookerrors.ErrMissingRequiredSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()
			s := testutils.NewSimulator(t)

			authority := testutils.Participant(t, s)
			resourceKey, err := host.NewKeypair()
			require.NoError(err)
			resource := resourceKey.Address()

			ix, err := instruction.NewRegisterResource(resource, authority.Address(), instruction.RegisterResource{Decimals: 6})
			require.NoError(err)
			tt.mutate(&ix)
			err = s.Submit(ctx, []*host.Keypair{authority, resourceKey},
				host.NewCreateAccount(authority.Address(), resource, host.MinimumBalance(host.MintBaseLen), host.MintBaseLen, state.LedgerProgramID),
				ix,
			)
			require.ErrorIs(err, tt.err)

			var checkErr *processor.CheckError
			require.ErrorAs(err, &checkErr)
		})
	}
}

func TestRegisterProfile(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s, registry := testutils.NewSimulatorWithRegistry(t)

	owner := testutils.Registered(t, s, "alice")

	profile, err := s.Profile(ctx, owner.Address())
	require.NoError(err)
	require.Equal(owner.Address(), profile.Owner)
	require.Equal("alice", profile.DisplayName)
	require.Zero(profile.Volume)

	addr, _, err := state.ProfileAddress(owner.Address())
	require.NoError(err)
	acct, err := s.Account(ctx, addr)
	require.NoError(err)
	require.Len(acct.Data, profile.Size())

	balance, err := s.Balance(ctx, owner.Address(), state.CredentialResourceAddress())
	require.NoError(err)
	require.Equal(uint64(1), balance)
	credential, err := s.Resource(ctx, state.CredentialResourceAddress())
	require.NoError(err)
	require.Equal(uint64(1), credential.Supply)
	require.Equal(1.0, counterValue(t, registry, "transferhook_profiles_total"))

	// a credential is issued once
	ix, err := instruction.NewRegisterProfile(owner.Address(), "alice again")
	require.NoError(err)
	err = s.Submit(ctx, []*host.Keypair{owner}, ix)
	require.ErrorIs(err, hookerrors.ErrCredentialAccountHasBalance)

	// and cannot be handed on
	other := testutils.Participant(t, s)
	holding, err := s.OpenHolding(ctx, other.Address(), state.CredentialResourceAddress())
	require.NoError(err)
	credentialAccount, err := state.CredentialAccountAddress(owner.Address())
	require.NoError(err)
	err = s.Submit(ctx, []*host.Keypair{owner},
		host.NewTransferChecked(credentialAccount, state.CredentialResourceAddress(), holding, owner.Address(), 1, 0),
	)
	require.ErrorIs(err, hookerrors.ErrNonTransferable)
}

func TestRegisterProfileDisplayName(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		err         error
	}{
		{
			name: "empty",
		},
		{
			name:        "max length",
			displayName: strings.Repeat("a", state.MaxDisplayNameLen),
		},
		{
			name:        "too long",
			displayName: strings.Repeat("a", state.MaxDisplayNameLen+1),
			err:         hookerrors.ErrDisplayNameTooLong,
		},
		{
			name:        "multibyte max length",
			displayName: strings.Repeat("é", state.MaxDisplayNameLen/2),
		},
		{
			name:        "multibyte too long",
			displayName: strings.Repeat("€", 47),
			err:         hookerrors.ErrDisplayNameTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()
			s := testutils.NewSimulator(t)

			owner := testutils.Participant(t, s)
			err := s.RegisterProfile(ctx, owner, tt.displayName)
			require.ErrorIs(err, tt.err)
			if tt.err != nil {
				// nothing was issued
				balance, err := s.Balance(ctx, owner.Address(), state.CredentialResourceAddress())
				require.NoError(err)
				require.Zero(balance)
				return
			}
			profile, err := s.Profile(ctx, owner.Address())
			require.NoError(err)
			require.Equal(tt.displayName, profile.DisplayName)
		})
	}
}

func TestRegisterProfilePrefunded(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := testutils.NewSimulator(t)

	owner := testutils.Participant(t, s)
	_, err := s.OpenHolding(ctx, owner.Address(), state.CredentialResourceAddress())
	require.NoError(err)
	profile, _, err := state.ProfileAddress(owner.Address())
	require.NoError(err)
	require.NoError(s.Submit(ctx, []*host.Keypair{s.Payer}, host.NewTransfer(s.Payer.Address(), profile, 1)))

	ix, err := instruction.NewRegisterProfile(owner.Address(), "owner")
	require.NoError(err)
	err = s.Submit(ctx, []*host.Keypair{owner, s.Payer}, ix)
	require.ErrorIs(err, hookerrors.ErrProfileAlreadyInitialized)
}

func TestRegisterProfileChecks(t *testing.T) {
	tests := []struct {
		name        string
		skipHolding bool
		mutate      func(ix *chain.Instruction, other codec.Address)
		err         error
	}{
		{
			name: "credential resource",
			mutate: func(ix *chain.Instruction, _ codec.Address) {
				ix.Accounts[0] = chain.Writable(codec.Address{9})
			},
			err: hookerrors.ErrIncorrectCredentialResource,
		},
		{
			name: "credential account of another owner",
			mutate: func(ix *chain.Instruction, other codec.Address) {
				credential, err := state.CredentialAccountAddress(other)
				if err != nil {
					panic(err)
				}
				ix.Accounts[1] = chain.Writable(credential)
			},
			err: hookerrors.ErrIncorrectCredentialAccount,
		},
		{
			name:        "credential holding missing",
			skipHolding: true,
			mutate:      func(*chain.Instruction, codec.Address) {},
			err:         hookerrors.ErrUninitializedAccount,
		},
		{
			name: "profile account",
			mutate: func(ix *chain.Instruction, _ codec.Address) {
				ix.Accounts[2] = chain.Writable(codec.Address{8})
			},
			err: hookerrors.ErrIncorrectProfileAccount,
		},
		{
			name: "owner signature",
			mutate: func(ix *chain.Instruction, _ codec.Address) {
				ix.Accounts[3].IsSigner = false
			},
			err: hookerrors.ErrMissingRequiredSignature,
		},
		{
			name: "mint authority",
			mutate: func(ix *chain.Instruction, _ codec.Address) {
				ix.Accounts[4] = chain.Readonly(codec.Address{6})
			},
			err: hookerrors.ErrIncorrectAccount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()
			s := testutils.NewSimulator(t)

			owner := testutils.Participant(t, s)
			other := testutils.Registered(t, s, "other")
			if !tt.skipHolding {
				_, err := s.OpenHolding(ctx, owner.Address(), state.CredentialResourceAddress())
				require.NoError(err)
			}

			ix, err := instruction.NewRegisterProfile(owner.Address(), "owner")
			require.NoError(err)
			tt.mutate(&ix, other.Address())
			err = s.Submit(ctx, []*host.Keypair{owner, s.Payer}, ix)
			require.ErrorIs(err, tt.err)

			_, err = s.Profile(ctx, owner.Address())
			require.ErrorIs(err, hookerrors.ErrProfileNotInitialized)
		})
	}
}

// transferFixture has two registered owners and a hooked resource with a
// balance for alice.
type transferFixture struct {
	s          *simulator.Simulator
	alice, bob *host.Keypair
	resource   codec.Address

	// truncate, when set, cuts the submitted transfer's accounts to its length.
	truncate int
}

func newTransferFixture(t *testing.T) *transferFixture {
	require := require.New(t)
	ctx := context.Background()
	s := testutils.NewSimulator(t)

	f := &transferFixture{
		s:     s,
		alice: testutils.Registered(t, s, "alice"),
		bob:   testutils.Registered(t, s, "bob"),
	}
	var authority *host.Keypair
	f.resource, authority = testutils.Resource(t, s, "GLD")
	require.NoError(s.Mint(ctx, f.resource, authority, f.alice.Address(), 100))
	_, err := s.OpenHolding(ctx, f.bob.Address(), f.resource)
	require.NoError(err)
	return f
}

func (f *transferFixture) transfer(t *testing.T, amount uint64) chain.Instruction {
	ix, err := f.s.TransferInstruction(context.Background(), f.resource, f.alice.Address(), f.bob.Address(), amount)
	require.NoError(t, err)
	require.Len(t, ix.Accounts, instruction.ExecuteAccounts)
	return ix
}

func (f *transferFixture) requireUnchanged(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	profile, err := f.s.Profile(ctx, f.alice.Address())
	require.NoError(err)
	require.Zero(profile.Volume)
	tracker, err := f.s.Tracker(ctx)
	require.NoError(err)
	_, ok := tracker.Get(f.resource)
	require.False(ok)
	balance, err := f.s.Balance(ctx, f.alice.Address(), f.resource)
	require.NoError(err)
	require.Equal(uint64(100), balance)
}

// thirdParty registers carol and returns the account [pick] selects for her.
func thirdParty(t *testing.T, f *transferFixture, pick func(owner codec.Address) (codec.Address, error)) codec.Address {
	carol := testutils.Registered(t, f.s, "carol")
	addr, err := pick(carol.Address())
	require.NoError(t, err)
	return addr
}

func profileOf(owner codec.Address) (codec.Address, error) {
	addr, _, err := state.ProfileAddress(owner)
	return addr, err
}

// TestExecuteChecks submits transfers whose hook accounts were tampered
// with. The ledger resolves the hook's accounts itself and refuses any that
// differ from what was passed, before the hook runs.
func TestExecuteChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta)
		err    error
	}{
		{
			name: "credential resource",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteCredentialResourceIndex] = chain.Readonly(codec.Address{9})
			},
			err: hookerrors.ErrIncorrectAccount,
		},
		{
			name: "source credential of a third party",
			mutate: func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteSourceCredentialIndex] = chain.Readonly(thirdParty(t, f, state.CredentialAccountAddress))
			},
			err: hookerrors.ErrIncorrectAccount,
		},
		{
			name: "destination credential of a third party",
			mutate: func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteDestinationCredentialIndex] = chain.Readonly(thirdParty(t, f, state.CredentialAccountAddress))
			},
			err: hookerrors.ErrIncorrectAccount,
		},
		{
			name: "source profile of a third party",
			mutate: func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteSourceProfileIndex] = chain.Writable(thirdParty(t, f, profileOf))
			},
			err: hookerrors.ErrIncorrectAccount,
		},
		{
			name: "destination profile missing",
			mutate: func(t *testing.T, f *transferFixture, _ []chain.AccountMeta) {
				profile, _, err := state.ProfileAddress(f.bob.Address())
				require.NoError(t, err)
				require.NoError(t, f.s.Runtime().SetAccount(context.Background(), profile, nil))
			},
			err: hookerrors.ErrProfileNotInitialized,
		},
		{
			name: "volume tracker",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteVolumeTrackerIndex] = chain.Writable(codec.Address{9})
			},
			err: hookerrors.ErrIncorrectAccount,
		},
		{
			name: "read-only profile",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteSourceProfileIndex].IsWritable = false
			},
			err: hookerrors.ErrIncorrectAccount,
		},
		{
			name: "hook accounts truncated",
			mutate: func(_ *testing.T, f *transferFixture, _ []chain.AccountMeta) {
				f.truncate = instruction.ExecuteVolumeTrackerIndex
			},
			err: hookerrors.ErrNotEnoughAccountKeys,
		},
		{
			name: "validation account omitted",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteValidationIndex] = chain.Readonly(codec.Address{9})
			},
			err: hookerrors.ErrNotEnoughAccountKeys,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransferFixture(t)
			ix := f.transfer(t, 10)
			tt.mutate(t, f, ix.Accounts)
			if f.truncate > 0 {
				ix.Accounts = ix.Accounts[:f.truncate]
			}

			err := f.s.Submit(context.Background(), []*host.Keypair{f.alice}, ix)
			require.ErrorIs(t, err, tt.err)
			f.requireUnchanged(t)
		})
	}
}

// TestExecuteDirectInvocation calls the hook without the ledger, so the
// hook's own account checks run on tampered accounts. Every call fails, at
// the latest on the transfer guard.
func TestExecuteDirectInvocation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta)
		err    error
	}{
		{
			name:   "valid accounts",
			mutate: func(*testing.T, *transferFixture, []chain.AccountMeta) {},
			err:    hookerrors.ErrCalledOutsideOfTransfer,
		},
		{
			name: "validation account",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteValidationIndex] = chain.Readonly(codec.Address{9})
			},
			err: hookerrors.ErrIncorrectValidationAccount,
		},
		{
			name: "credential resource",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteCredentialResourceIndex] = chain.Readonly(codec.Address{9})
			},
			err: hookerrors.ErrIncorrectCredentialResource,
		},
		{
			name: "source credential of a third party",
			mutate: func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteSourceCredentialIndex] = chain.Readonly(thirdParty(t, f, state.CredentialAccountAddress))
			},
			err: hookerrors.ErrIncorrectCredentialAccount,
		},
		{
			name: "destination credential of a third party",
			mutate: func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteDestinationCredentialIndex] = chain.Readonly(thirdParty(t, f, state.CredentialAccountAddress))
			},
			err: hookerrors.ErrIncorrectCredentialAccount,
		},
		{
			name: "source profile of a third party",
			mutate: func(t *testing.T, f *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteSourceProfileIndex] = chain.Writable(thirdParty(t, f, profileOf))
			},
			err: hookerrors.ErrIncorrectProfileAccount,
		},
		{
			name: "source holding as volume tracker",
			mutate: func(_ *testing.T, _ *transferFixture, accounts []chain.AccountMeta) {
				accounts[instruction.ExecuteVolumeTrackerIndex] = accounts[0]
			},
			err: hookerrors.ErrIncorrectVolumeTracker,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransferFixture(t)
			transfer := f.transfer(t, 10)

			accounts := make([]chain.AccountMeta, len(transfer.Accounts))
			copy(accounts, transfer.Accounts)
			for i := range accounts[:instruction.ExecuteValidationIndex] {
				accounts[i].IsWritable = false
				accounts[i].IsSigner = false
			}
			tt.mutate(t, f, accounts)

			ix := instruction.NewExecute(state.ProgramID, accounts, 10)
			err := f.s.Submit(context.Background(), []*host.Keypair{f.alice}, ix)
			require.ErrorIs(t, err, tt.err)
			f.requireUnchanged(t)
		})
	}
}

func TestMetrics(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s, registry := testutils.NewSimulatorWithRegistry(t)

	alice := testutils.Registered(t, s, "alice")
	bob := testutils.Registered(t, s, "bob")
	resource, authority := testutils.Resource(t, s, "GLD")
	require.NoError(s.Mint(ctx, resource, authority, alice.Address(), 100))
	_, err := s.OpenHolding(ctx, bob.Address(), resource)
	require.NoError(err)

	require.NoError(s.Transfer(ctx, resource, alice, bob.Address(), 10))
	require.NoError(s.Transfer(ctx, resource, alice, bob.Address(), 5))
	require.Equal(15.0, counterValue(t, registry, "transferhook_volume_total"))
	require.Equal(2.0, counterValue(t, registry, "transferhook_profiles_total"))

	// one initialization, one resource, two profiles, two transfers
	require.Equal(6.0, counterValue(t, registry, "transferhook_instructions_total"))
	require.Zero(counterValue(t, registry, "transferhook_failures_total"))

	require.Error(s.Transfer(ctx, resource, alice, bob.Address(), 1_000))
	ix, err := instruction.NewRegisterProfile(alice.Address(), "again")
	require.NoError(err)
	require.ErrorIs(s.Submit(ctx, []*host.Keypair{alice}, ix), hookerrors.ErrCredentialAccountHasBalance)
	require.Equal(1.0, counterValue(t, registry, "transferhook_failures_total"))
	require.Equal(15.0, counterValue(t, registry, "transferhook_volume_total"))
}

// counterValue sums every series of the counter [name].
func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	families, err := registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
