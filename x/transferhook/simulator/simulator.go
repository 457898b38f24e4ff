// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package simulator drives the transfer hook through a local ledger: it
// installs the program, initializes the ledger and wraps the common flows
// of registering resources and profiles and moving balances.
package simulator

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/processor"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/resolution"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// Airdrop is the balance every participant starts with.
const Airdrop = 1_000_000_000_000

type Config struct {
	Limits host.Limits
	// Deriver memoizes the derivations made while resolving hook accounts.
	Deriver *pda.Deriver
}

func NewConfig() *Config {
	return &Config{
		Limits:  host.DefaultLimits(),
		Deriver: pda.NewDeriver(pda.DefaultConfig()),
	}
}

// Simulator is a ledger with the transfer hook installed and initialized.
type Simulator struct {
	log     logging.Logger
	runtime *host.Runtime
	deriver *pda.Deriver

	// Payer funds accounts created on behalf of participants.
	Payer *host.Keypair
}

// New installs the transfer hook on a runtime over [store] and initializes
// the ledger.
func New(ctx context.Context, cfg *Config, log logging.Logger, store host.AccountStore, registerer prometheus.Registerer) (*Simulator, error) {
	p, err := processor.New(log, registerer)
	if err != nil {
		return nil, err
	}
	r := host.New(log, store, cfg.Limits)
	r.Register(state.ProgramID, p)

	s := &Simulator{
		log:     log,
		runtime: r,
		deriver: cfg.Deriver,
	}
	if s.Payer, err = s.NewParticipant(ctx); err != nil {
		return nil, err
	}

	tracker, err := r.Account(ctx, state.VolumeTrackerAddress())
	if err != nil {
		return nil, err
	}
	if tracker.Exists() {
		log.Info("ledger already initialized")
		return s, nil
	}
	ix, err := instruction.NewInitializeLedger(s.Payer.Address())
	if err != nil {
		return nil, err
	}
	if err := s.Submit(ctx, []*host.Keypair{s.Payer}, ix); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	return s, nil
}

// Runtime is the underlying ledger.
func (s *Simulator) Runtime() *host.Runtime {
	return s.runtime
}

// Account implements chain.Fetcher.
func (s *Simulator) Account(ctx context.Context, addr codec.Address) (*chain.Account, error) {
	return s.runtime.Account(ctx, addr)
}

func (s *Simulator) Submit(ctx context.Context, signers []*host.Keypair, ixs ...chain.Instruction) error {
	tx := host.NewTransaction(ixs...)
	if err := tx.Sign(signers...); err != nil {
		return err
	}
	return s.runtime.Submit(ctx, tx)
}

// NewParticipant returns a funded keypair.
func (s *Simulator) NewParticipant(ctx context.Context) (*host.Keypair, error) {
	key, err := host.NewKeypair()
	if err != nil {
		return nil, err
	}
	if err := s.runtime.Airdrop(ctx, key.Address(), Airdrop); err != nil {
		return nil, err
	}
	return key, nil
}

// RegisterResource allocates a new resource and registers it with the hook.
// [authority] pays for it and may mint it.
func (s *Simulator) RegisterResource(ctx context.Context, authority *host.Keypair, args instruction.RegisterResource) (codec.Address, error) {
	resourceKey, err := host.NewKeypair()
	if err != nil {
		return codec.EmptyAddress, err
	}
	resource := resourceKey.Address()
	register, err := instruction.NewRegisterResource(resource, authority.Address(), args)
	if err != nil {
		return codec.EmptyAddress, err
	}
	err = s.Submit(ctx, []*host.Keypair{authority, resourceKey},
		host.NewCreateAccount(authority.Address(), resource, host.MinimumBalance(host.MintBaseLen), host.MintBaseLen, state.LedgerProgramID),
		register,
	)
	if err != nil {
		return codec.EmptyAddress, err
	}
	s.log.Debug("registered resource", zap.Stringer("resource", resource))
	return resource, nil
}

// RegisterProfile opens [owner]'s credential holding and registers their
// profile in one transaction.
func (s *Simulator) RegisterProfile(ctx context.Context, owner *host.Keypair, displayName string) error {
	open, err := host.NewCreateAssociated(owner.Address(), owner.Address(), state.CredentialResourceAddress())
	if err != nil {
		return err
	}
	register, err := instruction.NewRegisterProfile(owner.Address(), displayName)
	if err != nil {
		return err
	}
	return s.Submit(ctx, []*host.Keypair{owner}, open, register)
}

// OpenHolding creates [owner]'s associated holding of [resource] unless it
// already exists.
func (s *Simulator) OpenHolding(ctx context.Context, owner, resource codec.Address) (codec.Address, error) {
	addr, err := state.AssociatedAddress(owner, resource)
	if err != nil {
		return codec.EmptyAddress, err
	}
	acct, err := s.runtime.Account(ctx, addr)
	if err != nil {
		return codec.EmptyAddress, err
	}
	if acct.Exists() {
		return addr, nil
	}
	open, err := host.NewCreateAssociated(s.Payer.Address(), owner, resource)
	if err != nil {
		return codec.EmptyAddress, err
	}
	return addr, s.Submit(ctx, []*host.Keypair{s.Payer}, open)
}

// Mint credits [amount] of [resource] to [owner]'s holding, opening it if
// needed.
func (s *Simulator) Mint(ctx context.Context, resource codec.Address, authority *host.Keypair, owner codec.Address, amount uint64) error {
	holding, err := s.OpenHolding(ctx, owner, resource)
	if err != nil {
		return err
	}
	return s.Submit(ctx, []*host.Keypair{authority}, host.NewMintTo(resource, holding, authority.Address(), amount))
}

// Transfer moves [amount] of [resource] from [from]'s holding to [to]'s,
// resolving the hook's accounts from committed state.
func (s *Simulator) Transfer(ctx context.Context, resource codec.Address, from *host.Keypair, to codec.Address, amount uint64) error {
	ix, err := s.TransferInstruction(ctx, resource, from.Address(), to, amount)
	if err != nil {
		return err
	}
	return s.Submit(ctx, []*host.Keypair{from}, ix)
}

// TransferInstruction builds a transfer between the associated holdings of
// [from] and [to].
func (s *Simulator) TransferInstruction(ctx context.Context, resource, from, to codec.Address, amount uint64) (chain.Instruction, error) {
	mint, err := s.Resource(ctx, resource)
	if err != nil {
		return chain.Instruction{}, err
	}
	source, err := state.AssociatedAddress(from, resource)
	if err != nil {
		return chain.Instruction{}, err
	}
	destination, err := state.AssociatedAddress(to, resource)
	if err != nil {
		return chain.Instruction{}, err
	}
	return host.NewTransferCheckedWithHook(ctx, s, source, resource, destination, from, amount, mint.Decimals, resolution.WithDeriver(s.deriver))
}

// Resource returns the state of [resource].
func (s *Simulator) Resource(ctx context.Context, resource codec.Address) (*host.Mint, error) {
	acct, err := s.runtime.Account(ctx, resource)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() {
		return nil, fmt.Errorf("%w: resource %s", hookerrors.ErrUninitializedAccount, resource)
	}
	return host.UnmarshalMint(acct.Data)
}

// Balance is [owner]'s balance of [resource]. A missing holding is empty.
func (s *Simulator) Balance(ctx context.Context, owner, resource codec.Address) (uint64, error) {
	addr, err := state.AssociatedAddress(owner, resource)
	if err != nil {
		return 0, err
	}
	acct, err := s.runtime.Account(ctx, addr)
	if err != nil || !acct.Exists() {
		return 0, err
	}
	h, err := host.UnmarshalHolding(acct.Data)
	if err != nil {
		return 0, err
	}
	return h.Amount, nil
}

// Profile returns [owner]'s profile.
func (s *Simulator) Profile(ctx context.Context, owner codec.Address) (*state.Profile, error) {
	return ReadProfile(ctx, s, owner)
}

// Tracker returns the volume tracker.
func (s *Simulator) Tracker(ctx context.Context) (*state.VolumeTracker, error) {
	return ReadTracker(ctx, s)
}

// ReadProfile reads [owner]'s profile through [f].
func ReadProfile(ctx context.Context, f chain.Fetcher, owner codec.Address) (*state.Profile, error) {
	addr, _, err := state.ProfileAddress(owner)
	if err != nil {
		return nil, err
	}
	acct, err := f.Account(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() {
		return nil, fmt.Errorf("%w: %s", hookerrors.ErrProfileNotInitialized, owner)
	}
	return state.UnmarshalProfile(acct.Data)
}

// ReadTracker reads the volume tracker through [f].
func ReadTracker(ctx context.Context, f chain.Fetcher) (*state.VolumeTracker, error) {
	acct, err := f.Account(ctx, state.VolumeTrackerAddress())
	if err != nil {
		return nil, err
	}
	if !acct.Exists() {
		return nil, fmt.Errorf("%w: volume tracker", hookerrors.ErrUninitializedAccount)
	}
	return state.UnmarshalVolumeTracker(acct.Data)
}
