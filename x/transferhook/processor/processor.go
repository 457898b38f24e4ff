// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package processor is the transfer hook program. It issues one
// non-transferable credential per owner, keeps a profile with the owner's
// cumulative transfer volume and a global per-resource volume tracker, and
// rejects transfers between owners that lack a credential or a profile.
package processor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/resolution"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

var _ chain.Program = (*Processor)(nil)

type Option func(*Processor)

// WithTracer records a span per instruction.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		p.tracer = tracer
	}
}

// Processor executes the program's instructions.
type Processor struct {
	log     logging.Logger
	tracer  trace.Tracer
	metrics *metrics
}

func New(log logging.Logger, registerer prometheus.Registerer, opts ...Option) (*Processor, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	p := &Processor{
		log:     log,
		tracer:  noop.NewTracerProvider().Tracer("transferhook"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Processor) Process(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo, data []byte) error {
	if ic.ProgramID() != state.ProgramID {
		return fmt.Errorf("%w: invoked as %s", hookerrors.ErrIncorrectProgramID, ic.ProgramID())
	}
	ix, err := instruction.Unpack(data)
	if err != nil {
		return err
	}

	kind := ix.Kind().String()
	ctx, span := p.tracer.Start(ctx, "transferhook."+kind, trace.WithAttributes(
		attribute.Int("accounts", len(accounts)),
	))
	defer span.End()
	p.metrics.instructions.WithLabelValues(kind).Inc()
	p.log.Debug("processing instruction", zap.String("instruction", kind))

	switch ix := ix.(type) {
	case instruction.InitializeLedger:
		err = p.initializeLedger(ctx, ic, accounts)
	case instruction.RegisterResource:
		err = p.registerResource(ctx, ic, accounts, ix)
	case instruction.RegisterProfile:
		err = p.registerProfile(ctx, ic, accounts, ix)
	case instruction.Execute:
		err = p.execute(accounts, ix)
	default:
		err = fmt.Errorf("%w: %T", hookerrors.ErrInvalidInstructionData, ix)
	}
	if err != nil {
		code := "unknown"
		if c, ok := hookerrors.CodeOf(err); ok {
			code = strconv.FormatUint(uint64(c), 10)
		}
		p.metrics.failures.WithLabelValues(code).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Debug("instruction failed",
			zap.String("code", code),
			zap.String("instruction", kind),
			zap.Error(err),
		)
	}
	return err
}

// initializeLedger creates the credential resource, owned by the base ledger
// and minted by the program's authority, and the empty volume tracker.
func (p *Processor) initializeLedger(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo) error {
	if err := chain.Expect(accounts, 5); err != nil {
		return err
	}
	s := &initializeLedgerSubject{
		credentialResource: accounts[0],
		tracker:            accounts[1],
		payer:              accounts[2],
		ledger:             accounts[3],
	}
	if err := validate(s, initializeLedgerRules); err != nil {
		return err
	}

	createResource := host.NewCreateAccount(
		s.payer.Key,
		s.credentialResource.Key,
		host.MinimumBalance(host.MintBaseLen),
		host.MintBaseLen,
		state.LedgerProgramID,
	)
	if err := ic.Invoke(ctx, createResource, state.CredentialResourceSeeds()); err != nil {
		return err
	}
	initResource := host.NewInitializeMint(s.credentialResource.Key, host.InitializeMintArgs{
		Decimals:        0,
		Authority:       state.MintAuthorityAddress(),
		NonTransferable: true,
	})
	if err := ic.Invoke(ctx, initResource); err != nil {
		return err
	}

	tracker := &state.VolumeTracker{}
	b, err := tracker.Marshal()
	if err != nil {
		return err
	}
	createTracker := host.NewCreateAccount(
		s.payer.Key,
		s.tracker.Key,
		host.MinimumBalance(uint64(len(b))),
		uint64(len(b)),
		state.ProgramID,
	)
	if err := ic.Invoke(ctx, createTracker, state.VolumeTrackerSeeds()); err != nil {
		return err
	}
	if err := s.tracker.Write(b); err != nil {
		return err
	}

	p.log.Info("ledger initialized",
		zap.Stringer("credentialResource", s.credentialResource.Key),
		zap.Stringer("volumeTracker", s.tracker.Key),
	)
	return nil
}

// registerResource initializes an allocated resource with the hook attached
// and writes the descriptors Execute resolves its accounts from.
func (p *Processor) registerResource(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo, ix instruction.RegisterResource) error {
	if err := chain.Expect(accounts, 5); err != nil {
		return err
	}
	s := &registerResourceSubject{
		resource:   accounts[0],
		validation: accounts[1],
		authority:  accounts[2],
		ledger:     accounts[3],
	}
	if err := validate(s, registerResourceRules); err != nil {
		return err
	}

	steps := []chain.Instruction{
		host.NewInitializeTransferHook(s.resource.Key, state.ProgramID),
		host.NewInitializeMint(s.resource.Key, host.InitializeMintArgs{
			Decimals:  ix.Decimals,
			Authority: s.authority.Key,
		}),
		host.NewInitializeMetadata(s.resource.Key, s.authority.Key, host.InitializeMetadataArgs{
			Name:   ix.Name,
			Symbol: ix.Symbol,
			URI:    ix.URI,
		}),
	}
	for _, step := range steps {
		if err := ic.Invoke(ctx, step); err != nil {
			return err
		}
	}

	descriptors := resolution.ExecuteDescriptors()
	size := resolution.GetLen(len(descriptors))
	createValidation := host.NewCreateAccount(
		s.authority.Key,
		s.validation.Key,
		host.MinimumBalance(uint64(size)),
		uint64(size),
		state.ProgramID,
	)
	if err := ic.Invoke(ctx, createValidation, state.ValidationSeeds(s.resource.Key, s.validationBump)); err != nil {
		return err
	}
	if err := resolution.Init(s.validation.Data, descriptors); err != nil {
		return err
	}

	p.log.Info("resource registered",
		zap.Stringer("resource", s.resource.Key),
		zap.String("name", ix.Name),
		zap.String("symbol", ix.Symbol),
		zap.Int("descriptors", len(descriptors)),
	)
	return nil
}

// registerProfile issues the owner's credential and creates their profile.
func (p *Processor) registerProfile(ctx context.Context, ic chain.InvokeContext, accounts []*chain.AccountInfo, ix instruction.RegisterProfile) error {
	if err := chain.Expect(accounts, 7); err != nil {
		return err
	}
	s := &registerProfileSubject{
		credentialResource: accounts[0],
		credential:         accounts[1],
		profile:            accounts[2],
		owner:              accounts[3],
		mintAuthority:      accounts[4],
		displayName:        ix.DisplayName,
	}
	if err := validate(s, registerProfileRules); err != nil {
		return err
	}

	issue := host.NewMintTo(s.credentialResource.Key, s.credential.Key, s.mintAuthority.Key, 1)
	if err := ic.Invoke(ctx, issue, state.MintAuthoritySeeds()); err != nil {
		return err
	}

	profile, err := state.NewProfile(s.owner.Key, ix.DisplayName)
	if err != nil {
		return err
	}
	b, err := profile.Marshal()
	if err != nil {
		return err
	}
	createProfile := host.NewCreateAccount(
		s.owner.Key,
		s.profile.Key,
		host.MinimumBalance(uint64(len(b))),
		uint64(len(b)),
		state.ProgramID,
	)
	if err := ic.Invoke(ctx, createProfile, state.ProfileSeeds(s.owner.Key, s.profileBump)); err != nil {
		return err
	}
	if err := s.profile.Write(b); err != nil {
		return err
	}

	p.metrics.profiles.Inc()
	p.log.Info("profile registered",
		zap.Stringer("owner", s.owner.Key),
		zap.Stringer("profile", s.profile.Key),
	)
	return nil
}

// execute runs mid-transfer. Both parties must hold a credential and a
// profile; the source's profile and the tracker entry for the resource are
// credited with the amount.
func (p *Processor) execute(accounts []*chain.AccountInfo, ix instruction.Execute) error {
	if err := chain.Expect(accounts, instruction.ExecuteAccounts); err != nil {
		return err
	}
	s := &executeSubject{
		resource:           accounts[instruction.ExecuteResourceIndex],
		validation:         accounts[instruction.ExecuteValidationIndex],
		credentialResource: accounts[instruction.ExecuteCredentialResourceIndex],
		tracker:            accounts[instruction.ExecuteVolumeTrackerIndex],
		source: &party{
			side:       "source",
			holding:    accounts[instruction.ExecuteSourceIndex],
			credential: accounts[instruction.ExecuteSourceCredentialIndex],
			profile:    accounts[instruction.ExecuteSourceProfileIndex],
		},
		destination: &party{
			side:       "destination",
			holding:    accounts[instruction.ExecuteDestinationIndex],
			credential: accounts[instruction.ExecuteDestinationCredentialIndex],
			profile:    accounts[instruction.ExecuteDestinationProfileIndex],
		},
	}
	if err := validate(s, executeRules); err != nil {
		return err
	}

	profile, err := state.UnmarshalProfile(s.source.profile.Data)
	if err != nil {
		return err
	}
	if err := profile.AddVolume(ix.Amount); err != nil {
		return err
	}
	b, err := profile.Marshal()
	if err != nil {
		return err
	}
	if err := s.source.profile.Write(b); err != nil {
		return err
	}

	tracker, err := state.UnmarshalVolumeTracker(s.tracker.Data)
	if err != nil {
		return err
	}
	if err := tracker.Increment(s.resource.Key, ix.Amount); err != nil {
		return err
	}
	b, err = tracker.Marshal()
	if err != nil {
		return err
	}
	if len(b) > len(s.tracker.Data) {
		if err := s.tracker.Resize(len(b)); err != nil {
			return err
		}
	}
	if err := s.tracker.Write(b); err != nil {
		return err
	}

	p.metrics.volume.Add(float64(ix.Amount))
	p.log.Info("transfer recorded",
		zap.Stringer("resource", s.resource.Key),
		zap.Stringer("owner", s.source.decoded.Owner),
		zap.Uint64("amount", ix.Amount),
		zap.Uint64("volume", profile.Volume),
	)
	return nil
}
