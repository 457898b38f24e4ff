// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package host is a minimal ledger that runs programs against accounts. It
// provides the base ledger, associated holding and system programs the
// transfer hook is invoked by and calls into.
package host

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// TransactionError reports which instruction of a transaction failed.
type TransactionError struct {
	Index int
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("instruction %d: %v", e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Runtime executes transactions one at a time. A transaction either commits
// every account it changed or none of them.
type Runtime struct {
	log    logging.Logger
	store  AccountStore
	limits Limits

	programs map[codec.Address]chain.Program

	// serializes Submit and Airdrop
	mu sync.Mutex

	submitted atomic.Uint64
	failed    atomic.Uint64
}

// New returns a runtime with the system, base ledger and associated holding
// programs installed.
func New(log logging.Logger, store AccountStore, limits Limits) *Runtime {
	r := &Runtime{
		log:      log,
		store:    store,
		limits:   limits,
		programs: make(map[codec.Address]chain.Program),
	}
	r.Register(state.SystemProgramID, systemProgram{})
	r.Register(state.LedgerProgramID, ledgerProgram{})
	r.Register(state.AssociatedProgramID, associatedProgram{})
	return r
}

// Register installs [p] at [id], replacing any program already there.
func (r *Runtime) Register(id codec.Address, p chain.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.programs[id] = p
}

// Account returns a copy of the committed account at [addr], or nil.
func (r *Runtime) Account(ctx context.Context, addr codec.Address) (*chain.Account, error) {
	return r.store.Get(ctx, addr)
}

// Airdrop credits [lamports] to [addr] outside of any transaction.
func (r *Runtime) Airdrop(ctx context.Context, addr codec.Address, lamports uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, err := r.store.Get(ctx, addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = chain.NewAccount(0, state.SystemProgramID, nil)
	}
	if acct.Lamports+lamports < acct.Lamports {
		return hookerrors.ErrArithmeticOverflow
	}
	acct.Lamports += lamports
	return r.store.Commit(ctx, map[codec.Address]*chain.Account{addr: acct})
}

// SetAccount overwrites the committed account at [addr] outside of any
// transaction. A nil [acct] removes it.
func (r *Runtime) SetAccount(ctx context.Context, addr codec.Address, acct *chain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if acct == nil {
		acct = chain.NewAccount(0, state.SystemProgramID, nil)
	}
	return r.store.Commit(ctx, map[codec.Address]*chain.Account{addr: acct})
}

// Submitted is the number of transactions executed.
func (r *Runtime) Submitted() uint64 {
	return r.submitted.Load()
}

// Failed is the number of transactions that were rolled back.
func (r *Runtime) Failed() uint64 {
	return r.failed.Load()
}

// Submit verifies [tx]'s signatures, executes its instructions in order and
// commits the result. A failing instruction is reported as a
// *TransactionError and leaves the store unchanged.
func (r *Runtime) Submit(ctx context.Context, tx *Transaction) error {
	if len(tx.Instructions) == 0 {
		return ErrNoInstructions
	}
	if len(tx.Instructions) > int(r.limits.MaxInstructions) {
		return fmt.Errorf("%w: %d instructions exceeds the maximum of %d", hookerrors.ErrInvalidArgument, len(tx.Instructions), r.limits.MaxInstructions)
	}
	id, err := tx.ID()
	if err != nil {
		return err
	}
	signers, err := tx.signers()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.submitted.Inc()
	ws := newWorkingSet(r.store)
	for i, ix := range tx.Instructions {
		if err := r.process(ctx, ws, ix, signers.Contains, 0); err != nil {
			r.failed.Inc()
			r.log.Warn("transaction failed",
				zap.Stringer("txID", id),
				zap.Int("instruction", i),
				zap.Error(err),
			)
			return &TransactionError{Index: i, Err: err}
		}
	}

	changed := ws.changed()
	if err := r.store.Commit(ctx, changed); err != nil {
		r.failed.Inc()
		return fmt.Errorf("failed to commit %s: %w", id, err)
	}
	r.log.Verbo("transaction committed",
		zap.Stringer("txID", id),
		zap.Int("instructions", len(tx.Instructions)),
		zap.Int("accounts", len(changed)),
	)
	return nil
}

func (r *Runtime) process(ctx context.Context, ws *workingSet, ix chain.Instruction, isSigner func(codec.Address) bool, depth int) error {
	program, ok := r.programs[ix.ProgramID]
	if !ok {
		return fmt.Errorf("%w: %s", hookerrors.ErrUnknownProgram, ix.ProgramID)
	}
	if len(ix.Accounts) > int(r.limits.MaxInstructionAccounts) {
		return fmt.Errorf("%w: %d accounts exceeds the maximum of %d", hookerrors.ErrInvalidArgument, len(ix.Accounts), r.limits.MaxInstructionAccounts)
	}

	// An account listed twice carries the union of its privileges.
	privileges := make(map[codec.Address]chain.AccountMeta, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		p := privileges[meta.Address]
		p.Address = meta.Address
		p.IsSigner = p.IsSigner || meta.IsSigner
		p.IsWritable = p.IsWritable || meta.IsWritable
		privileges[meta.Address] = p
	}

	infos := make([]*chain.AccountInfo, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		p := privileges[meta.Address]
		if p.IsSigner && !isSigner(meta.Address) {
			return fmt.Errorf("%w: %s", hookerrors.ErrMissingRequiredSignature, meta.Address)
		}
		acct, err := ws.load(ctx, meta.Address)
		if err != nil {
			return err
		}
		infos[i] = chain.NewAccountInfo(meta.Address, acct, p.IsSigner, p.IsWritable, r.limits.account())
	}

	f := &frame{
		r:         r,
		ws:        ws,
		programID: ix.ProgramID,
		depth:     depth,
		infos:     infos,
	}
	f.snapshot()
	if err := program.Process(ctx, f, infos, ix.Data); err != nil {
		return err
	}
	return f.verify()
}

// workingSet holds the accounts a transaction has touched.
type workingSet struct {
	store    AccountStore
	accounts map[codec.Address]*chain.Account
	original map[codec.Address]*chain.Account
}

func newWorkingSet(store AccountStore) *workingSet {
	return &workingSet{
		store:    store,
		accounts: make(map[codec.Address]*chain.Account),
		original: make(map[codec.Address]*chain.Account),
	}
}

func (ws *workingSet) load(ctx context.Context, addr codec.Address) (*chain.Account, error) {
	if acct, ok := ws.accounts[addr]; ok {
		return acct, nil
	}
	acct, err := ws.store.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct = chain.NewAccount(0, state.SystemProgramID, nil)
	}
	ws.original[addr] = acct.Clone()
	ws.accounts[addr] = acct
	return acct, nil
}

func (ws *workingSet) changed() map[codec.Address]*chain.Account {
	changed := make(map[codec.Address]*chain.Account)
	for addr, acct := range ws.accounts {
		if !equalAccounts(ws.original[addr], acct) {
			changed[addr] = acct
		}
	}
	return changed
}

func equalAccounts(a, b *chain.Account) bool {
	return a.Lamports == b.Lamports &&
		a.Owner == b.Owner &&
		a.Executable == b.Executable &&
		bytes.Equal(a.Data, b.Data)
}

// frame is one program invocation.
type frame struct {
	r         *Runtime
	ws        *workingSet
	programID codec.Address
	depth     int
	infos     []*chain.AccountInfo

	pre map[codec.Address]*chain.Account
}

func (f *frame) ProgramID() codec.Address {
	return f.programID
}

func (f *frame) snapshot() {
	f.pre = make(map[codec.Address]*chain.Account, len(f.infos))
	for _, info := range f.infos {
		f.pre[info.Key] = info.Account.Clone()
	}
}

// verify checks that every change since the last snapshot was one the
// program was allowed to make.
func (f *frame) verify() error {
	for _, info := range f.infos {
		pre := f.pre[info.Key]
		if equalAccounts(pre, info.Account) {
			continue
		}
		if !info.IsWritable {
			return fmt.Errorf("%w: %s", hookerrors.ErrReadonlyDataModified, info.Key)
		}
		dataChanged := !bytes.Equal(pre.Data, info.Data) || pre.Owner != info.Owner || pre.Executable != info.Executable
		if dataChanged && pre.Owner != f.programID {
			return fmt.Errorf("%w: %s is owned by %s", hookerrors.ErrExternalAccountDataModified, info.Key, pre.Owner)
		}
		if info.Lamports < pre.Lamports && pre.Owner != f.programID {
			return fmt.Errorf("%w: lamports debited from %s", hookerrors.ErrExternalAccountDataModified, info.Key)
		}
	}
	return f.balanced()
}

// balanced checks that the frame's accounts hold as many lamports in total
// as they did at the last snapshot. An account listed twice counts once.
func (f *frame) balanced() error {
	var before, after uint64
	counted := make(map[codec.Address]struct{}, len(f.infos))
	for _, info := range f.infos {
		if _, ok := counted[info.Key]; ok {
			continue
		}
		counted[info.Key] = struct{}{}

		var overflow bool
		before, overflow = addLamports(before, f.pre[info.Key].Lamports)
		if overflow {
			return hookerrors.ErrArithmeticOverflow
		}
		after, overflow = addLamports(after, info.Lamports)
		if overflow {
			return hookerrors.ErrArithmeticOverflow
		}
	}
	if before != after {
		return fmt.Errorf("%w: %s held %d lamports, now %d", hookerrors.ErrUnbalancedInstruction, f.programID, before, after)
	}
	return nil
}

func addLamports(sum, lamports uint64) (uint64, bool) {
	next := sum + lamports
	return next, next < sum
}

func (f *frame) Invoke(ctx context.Context, ix chain.Instruction, signerSeeds ...[][]byte) error {
	if f.depth+1 >= int(f.r.limits.MaxCallDepth) {
		return fmt.Errorf("%w: depth %d", hookerrors.ErrCallDepthExceeded, f.depth+1)
	}

	pdaSigners := make(map[codec.Address]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := pda.CreateProgramAddress(seeds, f.programID)
		if err != nil {
			return err
		}
		pdaSigners[addr] = struct{}{}
	}

	granted := make(map[codec.Address]*chain.AccountInfo, len(f.infos))
	for _, info := range f.infos {
		granted[info.Key] = info
	}
	for _, meta := range ix.Accounts {
		info, ok := granted[meta.Address]
		if !ok {
			return fmt.Errorf("%w: %s was not passed to %s", hookerrors.ErrNotEnoughAccountKeys, meta.Address, f.programID)
		}
		if meta.IsWritable && !info.IsWritable {
			return fmt.Errorf("%w: %s is not writable", hookerrors.ErrPrivilegeEscalation, meta.Address)
		}
		if _, derived := pdaSigners[meta.Address]; meta.IsSigner && !info.IsSigner && !derived {
			return fmt.Errorf("%w: %s did not sign", hookerrors.ErrPrivilegeEscalation, meta.Address)
		}
	}

	// The caller's changes so far must stand on their own before the callee
	// sees them.
	if err := f.verify(); err != nil {
		return err
	}
	err := f.r.process(ctx, f.ws, ix, func(codec.Address) bool { return true }, f.depth+1)
	f.snapshot()
	return err
}
