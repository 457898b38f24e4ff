// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package resolution computes the accounts a hook invocation needs from the
// descriptors stored in a resource's validation account.
package resolution

import (
	"context"
	"fmt"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// DataFunc returns the current data of the account at [addr]. A missing
// account has no data.
type DataFunc func(ctx context.Context, addr codec.Address) ([]byte, error)

// FetcherData reads account data through [f].
func FetcherData(f chain.Fetcher) DataFunc {
	return func(ctx context.Context, addr codec.Address) ([]byte, error) {
		acct, err := f.Account(ctx, addr)
		if err != nil || acct == nil {
			return nil, err
		}
		return acct.Data, nil
	}
}

// InfoData reads account data from accounts already loaded by the ledger.
func InfoData(infos []*chain.AccountInfo) DataFunc {
	return func(_ context.Context, addr codec.Address) ([]byte, error) {
		for _, info := range infos {
			if info.Key == addr {
				return info.Data, nil
			}
		}
		return nil, nil
	}
}

type Option func(*Resolver)

// WithDeriver memoizes derivations in [d].
func WithDeriver(d *pda.Deriver) Option {
	return func(r *Resolver) {
		r.find = d.Find
	}
}

// Resolver resolves descriptors for a single invocation. Account data is
// read at most once per address and reused for every later seed, so one
// Resolver must not be shared between invocations.
type Resolver struct {
	program codec.Address
	data    DataFunc
	find    func([][]byte, codec.Address) (codec.Address, uint8, error)

	fetched map[codec.Address][]byte
}

// NewResolver resolves on behalf of the hook at [program].
func NewResolver(program codec.Address, data DataFunc, opts ...Option) *Resolver {
	r := &Resolver{
		program: program,
		data:    data,
		find:    pda.FindProgramAddress,
		fetched: make(map[codec.Address][]byte),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAll resolves [descriptors] in order. Each resolved account is
// appended to [base] and may be referenced by later descriptors.
func (r *Resolver) ResolveAll(ctx context.Context, descriptors []Descriptor, base []chain.AccountMeta) ([]chain.AccountMeta, error) {
	accounts := make([]chain.AccountMeta, len(base), len(base)+len(descriptors))
	copy(accounts, base)
	for i, d := range descriptors {
		meta, err := r.Resolve(ctx, d, accounts)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d (%s): %w", i, d, err)
		}
		accounts = append(accounts, meta)
	}
	return accounts, nil
}

// Resolve computes the account described by [d] given the accounts resolved
// so far.
func (r *Resolver) Resolve(ctx context.Context, d Descriptor, accounts []chain.AccountMeta) (chain.AccountMeta, error) {
	switch d := d.(type) {
	case Fixed:
		return chain.AccountMeta{Address: d.Address, IsSigner: d.IsSigner, IsWritable: d.IsWritable}, nil
	case AccountKeyRef:
		ref, err := at(accounts, d.Index)
		if err != nil {
			return chain.AccountMeta{}, err
		}
		return chain.AccountMeta{Address: ref.Address, IsSigner: d.IsSigner, IsWritable: d.IsWritable}, nil
	case PdaFromSeeds:
		addr, err := r.derive(ctx, d.Seeds, r.program, accounts)
		if err != nil {
			return chain.AccountMeta{}, err
		}
		return chain.AccountMeta{Address: addr, IsWritable: d.IsWritable}, nil
	case ExternalPda:
		authority, err := at(accounts, d.AuthorityIndex)
		if err != nil {
			return chain.AccountMeta{}, err
		}
		addr, err := r.derive(ctx, d.Seeds, authority.Address, accounts)
		if err != nil {
			return chain.AccountMeta{}, err
		}
		return chain.AccountMeta{Address: addr, IsWritable: d.IsWritable}, nil
	default:
		return chain.AccountMeta{}, fmt.Errorf("%w: %T", hookerrors.ErrInvalidDescriptor, d)
	}
}

// Seeds evaluates [seeds] against [accounts].
func (r *Resolver) Seeds(ctx context.Context, seeds []Seed, accounts []chain.AccountMeta) ([][]byte, error) {
	out := make([][]byte, 0, len(seeds))
	for _, s := range seeds {
		switch s := s.(type) {
		case Literal:
			out = append(out, s.Bytes)
		case AccountKey:
			ref, err := at(accounts, s.Index)
			if err != nil {
				return nil, err
			}
			out = append(out, ref.Address[:])
		case AccountDataSlice:
			ref, err := at(accounts, s.AccountIndex)
			if err != nil {
				return nil, err
			}
			data, err := r.accountData(ctx, ref.Address)
			if err != nil {
				return nil, err
			}
			end := int(s.Offset) + int(s.Length)
			if end > len(data) {
				return nil, fmt.Errorf("%w: bytes %d..%d of %s, which has %d", hookerrors.ErrOutOfBounds, s.Offset, end, ref.Address, len(data))
			}
			out = append(out, append([]byte{}, data[s.Offset:end]...))
		default:
			return nil, fmt.Errorf("%w: %T", hookerrors.ErrInvalidSeedConfig, s)
		}
	}
	return out, nil
}

func (r *Resolver) derive(ctx context.Context, seeds []Seed, program codec.Address, accounts []chain.AccountMeta) (codec.Address, error) {
	material, err := r.Seeds(ctx, seeds, accounts)
	if err != nil {
		return codec.EmptyAddress, err
	}
	addr, _, err := r.find(material, program)
	return addr, err
}

func (r *Resolver) accountData(ctx context.Context, addr codec.Address) ([]byte, error) {
	if data, ok := r.fetched[addr]; ok {
		return data, nil
	}
	data, err := r.data(ctx, addr)
	if err != nil {
		return nil, err
	}
	r.fetched[addr] = data
	return data, nil
}

func at(accounts []chain.AccountMeta, index uint8) (chain.AccountMeta, error) {
	if int(index) >= len(accounts) {
		return chain.AccountMeta{}, fmt.Errorf("%w: index %d with %d accounts resolved", hookerrors.ErrUnresolvedReference, index, len(accounts))
	}
	return accounts[index], nil
}
