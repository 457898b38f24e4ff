// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"errors"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/resolution"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// Service answers read-only queries against committed accounts.
type Service struct {
	log     logging.Logger
	fetch   chain.Fetcher
	deriver *pda.Deriver
}

type ExecuteAccountsArgs struct {
	Source      codec.Address `json:"source"`
	Resource    codec.Address `json:"resource"`
	Destination codec.Address `json:"destination"`
	Owner       codec.Address `json:"owner"`
}

type ExecuteAccountsReply struct {
	ProgramID codec.Address       `json:"programID"`
	Accounts  []chain.AccountMeta `json:"accounts"`
}

// ExecuteAccounts resolves every account the hook needs for a transfer of
// [Resource], in invocation order.
func (s *Service) ExecuteAccounts(req *http.Request, args *ExecuteAccountsArgs, reply *ExecuteAccountsReply) error {
	s.log.Debug("transferhook.ExecuteAccounts",
		zap.Stringer("resource", args.Resource),
	)

	ix := chain.Instruction{
		ProgramID: state.ProgramID,
		Accounts: []chain.AccountMeta{
			chain.Readonly(args.Source),
			chain.Readonly(args.Resource),
			chain.Readonly(args.Destination),
			chain.Readonly(args.Owner),
		},
	}
	if err := resolution.AddExtraAccountMetasForExecute(req.Context(), s.fetch, &ix, resolution.WithDeriver(s.deriver)); err != nil {
		return err
	}
	reply.ProgramID = ix.ProgramID
	reply.Accounts = ix.Accounts
	return nil
}

type ProfileArgs struct {
	Owner codec.Address `json:"owner"`
}

type ProfileReply struct {
	Address     codec.Address `json:"address"`
	Initialized bool          `json:"initialized"`
	DisplayName string        `json:"displayName"`
	Volume      uint64        `json:"volume"`
}

// Profile returns [Owner]'s profile. A missing profile is reported as
// uninitialized rather than as an error.
func (s *Service) Profile(req *http.Request, args *ProfileArgs, reply *ProfileReply) error {
	s.log.Debug("transferhook.Profile",
		zap.Stringer("owner", args.Owner),
	)

	addr, _, err := state.ProfileAddress(args.Owner)
	if err != nil {
		return err
	}
	reply.Address = addr

	profile, err := simulator.ReadProfile(req.Context(), s.fetch, args.Owner)
	if errors.Is(err, hookerrors.ErrProfileNotInitialized) {
		return nil
	}
	if err != nil {
		return err
	}
	reply.Initialized = true
	reply.DisplayName = profile.DisplayName
	reply.Volume = profile.Volume
	return nil
}

type VolumeArgs struct {
	Resource codec.Address `json:"resource"`
}

type VolumeReply struct {
	Volume uint64 `json:"volume"`
	Seen   bool   `json:"seen"`
	// Entries is the number of resources the tracker holds.
	Entries int `json:"entries"`
}

func (s *Service) Volume(req *http.Request, args *VolumeArgs, reply *VolumeReply) error {
	s.log.Debug("transferhook.Volume",
		zap.Stringer("resource", args.Resource),
	)

	tracker, err := simulator.ReadTracker(req.Context(), s.fetch)
	if err != nil {
		return err
	}
	reply.Volume, reply.Seen = tracker.Get(args.Resource)
	reply.Entries = len(tracker.Entries)
	return nil
}

type AddressesArgs struct {
	Owner    codec.Address `json:"owner"`
	Resource codec.Address `json:"resource"`
}

type AddressesReply = Addresses

func (s *Service) Addresses(_ *http.Request, args *AddressesArgs, reply *AddressesReply) error {
	s.log.Debug("transferhook.Addresses",
		zap.Stringer("owner", args.Owner),
		zap.Stringer("resource", args.Resource),
	)

	addrs, err := Derive(args.Owner, args.Resource)
	if err != nil {
		return err
	}
	*reply = *addrs
	return nil
}
