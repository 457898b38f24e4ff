// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/rpc"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/testutils"
)

func newServer(t *testing.T, s *simulator.Simulator) *httptest.Server {
	handler, err := rpc.NewHandler(s, logging.NoLog{})
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(rpc.Name+"."+method, args)
	require.NoError(t, err)
	resp, err := http.Post(server.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	return json2.DecodeClientResponse(resp.Body, reply)
}

func TestProfileAndVolume(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := testutils.NewSimulator(t)
	server := newServer(t, s)

	alice := testutils.Registered(t, s, "alice")
	bob := testutils.Registered(t, s, "bob")
	resource, authority := testutils.Resource(t, s, "GLD")
	require.NoError(s.Mint(ctx, resource, authority, alice.Address(), 50))
	_, err := s.OpenHolding(ctx, bob.Address(), resource)
	require.NoError(err)
	require.NoError(s.Transfer(ctx, resource, alice, bob.Address(), 20))

	var profile rpc.ProfileReply
	require.NoError(call(t, server, "Profile", &rpc.ProfileArgs{Owner: alice.Address()}, &profile))
	require.True(profile.Initialized)
	require.Equal("alice", profile.DisplayName)
	require.Equal(uint64(20), profile.Volume)
	want, _, err := state.ProfileAddress(alice.Address())
	require.NoError(err)
	require.Equal(want, profile.Address)

	var missing rpc.ProfileReply
	require.NoError(call(t, server, "Profile", &rpc.ProfileArgs{Owner: codec.Address{1}}, &missing))
	require.False(missing.Initialized)

	var volume rpc.VolumeReply
	require.NoError(call(t, server, "Volume", &rpc.VolumeArgs{Resource: resource}, &volume))
	require.True(volume.Seen)
	require.Equal(uint64(20), volume.Volume)
	require.Equal(1, volume.Entries)

	var unseen rpc.VolumeReply
	require.NoError(call(t, server, "Volume", &rpc.VolumeArgs{Resource: codec.Address{1}}, &unseen))
	require.False(unseen.Seen)
	require.Zero(unseen.Volume)
}

func TestExecuteAccounts(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := testutils.NewSimulator(t)
	server := newServer(t, s)

	alice := testutils.Registered(t, s, "alice")
	bob := testutils.Registered(t, s, "bob")
	resource, _ := testutils.Resource(t, s, "GLD")

	source, err := state.AssociatedAddress(alice.Address(), resource)
	require.NoError(err)
	destination, err := state.AssociatedAddress(bob.Address(), resource)
	require.NoError(err)

	// The holdings must exist for the owners to be read from them.
	var reply rpc.ExecuteAccountsReply
	err = call(t, server, "ExecuteAccounts", &rpc.ExecuteAccountsArgs{
		Source:      source,
		Resource:    resource,
		Destination: destination,
		Owner:       alice.Address(),
	}, &reply)
	require.Error(err)

	_, err = s.OpenHolding(ctx, alice.Address(), resource)
	require.NoError(err)
	_, err = s.OpenHolding(ctx, bob.Address(), resource)
	require.NoError(err)

	require.NoError(call(t, server, "ExecuteAccounts", &rpc.ExecuteAccountsArgs{
		Source:      source,
		Resource:    resource,
		Destination: destination,
		Owner:       alice.Address(),
	}, &reply))
	require.Equal(state.ProgramID, reply.ProgramID)
	require.Len(reply.Accounts, instruction.ExecuteAccounts)

	expected, err := s.TransferInstruction(ctx, resource, alice.Address(), bob.Address(), 1)
	require.NoError(err)
	for i := instruction.ExecuteValidationIndex; i < instruction.ExecuteAccounts; i++ {
		require.Equal(expected.Accounts[i], reply.Accounts[i], "account %d", i)
	}
}

func TestAddresses(t *testing.T) {
	require := require.New(t)
	s := testutils.NewSimulator(t)
	server := newServer(t, s)

	owner := codec.Address{1}
	resource := codec.Address{2}

	var reply rpc.AddressesReply
	require.NoError(call(t, server, "Addresses", &rpc.AddressesArgs{Owner: owner}, &reply))
	require.Equal(state.VolumeTrackerAddress(), reply.VolumeTracker)
	require.NotNil(reply.Profile)
	require.Nil(reply.Holding)
	require.Nil(reply.Validation)

	var full rpc.AddressesReply
	require.NoError(call(t, server, "Addresses", &rpc.AddressesArgs{Owner: owner, Resource: resource}, &full))
	want, err := rpc.Derive(owner, resource)
	require.NoError(err)
	require.Equal(*want, full)
}
