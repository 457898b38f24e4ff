// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutils

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
)

// NewSimulator returns an initialized simulator backed by an in-memory
// store.
func NewSimulator(t require.TestingT) *simulator.Simulator {
	s, _ := NewSimulatorWithRegistry(t)
	return s
}

// NewSimulatorWithRegistry also returns the registry holding the program's
// metrics.
func NewSimulatorWithRegistry(t require.TestingT) (*simulator.Simulator, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	s, err := simulator.New(context.Background(), simulator.NewConfig(), logging.NoLog{}, host.NewMemStore(), registry)
	require.NoError(t, err)
	return s, registry
}

// Participant is a funded keypair.
func Participant(t require.TestingT, s *simulator.Simulator) *host.Keypair {
	key, err := s.NewParticipant(context.Background())
	require.NoError(t, err)
	return key
}

// Registered is a funded keypair with a credential and a profile.
func Registered(t require.TestingT, s *simulator.Simulator, displayName string) *host.Keypair {
	key := Participant(t, s)
	require.NoError(t, s.RegisterProfile(context.Background(), key, displayName))
	return key
}

// Resource registers a resource with two decimals and returns it with its
// authority.
func Resource(t require.TestingT, s *simulator.Simulator, symbol string) (codec.Address, *host.Keypair) {
	authority := Participant(t, s)
	resource, err := s.RegisterResource(context.Background(), authority, instruction.RegisterResource{
		Decimals: 2,
		Name:     symbol + " resource",
		Symbol:   symbol,
		URI:      "https://example.com/" + symbol + ".json",
	})
	require.NoError(t, err)
	return resource, authority
}
