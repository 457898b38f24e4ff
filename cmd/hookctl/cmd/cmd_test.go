// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/testutils"
)

func TestSimulate(t *testing.T) {
	require := require.New(t)
	s := testutils.NewSimulator(t)

	report, err := simulate(context.Background(), s, 4, 2, 10)
	require.NoError(err)
	require.Equal(8, report.Transfers)
	require.Equal(uint64(80), report.Volume)
	require.Zero(report.Failed)
	require.Len(report.Participants, 4)
	for i, p := range report.Participants {
		require.Equal(participantName(i), p.Name)
		require.Equal(uint64(20), p.Volume)
		// everyone sends and receives the same amount
		require.Equal(uint64(20), p.Balance)
	}
}

func TestAddressesCommand(t *testing.T) {
	require := require.New(t)

	owner := codec.Address{1}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"addresses", "--owner", owner.String()})
	require.NoError(rootCmd.Execute())

	var addrs map[string]string
	require.NoError(yaml.Unmarshal(out.Bytes(), &addrs))
	profile, _, err := state.ProfileAddress(owner)
	require.NoError(err)
	require.Equal(profile.String(), addrs["profile"])
	require.Equal(state.VolumeTrackerAddress().String(), addrs["volume_tracker"])
	require.NotContains(addrs, "holding")
}
