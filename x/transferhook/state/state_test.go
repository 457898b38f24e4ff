// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

func TestProfileLayout(t *testing.T) {
	r := require.New(t)

	owner := codec.Address{1, 2, 3}
	p, err := NewProfile(owner, "alice")
	r.NoError(err)

	b, err := p.Marshal()
	r.NoError(err)
	r.Len(b, p.Size())
	r.Equal(owner[:], b[:32])
	r.Equal(uint32(5), binary.LittleEndian.Uint32(b[32:36]))
	r.Equal("alice", string(b[36:41]))

	// Volume updates keep the size.
	r.NoError(p.AddVolume(10))
	r.NoError(p.AddVolume(32))
	updated, err := p.Marshal()
	r.NoError(err)
	r.Len(updated, len(b))
	r.Equal(uint64(42), binary.LittleEndian.Uint64(updated[41:]))

	decoded, err := UnmarshalProfile(updated)
	r.NoError(err)
	r.Equal(p, decoded)
}

func TestProfileDisplayNameBoundary(t *testing.T) {
	r := require.New(t)

	_, err := NewProfile(codec.Address{}, strings.Repeat("a", MaxDisplayNameLen))
	r.NoError(err)

	_, err = NewProfile(codec.Address{}, strings.Repeat("a", MaxDisplayNameLen+1))
	r.ErrorIs(err, hookerrors.ErrDisplayNameTooLong)
}

func TestProfileOverflow(t *testing.T) {
	r := require.New(t)

	p := &Profile{Volume: math.MaxUint64 - 1}
	r.NoError(p.AddVolume(1))
	r.ErrorIs(p.AddVolume(1), hookerrors.ErrArithmeticOverflow)
	r.Equal(uint64(math.MaxUint64), p.Volume)
}

func TestUnmarshalProfileTooShort(t *testing.T) {
	_, err := UnmarshalProfile(make([]byte, 10))
	require.ErrorIs(t, err, hookerrors.ErrInvalidAccountData)
}

func TestVolumeTrackerGrowth(t *testing.T) {
	r := require.New(t)

	tracker, err := UnmarshalVolumeTracker(make([]byte, TrackerHeaderLen))
	r.NoError(err)
	r.Empty(tracker.Entries)

	var previous []byte
	for n := 1; n <= 8; n++ {
		r.NoError(tracker.Increment(codec.Address{byte(n)}, uint64(n)))

		b, err := tracker.Marshal()
		r.NoError(err)
		r.Len(b, TrackerHeaderLen+n*TrackerEntryLen)
		r.Equal(tracker.PackedLen(), len(b))
		r.Equal(uint32(n), binary.LittleEndian.Uint32(b))

		// Earlier entries are untouched by the insertion.
		if previous != nil {
			r.True(bytes.Equal(previous[TrackerHeaderLen:], b[TrackerHeaderLen:len(previous)]))
		}
		previous = b
	}

	r.NoError(tracker.Increment(codec.Address{3}, 100))
	v, ok := tracker.Get(codec.Address{3})
	r.True(ok)
	r.Equal(uint64(103), v)
	r.Len(tracker.Entries, 8)

	_, ok = tracker.Get(codec.Address{42})
	r.False(ok)

	b, err := tracker.Marshal()
	r.NoError(err)
	decoded, err := UnmarshalVolumeTracker(b)
	r.NoError(err)
	r.Equal(tracker, decoded)
}

func TestVolumeTrackerEmptyMarshal(t *testing.T) {
	r := require.New(t)

	b, err := (&VolumeTracker{}).Marshal()
	r.NoError(err)
	r.Equal([]byte{0, 0, 0, 0}, b)
}

func TestVolumeTrackerOverflow(t *testing.T) {
	r := require.New(t)

	tracker := &VolumeTracker{}
	r.NoError(tracker.Increment(codec.Address{1}, math.MaxUint64))
	r.ErrorIs(tracker.Increment(codec.Address{1}, 1), hookerrors.ErrArithmeticOverflow)
}

func TestUnmarshalVolumeTrackerTruncated(t *testing.T) {
	r := require.New(t)

	tracker := &VolumeTracker{}
	r.NoError(tracker.Increment(codec.Address{1}, 1))
	r.NoError(tracker.Increment(codec.Address{2}, 1))
	b, err := tracker.Marshal()
	r.NoError(err)

	// A record written without growing its region loses its tail.
	_, err = UnmarshalVolumeTracker(b[:len(b)-1])
	r.ErrorIs(err, hookerrors.ErrInvalidAccountData)

	_, err = UnmarshalVolumeTracker([]byte{1})
	r.ErrorIs(err, hookerrors.ErrInvalidAccountData)
}

func TestAddresses(t *testing.T) {
	r := require.New(t)

	owner := codec.Address{9}
	profile, bump, err := ProfileAddress(owner)
	r.NoError(err)
	again, againBump, err := ProfileAddress(owner)
	r.NoError(err)
	r.Equal(profile, again)
	r.Equal(bump, againBump)

	signed, err := pda.CreateProgramAddress(ProfileSeeds(owner, bump), ProgramID)
	r.NoError(err)
	r.Equal(profile, signed)

	other, _, err := ProfileAddress(codec.Address{10})
	r.NoError(err)
	r.NotEqual(profile, other)

	credential, err := CredentialAccountAddress(owner)
	r.NoError(err)
	expected, _, err := pda.FindExternal(owner, LedgerProgramID, CredentialResourceAddress(), AssociatedProgramID)
	r.NoError(err)
	r.Equal(expected, credential)

	for _, tt := range []struct {
		addr  codec.Address
		seeds [][]byte
	}{
		{CredentialResourceAddress(), CredentialResourceSeeds()},
		{MintAuthorityAddress(), MintAuthoritySeeds()},
		{VolumeTrackerAddress(), VolumeTrackerSeeds()},
	} {
		derived, err := pda.CreateProgramAddress(tt.seeds, ProgramID)
		r.NoError(err)
		r.Equal(tt.addr, derived)
	}

	resource := codec.Address{77}
	validation, vBump, err := ValidationAddress(resource, ProgramID)
	r.NoError(err)
	derived, err := pda.CreateProgramAddress(ValidationSeeds(resource, vBump), ProgramID)
	r.NoError(err)
	r.Equal(validation, derived)
}
