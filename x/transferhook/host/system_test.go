// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

func TestDecodeArgsRejectsOversizedPrefix(t *testing.T) {
	require := require.New(t)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	err := decodeArgs([]byte{0xff, 0xff, 0xff, 0x3f, 'a'}, &InitializeMetadataArgs{})
	runtime.ReadMemStats(&after)

	require.ErrorIs(err, hookerrors.ErrInvalidInstructionData)
	require.ErrorIs(err, codec.ErrShortBuffer)
	require.Less(after.TotalAlloc-before.TotalAlloc, uint64(1<<20))

	args := InitializeMetadataArgs{Name: "Gold", Symbol: "GLD", URI: "https://example.com/gld.json"}
	var decoded InitializeMetadataArgs
	require.NoError(decodeArgs(mustSerialize(args), &decoded))
	require.Equal(args, decoded)
}

func TestOversizedMetadataInstruction(t *testing.T) {
	require := require.New(t)
	r := newRuntime(t)

	res := newPlainResource(t, r, 0)
	ix := NewInitializeMetadata(res.mint, res.authority.Address(), InitializeMetadataArgs{Name: "Gold"})
	ix.Data = append([]byte{ix.Data[0]}, 0xff, 0xff, 0xff, 0x3f, 'a')

	err := submit(r, []*Keypair{res.authority}, ix)
	require.ErrorIs(err, hookerrors.ErrInvalidInstructionData)

	acct, err := r.Account(context.Background(), res.mint)
	require.NoError(err)
	require.Len(acct.Data, MintBaseLen)
	require.Equal(state.LedgerProgramID, acct.Owner)
}
