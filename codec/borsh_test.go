// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"testing"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/require"
)

type borshRecord struct {
	Owner   Address
	Name    string
	Amounts []uint64
	Next    *uint32
	Cached  []byte `borsh_skip:"true"`
}

func TestDeserialize(t *testing.T) {
	r := require.New(t)

	next := uint32(7)
	want := borshRecord{
		Owner:   Address{1, 2, 3},
		Name:    "gold",
		Amounts: []uint64{1, 2},
		Next:    &next,
	}
	b, err := borsh.Serialize(want)
	r.NoError(err)

	var got borshRecord
	r.NoError(Deserialize(&got, b))
	r.Equal(want, got)

	r.ErrorIs(Deserialize(got, b), ErrUnsupportedType)
}

func TestDeserializeLengthPrefixes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "string longer than the buffer",
			data: append(make([]byte, AddressLen), 0xff, 0xff, 0xff, 0x3f, 'a'),
		},
		{
			name: "more elements than bytes",
			data: append(make([]byte, AddressLen+4), 0xff, 0xff, 0xff, 0x3f, 1, 2, 3),
		},
		{
			name: "truncated element",
			data: append(make([]byte, AddressLen+4), 1, 0, 0, 0, 1, 2, 3),
		},
		{
			name: "truncated address",
			data: make([]byte, AddressLen-1),
		},
		{
			name: "missing option value",
			data: append(make([]byte, AddressLen+8), 1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got borshRecord
			require.ErrorIs(t, Deserialize(&got, tt.data), ErrShortBuffer)
		})
	}
}
