// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"encoding/binary"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/state"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// Mint is the state of a resource account.
type Mint struct {
	Initialized     bool
	Authority       codec.Address
	Supply          uint64
	Decimals        uint8
	NonTransferable bool
	TransferHook    codec.Address
	Name            string
	Symbol          string
	URI             string
}

// MintBaseLen is the size of a resource without metadata.
const MintBaseLen = 1 + codec.AddressLen + 8 + 1 + 1 + codec.AddressLen + 3*4

func (m *Mint) Marshal() []byte {
	return mustSerialize(*m)
}

func UnmarshalMint(data []byte) (*Mint, error) {
	if len(data) < MintBaseLen {
		return nil, fmt.Errorf("%w: resource has %d bytes", hookerrors.ErrInvalidAccountData, len(data))
	}
	m := &Mint{}
	if err := codec.Deserialize(m, data); err != nil {
		return nil, fmt.Errorf("%w: %w", hookerrors.ErrInvalidAccountData, err)
	}
	return m, nil
}

// Holding layout
const (
	holdingResourceOffset = 0
	holdingOwnerOffset    = holdingResourceOffset + codec.AddressLen
	holdingAmountOffset   = holdingOwnerOffset + codec.AddressLen
	holdingStateOffset    = holdingAmountOffset + 8
	holdingFlagsOffset    = holdingStateOffset + 1
	holdingNonTransOffset = holdingFlagsOffset + 1

	HoldingLen = holdingNonTransOffset + 1
)

const transferringFlag = 1 << 0

func init() {
	if holdingOwnerOffset != state.HoldingOwnerOffset {
		panic("holding owner offset does not match account resolution")
	}
}

// Holding is an owner's balance of one resource.
type Holding struct {
	Resource        codec.Address
	Owner           codec.Address
	Amount          uint64
	Initialized     bool
	Transferring    bool
	NonTransferable bool
}

func (h *Holding) Marshal() []byte {
	b := make([]byte, HoldingLen)
	copy(b[holdingResourceOffset:], h.Resource[:])
	copy(b[holdingOwnerOffset:], h.Owner[:])
	binary.LittleEndian.PutUint64(b[holdingAmountOffset:], h.Amount)
	if h.Initialized {
		b[holdingStateOffset] = 1
	}
	if h.Transferring {
		b[holdingFlagsOffset] |= transferringFlag
	}
	if h.NonTransferable {
		b[holdingNonTransOffset] = 1
	}
	return b
}

func UnmarshalHolding(data []byte) (*Holding, error) {
	if len(data) != HoldingLen {
		return nil, fmt.Errorf("%w: holding has %d bytes, expected %d", hookerrors.ErrInvalidAccountData, len(data), HoldingLen)
	}
	h := &Holding{
		Resource:        codec.Address(data[holdingResourceOffset:holdingOwnerOffset]),
		Owner:           codec.Address(data[holdingOwnerOffset:holdingAmountOffset]),
		Amount:          binary.LittleEndian.Uint64(data[holdingAmountOffset:]),
		Initialized:     data[holdingStateOffset] == 1,
		Transferring:    data[holdingFlagsOffset]&transferringFlag != 0,
		NonTransferable: data[holdingNonTransOffset] == 1,
	}
	return h, nil
}

func mustSerialize(v any) []byte {
	b, err := borsh.Serialize(v)
	if err != nil {
		panic(err)
	}
	return b
}
