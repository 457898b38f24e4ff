// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"math"

	"github.com/near/borsh-go"

	"github.com/BlockDevsUnited/transferhook/codec"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// MaxDisplayNameLen is the longest display name, in bytes.
const MaxDisplayNameLen = 140

const profileFixedLen = codec.AddressLen + 4 + 8

// Profile is a participant's cumulative accounting record. Its size is fixed
// at registration, so volume updates are written in place.
type Profile struct {
	Owner       codec.Address
	DisplayName string
	Volume      uint64
}

func NewProfile(owner codec.Address, displayName string) (*Profile, error) {
	if len(displayName) > MaxDisplayNameLen {
		return nil, fmt.Errorf("%w: %d bytes, max %d", hookerrors.ErrDisplayNameTooLong, len(displayName), MaxDisplayNameLen)
	}
	return &Profile{Owner: owner, DisplayName: displayName}, nil
}

// Size is the exact encoded length.
func (p *Profile) Size() int {
	return profileFixedLen + len(p.DisplayName)
}

// AddVolume increments the cumulative volume by [amount].
func (p *Profile) AddVolume(amount uint64) error {
	if p.Volume > math.MaxUint64-amount {
		return fmt.Errorf("%w: profile volume", hookerrors.ErrArithmeticOverflow)
	}
	p.Volume += amount
	return nil
}

func (p *Profile) Marshal() ([]byte, error) {
	return borsh.Serialize(*p)
}

func UnmarshalProfile(data []byte) (*Profile, error) {
	if len(data) < profileFixedLen {
		return nil, fmt.Errorf("%w: profile of %d bytes", hookerrors.ErrInvalidAccountData, len(data))
	}
	var p Profile
	if err := codec.Deserialize(&p, data); err != nil {
		return nil, fmt.Errorf("%w: %w", hookerrors.ErrInvalidAccountData, err)
	}
	return &p, nil
}
