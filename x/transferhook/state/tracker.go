// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/near/borsh-go"

	"github.com/BlockDevsUnited/transferhook/codec"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

const (
	TrackerHeaderLen = 4
	TrackerEntryLen  = codec.AddressLen + 8
)

type VolumeEntry struct {
	Resource codec.Address
	Volume   uint64
}

// VolumeTracker maps resources to their cumulative transferred volume.
// Entries keep first-seen order so that growing the tracker only appends
// bytes.
type VolumeTracker struct {
	Entries []VolumeEntry
}

// Get returns the volume of [resource] and whether it has been seen.
func (t *VolumeTracker) Get(resource codec.Address) (uint64, bool) {
	for _, e := range t.Entries {
		if e.Resource == resource {
			return e.Volume, true
		}
	}
	return 0, false
}

// Increment adds [amount] to [resource], inserting it on first sight.
func (t *VolumeTracker) Increment(resource codec.Address, amount uint64) error {
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.Resource != resource {
			continue
		}
		if e.Volume > math.MaxUint64-amount {
			return fmt.Errorf("%w: volume of %s", hookerrors.ErrArithmeticOverflow, resource)
		}
		e.Volume += amount
		return nil
	}
	t.Entries = append(t.Entries, VolumeEntry{Resource: resource, Volume: amount})
	return nil
}

// PackedLen is the exact encoded length.
func (t *VolumeTracker) PackedLen() int {
	return TrackerHeaderLen + len(t.Entries)*TrackerEntryLen
}

func (t *VolumeTracker) Marshal() ([]byte, error) {
	if t.Entries == nil {
		// An empty tracker is its header alone.
		return make([]byte, TrackerHeaderLen), nil
	}
	return borsh.Serialize(*t)
}

func UnmarshalVolumeTracker(data []byte) (*VolumeTracker, error) {
	if len(data) < TrackerHeaderLen {
		return nil, fmt.Errorf("%w: tracker of %d bytes", hookerrors.ErrInvalidAccountData, len(data))
	}
	count := binary.LittleEndian.Uint32(data)
	if need := TrackerHeaderLen + int(count)*TrackerEntryLen; len(data) < need {
		return nil, fmt.Errorf("%w: tracker of %d entries needs %d bytes, found %d", hookerrors.ErrInvalidAccountData, count, need, len(data))
	}
	if count == 0 {
		return &VolumeTracker{}, nil
	}
	var t VolumeTracker
	if err := borsh.Deserialize(&t, data); err != nil {
		return nil, fmt.Errorf("%w: %w", hookerrors.ErrInvalidAccountData, err)
	}
	return &t, nil
}
