// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pda derives program addresses: addresses computed from seeds and
// an owning program that are guaranteed not to be valid ed25519 public keys,
// so no private key can ever sign for them.
package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/oasisprotocol/curve25519-voi/curve"

	"github.com/BlockDevsUnited/transferhook/codec"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

const (
	// MaxSeeds bounds the number of seeds, including the bump.
	MaxSeeds = 16
	// MaxSeedLen bounds the length of a single seed.
	MaxSeedLen = 32
)

var marker = []byte("ProgramDerivedAddress")

// ErrInvalidSeeds is returned when the seeds hash to a point on the curve.
var ErrInvalidSeeds = errors.New("provided seeds do not result in a valid address")

// CreateProgramAddress hashes [seeds], [program] and a fixed marker. The
// result is rejected if it decodes to a point on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, program codec.Address) (codec.Address, error) {
	if len(seeds) > MaxSeeds {
		return codec.EmptyAddress, fmt.Errorf("%w: %d seeds", hookerrors.ErrMaxSeedLengthExceeded, len(seeds))
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return codec.EmptyAddress, fmt.Errorf("%w: seed of %d bytes", hookerrors.ErrMaxSeedLengthExceeded, len(seed))
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write(marker)

	var addr codec.Address
	h.Sum(addr[:0])
	if IsOnCurve(addr[:]) {
		return codec.EmptyAddress, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress searches the bump from 255 down to 0 and returns the
// first off-curve address along with the bump that produced it.
func FindProgramAddress(seeds [][]byte, program codec.Address) (codec.Address, uint8, error) {
	bump := []byte{0}
	withBump := make([][]byte, 0, len(seeds)+1)
	withBump = append(withBump, seeds...)
	withBump = append(withBump, bump)

	for b := 255; b >= 0; b-- {
		bump[0] = uint8(b)
		addr, err := CreateProgramAddress(withBump, program)
		switch {
		case err == nil:
			return addr, uint8(b), nil
		case errors.Is(err, ErrInvalidSeeds):
			continue
		default:
			return codec.EmptyAddress, 0, err
		}
	}
	return codec.EmptyAddress, 0, hookerrors.ErrDerivationFailed
}

// FindExternal derives an associated account address: the account of
// [resource] held by [owner] on [ledger], in the address space of
// [authority].
func FindExternal(owner, ledger, resource, authority codec.Address) (codec.Address, uint8, error) {
	return FindProgramAddress([][]byte{owner[:], ledger[:], resource[:]}, authority)
}

// IsOnCurve reports whether [b] is the compressed form of an ed25519 point.
func IsOnCurve(b []byte) bool {
	var compressed curve.CompressedEdwardsY
	if len(b) != len(compressed) {
		return false
	}
	copy(compressed[:], b)
	_, err := curve.NewEdwardsPoint().SetCompressedY(&compressed)
	return err == nil
}
