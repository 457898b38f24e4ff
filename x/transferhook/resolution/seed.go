// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolution

import (
	"fmt"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// seedConfigLen is the space a descriptor has for its packed seeds.
const seedConfigLen = 32

const (
	seedUninitialized byte = iota
	seedLiteral
	_ // reserved for instruction data seeds
	seedAccountKey
	seedAccountData
)

// Seed is one element of a derivation seed list.
type Seed interface {
	fmt.Stringer

	packedLen() int
	pack(dst []byte)
}

// Literal is a constant seed.
type Literal struct {
	Bytes []byte
}

func (s Literal) packedLen() int { return 2 + len(s.Bytes) }

func (s Literal) pack(dst []byte) {
	dst[0] = seedLiteral
	dst[1] = byte(len(s.Bytes))
	copy(dst[2:], s.Bytes)
}

func (s Literal) String() string { return fmt.Sprintf("Literal(%q)", s.Bytes) }

// AccountKey uses the address at [Index] of the account list.
type AccountKey struct {
	Index uint8
}

func (AccountKey) packedLen() int { return 2 }

func (s AccountKey) pack(dst []byte) {
	dst[0] = seedAccountKey
	dst[1] = s.Index
}

func (s AccountKey) String() string { return fmt.Sprintf("AccountKey(%d)", s.Index) }

// AccountDataSlice reads [Length] bytes at [Offset] from the current data of
// the account at [AccountIndex].
type AccountDataSlice struct {
	AccountIndex uint8
	Offset       uint8
	Length       uint8
}

func (AccountDataSlice) packedLen() int { return 4 }

func (s AccountDataSlice) pack(dst []byte) {
	dst[0] = seedAccountData
	dst[1] = s.AccountIndex
	dst[2] = s.Offset
	dst[3] = s.Length
}

func (s AccountDataSlice) String() string {
	return fmt.Sprintf("AccountDataSlice(%d, %d, %d)", s.AccountIndex, s.Offset, s.Length)
}

func packSeeds(seeds []Seed) ([seedConfigLen]byte, error) {
	var config [seedConfigLen]byte
	off := 0
	for _, s := range seeds {
		if lit, ok := s.(Literal); ok && len(lit.Bytes) > seedConfigLen {
			return config, fmt.Errorf("%w: literal of %d bytes", hookerrors.ErrInvalidSeedConfig, len(lit.Bytes))
		}
		n := s.packedLen()
		if off+n > seedConfigLen {
			return config, fmt.Errorf("%w: seeds need more than %d bytes", hookerrors.ErrInvalidSeedConfig, seedConfigLen)
		}
		s.pack(config[off:])
		off += n
	}
	return config, nil
}

func unpackSeeds(config []byte) ([]Seed, error) {
	var seeds []Seed
	for off := 0; off < len(config); {
		switch config[off] {
		case seedUninitialized:
			return seeds, nil
		case seedLiteral:
			if off+2 > len(config) {
				return nil, fmt.Errorf("%w: truncated literal", hookerrors.ErrInvalidSeedConfig)
			}
			n := int(config[off+1])
			if off+2+n > len(config) {
				return nil, fmt.Errorf("%w: literal of %d bytes overruns config", hookerrors.ErrInvalidSeedConfig, n)
			}
			seeds = append(seeds, Literal{Bytes: append([]byte{}, config[off+2:off+2+n]...)})
			off += 2 + n
		case seedAccountKey:
			if off+2 > len(config) {
				return nil, fmt.Errorf("%w: truncated account key", hookerrors.ErrInvalidSeedConfig)
			}
			seeds = append(seeds, AccountKey{Index: config[off+1]})
			off += 2
		case seedAccountData:
			if off+4 > len(config) {
				return nil, fmt.Errorf("%w: truncated account data", hookerrors.ErrInvalidSeedConfig)
			}
			seeds = append(seeds, AccountDataSlice{
				AccountIndex: config[off+1],
				Offset:       config[off+2],
				Length:       config[off+3],
			})
			off += 4
		default:
			return nil, fmt.Errorf("%w: unknown seed kind %d", hookerrors.ErrInvalidSeedConfig, config[off])
		}
	}
	return seeds, nil
}
