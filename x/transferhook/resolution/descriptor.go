// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolution

import (
	"fmt"
	"strings"

	"github.com/BlockDevsUnited/transferhook/codec"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// DescriptorLen is the encoded size of one descriptor:
// [discriminator][32 byte config][is_signer][is_writable].
const DescriptorLen = 1 + seedConfigLen + 1 + 1

const (
	fixedDiscriminator byte = iota
	pdaDiscriminator
	accountKeyRefDiscriminator

	// externalDiscriminator is OR-ed with the authority index.
	externalDiscriminator byte = 1 << 7
)

// Descriptor describes how to find one account a hook invocation needs.
type Descriptor interface {
	fmt.Stringer

	pack() ([DescriptorLen]byte, error)
}

// Fixed is a constant address.
type Fixed struct {
	Address    codec.Address
	IsSigner   bool
	IsWritable bool
}

func (d Fixed) pack() ([DescriptorLen]byte, error) {
	var b [DescriptorLen]byte
	b[0] = fixedDiscriminator
	copy(b[1:], d.Address[:])
	setFlags(&b, d.IsSigner, d.IsWritable)
	return b, nil
}

func (d Fixed) String() string {
	return fmt.Sprintf("Fixed(%s%s)", d.Address, flags(d.IsSigner, d.IsWritable))
}

// AccountKeyRef repeats the address at [Index] of the account list.
type AccountKeyRef struct {
	Index      uint8
	IsSigner   bool
	IsWritable bool
}

func (d AccountKeyRef) pack() ([DescriptorLen]byte, error) {
	var b [DescriptorLen]byte
	b[0] = accountKeyRefDiscriminator
	b[1] = d.Index
	setFlags(&b, d.IsSigner, d.IsWritable)
	return b, nil
}

func (d AccountKeyRef) String() string {
	return fmt.Sprintf("AccountKeyRef(%d%s)", d.Index, flags(d.IsSigner, d.IsWritable))
}

// PdaFromSeeds derives an address under the hook program.
type PdaFromSeeds struct {
	Seeds      []Seed
	IsWritable bool
}

func (d PdaFromSeeds) pack() ([DescriptorLen]byte, error) {
	var b [DescriptorLen]byte
	config, err := packSeeds(d.Seeds)
	if err != nil {
		return b, err
	}
	b[0] = pdaDiscriminator
	copy(b[1:], config[:])
	setFlags(&b, false, d.IsWritable)
	return b, nil
}

func (d PdaFromSeeds) String() string {
	return fmt.Sprintf("PdaFromSeeds(%s%s)", seedList(d.Seeds), flags(false, d.IsWritable))
}

// ExternalPda derives an address under the program found at
// [AuthorityIndex] of the account list.
type ExternalPda struct {
	AuthorityIndex uint8
	Seeds          []Seed
	IsWritable     bool
}

func (d ExternalPda) pack() ([DescriptorLen]byte, error) {
	var b [DescriptorLen]byte
	if d.AuthorityIndex >= externalDiscriminator {
		return b, fmt.Errorf("%w: authority index %d", hookerrors.ErrInvalidDescriptor, d.AuthorityIndex)
	}
	config, err := packSeeds(d.Seeds)
	if err != nil {
		return b, err
	}
	b[0] = externalDiscriminator | d.AuthorityIndex
	copy(b[1:], config[:])
	setFlags(&b, false, d.IsWritable)
	return b, nil
}

func (d ExternalPda) String() string {
	return fmt.Sprintf("ExternalPda(%d, %s%s)", d.AuthorityIndex, seedList(d.Seeds), flags(false, d.IsWritable))
}

func setFlags(b *[DescriptorLen]byte, signer, writable bool) {
	if signer {
		b[DescriptorLen-2] = 1
	}
	if writable {
		b[DescriptorLen-1] = 1
	}
}

func flags(signer, writable bool) string {
	var s string
	if signer {
		s += ", signer"
	}
	if writable {
		s += ", writable"
	}
	return s
}

func seedList(seeds []Seed) string {
	parts := make([]string, len(seeds))
	for i, s := range seeds {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func unpackDescriptor(b []byte) (Descriptor, error) {
	signer, err := flag(b[DescriptorLen-2])
	if err != nil {
		return nil, err
	}
	writable, err := flag(b[DescriptorLen-1])
	if err != nil {
		return nil, err
	}
	config := b[1 : 1+seedConfigLen]

	switch d := b[0]; {
	case d == fixedDiscriminator:
		addr, err := codec.ToAddress(config)
		if err != nil {
			return nil, err
		}
		return Fixed{Address: addr, IsSigner: signer, IsWritable: writable}, nil
	case d == accountKeyRefDiscriminator:
		return AccountKeyRef{Index: config[0], IsSigner: signer, IsWritable: writable}, nil
	case d == pdaDiscriminator, d&externalDiscriminator != 0:
		if signer {
			return nil, fmt.Errorf("%w: derived addresses cannot sign", hookerrors.ErrInvalidDescriptor)
		}
		seeds, err := unpackSeeds(config)
		if err != nil {
			return nil, err
		}
		if d == pdaDiscriminator {
			return PdaFromSeeds{Seeds: seeds, IsWritable: writable}, nil
		}
		return ExternalPda{AuthorityIndex: d &^ externalDiscriminator, Seeds: seeds, IsWritable: writable}, nil
	default:
		return nil, fmt.Errorf("%w: unknown discriminator %d", hookerrors.ErrInvalidDescriptor, d)
	}
}

func flag(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: flag byte %d", hookerrors.ErrInvalidDescriptor, b)
	}
}
