// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const AddressLen = 32

var (
	ErrInvalidAddressLength = errors.New("invalid address length")
	ErrInvalidAddressString = errors.New("invalid address string")
)

// Address is a 32 byte account identifier. Its text form is base58.
type Address [AddressLen]byte

var EmptyAddress = Address{}

// ToAddress copies [b] into an Address. [b] must be exactly [AddressLen] bytes.
func ToAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, fmt.Errorf("%w: found %d bytes", ErrInvalidAddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes the base58 form of an address.
func ParseAddress(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return EmptyAddress, fmt.Errorf("%w: %w", ErrInvalidAddressString, err)
	}
	return ToAddress(b)
}

// MustParseAddress is ParseAddress for constants. It panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
