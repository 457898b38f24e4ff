// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package resolution

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/BlockDevsUnited/transferhook/x/transferhook/instruction"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

const (
	tagLen    = len(instruction.ExecuteDiscriminator)
	countLen  = 4
	headerLen = tagLen + countLen
)

// GetLen is the exact size of a validation account holding [count]
// descriptors.
func GetLen(count int) int {
	return headerLen + count*DescriptorLen
}

// Init writes [descriptors] to [buf]. A validation account is written once.
func Init(buf []byte, descriptors []Descriptor) error {
	if need := GetLen(len(descriptors)); len(buf) < need {
		return fmt.Errorf("%w: need %d bytes, have %d", hookerrors.ErrBufferTooSmall, need, len(buf))
	}
	if bytes.Equal(buf[:tagLen], instruction.ExecuteDiscriminator[:]) {
		return fmt.Errorf("%w: validation data already written", hookerrors.ErrAccountAlreadyInitialized)
	}

	packed := make([]byte, GetLen(len(descriptors)))
	copy(packed, instruction.ExecuteDiscriminator[:])
	binary.LittleEndian.PutUint32(packed[tagLen:], uint32(len(descriptors)))
	off := headerLen
	for i, d := range descriptors {
		b, err := d.pack()
		if err != nil {
			return fmt.Errorf("descriptor %d: %w", i, err)
		}
		copy(packed[off:], b[:])
		off += DescriptorLen
	}
	copy(buf, packed)
	return nil
}

// Unpack reads the descriptors of a validation account.
func Unpack(data []byte) ([]Descriptor, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: validation data of %d bytes", hookerrors.ErrInvalidAccountData, len(data))
	}
	if !bytes.Equal(data[:tagLen], instruction.ExecuteDiscriminator[:]) {
		return nil, fmt.Errorf("%w: missing execute tag", hookerrors.ErrInvalidAccountData)
	}
	count := int(binary.LittleEndian.Uint32(data[tagLen:]))
	if need := GetLen(count); len(data) < need {
		return nil, fmt.Errorf("%w: %d descriptors need %d bytes, found %d", hookerrors.ErrInvalidAccountData, count, need, len(data))
	}

	descriptors := make([]Descriptor, count)
	for i := range descriptors {
		off := headerLen + i*DescriptorLen
		d, err := unpackDescriptor(data[off : off+DescriptorLen])
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		descriptors[i] = d
	}
	return descriptors, nil
}
