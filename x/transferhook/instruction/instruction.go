// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package instruction encodes and decodes the instructions accepted by the
// transfer hook program.
//
// Two protocols share the program's input. The program's own instructions
// start with a single discriminator byte. The transfer hook interface's
// Execute starts with an eight byte discriminator whose first byte lies
// outside the single byte space, so a payload is only ever decoded one way.
package instruction

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/near/borsh-go"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

type Kind uint8

const (
	InitializeLedgerKind Kind = iota
	RegisterResourceKind
	RegisterProfileKind
)

// ExecuteKind is not on the wire. It identifies Execute in logs and metrics.
const ExecuteKind Kind = 0xff

func (k Kind) String() string {
	switch k {
	case InitializeLedgerKind:
		return "initialize_ledger"
	case RegisterResourceKind:
		return "register_resource"
	case RegisterProfileKind:
		return "register_profile"
	case ExecuteKind:
		return "execute"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ExecuteDiscriminator prefixes every Execute instruction.
var ExecuteDiscriminator = func() [8]byte {
	h := sha256.Sum256([]byte("transfer-hook-interface:execute"))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}()

const executeLen = len(ExecuteDiscriminator) + 8

func init() {
	if ExecuteDiscriminator[0] <= byte(RegisterProfileKind) {
		panic("execute discriminator overlaps the program's instruction space")
	}
}

type Instruction interface {
	Kind() Kind
	Marshal() ([]byte, error)
}

type InitializeLedger struct{}

func (InitializeLedger) Kind() Kind { return InitializeLedgerKind }

func (InitializeLedger) Marshal() ([]byte, error) {
	return []byte{byte(InitializeLedgerKind)}, nil
}

// RegisterResource creates a resource whose transfers run through the hook.
type RegisterResource struct {
	Decimals uint8
	Name     string
	Symbol   string
	URI      string
}

func (RegisterResource) Kind() Kind { return RegisterResourceKind }

func (i RegisterResource) Marshal() ([]byte, error) {
	return marshal(RegisterResourceKind, i)
}

// RegisterProfile issues a credential to the signer and creates their
// profile.
type RegisterProfile struct {
	DisplayName string
}

func (RegisterProfile) Kind() Kind { return RegisterProfileKind }

func (i RegisterProfile) Marshal() ([]byte, error) {
	return marshal(RegisterProfileKind, i)
}

// Execute is invoked by the base ledger in the middle of a transfer.
type Execute struct {
	Amount uint64
}

func (Execute) Kind() Kind { return ExecuteKind }

func (i Execute) Marshal() ([]byte, error) {
	b := make([]byte, executeLen)
	copy(b, ExecuteDiscriminator[:])
	binary.LittleEndian.PutUint64(b[len(ExecuteDiscriminator):], i.Amount)
	return b, nil
}

func marshal(kind Kind, payload any) ([]byte, error) {
	b, err := borsh.Serialize(payload)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(kind)}, b...), nil
}

// Unpack decodes [data] into exactly one instruction.
func Unpack(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", hookerrors.ErrInvalidInstructionData)
	}
	if len(data) >= len(ExecuteDiscriminator) && bytes.Equal(data[:len(ExecuteDiscriminator)], ExecuteDiscriminator[:]) {
		if len(data) != executeLen {
			return nil, fmt.Errorf("%w: execute of %d bytes", hookerrors.ErrInvalidInstructionData, len(data))
		}
		return Execute{Amount: binary.LittleEndian.Uint64(data[len(ExecuteDiscriminator):])}, nil
	}

	rd := &reader{b: data, off: 1}
	switch Kind(data[0]) {
	case InitializeLedgerKind:
		if err := rd.done(); err != nil {
			return nil, err
		}
		return InitializeLedger{}, nil
	case RegisterResourceKind:
		var (
			i   RegisterResource
			err error
		)
		if i.Decimals, err = rd.u8(); err != nil {
			return nil, err
		}
		if i.Name, err = rd.str(); err != nil {
			return nil, err
		}
		if i.Symbol, err = rd.str(); err != nil {
			return nil, err
		}
		if i.URI, err = rd.str(); err != nil {
			return nil, err
		}
		return i, rd.done()
	case RegisterProfileKind:
		name, err := rd.str()
		if err != nil {
			return nil, err
		}
		return RegisterProfile{DisplayName: name}, rd.done()
	default:
		return nil, fmt.Errorf("%w: unknown discriminator %d", hookerrors.ErrInvalidInstructionData, data[0])
	}
}

// reader decodes the borsh fields used by instruction payloads.
type reader struct {
	b   []byte
	off int
}

func (r *reader) u8() (uint8, error) {
	if r.off+1 > len(r.b) {
		return 0, fmt.Errorf("%w: truncated", hookerrors.ErrInvalidInstructionData)
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

func (r *reader) str() (string, error) {
	if r.off+4 > len(r.b) {
		return "", fmt.Errorf("%w: truncated string length", hookerrors.ErrInvalidInstructionData)
	}
	n := int(binary.LittleEndian.Uint32(r.b[r.off:]))
	r.off += 4
	if n > len(r.b)-r.off {
		return "", fmt.Errorf("%w: string of %d bytes exceeds payload", hookerrors.ErrInvalidInstructionData, n)
	}
	s := string(r.b[r.off : r.off+n])
	r.off += n
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: invalid utf-8", hookerrors.ErrInvalidInstructionData)
	}
	return s, nil
}

func (r *reader) done() error {
	if r.off != len(r.b) {
		return fmt.Errorf("%w: %d trailing bytes", hookerrors.ErrInvalidInstructionData, len(r.b)-r.off)
	}
	return nil
}
