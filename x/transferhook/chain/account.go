// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/BlockDevsUnited/transferhook/codec"

	hookerrors "github.com/BlockDevsUnited/transferhook/x/transferhook/errors"
)

// Account is the ledger-owned state behind an address. An account with zero
// lamports does not exist.
type Account struct {
	Lamports   uint64
	Owner      codec.Address
	Executable bool
	Data       []byte

	// baseLen is the data length when the account entered the transaction.
	// Resize limits are measured against it.
	baseLen int
}

func NewAccount(lamports uint64, owner codec.Address, data []byte) *Account {
	return &Account{
		Lamports: lamports,
		Owner:    owner,
		Data:     data,
		baseLen:  len(data),
	}
}

// Exists reports whether the account is funded.
func (a *Account) Exists() bool {
	return a != nil && a.Lamports != 0
}

// Allocate replaces the data with [space] zero bytes. Only account creation
// uses it, so it is not subject to per-instruction resize limits.
func (a *Account) Allocate(space int) {
	a.Data = make([]byte, space)
	a.baseLen = space
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// Limits bound how an instruction may resize an account.
type Limits struct {
	MaxDataLen  int
	MaxIncrease int
}

// AccountInfo is an account as seen by a running program: the shared account
// state plus the privileges the program was granted for it.
type AccountInfo struct {
	*Account

	Key        codec.Address
	IsSigner   bool
	IsWritable bool

	limits Limits
}

func NewAccountInfo(key codec.Address, account *Account, signer, writable bool, limits Limits) *AccountInfo {
	return &AccountInfo{
		Account:    account,
		Key:        key,
		IsSigner:   signer,
		IsWritable: writable,
		limits:     limits,
	}
}

func (a *AccountInfo) Meta() AccountMeta {
	return AccountMeta{Address: a.Key, IsSigner: a.IsSigner, IsWritable: a.IsWritable}
}

func (a *AccountInfo) Limits() Limits {
	return a.limits
}

// Resize grows or shrinks the account data to [newLen]. New bytes are zero.
func (a *AccountInfo) Resize(newLen int) error {
	if !a.IsWritable {
		return fmt.Errorf("%w: %s is read-only", hookerrors.ErrInvalidRealloc, a.Key)
	}
	if newLen < 0 || newLen > a.limits.MaxDataLen {
		return fmt.Errorf("%w: %d bytes exceeds the maximum of %d", hookerrors.ErrInvalidRealloc, newLen, a.limits.MaxDataLen)
	}
	if newLen-a.baseLen > a.limits.MaxIncrease {
		return fmt.Errorf("%w: growth of %d bytes exceeds the maximum of %d", hookerrors.ErrInvalidRealloc, newLen-a.baseLen, a.limits.MaxIncrease)
	}

	switch {
	case newLen > len(a.Data):
		a.Data = append(a.Data, make([]byte, newLen-len(a.Data))...)
	case newLen < len(a.Data):
		a.Data = a.Data[:newLen]
	}
	return nil
}

// Write copies [b] to the start of the account data. It never grows the
// account: a record that does not fit must be preceded by Resize.
func (a *AccountInfo) Write(b []byte) error {
	if len(b) > len(a.Data) {
		return fmt.Errorf("%w: need %d bytes, have %d", hookerrors.ErrAccountDataTooSmall, len(b), len(a.Data))
	}
	copy(a.Data, b)
	return nil
}

// Expect fails unless at least [n] accounts were supplied.
func Expect(accounts []*AccountInfo, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: expected %d, found %d", hookerrors.ErrNotEnoughAccountKeys, n, len(accounts))
	}
	return nil
}
