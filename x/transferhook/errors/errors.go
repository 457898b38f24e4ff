// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errors defines every failure the hook and its host can report.
// Each error carries a stable numeric code that is surfaced to the
// submitting transaction.
package errors

import (
	"errors"
	"fmt"
)

// Code is the stable numeric identifier of an error.
type Code uint32

// Error is a failure with a stable code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Is matches any *Error with the same code so that wrapped copies and
// errors decoded from the wire compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Protocol errors.
var (
	ErrIncorrectCredentialResource = newError(0, "incorrect credential resource")
	ErrIncorrectCredentialAccount  = newError(1, "incorrect credential account")
	ErrCredentialAccountHasBalance = newError(2, "credential account has balance")
	ErrCredentialAccountEmpty      = newError(3, "credential account is empty")
	ErrProfileAlreadyInitialized   = newError(4, "profile already initialized")
	ErrProfileNotInitialized       = newError(5, "profile not initialized")
	ErrDisplayNameTooLong          = newError(6, "display name too long")
	ErrIncorrectValidationAccount  = newError(7, "incorrect validation account")
	ErrIncorrectProfileAccount     = newError(8, "incorrect profile account")
	ErrIncorrectVolumeTracker      = newError(9, "incorrect volume tracker")
)

// Hook interface errors.
var (
	ErrCalledOutsideOfTransfer = newError(100, "program called outside of a transfer")
	ErrIncorrectAccount        = newError(101, "incorrect account provided")
)

// Resolver errors.
var (
	ErrOutOfBounds           = newError(200, "account data slice out of bounds")
	ErrUnresolvedReference   = newError(201, "reference to unresolved account")
	ErrBufferTooSmall        = newError(202, "buffer too small")
	ErrDerivationFailed      = newError(203, "unable to find a viable program address bump")
	ErrInvalidDescriptor     = newError(204, "invalid account descriptor")
	ErrInvalidSeedConfig     = newError(205, "invalid seed configuration")
	ErrMaxSeedLengthExceeded = newError(206, "max seed length exceeded")
)

// Host ledger errors.
var (
	ErrInvalidArgument             = newError(1000, "invalid argument")
	ErrInvalidInstructionData      = newError(1001, "invalid instruction data")
	ErrInvalidAccountData          = newError(1002, "invalid account data")
	ErrAccountDataTooSmall         = newError(1003, "account data too small")
	ErrNotEnoughAccountKeys        = newError(1004, "not enough account keys")
	ErrMissingRequiredSignature    = newError(1005, "missing required signature")
	ErrAccountAlreadyInitialized   = newError(1006, "account already initialized")
	ErrUninitializedAccount        = newError(1007, "uninitialized account")
	ErrInsufficientFunds           = newError(1008, "insufficient funds")
	ErrInvalidRealloc              = newError(1009, "invalid account resize")
	ErrArithmeticOverflow          = newError(1010, "arithmetic overflow")
	ErrIncorrectProgramID          = newError(1011, "incorrect program id")
	ErrExternalAccountDataModified = newError(1012, "program modified data of an account it does not own")
	ErrReadonlyDataModified        = newError(1013, "program modified data of a read-only account")
	ErrPrivilegeEscalation         = newError(1014, "cross-program invocation with unauthorized signer or writable account")
	ErrNonTransferable             = newError(1015, "resource is non-transferable")
	ErrMintMismatch                = newError(1016, "account not associated with this resource")
	ErrOwnerMismatch               = newError(1017, "owner does not match")
	ErrCallDepthExceeded           = newError(1018, "cross-program invocation call depth too deep")
	ErrUnknownProgram              = newError(1019, "unknown program")
	ErrUnbalancedInstruction       = newError(1020, "sum of account balances before and after instruction do not match")
)

// CodeOf returns the code of the first *Error in [err]'s chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code, true
}
