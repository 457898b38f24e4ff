// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/near/borsh-go"
)

var (
	ErrShortBuffer     = errors.New("length prefix exceeds remaining bytes")
	ErrUnsupportedType = errors.New("unsupported borsh type")
)

// Deserialize decodes [b] into [v], a pointer, after checking that every
// length prefix in [b] fits in the bytes that follow it. borsh allocates
// from a prefix before it reads the elements, so untrusted input must not
// reach it unchecked.
func Deserialize(v any, b []byte) error {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: %T is not a pointer", ErrUnsupportedType, v)
	}
	if _, err := checkLengths(t.Elem(), b); err != nil {
		return err
	}
	return borsh.Deserialize(v, b)
}

// checkLengths walks the borsh layout of [t] over [b] and returns the bytes
// after it.
func checkLengths(t reflect.Type, b []byte) ([]byte, error) {
	switch t.Kind() {
	case reflect.Bool, reflect.Uint8, reflect.Int8:
		return skip(b, 1)
	case reflect.Uint16, reflect.Int16:
		return skip(b, 2)
	case reflect.Uint32, reflect.Int32, reflect.Float32:
		return skip(b, 4)
	case reflect.Uint64, reflect.Int64, reflect.Float64:
		return skip(b, 8)
	case reflect.String:
		n, rest, err := lengthPrefix(b)
		if err != nil {
			return nil, err
		}
		return skip(rest, n)
	case reflect.Slice:
		n, rest, err := lengthPrefix(b)
		if err != nil {
			return nil, err
		}
		// Every element takes at least one byte.
		if n > uint64(len(rest)) {
			return nil, fmt.Errorf("%w: %d elements in %d bytes", ErrShortBuffer, n, len(rest))
		}
		return repeat(t.Elem(), rest, n)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return skip(b, uint64(t.Len()))
		}
		return repeat(t.Elem(), b, uint64(t.Len()))
	case reflect.Pointer:
		rest, err := skip(b, 1)
		if err != nil || b[0] == 0 {
			return rest, err
		}
		return checkLengths(t.Elem(), rest)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Tag.Get("borsh_skip") == "true" {
				continue
			}
			var err error
			if b, err = checkLengths(field.Type, b); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
			}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

func repeat(elem reflect.Type, b []byte, n uint64) ([]byte, error) {
	for i := uint64(0); i < n; i++ {
		var err error
		if b, err = checkLengths(elem, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func lengthPrefix(b []byte) (uint64, []byte, error) {
	rest, err := skip(b, 4)
	if err != nil {
		return 0, nil, err
	}
	return uint64(binary.LittleEndian.Uint32(b)), rest, nil
}

func skip(b []byte, n uint64) ([]byte, error) {
	if n > uint64(len(b)) {
		return nil, fmt.Errorf("%w: need %d bytes, found %d", ErrShortBuffer, n, len(b))
	}
	return b[n:], nil
}
