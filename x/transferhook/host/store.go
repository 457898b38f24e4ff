// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/near/borsh-go"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
)

const accountPrefix byte = 0x0

var ErrStoreClosed = errors.New("store closed")

// AccountStore holds committed accounts.
type AccountStore interface {
	// Get returns the account at [addr], or nil if it does not exist.
	Get(ctx context.Context, addr codec.Address) (*chain.Account, error)
	// Commit writes [accounts] atomically. Accounts without lamports are
	// removed.
	Commit(ctx context.Context, accounts map[codec.Address]*chain.Account) error
	Close() error
}

type accountRecord struct {
	Lamports   uint64
	Owner      codec.Address
	Executable bool
	Data       []byte
}

func encodeAccount(a *chain.Account) ([]byte, error) {
	return borsh.Serialize(accountRecord{
		Lamports:   a.Lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
		Data:       a.Data,
	})
}

func decodeAccount(b []byte) (*chain.Account, error) {
	var rec accountRecord
	if err := borsh.Deserialize(&rec, b); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	a := chain.NewAccount(rec.Lamports, rec.Owner, rec.Data)
	a.Executable = rec.Executable
	return a, nil
}

func accountKey(addr codec.Address) []byte {
	k := make([]byte, 1+codec.AddressLen)
	k[0] = accountPrefix
	copy(k[1:], addr[:])
	return k
}

// MemStore keeps accounts in memory.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[codec.Address][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[codec.Address][]byte),
	}
}

func (m *MemStore) Get(_ context.Context, addr codec.Address) (*chain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.accounts == nil {
		return nil, ErrStoreClosed
	}
	b, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return decodeAccount(b)
}

func (m *MemStore) Commit(_ context.Context, accounts map[codec.Address]*chain.Account) error {
	// Encode everything before taking the lock so a failure leaves the store
	// untouched.
	encoded := make(map[codec.Address][]byte, len(accounts))
	for addr, a := range accounts {
		if !a.Exists() {
			encoded[addr] = nil
			continue
		}
		b, err := encodeAccount(a)
		if err != nil {
			return err
		}
		encoded[addr] = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accounts == nil {
		return ErrStoreClosed
	}
	for addr, b := range encoded {
		if b == nil {
			delete(m.accounts, addr)
			continue
		}
		m.accounts[addr] = b
	}
	return nil
}

func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts = nil
	return nil
}

// PebbleStore keeps accounts in a pebble database.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens the database in [dir]. An empty [dir] keeps the
// database in memory.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Get(_ context.Context, addr codec.Address) (*chain.Account, error) {
	b, closer, err := p.db.Get(accountKey(addr))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return decodeAccount(b)
}

func (p *PebbleStore) Commit(_ context.Context, accounts map[codec.Address]*chain.Account) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for addr, a := range accounts {
		if !a.Exists() {
			if err := batch.Delete(accountKey(addr), nil); err != nil {
				return err
			}
			continue
		}
		b, err := encodeAccount(a)
		if err != nil {
			return err
		}
		if err := batch.Set(accountKey(addr), b, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}
