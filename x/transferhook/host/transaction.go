// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/hdevalence/ed25519consensus"
	"github.com/near/borsh-go"

	"github.com/BlockDevsUnited/transferhook/codec"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/chain"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNoInstructions   = errors.New("transaction has no instructions")
)

// Keypair signs transactions for the address it controls.
type Keypair struct {
	private ed25519.PrivateKey
}

func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{private: priv}, nil
}

// KeypairFromSeed derives a keypair from a 32 byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, found %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

func (k *Keypair) Address() codec.Address {
	return codec.Address(k.private.Public().(ed25519.PublicKey))
}

func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

type Signature struct {
	Signer    codec.Address
	Signature []byte
}

// Transaction is a list of instructions executed atomically.
type Transaction struct {
	Instructions []chain.Instruction
	Signatures   []Signature
}

func NewTransaction(instructions ...chain.Instruction) *Transaction {
	return &Transaction{Instructions: instructions}
}

type message struct {
	Instructions []chain.Instruction
}

// Message is the signed portion of the transaction.
func (t *Transaction) Message() ([]byte, error) {
	return borsh.Serialize(message{Instructions: t.Instructions})
}

// ID is the hash of the message.
func (t *Transaction) ID() (ids.ID, error) {
	msg, err := t.Message()
	if err != nil {
		return ids.Empty, err
	}
	return ids.ID(sha256.Sum256(msg)), nil
}

// Sign appends a signature from each of [keys].
func (t *Transaction) Sign(keys ...*Keypair) error {
	msg, err := t.Message()
	if err != nil {
		return err
	}
	for _, k := range keys {
		t.Signatures = append(t.Signatures, Signature{
			Signer:    k.Address(),
			Signature: k.Sign(msg),
		})
	}
	return nil
}

// signers verifies every signature and returns the addresses that signed.
func (t *Transaction) signers() (set.Set[codec.Address], error) {
	msg, err := t.Message()
	if err != nil {
		return nil, err
	}
	signers := set.NewSet[codec.Address](len(t.Signatures))
	for _, sig := range t.Signatures {
		if !ed25519consensus.Verify(ed25519.PublicKey(sig.Signer[:]), msg, sig.Signature) {
			return nil, fmt.Errorf("%w: from %s", ErrInvalidSignature, sig.Signer)
		}
		signers.Add(sig.Signer)
	}
	return signers, nil
}
