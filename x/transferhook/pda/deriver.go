// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pda

import (
	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/utils/units"
	"go.uber.org/atomic"

	"github.com/BlockDevsUnited/transferhook/codec"
)

type Config struct {
	// CacheSize is the byte budget of the derivation cache.
	CacheSize int
}

func DefaultConfig() Config {
	return Config{CacheSize: units.MiB}
}

type Derived struct {
	Address codec.Address
	Bump    uint8
}

// Deriver memoizes FindProgramAddress. Bump searches are deterministic so a
// cached result never goes stale.
type Deriver struct {
	cache cache.Cacher[string, Derived]

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewDeriver(cfg Config) *Deriver {
	return &Deriver{
		cache: cache.NewSizedLRU(cfg.CacheSize, func(key string, _ Derived) int {
			return len(key) + codec.AddressLen + 1
		}),
	}
}

func (d *Deriver) Find(seeds [][]byte, program codec.Address) (codec.Address, uint8, error) {
	key := cacheKey(seeds, program)
	if derived, ok := d.cache.Get(key); ok {
		d.hits.Inc()
		return derived.Address, derived.Bump, nil
	}
	d.misses.Inc()

	addr, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		return codec.EmptyAddress, 0, err
	}
	d.cache.Put(key, Derived{Address: addr, Bump: bump})
	return addr, bump, nil
}

func (d *Deriver) Hits() uint64   { return d.hits.Load() }
func (d *Deriver) Misses() uint64 { return d.misses.Load() }

// cacheKey length-prefixes each seed so that ["ab", "c"] and ["a", "bc"]
// do not collide.
func cacheKey(seeds [][]byte, program codec.Address) string {
	size := codec.AddressLen
	for _, seed := range seeds {
		size += 1 + len(seed)
	}
	key := make([]byte, 0, size)
	key = append(key, program[:]...)
	for _, seed := range seeds {
		key = append(key, byte(len(seed)))
		key = append(key, seed...)
	}
	return string(key)
}
