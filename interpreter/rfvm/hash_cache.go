// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rfvm

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/figaro-vm/figaro/figaro"
)

// sha3HashCache is an LRU governed fixed-capacity cache for SHA3 hashes.
// The cache maintains hashes for hashed input data of size 32 and 64,
// which are the vast majority of values hashed when running EVM
// instructions. Inputs of other sizes are hashed on demand without caching.
// The cache is thread-safe.
type sha3HashCache struct {
	cache32 *lru.Cache[[32]byte, figaro.Hash]
	cache64 *lru.Cache[[64]byte, figaro.Hash]
}

// newSha3HashCache creates a sha3HashCache with the given capacity of
// entries per input size.
func newSha3HashCache(capacity32 int, capacity64 int) *sha3HashCache {
	cache32, err := lru.New[[32]byte, figaro.Hash](capacity32)
	if err != nil {
		panic(err) // capacities are compile-time constants
	}
	cache64, err := lru.New[[64]byte, figaro.Hash](capacity64)
	if err != nil {
		panic(err)
	}
	return &sha3HashCache{
		cache32: cache32,
		cache64: cache64,
	}
}

// hash fetches a cached hash or computes the hash for the provided data.
func (h *sha3HashCache) hash(data []byte) figaro.Hash {
	if len(data) == 32 {
		var key [32]byte
		copy(key[:], data)
		if hash, found := h.cache32.Get(key); found {
			return hash
		}
		hash := Keccak256(data)
		h.cache32.Add(key, hash)
		return hash
	}
	if len(data) == 64 {
		var key [64]byte
		copy(key[:], data)
		if hash, found := h.cache64.Get(key); found {
			return hash
		}
		hash := Keccak256(data)
		h.cache64.Add(key, hash)
		return hash
	}
	return Keccak256(data)
}
