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
	"sync"

	"github.com/figaro-vm/figaro/figaro"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the Keccak-256 digest of the given bytes.
func Keccak256(data []byte) figaro.Hash {
	if len(data) == 0 {
		return emptyKeccak256Hash
	}
	hasher := keccakHasherPool.Get().(keccakHasher)
	hasher.Reset()
	hasher.Write(data)
	var res figaro.Hash
	hasher.Read(res[:])
	keccakHasherPool.Put(hasher)
	return res
}

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

// keccakHasher is the subset of the sha3 state used by Keccak256. Reading
// the digest through Read avoids the allocation performed by Sum.
type keccakHasher interface {
	Reset()
	Write(in []byte) (int, error)
	Read(out []byte) (int, error)
}

var emptyKeccak256Hash = func() figaro.Hash {
	hasher := sha3.NewLegacyKeccak256().(keccakHasher)
	var res figaro.Hash
	hasher.Read(res[:])
	return res
}()
