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

import "github.com/holiman/uint256"

// callData is a read-only view on the input bytes of an execution. All loads
// beyond the end of the data read as zero.
type callData struct {
	data []byte
}

func newCallData(data []byte) callData {
	return callData{data: data}
}

// size returns the length of the underlying data in bytes.
func (d callData) size() uint64 {
	return uint64(len(d.data))
}

// load reads the 32 bytes starting at the given offset as a big-endian word
// into the provided target, zero-extending to the right where the requested
// range reaches beyond the end of the data.
func (d callData) load(offset *uint256.Int, target *uint256.Int) {
	if !offset.IsUint64() || offset.Uint64() > uint64(len(d.data)) {
		target.Clear()
		return
	}
	var value [32]byte
	copy(value[:], d.data[offset.Uint64():])
	target.SetBytes32(value[:])
}

// loadByte reads the byte at the given offset, or zero beyond the end.
func (d callData) loadByte(offset uint64) byte {
	if offset >= uint64(len(d.data)) {
		return 0
	}
	return d.data[offset]
}
