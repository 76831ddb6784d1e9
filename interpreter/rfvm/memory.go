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
	"math"

	"github.com/holiman/uint256"
)

// Memory is the auto-expanding byte-addressable scratch space of an
// execution. Its length is always a multiple of 32 bytes; every write, slice
// or word read that touches a byte beyond the current length grows the store
// to the next full 32-byte word, filling new bytes with zeros. readByte and
// copyData never expand the memory.
type Memory struct {
	store []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

// Maximum memory size allowed. Prevents run-away allocations for
// nonsensical offsets; accesses beyond this bound fail with errInvalidOffset.
const maxMemoryExpansionSize = 0x1FFFFFFFE0

// toValidMemorySize rounds the given size up to the next multiple of 32.
func toValidMemorySize(size uint64) uint64 {
	fullWordsSize := sizeInWords(size) * 32
	if size != 0 && fullWordsSize < size {
		return math.MaxUint64
	}
	return fullWordsSize
}

// sizeInWords returns the number of 32-byte words required to store the given
// number of bytes, checking that size+31 does not overflow uint64.
func sizeInWords(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// expand grows the memory so that size bytes starting at offset are backed
// by the store. A size of zero never expands, independent of the offset.
func (m *Memory) expand(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	// check overflow
	if needed < offset {
		return errInvalidOffset
	}
	if m.length() >= needed {
		return nil
	}
	needed = toValidMemorySize(needed)
	if needed > maxMemoryExpansionSize {
		return errInvalidOffset
	}
	m.store = append(m.store, make([]byte, needed-m.length())...)
	if m.length()%32 != 0 {
		return errInvalidMemoryLength
	}
	return nil
}

// set writes the given bytes at the given offset, expanding the memory as
// needed.
func (m *Memory) set(offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := m.expand(offset, uint64(len(data))); err != nil {
		return err
	}
	copy(m.store[offset:], data)
	return nil
}

// setByte writes a single byte at the given offset, expanding the memory to
// the word covering the offset.
func (m *Memory) setByte(offset uint64, value byte) error {
	if err := m.expand(offset, 1); err != nil {
		return err
	}
	m.store[offset] = value
	return nil
}

// getSlice obtains a slice of size bytes from the memory at the given offset,
// expanding the memory as needed. The returned slice is backed by the
// memory's internal data. Updates to the slice will thus affect the memory
// state. This connection is invalidated by any subsequent memory operation
// that may change the size of the memory.
func (m *Memory) getSlice(offset, size uint64) ([]byte, error) {
	if err := m.expand(offset, size); err != nil {
		return nil, err
	}
	// since memory does not expand on size 0 independently of the offset,
	// we need to prevent out of bounds access
	if size == 0 {
		return nil, nil
	}
	return m.store[offset : offset+size], nil
}

// readWord reads a 32-byte big-endian word from the memory at the given
// offset into the provided target, expanding the memory as needed.
func (m *Memory) readWord(offset uint64, target *uint256.Int) error {
	data, err := m.getSlice(offset, 32)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}

// readByte reads a single byte at the given offset. Offsets beyond the
// current length read as zero; the memory is not expanded.
func (m *Memory) readByte(offset uint64) byte {
	if offset >= m.length() {
		return 0
	}
	return m.store[offset]
}

// copyData copies data from the memory, starting at the given offset, to the
// target slice, padding with zeros if offset+(target length) is greater than
// the memory size. If offset is greater than the memory size, the target
// slice is filled with zeros.
func (m *Memory) copyData(offset uint64, target []byte) {
	if m.length() < offset {
		copy(target, make([]byte, len(target)))
		return
	}

	// Copy what is available.
	covered := copy(target, m.store[offset:])

	// Pad the rest
	if covered < len(target) {
		copy(target[covered:], make([]byte, len(target)-covered))
	}
}
