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

import "github.com/figaro-vm/figaro/figaro"

// storage is the word-addressed key/value store of a single execution. It is
// scoped to the contract being executed and lives only for the duration of
// the invocation; writes are never merged back into the world state. Unset
// keys read as zero.
type storage struct {
	data map[figaro.Key]figaro.Word
}

func newStorage() *storage {
	return &storage{}
}

func (s *storage) set(key figaro.Key, value figaro.Word) {
	if s.data == nil {
		s.data = map[figaro.Key]figaro.Word{}
	}
	s.data[key] = value
}

func (s *storage) get(key figaro.Key) figaro.Word {
	return s.data[key]
}
