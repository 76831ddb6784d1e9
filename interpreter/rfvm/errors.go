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

const (
	errCallDepthExceeded   = figaro.ConstError("max call depth exceeded")
	errInvalidJump         = figaro.ConstError("invalid jump destination")
	errInvalidMemoryLength = figaro.ConstError("invalid memory length")
	errInvalidOffset       = figaro.ConstError("invalid offset")
	errInvalidOpCode       = figaro.ConstError("invalid opcode")
	errStackOverflow       = figaro.ConstError("stack overflow")
	errStackUnderflow      = figaro.ConstError("stack underflow")
)
