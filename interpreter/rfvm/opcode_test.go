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
	"strings"
	"testing"
)

func TestOpCode_PushSize(t *testing.T) {
	for n := 1; n <= 32; n++ {
		op := OpCode(int(PUSH1) + n - 1)
		if !op.isPush() {
			t.Errorf("%v should be a push instruction", op)
		}
		if got := op.pushSize(); got != n {
			t.Errorf("wrong push size for %v, wanted %d, got %d", op, n, got)
		}
	}
	for _, op := range []OpCode{STOP, ADD, JUMPDEST, DUP1, SWAP1, CALL} {
		if op.isPush() {
			t.Errorf("%v should not be a push instruction", op)
		}
		if got := op.pushSize(); got != 0 {
			t.Errorf("wrong push size for %v, wanted 0, got %d", op, got)
		}
	}
}

func TestOpCode_StringOfNamedInstructions(t *testing.T) {
	tests := map[OpCode]string{
		STOP:     "STOP",
		ADD:      "ADD",
		SUB:      "SUB",
		SDIV:     "SDIV",
		SHA3:     "SHA3",
		ADDRESS:  "ADDRESS",
		CHAINID:  "CHAINID",
		MSTORE8:  "MSTORE8",
		JUMPDEST: "JUMPDEST",
		PUSH1:    "PUSH1",
		PUSH32:   "PUSH32",
		DUP1:     "DUP1",
		DUP16:    "DUP16",
		SWAP1:    "SWAP1",
		SWAP16:   "SWAP16",
		CREATE:   "CREATE",
		CALL:     "CALL",
		RETURN:   "RETURN",
		REVERT:   "REVERT",
	}
	for op, want := range tests {
		if got := op.String(); got != want {
			t.Errorf("wrong name for 0x%02x, wanted %s, got %s", byte(op), want, got)
		}
	}
}

func TestOpCode_StringOfUnknownInstructions(t *testing.T) {
	for _, op := range []OpCode{0x0c, 0x21, 0xfe} {
		if got := op.String(); !strings.HasPrefix(got, "op(") {
			t.Errorf("unexpected name for unknown opcode 0x%02x: %s", byte(op), got)
		}
	}
}
