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
	"bytes"
	"errors"
	"testing"

	"github.com/figaro-vm/figaro/figaro"
)

func runCode(t *testing.T, code []byte) figaro.Result {
	t.Helper()
	result, err := NewVM(Config{}).Run(figaro.Parameters{Code: code})
	if err != nil {
		t.Fatalf("unexpected execution error: %v", err)
	}
	return result
}

func word(v uint64) figaro.Word {
	return figaro.Word(figaro.NewValue(v))
}

func allOnesWord() figaro.Word {
	var w figaro.Word
	for i := range w {
		w[i] = 0xff
	}
	return w
}

func TestInterpreter_EndToEndScenarios(t *testing.T) {
	tests := map[string]struct {
		code        []byte
		wantStack   []figaro.Word
		wantOutcome figaro.Outcome
		wantOutput  []byte
	}{
		"add": {
			code:        []byte{0x60, 0x01, 0x60, 0x01, 0x01, 0x00},
			wantStack:   []figaro.Word{word(2)},
			wantOutcome: figaro.OutcomeSuccess,
		},
		"sub underflow wraps": {
			code:        []byte{0x60, 0x00, 0x60, 0x01, 0x03, 0x00},
			wantStack:   []figaro.Word{allOnesWord()},
			wantOutcome: figaro.OutcomeSuccess,
		},
		"div by zero": {
			code:        []byte{0x60, 0x00, 0x60, 0x05, 0x04, 0x00},
			wantStack:   []figaro.Word{word(0)},
			wantOutcome: figaro.OutcomeSuccess,
		},
		"push32 round trip": {
			code: append(append([]byte{0x7f},
				make([]byte, 31)...), 0x01, 0x00),
			wantStack:   []figaro.Word{word(1)},
			wantOutcome: figaro.OutcomeSuccess,
		},
		"jump to jumpdest": {
			code:        []byte{0x60, 0x04, 0x56, 0x00, 0x5b, 0x60, 0x2a, 0x00},
			wantStack:   []figaro.Word{word(42)},
			wantOutcome: figaro.OutcomeSuccess,
		},
		"return single byte": {
			code: []byte{
				0x60, 0x2a, 0x60, 0x00, 0x53, // MSTORE8(0, 0x2a)
				0x60, 0x01, 0x60, 0x00, 0xf3, // RETURN(0, 1)
			},
			wantStack:   []figaro.Word{},
			wantOutcome: figaro.OutcomeSuccess,
			wantOutput:  []byte{0x2a},
		},
		"revert with data": {
			code: []byte{
				0x60, 0xee, 0x60, 0x00, 0x53, // MSTORE8(0, 0xee)
				0x60, 0x01, 0x60, 0x00, 0xfd, // REVERT(0, 1)
			},
			wantStack:   []figaro.Word{},
			wantOutcome: figaro.OutcomeReverted,
			wantOutput:  []byte{0xee},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, test.code)
			if result.Outcome != test.wantOutcome {
				t.Errorf("wrong outcome, wanted %v, got %v", test.wantOutcome, result.Outcome)
			}
			if len(result.Stack) != len(test.wantStack) {
				t.Fatalf("wrong stack size, wanted %d, got %d",
					len(test.wantStack), len(result.Stack))
			}
			for i, want := range test.wantStack {
				if result.Stack[i] != want {
					t.Errorf("wrong stack element %d, wanted %v, got %v",
						i, want, result.Stack[i])
				}
			}
			if !bytes.Equal(result.Output, test.wantOutput) {
				t.Errorf("wrong output, wanted %x, got %x", test.wantOutput, result.Output)
			}
		})
	}
}

func TestInterpreter_PushRoundTripForAllSizes(t *testing.T) {
	for n := 1; n <= 32; n++ {
		immediate := make([]byte, n)
		for i := range immediate {
			immediate[i] = byte(i + 1)
		}
		code := append([]byte{byte(int(PUSH1) + n - 1)}, immediate...)
		code = append(code, byte(STOP))

		result := runCode(t, code)
		if result.Outcome != figaro.OutcomeSuccess {
			t.Fatalf("PUSH%d: wrong outcome: %v", n, result.Outcome)
		}
		if len(result.Stack) != 1 {
			t.Fatalf("PUSH%d: wrong stack size %d", n, len(result.Stack))
		}
		var want figaro.Word
		copy(want[32-n:], immediate)
		if result.Stack[0] != want {
			t.Errorf("PUSH%d: wrong value, wanted %v, got %v", n, want, result.Stack[0])
		}
	}
}

func TestInterpreter_StopSuccessSemantics(t *testing.T) {
	tests := map[string]struct {
		code        []byte
		wantOutcome figaro.Outcome
	}{
		"stop at final byte":    {[]byte{0x00}, figaro.OutcomeSuccess},
		"stop mid-code":         {[]byte{0x00, 0x00}, figaro.OutcomeHalted},
		"running off the end":   {[]byte{0x60, 0x01, 0x50}, figaro.OutcomeHalted},
		"empty code":            {nil, figaro.OutcomeHalted},
		"return not at the end": {[]byte{0x60, 0x00, 0x60, 0x00, 0xf3, 0x00}, figaro.OutcomeSuccess},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, test.code)
			if result.Outcome != test.wantOutcome {
				t.Errorf("wrong outcome, wanted %v, got %v", test.wantOutcome, result.Outcome)
			}
		})
	}
}

func TestInterpreter_SignedOperationScenarios(t *testing.T) {
	minusOne := allOnesWord()

	tests := map[string]struct {
		code []byte
		want figaro.Word
	}{
		// SDIV of -1 / -1 is 1.
		"sdiv minus one by minus one": {
			code: append(append(
				push32(minusOne), push32(minusOne)...),
				byte(SDIV), byte(STOP)),
			want: word(1),
		},
		// SLT: -1 < 0.
		"slt minus one less than zero": {
			code: append(append(
				push32(minusOne), []byte{byte(PUSH1), 0x00}...),
				byte(SLT), byte(STOP)),
			want: word(1),
		},
		// SGT: 0 > -1.
		"sgt zero greater than minus one": {
			code: append(append(
				[]byte{byte(PUSH1), 0x00}, push32(minusOne)...),
				byte(SGT), byte(STOP)),
			want: word(1),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, test.code)
			if result.Outcome != figaro.OutcomeSuccess {
				t.Fatalf("wrong outcome: %v", result.Outcome)
			}
			if len(result.Stack) != 1 || result.Stack[0] != test.want {
				t.Errorf("wrong result, wanted %v, got %v", test.want, result.Stack)
			}
		})
	}
}

func push32(w figaro.Word) []byte {
	return append([]byte{byte(PUSH32)}, w[:]...)
}

func TestInterpreter_InvalidOpCodesAreReported(t *testing.T) {
	for _, op := range []byte{0x0c, 0x21, 0x4f, 0x5a, 0xa5, 0xef, 0xfe, 0xff} {
		if _, err := NewVM(Config{}).Run(figaro.Parameters{Code: []byte{op}}); !errors.Is(err, errInvalidOpCode) {
			t.Errorf("opcode 0x%02x should fail with %v, got %v", op, errInvalidOpCode, err)
		}
	}
}

func TestInterpreter_StackUnderflowIsReported(t *testing.T) {
	tests := map[string][]byte{
		"add on empty stack":    {byte(ADD)},
		"add on one element":    {byte(PUSH1), 0x01, byte(ADD)},
		"pop on empty stack":    {byte(POP)},
		"dup2 on one element":   {byte(PUSH1), 0x01, byte(DUP2)},
		"swap1 on one element":  {byte(PUSH1), 0x01, byte(SWAP1)},
		"call on five elements": {byte(PUSH1), 0x01, byte(DUP1), byte(DUP1), byte(DUP1), byte(DUP1), byte(CALL)},
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewVM(Config{}).Run(figaro.Parameters{Code: code}); !errors.Is(err, errStackUnderflow) {
				t.Errorf("expected %v, got %v", errStackUnderflow, err)
			}
		})
	}
}

func TestInterpreter_StackOverflowIsReported(t *testing.T) {
	// A loop pushing values until the stack limit is exceeded.
	code := []byte{
		byte(JUMPDEST), // offset 0
		byte(PUSH1), 0x01,
		byte(PUSH1), 0x00,
		byte(JUMP),
	}
	_, err := NewVM(Config{}).Run(figaro.Parameters{Code: code})
	if !errors.Is(err, errStackOverflow) {
		t.Errorf("expected %v, got %v", errStackOverflow, err)
	}
}

func TestInterpreter_StackSizeStaysWithinBounds(t *testing.T) {
	// Fill the stack up to the limit; the last push must still succeed.
	code := []byte{}
	for i := 0; i < maxStackSize; i++ {
		code = append(code, byte(PUSH1), 0x01)
	}
	code = append(code, byte(STOP))
	result := runCode(t, code)
	if got, want := len(result.Stack), maxStackSize; got != want {
		t.Errorf("wrong final stack size, wanted %d, got %d", want, got)
	}

	// One more push is one too many.
	code = append(code[:len(code)-1], byte(PUSH1), 0x01, byte(STOP))
	if _, err := NewVM(Config{}).Run(figaro.Parameters{Code: code}); !errors.Is(err, errStackOverflow) {
		t.Errorf("expected %v, got %v", errStackOverflow, err)
	}
}

func TestInterpreter_JumpBeyondCodeEndHalts(t *testing.T) {
	code := []byte{byte(PUSH1), 0x20, byte(JUMP)}
	result := runCode(t, code)
	if result.Outcome != figaro.OutcomeHalted {
		t.Errorf("jump beyond the code should halt, got %v", result.Outcome)
	}
}

func TestInterpreter_StrictModeRejectsJumpWithoutJumpdest(t *testing.T) {
	code := []byte{byte(PUSH1), 0x03, byte(JUMP), byte(STOP)}
	if _, err := NewVM(Config{WithJumpChecks: true}).Run(figaro.Parameters{Code: code}); !errors.Is(err, errInvalidJump) {
		t.Errorf("expected %v, got %v", errInvalidJump, err)
	}

	// The same program with a JUMPDEST target is fine in both modes.
	code = []byte{byte(PUSH1), 0x03, byte(JUMP), byte(JUMPDEST), byte(STOP)}
	for _, strict := range []bool{false, true} {
		result, err := NewVM(Config{WithJumpChecks: strict}).Run(figaro.Parameters{Code: code})
		if err != nil {
			t.Fatalf("unexpected error (strict=%v): %v", strict, err)
		}
		if result.Outcome != figaro.OutcomeSuccess {
			t.Errorf("wrong outcome (strict=%v): %v", strict, result.Outcome)
		}
	}
}

func TestInterpreter_MemoryLengthIsAlwaysMultipleOf32(t *testing.T) {
	codes := map[string][]byte{
		"mstore8": {byte(PUSH1), 0x2a, byte(PUSH1), 0x05, byte(MSTORE8), byte(MSIZE), byte(STOP)},
		"mstore":  {byte(PUSH1), 0x2a, byte(PUSH1), 0x05, byte(MSTORE), byte(MSIZE), byte(STOP)},
		"mload":   {byte(PUSH1), 0x21, byte(MLOAD), byte(POP), byte(MSIZE), byte(STOP)},
	}
	for name, code := range codes {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, code)
			size := result.Stack[0]
			value := uint64(size[30])<<8 | uint64(size[31])
			if value%32 != 0 {
				t.Errorf("memory size %d is not a multiple of 32", value)
			}
			if value == 0 {
				t.Errorf("memory should have been expanded")
			}
		})
	}
}

func TestInterpreter_ResultStackIsTopFirst(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x01,
		byte(PUSH1), 0x02,
		byte(PUSH1), 0x03,
		byte(STOP),
	}
	result := runCode(t, code)
	want := []figaro.Word{word(3), word(2), word(1)}
	if len(result.Stack) != len(want) {
		t.Fatalf("wrong stack size, wanted %d, got %d", len(want), len(result.Stack))
	}
	for i := range want {
		if result.Stack[i] != want[i] {
			t.Errorf("wrong stack element %d, wanted %v, got %v", i, want[i], result.Stack[i])
		}
	}
}

func TestInterpreter_RunsAreIsolated(t *testing.T) {
	vm := NewVM(Config{})
	code := []byte{byte(PUSH1), 0x01, byte(STOP)}
	for i := 0; i < 3; i++ {
		result, err := vm.Run(figaro.Parameters{Code: code})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := len(result.Stack), 1; got != want {
			t.Fatalf("state leaked across runs, wanted stack size %d, got %d", want, got)
		}
	}
}
