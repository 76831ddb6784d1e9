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
	"fmt"

	"github.com/figaro-vm/figaro/figaro"
)

// status is an enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning  status = iota // < all fine, ops are processed
	statusStopped                // < execution stopped with a STOP on the final code byte
	statusHalted                 // < execution ran past the end of the code or stopped mid-code
	statusReturned               // < execution stopped with a RETURN
	statusReverted               // < execution stopped with a REVERT
)

// interpreterConfig is the internal configuration of a single run.
type interpreterConfig struct {
	withJumpChecks bool
	withShaCache   bool
	runner         runner
}

// context is the execution environment of an interpreter run. It contains
// all the necessary state to execute a contract, including input parameters,
// the contract code, and internal execution state such as the program
// counter, stack, and memory. For each contract execution, including the
// nested executions spawned by CALL and CREATE, a new context is created.
type context struct {
	// Inputs
	params figaro.Parameters
	world  figaro.WorldState
	code   figaro.Code
	config interpreterConfig

	// Execution state
	pc       int
	stack    *stack
	memory   *Memory
	storage  *storage
	callData callData

	// Intermediate data
	returnData []byte // < the bytes produced by RETURN or REVERT
	jumpDests  []bool // < valid jump destinations, computed on first use
}

// --- Interpreter ---

type runner interface {
	// run executes the contract code in the given context.
	// It returns the status of the execution:
	// - Any logical error in the contract execution is returned as an error
	//   and terminates the run; within a nested call context the caller
	//   converts it into a failed call result.
	run(*context) (status, error)
}

func run(config interpreterConfig, params figaro.Parameters) (figaro.Result, error) {
	world := params.World
	if world == nil {
		world = figaro.NewMemoryWorldState(nil)
	}

	// Set up execution context.
	var ctxt = context{
		params:   params,
		world:    world,
		code:     params.Code,
		config:   config,
		stack:    NewStack(),
		memory:   NewMemory(),
		storage:  newStorage(),
		callData: newCallData(params.Input),
	}
	defer ReturnStack(ctxt.stack)

	if config.runner == nil {
		config.runner = vanillaRunner{}
	}
	status, err := config.runner.run(&ctxt)
	if err != nil {
		return figaro.Result{}, err
	}

	return generateResult(status, &ctxt)
}

func generateResult(status status, ctxt *context) (figaro.Result, error) {
	res := figaro.Result{
		Stack: exportStack(ctxt.stack),
	}
	switch status {
	case statusStopped:
		res.Outcome = figaro.OutcomeSuccess
	case statusHalted:
		res.Outcome = figaro.OutcomeHalted
	case statusReturned:
		res.Outcome = figaro.OutcomeSuccess
		res.Output = ctxt.returnData
	case statusReverted:
		res.Outcome = figaro.OutcomeReverted
		res.Output = ctxt.returnData
	default:
		return figaro.Result{}, fmt.Errorf("unexpected error in interpreter, unknown status: %v", status)
	}
	return res, nil
}

// exportStack copies the stack content into a top-first word list.
func exportStack(s *stack) []figaro.Word {
	res := make([]figaro.Word, s.len())
	for i := 0; i < s.len(); i++ {
		res[i] = s.peekN(i).Bytes32()
	}
	return res
}

// --- Runners ---

// vanillaRunner is the default runner that executes the contract code
// without any additional features.
type vanillaRunner struct{}

func (r vanillaRunner) run(c *context) (status, error) {
	return steps(c, false)
}

// step executes a single instruction in the given context.
func step(c *context) (status, error) {
	return steps(c, true)
}

// --- Execution ---

// steps executes the contract code in the given context. If oneStepOnly is
// true, only the instruction pointed to by the program counter will be
// executed. steps returns the status of the execution, and an error if the
// contract execution yields an execution violation (i.e. stack underflow,
// invalid opcode, etc).
func steps(c *context, oneStepOnly bool) (status, error) {
	status := statusRunning
	for status == statusRunning {
		if c.pc >= len(c.code) {
			return statusHalted, nil
		}

		op := OpCode(c.code[c.pc])

		// Check stack boundary for every instruction
		if err := checkStackLimits(c.stack.len(), op); err != nil {
			return status, err
		}

		var err error

		// Execute instruction
		switch op {
		case STOP:
			status = opStop(c)
		case ADD:
			opAdd(c)
		case MUL:
			opMul(c)
		case SUB:
			opSub(c)
		case DIV:
			opDiv(c)
		case SDIV:
			opSDiv(c)
		case MOD:
			opMod(c)
		case SMOD:
			opSMod(c)
		case LT:
			opLt(c)
		case GT:
			opGt(c)
		case SLT:
			opSlt(c)
		case SGT:
			opSgt(c)
		case EQ:
			opEq(c)
		case ISZERO:
			opIszero(c)
		case AND:
			opAnd(c)
		case OR:
			opOr(c)
		case XOR:
			opXor(c)
		case NOT:
			opNot(c)
		case BYTE:
			opByte(c)
		case SHA3:
			err = opSha3(c)
		case ADDRESS:
			opAddress(c)
		case BALANCE:
			opBalance(c)
		case ORIGIN:
			opOrigin(c)
		case CALLER:
			opCaller(c)
		case CALLVALUE:
			opCallvalue(c)
		case CALLDATALOAD:
			opCallDataload(c)
		case CALLDATASIZE:
			opCallDatasize(c)
		case CALLDATACOPY:
			err = genericDataCopy(c, c.params.Input)
		case CODESIZE:
			opCodeSize(c)
		case CODECOPY:
			err = genericDataCopy(c, c.code)
		case GASPRICE:
			opGasPrice(c)
		case EXTCODESIZE:
			opExtcodesize(c)
		case EXTCODECOPY:
			err = opExtCodeCopy(c)
		case COINBASE:
			opCoinbase(c)
		case TIMESTAMP:
			opTimestamp(c)
		case NUMBER:
			opNumber(c)
		case DIFFICULTY:
			opDifficulty(c)
		case GASLIMIT:
			opGasLimit(c)
		case CHAINID:
			opChainId(c)
		case SELFBALANCE:
			opSelfbalance(c)
		case POP:
			opPop(c)
		case MLOAD:
			err = opMload(c)
		case MSTORE:
			err = opMstore(c)
		case MSTORE8:
			err = opMstore8(c)
		case SLOAD:
			opSload(c)
		case SSTORE:
			opSstore(c)
		case JUMP:
			err = opJump(c)
		case JUMPI:
			err = opJumpi(c)
		case PC:
			opPc(c)
		case MSIZE:
			opMsize(c)
		case JUMPDEST:
			// nothing
		case CREATE:
			err = opCreate(c)
		case CALL:
			err = opCall(c)
		case RETURN:
			err = opEndWithResult(c)
			status = statusReturned
		case REVERT:
			err = opEndWithResult(c)
			status = statusReverted
		default:
			switch {
			case op.isPush():
				opPush(c, op.pushSize())
			case DUP1 <= op && op <= DUP16:
				opDup(c, int(op-DUP1)+1)
			case SWAP1 <= op && op <= SWAP16:
				opSwap(c, int(op-SWAP1)+1)
			default:
				err = errInvalidOpCode
			}
		}

		if err != nil {
			return status, err
		}

		c.pc++

		if oneStepOnly {
			return status, nil
		}
	}
	return status, nil
}

// opStop terminates the execution. A STOP on the final byte of the code is a
// clean termination; a STOP anywhere else leaves the success of the
// execution undefined.
func opStop(c *context) status {
	if c.pc == len(c.code)-1 {
		return statusStopped
	}
	return statusHalted
}

// isValidJumpDest reports whether the given code offset is a JUMPDEST
// instruction outside of push immediate data. Only consulted in strict jump
// checking mode.
func (c *context) isValidJumpDest(dest uint64) bool {
	if dest >= uint64(len(c.code)) || OpCode(c.code[dest]) != JUMPDEST {
		return false
	}
	if c.jumpDests == nil {
		c.jumpDests = analyzeJumpDests(c.code)
	}
	return c.jumpDests[dest]
}

// analyzeJumpDests scans the code for JUMPDEST instructions, skipping the
// immediate data of push instructions.
func analyzeJumpDests(code figaro.Code) []bool {
	res := make([]bool, len(code))
	for i := 0; i < len(code); i++ {
		op := OpCode(code[i])
		if op == JUMPDEST {
			res[i] = true
		}
		i += op.pushSize()
	}
	return res
}

// ------------------ Stack Boundary ------------------

// checkStackLimits checks that the opCode will not make an out of bounds
// access with the current stack size.
func checkStackLimits(stackLen int, op OpCode) error {
	limits := _precomputedStackLimits[op]
	if stackLen < limits.min {
		return errStackUnderflow
	}
	if stackLen > limits.max {
		return errStackOverflow
	}
	return nil
}

// stackLimits defines the stack usage of a single OpCode.
type stackLimits struct {
	min int // The minimum stack size required by an OpCode.
	max int // The maximum stack size allowed before running an OpCode.
}

var _precomputedStackLimits = func() [256]stackLimits {
	var res [256]stackLimits
	for i := 0; i < 256; i++ {
		res[i] = getStaticStackLimits(OpCode(i))
	}
	return res
}()

// newStackLimits computes the boundaries for an instruction popping pops
// elements and growing the stack by grow elements.
func newStackLimits(pops, grow int) stackLimits {
	return stackLimits{min: pops, max: maxStackSize - grow}
}

func getStaticStackLimits(op OpCode) stackLimits {
	if op.isPush() {
		return newStackLimits(0, 1)
	}
	if DUP1 <= op && op <= DUP16 {
		return newStackLimits(int(op)-int(DUP1)+1, 1)
	}
	if SWAP1 <= op && op <= SWAP16 {
		return newStackLimits(int(op)-int(SWAP1)+2, 0)
	}

	switch op {
	case STOP, JUMPDEST:
		return newStackLimits(0, 0)
	case ADD, SUB, MUL, DIV, SDIV, MOD, SMOD,
		LT, GT, SLT, SGT, EQ, AND, XOR, OR, BYTE,
		SHA3:
		return newStackLimits(2, 0)
	case ISZERO, NOT, BALANCE, CALLDATALOAD, EXTCODESIZE, MLOAD, SLOAD:
		return newStackLimits(1, 0)
	case ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE, CODESIZE,
		GASPRICE, COINBASE, TIMESTAMP, NUMBER, DIFFICULTY, GASLIMIT,
		CHAINID, SELFBALANCE, PC, MSIZE:
		return newStackLimits(0, 1)
	case POP, JUMP:
		return newStackLimits(1, 0)
	case MSTORE, MSTORE8, SSTORE, JUMPI, RETURN, REVERT:
		return newStackLimits(2, 0)
	case CALLDATACOPY, CODECOPY:
		return newStackLimits(3, 0)
	case EXTCODECOPY:
		return newStackLimits(4, 0)
	case CREATE:
		return newStackLimits(3, 0)
	case CALL:
		return newStackLimits(7, 0)
	}
	return newStackLimits(0, 0)
}
