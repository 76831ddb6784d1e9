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

	"github.com/figaro-vm/figaro/figaro"
	"github.com/holiman/uint256"
)

// Binary operations pop their top-most operand and combine it with the
// element below, which is replaced in place by the result. Following the
// observable semantics of the operand convention (see the SUB end-to-end
// behavior), the element below the top is the left-hand side of
// non-commutative operations: PUSH x, PUSH y, SUB computes x-y.

func opAdd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Add(a, b)
}

func opMul(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mul(a, b)
}

func opSub(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Sub(b, a)
}

func opDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Div(b, a)
}

func opSDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SDiv(b, a)
}

func opMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mod(b, a)
}

func opSMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SMod(b, a)
}

func opLt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if b.Lt(a) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opGt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if b.Gt(a) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opSlt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if b.Slt(a) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opSgt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if b.Sgt(a) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opEq(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Eq(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opIszero(c *context) {
	top := c.stack.peek()
	if top.IsZero() {
		top.SetOne()
	} else {
		top.Clear()
	}
}

func opAnd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.And(a, b)
}

func opOr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Or(a, b)
}

func opXor(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Xor(a, b)
}

func opNot(c *context) {
	a := c.stack.peek()
	a.Not(a)
}

func opByte(c *context) {
	value := c.stack.pop()
	index := c.stack.peek()
	position := *index
	index.Set(value)
	index.Byte(&position)
}

// --- Stack operations ---

func opPop(c *context) {
	c.stack.pop()
}

// opPush reads the n immediate bytes following the push instruction as a
// big-endian integer and pushes it. Immediate bytes reaching beyond the end
// of the code read as zero. The program counter is advanced past the
// immediate data.
func opPush(c *context, n int) {
	z := c.stack.pushUndefined()
	var value [32]byte
	data := c.code[c.pc+1:]
	if len(data) > n {
		data = data[:n]
	}
	copy(value[:n], data)
	z.SetBytes(value[:n])
	c.pc += n
}

func opDup(c *context, pos int) {
	c.stack.dup(pos - 1)
}

func opSwap(c *context, pos int) {
	c.stack.swap(pos)
}

// --- Control flow ---

func opPc(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.pc))
}

func opJump(c *context) error {
	destination := c.stack.pop()
	return c.jumpTo(destination)
}

func opJumpi(c *context) error {
	destination := c.stack.pop()
	condition := c.stack.pop()
	if !condition.IsZero() {
		return c.jumpTo(destination)
	}
	return nil
}

// jumpTo repositions the program counter such that the next fetched
// instruction is the one at the given destination. Destinations beyond the
// end of the code make the next fetch halt the execution. In strict jump
// checking mode, destinations not marking a JUMPDEST instruction fail.
func (c *context) jumpTo(destination *uint256.Int) error {
	if c.config.withJumpChecks {
		if !destination.IsUint64() || !c.isValidJumpDest(destination.Uint64()) {
			return errInvalidJump
		}
	}
	if !destination.IsUint64() || destination.Uint64() >= uint64(len(c.code)) {
		c.pc = len(c.code) - 1 // the subsequent increment moves past the end
		return nil
	}
	// Update the PC to the jump destination -1 since the interpreter will
	// increase the PC by 1 afterwards.
	c.pc = int(destination.Uint64()) - 1
	return nil
}

// --- Memory ---

func opMload(c *context) error {
	trg := c.stack.peek()
	addr := *trg

	if !addr.IsUint64() {
		return errInvalidOffset
	}
	return c.memory.readWord(addr.Uint64(), trg)
}

func opMstore(c *context) error {
	addr := c.stack.pop()
	value := c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return errInvalidOffset
	}
	data := value.Bytes32()
	return c.memory.set(offset, data[:])
}

func opMstore8(c *context) error {
	addr := c.stack.pop()
	value := c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return errInvalidOffset
	}
	return c.memory.setByte(offset, byte(value.Uint64()))
}

func opMsize(c *context) {
	c.stack.pushUndefined().SetUint64(c.memory.length())
}

// --- Storage ---

func opSload(c *context) {
	top := c.stack.peek()
	key := figaro.Key(top.Bytes32())
	value := c.storage.get(key)
	top.SetBytes32(value[:])
}

func opSstore(c *context) {
	key := figaro.Key(c.stack.pop().Bytes32())
	value := figaro.Word(c.stack.pop().Bytes32())
	c.storage.set(key, value)
}

// --- Hashing ---

// Evaluations show a high hit rate for this configuration.
var sha3Cache = newSha3HashCache(1<<16, 1<<18)

func opSha3(c *context) error {
	offset, size := c.stack.pop(), c.stack.peek()

	if err := checkSizeOffsetUint64Overflow(offset, size); err != nil {
		return err
	}

	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64())
	if err != nil {
		return err
	}

	var hash figaro.Hash
	if c.config.withShaCache {
		// Cache hashes since identical values are frequently re-hashed.
		hash = sha3Cache.hash(data)
	} else {
		hash = Keccak256(data)
	}

	size.SetBytes32(hash[:])
	return nil
}

// --- Environment ---

func opAddress(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Recipient[:])
}

func opCaller(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Sender[:])
}

func opOrigin(c *context) {
	origin := c.params.Origin
	c.stack.pushUndefined().SetBytes20(origin[:])
}

func opCallvalue(c *context) {
	c.stack.pushUndefined().SetBytes32(c.params.Value[:])
}

func opGasPrice(c *context) {
	price := c.params.GasPrice
	c.stack.pushUndefined().SetBytes32(price[:])
}

func opBalance(c *context) {
	slot := c.stack.peek()
	address := figaro.Address(slot.Bytes20())
	balance := c.world.GetBalance(address)
	slot.SetBytes32(balance[:])
}

func opSelfbalance(c *context) {
	balance := c.world.GetBalance(c.params.Recipient)
	c.stack.pushUndefined().SetBytes32(balance[:])
}

func opCallDataload(c *context) {
	top := c.stack.peek()
	c.callData.load(top, top)
}

func opCallDatasize(c *context) {
	c.stack.pushUndefined().SetUint64(c.callData.size())
}

func opCodeSize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.code)))
}

func opExtcodesize(c *context) {
	top := c.stack.peek()
	address := figaro.Address(top.Bytes20())
	top.SetUint64(uint64(c.world.GetCodeSize(address)))
}

func opExtCodeCopy(c *context) error {
	a := c.stack.pop()
	address := figaro.Address(a.Bytes20())
	return genericDataCopy(c, c.world.GetCode(address))
}

// genericDataCopy copies a slice of the given data source into memory,
// zero-extending the source where the requested range reaches beyond its
// end. Shared by the CALLDATACOPY, CODECOPY, and EXTCODECOPY handlers.
func genericDataCopy(c *context, data []byte) error {
	memOffset := c.stack.pop()
	dataOffset := c.stack.pop()
	length := c.stack.pop()

	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = 0xffffffffffffffff
	}

	trg, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64())
	if err != nil {
		return err
	}
	copy(trg, getData(data, dataOffset64, length.Uint64()))
	return nil
}

// getData returns a slice of size bytes from the given data starting at the
// given offset, right-padded with zeros where the range reaches beyond the
// end of the data.
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	res := make([]byte, int(size))
	copy(res, data[start:end])
	return res
}

// --- Block information ---

func opCoinbase(c *context) {
	coinbase := c.params.Coinbase
	c.stack.pushUndefined().SetBytes20(coinbase[:])
}

func opTimestamp(c *context) {
	time := c.params.Timestamp
	c.stack.pushUndefined().SetBytes32(time[:])
}

func opNumber(c *context) {
	number := c.params.Number
	c.stack.pushUndefined().SetBytes32(number[:])
}

func opDifficulty(c *context) {
	difficulty := c.params.Difficulty
	c.stack.pushUndefined().SetBytes32(difficulty[:])
}

func opGasLimit(c *context) {
	limit := c.params.GasLimit
	c.stack.pushUndefined().SetBytes32(limit[:])
}

func opChainId(c *context) {
	id := c.params.ChainID
	c.stack.pushUndefined().SetBytes32(id[:])
}

// --- Termination ---

func opEndWithResult(c *context) error {
	offset := c.stack.pop()
	size := c.stack.pop()
	if err := checkSizeOffsetUint64Overflow(offset, size); err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64())
	if err != nil {
		return err
	}
	c.returnData = bytes.Clone(data)
	return nil
}

func checkSizeOffsetUint64Overflow(offset, size *uint256.Int) error {
	if size.IsZero() {
		return nil
	}
	if !offset.IsUint64() || !size.IsUint64() || offset.Uint64()+size.Uint64() < offset.Uint64() {
		return errInvalidOffset
	}
	return nil
}
