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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/figaro-vm/figaro/figaro"
)

// MaxCallDepth is the maximum nesting depth of CALL and CREATE contexts. A
// call instruction at this depth reports failure instead of recursing, which
// bounds the host stack consumed by nested interpreter invocations.
const MaxCallDepth = 1024

// opCall runs the code of the addressed account in a nested call context.
// The gas operand is accepted and discarded; execution is not metered. The
// nested context shares the caller's world state and block, derives its
// transaction from the caller's, and reports its outcome as a 1 or 0 pushed
// on the caller's stack. Errors inside the nested context are contained and
// reported as failure.
func opCall(c *context) error {
	c.stack.pop() // gas, accepted and discarded
	addr := c.stack.pop()
	value := c.stack.pop()
	inOffset, inSize := c.stack.pop(), c.stack.pop()
	retOffset, retSize := c.stack.pop(), c.stack.pop()

	if err := checkSizeOffsetUint64Overflow(inOffset, inSize); err != nil {
		return err
	}
	if err := checkSizeOffsetUint64Overflow(retOffset, retSize); err != nil {
		return err
	}

	args, err := c.memory.getSlice(inOffset.Uint64(), inSize.Uint64())
	if err != nil {
		return err
	}
	output, err := c.memory.getSlice(retOffset.Uint64(), retSize.Uint64())
	if err != nil {
		return err
	}

	toAddr := figaro.Address(addr.Bytes20())
	res, nestedErr := c.runNested(figaro.Parameters{
		BlockParameters:       c.params.BlockParameters,
		TransactionParameters: c.params.TransactionParameters,
		World:                 c.world,
		Depth:                 c.params.Depth + 1,
		Recipient:             toAddr,
		Sender:                c.params.Recipient,
		Input:                 bytes.Clone(args),
		Value:                 figaro.ValueFromUint256(value),
		Code:                  c.world.GetCode(toAddr),
	})

	// The returned bytes are written back into the caller's memory,
	// truncated to the reserved size and zero-padded if shorter.
	returned := res.Output
	if uint64(len(returned)) > retSize.Uint64() {
		returned = returned[:retSize.Uint64()]
	}
	covered := copy(output, returned)
	for i := covered; i < len(output); i++ {
		output[i] = 0
	}

	success := c.stack.pushUndefined()
	if nestedErr == nil && res.Outcome == figaro.OutcomeSuccess {
		success.SetOne()
	} else {
		success.Clear()
	}
	return nil
}

// opCreate deploys a new contract. The initialization code is read from
// memory and executed in a nested context; its returned bytes become the
// runtime code of the created account. The created address is derived from
// the creating contract's address and nonce. On success the address is
// pushed on the stack, on failure a zero.
func opCreate(c *context) error {
	value := c.stack.pop()
	offset, size := c.stack.pop(), c.stack.pop()

	if err := checkSizeOffsetUint64Overflow(offset, size); err != nil {
		return err
	}
	initCode, err := c.memory.getSlice(offset.Uint64(), size.Uint64())
	if err != nil {
		return err
	}

	caller := c.params.Recipient
	nonce := c.world.GetNonce(caller)
	createdAddress := createAddress(caller, nonce)

	res, nestedErr := c.runNested(figaro.Parameters{
		BlockParameters:       c.params.BlockParameters,
		TransactionParameters: c.params.TransactionParameters,
		World:                 c.world,
		Depth:                 c.params.Depth + 1,
		Recipient:             createdAddress,
		Sender:                caller,
		Input:                 nil,
		Value:                 figaro.ValueFromUint256(value),
		Code:                  figaro.Code(bytes.Clone(initCode)),
	})

	target := c.stack.pushUndefined()
	if nestedErr != nil || res.Outcome != figaro.OutcomeSuccess {
		target.Clear()
		return nil
	}

	c.world.CreateAccount(createdAddress, figaro.Account{
		Balance: figaro.ValueFromUint256(value),
		Code:    figaro.Code(res.Output),
		Nonce:   0,
		Storage: map[figaro.Key]figaro.Word{},
	})
	target.SetBytes20(createdAddress[:])
	return nil
}

// runNested executes a nested interpreter invocation with the given derived
// parameters. Errors raised by a nested execution do not propagate to the
// enclosing context; the callers convert them into a failed call result.
func (c *context) runNested(params figaro.Parameters) (figaro.Result, error) {
	if params.Depth > MaxCallDepth {
		return figaro.Result{}, errCallDepthExceeded
	}
	return run(c.config, params)
}

// createAddress derives the address of a contract created by the given
// sender with the given account nonce, as the low 20 bytes of the Keccak-256
// hash of the RLP encoding of the pair.
func createAddress(sender figaro.Address, nonce uint64) figaro.Address {
	return figaro.Address(crypto.CreateAddress(common.Address(sender), nonce))
}
