// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package figaro

import "fmt"

// This file defines the outer boundary of the interpreter: transactions,
// blocks, and state snapshots with hex-string valued fields, as found in
// test fixtures and accepted by the CLI. All hex fields accept an optional
// 0x prefix, and fixed-size fields are padded with leading zeros. Absent
// fields read as zero.

// Transaction is the hex-string form of the transaction envelope presented
// to an execution.
type Transaction struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Origin   string `json:"origin"`
	GasPrice string `json:"gasprice"`
	Value    string `json:"value"`
	Data     string `json:"data"`
}

// Block is the hex-string form of the block header presented to an
// execution.
type Block struct {
	Coinbase   string `json:"coinbase"`
	Timestamp  string `json:"timestamp"`
	Number     string `json:"number"`
	Difficulty string `json:"difficulty"`
	GasLimit   string `json:"gaslimit"`
	ChainID    string `json:"chainid"`
}

// AccountSnapshot is the hex-string form of a single account record in a
// state snapshot.
type AccountSnapshot struct {
	Balance string            `json:"balance"`
	Code    string            `json:"code"`
	Nonce   string            `json:"nonce"`
	Storage map[string]string `json:"storage,omitempty"`
}

// StateSnapshot maps 20-byte addresses, in hex, to account records.
type StateSnapshot map[string]AccountSnapshot

// WorldState converts the snapshot into a freshly allocated world state.
func (s StateSnapshot) WorldState() (*MemoryWorldState, error) {
	accounts := map[Address]Account{}
	for key, record := range s {
		addr, err := ParseAddress(key)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", key, err)
		}
		account, err := record.Account()
		if err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", key, err)
		}
		accounts[addr] = account
	}
	return NewMemoryWorldState(accounts), nil
}

// Account converts the snapshot record into an account record.
func (a AccountSnapshot) Account() (Account, error) {
	balance, err := ParseValue(a.Balance)
	if err != nil {
		return Account{}, fmt.Errorf("balance: %w", err)
	}
	code, err := ParseData(a.Code)
	if err != nil {
		return Account{}, fmt.Errorf("code: %w", err)
	}
	nonce, err := ParseValue(a.Nonce)
	if err != nil {
		return Account{}, fmt.Errorf("nonce: %w", err)
	}
	storage := map[Key]Word{}
	for key, value := range a.Storage {
		k, err := ParseWord(key)
		if err != nil {
			return Account{}, fmt.Errorf("storage key: %w", err)
		}
		v, err := ParseWord(value)
		if err != nil {
			return Account{}, fmt.Errorf("storage value: %w", err)
		}
		storage[Key(k)] = v
	}
	return Account{
		Balance: balance,
		Code:    Code(code),
		Nonce:   nonce.ToUint256().Uint64(),
		Storage: storage,
	}, nil
}

// NewParameters assembles interpreter parameters from the given code, the
// hex-string transaction and block envelopes, and a world state.
func NewParameters(code Code, tx Transaction, block Block, world WorldState) (Parameters, error) {
	res := Parameters{World: world, Code: code}

	var err error
	if res.Recipient, err = ParseAddress(tx.To); err != nil {
		return Parameters{}, fmt.Errorf("tx.to: %w", err)
	}
	if res.Sender, err = ParseAddress(tx.From); err != nil {
		return Parameters{}, fmt.Errorf("tx.from: %w", err)
	}
	if res.Origin, err = ParseAddress(tx.Origin); err != nil {
		return Parameters{}, fmt.Errorf("tx.origin: %w", err)
	}
	if res.GasPrice, err = ParseValue(tx.GasPrice); err != nil {
		return Parameters{}, fmt.Errorf("tx.gasprice: %w", err)
	}
	if res.Value, err = ParseValue(tx.Value); err != nil {
		return Parameters{}, fmt.Errorf("tx.value: %w", err)
	}
	input, err := ParseData(tx.Data)
	if err != nil {
		return Parameters{}, fmt.Errorf("tx.data: %w", err)
	}
	res.Input = input

	if res.Coinbase, err = ParseAddress(block.Coinbase); err != nil {
		return Parameters{}, fmt.Errorf("block.coinbase: %w", err)
	}
	if res.Timestamp, err = ParseValue(block.Timestamp); err != nil {
		return Parameters{}, fmt.Errorf("block.timestamp: %w", err)
	}
	if res.Number, err = ParseValue(block.Number); err != nil {
		return Parameters{}, fmt.Errorf("block.number: %w", err)
	}
	if res.Difficulty, err = ParseValue(block.Difficulty); err != nil {
		return Parameters{}, fmt.Errorf("block.difficulty: %w", err)
	}
	if res.GasLimit, err = ParseValue(block.GasLimit); err != nil {
		return Parameters{}, fmt.Errorf("block.gaslimit: %w", err)
	}
	if res.ChainID, err = ParseValue(block.ChainID); err != nil {
		return Parameters{}, fmt.Errorf("block.chainid: %w", err)
	}

	return res, nil
}
