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

import "golang.org/x/exp/maps"

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package figaro

// WorldState is an interface to access the state of the chain as seen by a
// single contract execution. The state is a collection of accounts, each
// with a balance, a nonce, optional code and storage.
//
// The view is a snapshot: the interpreter reads balances, code, and nonces
// from it, and inserts accounts created by the CREATE instruction. No other
// mutations are performed. Sub-contexts created for recursive calls share
// the same WorldState instance, so accounts created by a nested execution
// are visible to its caller.
type WorldState interface {
	AccountExists(Address) bool

	GetBalance(Address) Value
	GetNonce(Address) uint64

	GetCode(Address) Code
	GetCodeSize(Address) int

	// CreateAccount inserts the given account under the given address,
	// replacing any previous account stored there.
	CreateAccount(Address, Account)
}

// Account is the record stored per address in the world state. A missing
// account behaves like the zero value of this type.
type Account struct {
	Balance Value
	Code    Code
	Nonce   uint64
	Storage map[Key]Word
}

// MemoryWorldState is a map-backed WorldState implementation holding a
// snapshot of accounts in memory. It is the state representation used for
// self-contained executions and tests; it is not thread-safe.
type MemoryWorldState struct {
	accounts map[Address]Account
}

// NewMemoryWorldState creates a world state populated with the accounts of
// the given snapshot. The snapshot map is copied; the account records
// themselves (code slices, storage maps) are shared.
func NewMemoryWorldState(snapshot map[Address]Account) *MemoryWorldState {
	accounts := map[Address]Account{}
	if snapshot != nil {
		accounts = maps.Clone(snapshot)
	}
	return &MemoryWorldState{accounts: accounts}
}

func (s *MemoryWorldState) AccountExists(addr Address) bool {
	_, found := s.accounts[addr]
	return found
}

func (s *MemoryWorldState) GetBalance(addr Address) Value {
	return s.accounts[addr].Balance
}

func (s *MemoryWorldState) GetNonce(addr Address) uint64 {
	return s.accounts[addr].Nonce
}

func (s *MemoryWorldState) GetCode(addr Address) Code {
	return s.accounts[addr].Code
}

func (s *MemoryWorldState) GetCodeSize(addr Address) int {
	return len(s.accounts[addr].Code)
}

func (s *MemoryWorldState) CreateAccount(addr Address, account Account) {
	s.accounts[addr] = account
}
