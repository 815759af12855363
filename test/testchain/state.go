// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package testchain

import (
	"maps"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// model is the native stand-in of a deployed contract.
type model interface {
	name() string
	clone() model
	call(e *env, method string, args []any) ([]any, error)
}

// state is the world state. Messages run against a clone which replaces the
// committed state only when they succeed.
type state struct {
	timestamp uint64
	balances  map[common.Address]*big.Int
	contracts map[common.Address]model
}

func newState(timestamp uint64) *state {
	return &state{
		timestamp: timestamp,
		balances:  make(map[common.Address]*big.Int),
		contracts: make(map[common.Address]model),
	}
}

func (s *state) clone() *state {
	c := &state{
		timestamp: s.timestamp,
		balances:  make(map[common.Address]*big.Int, len(s.balances)),
		contracts: make(map[common.Address]model, len(s.contracts)),
	}
	for addr, b := range s.balances {
		c.balances[addr] = new(big.Int).Set(b)
	}
	for addr, m := range s.contracts {
		c.contracts[addr] = m.clone()
	}
	return c
}

func (s *state) balance(addr common.Address) *big.Int {
	if b, ok := s.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (s *state) transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if s.balance(from).Cmp(amount) < 0 {
		return revert("insufficient balance for transfer")
	}
	s.balances[from] = new(big.Int).Sub(s.balance(from), amount)
	s.balances[to] = new(big.Int).Add(s.balance(to), amount)
	return nil
}

// env is the context of a single message.
type env struct {
	st    *state
	self  common.Address
	from  common.Address
	value *big.Int
}

// at returns the environment of a nested message sent by the current contract.
func (e *env) at(addr common.Address) *env {
	return &env{st: e.st, self: addr, from: e.self, value: new(big.Int)}
}

func cloneAmounts(m map[common.Address]*big.Int) map[common.Address]*big.Int {
	c := make(map[common.Address]*big.Int, len(m))
	for k, v := range m {
		c[k] = new(big.Int).Set(v)
	}
	return c
}

func cloneSet[K comparable](m map[K]bool) map[K]bool {
	return maps.Clone(m)
}
