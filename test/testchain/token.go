// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package testchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/contracts"
)

type token struct {
	owner       common.Address
	saturation  *big.Int
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	miners      map[common.Address]bool
}

func newToken(creator common.Address, args []any) (model, error) {
	premine, saturation := args[0].(*big.Int), args[1].(*big.Int)
	if premine.Cmp(saturation) > 0 {
		return nil, revert("premine above saturation")
	}
	return &token{
		owner:       creator,
		saturation:  new(big.Int).Set(saturation),
		totalSupply: new(big.Int).Set(premine),
		balances:    map[common.Address]*big.Int{creator: new(big.Int).Set(premine)},
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		miners:      make(map[common.Address]bool),
	}, nil
}

func (t *token) name() string { return contracts.TokenName }

func (t *token) clone() model {
	c := &token{
		owner:       t.owner,
		saturation:  new(big.Int).Set(t.saturation),
		totalSupply: new(big.Int).Set(t.totalSupply),
		balances:    cloneAmounts(t.balances),
		allowances:  make(map[common.Address]map[common.Address]*big.Int, len(t.allowances)),
		miners:      cloneSet(t.miners),
	}
	for owner, spenders := range t.allowances {
		c.allowances[owner] = cloneAmounts(spenders)
	}
	return c
}

func (t *token) balanceOf(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *token) allowance(owner, spender common.Address) *big.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (t *token) move(from, to common.Address, value *big.Int) error {
	if t.balanceOf(from).Cmp(value) < 0 {
		return revert("transfer amount exceeds balance")
	}
	t.balances[from] = new(big.Int).Sub(t.balanceOf(from), value)
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), value)
	return nil
}

func (t *token) transferFrom(spender, from, to common.Address, value *big.Int) error {
	allowed := t.allowance(from, spender)
	if allowed.Cmp(value) < 0 {
		return revert("transfer amount exceeds allowance")
	}
	if err := t.move(from, to, value); err != nil {
		return err
	}
	t.approve(from, spender, allowed.Sub(allowed, value))
	return nil
}

func (t *token) approve(owner, spender common.Address, value *big.Int) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(value)
}

// mint creates new tokens up to the saturation. It returns the minted amount.
func (t *token) mint(caller, to common.Address, value *big.Int) (*big.Int, error) {
	if !t.miners[caller] {
		return nil, revert("caller is not a miner contract")
	}
	room := new(big.Int).Sub(t.saturation, t.totalSupply)
	if value.Cmp(room) > 0 {
		value = room
	}
	t.totalSupply.Add(t.totalSupply, value)
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), value)
	return value, nil
}

func (t *token) call(e *env, method string, args []any) ([]any, error) {
	switch method {
	case "totalSupply":
		return []any{new(big.Int).Set(t.totalSupply)}, nil
	case "saturation":
		return []any{new(big.Int).Set(t.saturation)}, nil
	case "balanceOf":
		return []any{t.balanceOf(args[0].(common.Address))}, nil
	case "allowance":
		return []any{t.allowance(args[0].(common.Address), args[1].(common.Address))}, nil
	case "transfer":
		if err := t.move(e.from, args[0].(common.Address), args[1].(*big.Int)); err != nil {
			return nil, err
		}
		return []any{true}, nil
	case "transferFrom":
		if err := t.transferFrom(e.from, args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)); err != nil {
			return nil, err
		}
		return []any{true}, nil
	case "approve":
		t.approve(e.from, args[0].(common.Address), args[1].(*big.Int))
		return []any{true}, nil
	case "addMiner":
		if e.from != t.owner {
			return nil, revert("only owner")
		}
		t.miners[args[0].(common.Address)] = true
		return nil, nil
	}
	return nil, revert("unsupported method %s", method)
}
