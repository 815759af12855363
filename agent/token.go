// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package agent provides type-safe wrappers of the deployed contracts. Reads
// return values; writes return a method builder to be sent by the caller.
package agent

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/contracts"
)

// Token is a type-safe smart contract wrapper of the NuCypher KMS token.
type Token struct {
	contract *bind.Contract
	block    *big.Int
}

func NewToken(backend bind.Backend, address common.Address) (*Token, error) {
	contractABI, err := contracts.ABI(contracts.TokenName)
	if err != nil {
		return nil, err
	}
	contract, err := bind.NewContractWithABI(backend, contractABI, address)
	if err != nil {
		return nil, err
	}
	return &Token{
		contract: contract,
	}, nil
}

// AtBlock creates a new Token instance reading the state at the given block.
func (t *Token) AtBlock(number *big.Int) *Token {
	return &Token{
		contract: t.contract,
		block:    number,
	}
}

func (t *Token) Raw() *bind.Contract {
	return t.contract
}

func (t *Token) Address() common.Address {
	return t.contract.Address()
}

// TotalSupply returns the total token supply
func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	totalSupply := new(big.Int)
	if err := t.contract.Method("totalSupply").Call().AtBlock(t.block).ExecuteInto(ctx, &totalSupply); err != nil {
		return nil, err
	}
	return totalSupply, nil
}

// BalanceOf returns the token balance of the specified address
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	balance := new(big.Int)
	if err := t.contract.Method("balanceOf", owner).Call().AtBlock(t.block).ExecuteInto(ctx, &balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance returns the amount of tokens approved by the owner to be spent by the spender
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	allowance := new(big.Int)
	if err := t.contract.Method("allowance", owner, spender).Call().AtBlock(t.block).ExecuteInto(ctx, &allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}

// Transfer transfers tokens to the specified address
func (t *Token) Transfer(to common.Address, amount *big.Int) *bind.MethodBuilder {
	return t.contract.Method("transfer", to, amount)
}

// TransferFrom transfers tokens on behalf of from, within the caller's allowance
func (t *Token) TransferFrom(from, to common.Address, amount *big.Int) *bind.MethodBuilder {
	return t.contract.Method("transferFrom", from, to, amount)
}

// Approve allows spender to transfer up to amount of the caller's tokens
func (t *Token) Approve(spender common.Address, amount *big.Int) *bind.MethodBuilder {
	return t.contract.Method("approve", spender, amount)
}

// AddMiner allows the escrow contract to mint rewards. Owner only.
func (t *Token) AddMiner(escrow common.Address) *bind.MethodBuilder {
	return t.contract.Method("addMiner", escrow)
}
