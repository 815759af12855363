// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/contracts"
)

// ErrUnknownPolicy is returned for policy ids never created on chain.
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy is the on-chain record of a policy.
type Policy struct {
	ID          [32]byte
	Client      common.Address
	Node        common.Address
	Rate        *big.Int
	StartPeriod uint64
	LastPeriod  uint64
	Disabled    bool
}

// Periods returns the number of periods the policy was paid for.
func (p *Policy) Periods() uint64 {
	return p.LastPeriod - p.StartPeriod + 1
}

// PolicyManager is a type-safe smart contract wrapper of the policy manager.
type PolicyManager struct {
	contract *bind.Contract
	block    *big.Int
}

func NewPolicyManager(backend bind.Backend, address common.Address) (*PolicyManager, error) {
	contractABI, err := contracts.ABI(contracts.PolicyManagerName)
	if err != nil {
		return nil, err
	}
	contract, err := bind.NewContractWithABI(backend, contractABI, address)
	if err != nil {
		return nil, err
	}
	return &PolicyManager{
		contract: contract,
	}, nil
}

// AtBlock creates a new PolicyManager instance reading the state at the given block.
func (p *PolicyManager) AtBlock(number *big.Int) *PolicyManager {
	return &PolicyManager{
		contract: p.contract,
		block:    number,
	}
}

func (p *PolicyManager) Raw() *bind.Contract {
	return p.contract
}

func (p *PolicyManager) Address() common.Address {
	return p.contract.Address()
}

// Policy returns the record of the policy, or ErrUnknownPolicy.
func (p *PolicyManager) Policy(ctx context.Context, id [32]byte) (*Policy, error) {
	out := new(struct {
		Client      common.Address
		Node        common.Address
		Rate        *big.Int
		StartPeriod *big.Int
		LastPeriod  *big.Int
		Disabled    bool
	})
	if err := p.contract.Method("policies", id).Call().AtBlock(p.block).ExecuteInto(ctx, out); err != nil {
		return nil, err
	}
	if out.Client == (common.Address{}) {
		return nil, ErrUnknownPolicy
	}
	return &Policy{
		ID:          id,
		Client:      out.Client,
		Node:        out.Node,
		Rate:        out.Rate,
		StartPeriod: out.StartPeriod.Uint64(),
		LastPeriod:  out.LastPeriod.Uint64(),
		Disabled:    out.Disabled,
	}, nil
}

// NodeReward returns the policy fees the node may withdraw.
func (p *PolicyManager) NodeReward(ctx context.Context, node common.Address) (*big.Int, error) {
	reward := new(big.Int)
	if err := p.contract.Method("nodes", node).Call().AtBlock(p.block).ExecuteInto(ctx, &reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// CreatePolicy pays value for a policy served by node during periods periods,
// starting with the next one.
func (p *PolicyManager) CreatePolicy(id [32]byte, node common.Address, periods uint64, value *big.Int) *bind.MethodBuilder {
	return p.contract.Method("createPolicy", id, node, new(big.Int).SetUint64(periods)).WithValue(value)
}

// RevokePolicy disables the policy and refunds the periods not started yet.
func (p *PolicyManager) RevokePolicy(id [32]byte) *bind.MethodBuilder {
	return p.contract.Method("revokePolicy", id)
}

// Withdraw pays the caller's accrued policy fees.
func (p *PolicyManager) Withdraw() *bind.MethodBuilder {
	return p.contract.Method("withdraw")
}
