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

type policy struct {
	client      common.Address
	node        common.Address
	rate        *big.Int
	startPeriod uint64
	lastPeriod  uint64
	disabled    bool
}

// policyManager holds the ether paid for policies until nodes withdraw it.
type policyManager struct {
	escrow   common.Address
	policies map[[32]byte]policy
	rewards  map[common.Address]*big.Int
}

func newPolicyManager(_ common.Address, args []any) (model, error) {
	return &policyManager{
		escrow:   args[0].(common.Address),
		policies: make(map[[32]byte]policy),
		rewards:  make(map[common.Address]*big.Int),
	}, nil
}

func (c *policyManager) name() string { return contracts.PolicyManagerName }

func (c *policyManager) clone() model {
	cp := &policyManager{
		escrow:   c.escrow,
		policies: make(map[[32]byte]policy, len(c.policies)),
		rewards:  cloneAmounts(c.rewards),
	}
	for id, p := range c.policies {
		p.rate = new(big.Int).Set(p.rate)
		cp.policies[id] = p
	}
	return cp
}

func (c *policyManager) escrowOf(e *env) (*escrow, error) {
	esc, ok := e.st.contracts[c.escrow].(*escrow)
	if !ok {
		return nil, revert("escrow contract missing")
	}
	return esc, nil
}

func (c *policyManager) reward(node common.Address) *big.Int {
	if r, ok := c.rewards[node]; ok {
		return new(big.Int).Set(r)
	}
	return new(big.Int)
}

// updateReward credits node with the rate of every policy active in period.
func (c *policyManager) updateReward(e *env, node common.Address, period uint64) error {
	if e.from != c.escrow {
		return revert("only escrow")
	}
	total := c.reward(node)
	for _, p := range c.policies {
		if p.node == node && !p.disabled && p.startPeriod <= period && period <= p.lastPeriod {
			total.Add(total, p.rate)
		}
	}
	c.rewards[node] = total
	return nil
}

func (c *policyManager) call(e *env, method string, args []any) ([]any, error) {
	switch method {
	case "escrow":
		return []any{c.escrow}, nil
	case "nodes":
		return []any{c.reward(args[0].(common.Address))}, nil
	case "policies":
		p, ok := c.policies[args[0].([32]byte)]
		if !ok {
			return []any{common.Address{}, common.Address{}, new(big.Int), new(big.Int), new(big.Int), false}, nil
		}
		return []any{
			p.client,
			p.node,
			new(big.Int).Set(p.rate),
			new(big.Int).SetUint64(p.startPeriod),
			new(big.Int).SetUint64(p.lastPeriod),
			p.disabled,
		}, nil
	case "createPolicy":
		return nil, c.create(e, args[0].([32]byte), args[1].(common.Address), args[2].(*big.Int))
	case "revokePolicy":
		return nil, c.revoke(e, args[0].([32]byte))
	case "updateReward":
		p, err := periods(args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		return nil, c.updateReward(e, args[0].(common.Address), p)
	case "withdraw":
		r := c.reward(e.from)
		if r.Sign() == 0 {
			return nil, revert("nothing to withdraw")
		}
		delete(c.rewards, e.from)
		return nil, e.st.transfer(e.self, e.from, r)
	}
	return nil, revert("unsupported method %s", method)
}

func (c *policyManager) create(e *env, id [32]byte, node common.Address, numberOfPeriods *big.Int) error {
	if _, ok := c.policies[id]; ok {
		return revert("policy already exists")
	}
	n, err := periods(numberOfPeriods)
	if err != nil {
		return err
	}
	if n == 0 || e.value.Sign() == 0 {
		return revert("empty policy")
	}
	esc, err := c.escrowOf(e)
	if err != nil {
		return err
	}
	if esc.ledger.LockedTokens(node).IsZero() {
		return revert("node has no locked tokens")
	}
	rate := new(big.Int).Div(e.value, numberOfPeriods)
	if new(big.Int).Mul(rate, numberOfPeriods).Cmp(e.value) != 0 {
		return revert("value is not a multiple of the number of periods")
	}
	current := esc.period(e)
	c.policies[id] = policy{
		client:      e.from,
		node:        node,
		rate:        rate,
		startPeriod: current + 1,
		lastPeriod:  current + n,
	}
	return nil
}

// revoke disables the policy and refunds the periods that have not started yet.
func (c *policyManager) revoke(e *env, id [32]byte) error {
	p, ok := c.policies[id]
	if !ok || p.disabled {
		return revert("no such policy")
	}
	if p.client != e.from {
		return revert("only the policy client may revoke")
	}
	esc, err := c.escrowOf(e)
	if err != nil {
		return err
	}
	first := max(p.startPeriod, esc.period(e)+1)
	refund := new(big.Int)
	if first <= p.lastPeriod {
		refund.Mul(p.rate, new(big.Int).SetUint64(p.lastPeriod-first+1))
	}
	p.disabled = true
	c.policies[id] = p
	return e.st.transfer(e.self, e.from, refund)
}
