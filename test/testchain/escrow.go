// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package testchain

import (
	"maps"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/nucypher/nkms-eth/contracts"
	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/stakes"
)

// escrow keeps its accounting in a stakes.Ledger and holds the escrowed
// tokens on the token contract.
type escrow struct {
	owner         common.Address
	token         common.Address
	policyManager common.Address
	cfg           nkms.MinerConfig
	ledger        *stakes.Ledger
	unrewarded    map[common.Address][]uint64 // confirmed periods not yet reported to the policy manager
}

func newEscrow(creator common.Address, args []any) (model, error) {
	coefficients := make([]uint64, 5)
	for i := range coefficients {
		v := args[i+1].(*big.Int)
		if !v.IsUint64() || v.Sign() == 0 {
			return nil, revert("invalid coefficient %d", i)
		}
		coefficients[i] = v.Uint64()
	}
	cfg := nkms.MinerConfig{
		HoursPerPeriod:           coefficients[0],
		MiningCoefficient:        coefficients[1],
		LockedPeriodsCoefficient: coefficients[2],
		MaxAwardedPeriods:        coefficients[3],
		MinReleasePeriods:        coefficients[4],
		MinAllowedLocked:         new(big.Int).Set(args[6].(*big.Int)),
		MaxAllowedLocked:         new(big.Int).Set(args[7].(*big.Int)),
	}
	return &escrow{
		owner:      creator,
		token:      args[0].(common.Address),
		cfg:        cfg,
		ledger:     stakes.NewLedger(cfg),
		unrewarded: make(map[common.Address][]uint64),
	}, nil
}

func (c *escrow) name() string { return contracts.EscrowName }

func (c *escrow) clone() model {
	cp := *c
	cp.ledger = c.ledger.Clone()
	cp.unrewarded = maps.Clone(c.unrewarded)
	for addr, periods := range cp.unrewarded {
		cp.unrewarded[addr] = slices.Clone(periods)
	}
	return &cp
}

func (c *escrow) tokenOf(e *env) (*token, error) {
	t, ok := e.st.contracts[c.token].(*token)
	if !ok {
		return nil, revert("token contract missing")
	}
	return t, nil
}

func (c *escrow) period(e *env) uint64 {
	return c.cfg.Period(e.st.timestamp)
}

func amount(v *big.Int) (*uint256.Int, error) {
	u, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, revert("amount out of range")
	}
	return u, nil
}

func periods(v *big.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, revert("periods out of range")
	}
	return v.Uint64(), nil
}

func (c *escrow) call(e *env, method string, args []any) ([]any, error) {
	switch method {
	case "token":
		return []any{c.token}, nil
	case "policyManager":
		return []any{c.policyManager}, nil
	case "getCurrentPeriod":
		return []any{new(big.Int).SetUint64(c.period(e))}, nil
	case "getAllLockedTokens":
		return []any{c.ledger.AllLockedTokens().ToBig()}, nil
	case "getLockedTokens":
		return []any{c.ledger.LockedTokens(args[0].(common.Address)).ToBig()}, nil
	case "minerInfo":
		m, _ := c.ledger.MinerInfo(args[0].(common.Address))
		if m.Value == nil {
			return []any{new(big.Int), new(big.Int), new(big.Int), false, new(big.Int)}, nil
		}
		return []any{
			m.Value.ToBig(),
			m.Locked.ToBig(),
			new(big.Int).SetUint64(m.LockedPeriods),
			m.Release,
			new(big.Int).SetUint64(m.LastConfirmed),
		}, nil
	case "findCumSum":
		offset, err := amount(args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		minPeriods, err := periods(args[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		stop, shift, err := c.ledger.FindCumSum(args[0].(common.Address), offset, minPeriods)
		if err != nil {
			return nil, asRevert(err)
		}
		return []any{stop, shift.ToBig()}, nil
	case "getNextMiner":
		next, err := c.ledger.NextMiner(args[0].(common.Address))
		if err != nil {
			return nil, asRevert(err)
		}
		return []any{next}, nil
	case "getMinerIdsCount":
		return []any{big.NewInt(int64(len(c.ledger.MinerIDs(args[0].(common.Address)))))}, nil
	case "getMinerId":
		ids := c.ledger.MinerIDs(args[0].(common.Address))
		index := args[1].(*big.Int)
		if !index.IsUint64() || index.Uint64() >= uint64(len(ids)) {
			return nil, revert("miner id index out of range")
		}
		return []any{ids[index.Uint64()]}, nil
	case "deposit":
		return nil, c.deposit(e, args[0].(*big.Int), args[1].(*big.Int))
	case "switchLock":
		_, err := c.ledger.SwitchLock(e.from)
		return nil, asRevertOrNil(err)
	case "confirmActivity":
		current := c.period(e)
		if err := c.ledger.ConfirmActivity(e.from, current); err != nil {
			return nil, asRevert(err)
		}
		c.unrewarded[e.from] = append(c.unrewarded[e.from], current)
		return nil, nil
	case "mint":
		return nil, c.mint(e)
	case "withdraw":
		value, err := amount(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return nil, c.withdraw(e, value)
	case "withdrawAll":
		return nil, c.withdraw(e, c.ledger.Unlocked(e.from))
	case "setMinerId":
		return nil, asRevertOrNil(c.ledger.SetMinerID(e.from, args[0].([]byte)))
	case "setPolicyManager":
		if e.from != c.owner {
			return nil, revert("only owner")
		}
		if c.policyManager != nkms.NullAddress {
			return nil, revert("policy manager already set")
		}
		c.policyManager = args[0].(common.Address)
		return nil, nil
	}
	return nil, revert("unsupported method %s", method)
}

func (c *escrow) deposit(e *env, value, lockPeriods *big.Int) error {
	v, err := amount(value)
	if err != nil {
		return err
	}
	p, err := periods(lockPeriods)
	if err != nil {
		return err
	}
	t, err := c.tokenOf(e)
	if err != nil {
		return err
	}
	if err := t.transferFrom(e.self, e.from, e.self, value); err != nil {
		return err
	}
	return asRevertOrNil(c.ledger.Deposit(e.from, v, p))
}

func (c *escrow) mint(e *env) error {
	current := c.period(e)
	minted, err := c.ledger.Mint(e.from, current)
	if err != nil {
		return asRevert(err)
	}
	t, err := c.tokenOf(e)
	if err != nil {
		return err
	}
	if _, err := t.mint(e.self, e.self, minted.ToBig()); err != nil {
		return err
	}

	var (
		rewarded []uint64
		pending  []uint64
	)
	for _, p := range c.unrewarded[e.from] {
		if p < current {
			rewarded = append(rewarded, p)
		} else {
			pending = append(pending, p)
		}
	}
	c.unrewarded[e.from] = pending

	pm, ok := e.st.contracts[c.policyManager].(*policyManager)
	if !ok {
		return nil
	}
	for _, p := range rewarded {
		if err := pm.updateReward(e.at(c.policyManager), e.from, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *escrow) withdraw(e *env, value *uint256.Int) error {
	if err := c.ledger.Withdraw(e.from, value); err != nil {
		return asRevert(err)
	}
	t, err := c.tokenOf(e)
	if err != nil {
		return err
	}
	return t.move(e.self, e.from, value.ToBig())
}

func asRevertOrNil(err error) error {
	if err == nil {
		return nil
	}
	return asRevert(err)
}
