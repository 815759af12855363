// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent

import (
	"context"
	"fmt"
	"iter"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/contracts"
	"github.com/nucypher/nkms-eth/sampler"
)

// MinerEscrow is a type-safe smart contract wrapper of the miners escrow. It
// serves as the stake ledger for sampling.
type MinerEscrow struct {
	contract *bind.Contract
	block    *big.Int
}

var (
	_ sampler.Ledger   = (*MinerEscrow)(nil)
	_ sampler.Iterable = (*MinerEscrow)(nil)
)

func NewMinerEscrow(backend bind.Backend, address common.Address) (*MinerEscrow, error) {
	contractABI, err := contracts.ABI(contracts.EscrowName)
	if err != nil {
		return nil, err
	}
	contract, err := bind.NewContractWithABI(backend, contractABI, address)
	if err != nil {
		return nil, err
	}
	return &MinerEscrow{
		contract: contract,
	}, nil
}

// AtBlock creates a new MinerEscrow instance reading the state at the given block.
func (e *MinerEscrow) AtBlock(number *big.Int) *MinerEscrow {
	return &MinerEscrow{
		contract: e.contract,
		block:    number,
	}
}

func (e *MinerEscrow) Raw() *bind.Contract {
	return e.contract
}

func (e *MinerEscrow) Address() common.Address {
	return e.contract.Address()
}

// MinerInfo is the escrow entry of a miner.
type MinerInfo struct {
	Value            *big.Int
	LockedValue      *big.Int
	LockedPeriods    *big.Int
	Release          bool
	LastActivePeriod *big.Int
}

// TotalLocked returns the tokens locked by all miners.
func (e *MinerEscrow) TotalLocked(ctx context.Context) (*big.Int, error) {
	total := new(big.Int)
	if err := e.contract.Method("getAllLockedTokens").Call().AtBlock(e.block).ExecuteInto(ctx, &total); err != nil {
		return nil, err
	}
	return total, nil
}

// FindCumSum resolves an offset on the cumulative stake line starting at start.
func (e *MinerEscrow) FindCumSum(
	ctx context.Context,
	start common.Address,
	offset *big.Int,
	periods uint64,
) (common.Address, *big.Int, error) {
	out := new(struct {
		Stop  common.Address
		Shift *big.Int
	})
	err := e.contract.Method("findCumSum", start, offset, new(big.Int).SetUint64(periods)).
		Call().
		AtBlock(e.block).
		ExecuteInto(ctx, out)
	if err != nil {
		return common.Address{}, nil, err
	}
	return out.Stop, out.Shift, nil
}

// NextMiner returns the miner following prev in the escrow's list.
func (e *MinerEscrow) NextMiner(ctx context.Context, prev common.Address) (common.Address, error) {
	var next common.Address
	if err := e.contract.Method("getNextMiner", prev).Call().AtBlock(e.block).ExecuteInto(ctx, &next); err != nil {
		return common.Address{}, err
	}
	return next, nil
}

// CurrentPeriod returns the escrow period of the latest block.
func (e *MinerEscrow) CurrentPeriod(ctx context.Context) (uint64, error) {
	period := new(big.Int)
	if err := e.contract.Method("getCurrentPeriod").Call().AtBlock(e.block).ExecuteInto(ctx, &period); err != nil {
		return 0, err
	}
	if !period.IsUint64() {
		return 0, fmt.Errorf("period %v out of range", period)
	}
	return period.Uint64(), nil
}

// LockedTokens returns the tokens locked by the miner.
func (e *MinerEscrow) LockedTokens(ctx context.Context, miner common.Address) (*big.Int, error) {
	locked := new(big.Int)
	if err := e.contract.Method("getLockedTokens", miner).Call().AtBlock(e.block).ExecuteInto(ctx, &locked); err != nil {
		return nil, err
	}
	return locked, nil
}

// MinerInfo returns the escrow entry of the miner. Unknown miners have a zero entry.
func (e *MinerEscrow) MinerInfo(ctx context.Context, miner common.Address) (*MinerInfo, error) {
	info := new(MinerInfo)
	if err := e.contract.Method("minerInfo", miner).Call().AtBlock(e.block).ExecuteInto(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// MinerIDsCount returns how many ids the miner published.
func (e *MinerEscrow) MinerIDsCount(ctx context.Context, miner common.Address) (uint64, error) {
	count := new(big.Int)
	if err := e.contract.Method("getMinerIdsCount", miner).Call().AtBlock(e.block).ExecuteInto(ctx, &count); err != nil {
		return 0, err
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("miner id count %v out of range", count)
	}
	return count.Uint64(), nil
}

// MinerID returns the index-th id published by the miner.
func (e *MinerEscrow) MinerID(ctx context.Context, miner common.Address, index uint64) ([]byte, error) {
	var id []byte
	err := e.contract.Method("getMinerId", miner, new(big.Int).SetUint64(index)).
		Call().
		AtBlock(e.block).
		ExecuteInto(ctx, &id)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// PolicyManager returns the policy manager attached to the escrow, or the
// zero address.
func (e *MinerEscrow) PolicyManager(ctx context.Context) (common.Address, error) {
	var addr common.Address
	if err := e.contract.Method("policyManager").Call().AtBlock(e.block).ExecuteInto(ctx, &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// Deposit escrows amount of the caller's approved tokens, locked for periods.
func (e *MinerEscrow) Deposit(amount *big.Int, periods uint64) *bind.MethodBuilder {
	return e.contract.Method("deposit", amount, new(big.Int).SetUint64(periods))
}

// SwitchLock toggles whether confirmations count down the caller's lock.
func (e *MinerEscrow) SwitchLock() *bind.MethodBuilder {
	return e.contract.Method("switchLock")
}

func (e *MinerEscrow) ConfirmActivity() *bind.MethodBuilder {
	return e.contract.Method("confirmActivity")
}

func (e *MinerEscrow) Mint() *bind.MethodBuilder {
	return e.contract.Method("mint")
}

func (e *MinerEscrow) Withdraw(amount *big.Int) *bind.MethodBuilder {
	return e.contract.Method("withdraw", amount)
}

func (e *MinerEscrow) WithdrawAll() *bind.MethodBuilder {
	return e.contract.Method("withdrawAll")
}

func (e *MinerEscrow) SetMinerID(id []byte) *bind.MethodBuilder {
	return e.contract.Method("setMinerId", id)
}

// SetPolicyManager attaches the policy manager. Owner only, once.
func (e *MinerEscrow) SetPolicyManager(policyManager common.Address) *bind.MethodBuilder {
	return e.contract.Method("setPolicyManager", policyManager)
}

// Sample selects quantity distinct miners weighted by their locked tokens.
func (e *MinerEscrow) Sample(ctx context.Context, quantity int, opts sampler.Options) ([]common.Address, error) {
	return sampler.Sample(ctx, e, quantity, opts)
}

// Swarm yields every miner in escrow order.
func (e *MinerEscrow) Swarm(ctx context.Context) iter.Seq2[common.Address, error] {
	return sampler.Sweep(ctx, e)
}
