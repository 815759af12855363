// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package actor composes agent calls into the workflows of network participants.
package actor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/nucypher/nkms-eth/agent"
	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/log"
)

var logger = log.WithContext("pkg", "actor")

// fetchConcurrency bounds the parallel calls of FetchMinerIDs.
const fetchConcurrency = 8

// maxMinerIDs bounds the ids FetchMinerIDs is willing to read.
var maxMinerIDs uint64 = 1024

var (
	// ErrNoPolicyManager is returned by policy operations of a miner created
	// without a policy manager.
	ErrNoPolicyManager = errors.New("no policy manager attached")
	// ErrTooManyMinerIDs is returned when the escrow reports more ids than
	// FetchMinerIDs reads.
	ErrTooManyMinerIDs = errors.New("too many miner ids")
)

// Miner locks tokens in the escrow and earns rewards for staying online.
type Miner struct {
	escrow *agent.MinerEscrow
	token  *agent.Token
	policy *agent.PolicyManager
	signer bind.Signer
}

func NewMiner(escrow *agent.MinerEscrow, token *agent.Token, signer bind.Signer) *Miner {
	return &Miner{
		escrow: escrow,
		token:  token,
		signer: signer,
	}
}

// WithPolicyManager returns a copy of the miner able to collect policy fees.
func (m *Miner) WithPolicyManager(policy *agent.PolicyManager) *Miner {
	cp := *m
	cp.policy = policy
	return &cp
}

func (m *Miner) Address() common.Address {
	return m.signer.Address()
}

func (m *Miner) send(ctx context.Context, b *bind.MethodBuilder) (*types.Receipt, error) {
	return b.Send().WithSigner(m.signer).Receipt(ctx)
}

// LockReceipts are the receipts of the transactions issued by Lock.
type LockReceipts struct {
	Approve    *types.Receipt
	Deposit    *types.Receipt
	SwitchLock *types.Receipt
}

// Lock approves the escrow to take amount tokens, deposits them locked for
// periods and switches the lock to release mode.
func (m *Miner) Lock(ctx context.Context, amount *big.Int, periods uint64) (*LockReceipts, error) {
	var (
		receipts LockReceipts
		err      error
	)
	if receipts.Approve, err = m.send(ctx, m.token.Approve(m.escrow.Address(), amount)); err != nil {
		return nil, fmt.Errorf("approve escrow: %w", err)
	}
	if receipts.Deposit, err = m.send(ctx, m.escrow.Deposit(amount, periods)); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if receipts.SwitchLock, err = m.send(ctx, m.escrow.SwitchLock()); err != nil {
		return nil, fmt.Errorf("switch lock: %w", err)
	}
	logger.Info("tokens locked", "miner", m.Address(), "amount", amount, "periods", periods)
	return &receipts, nil
}

// Mint moves the reward of confirmed periods into the miner's escrow balance.
func (m *Miner) Mint(ctx context.Context) (*types.Receipt, error) {
	return m.send(ctx, m.escrow.Mint())
}

// ConfirmActivity reports the miner online for the current period.
func (m *Miner) ConfirmActivity(ctx context.Context) (*types.Receipt, error) {
	return m.send(ctx, m.escrow.ConfirmActivity())
}

// Withdraw takes amount unlocked tokens back from the escrow.
func (m *Miner) Withdraw(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	return m.send(ctx, m.escrow.Withdraw(amount))
}

// WithdrawAll takes every unlocked token back from the escrow.
func (m *Miner) WithdrawAll(ctx context.Context) (*types.Receipt, error) {
	return m.send(ctx, m.escrow.WithdrawAll())
}

// CollectPolicyReward withdraws the policy fees earned by the miner.
func (m *Miner) CollectPolicyReward(ctx context.Context) (*types.Receipt, error) {
	if m.policy == nil {
		return nil, ErrNoPolicyManager
	}
	return m.send(ctx, m.policy.Withdraw())
}

// PolicyReward returns the policy fees the miner may collect.
func (m *Miner) PolicyReward(ctx context.Context) (*big.Int, error) {
	if m.policy == nil {
		return nil, ErrNoPolicyManager
	}
	return m.policy.NodeReward(ctx, m.Address())
}

// PublishMinerID stores an opaque id, such as a network address, in the escrow.
func (m *Miner) PublishMinerID(ctx context.Context, id []byte) (*types.Receipt, error) {
	return m.send(ctx, m.escrow.SetMinerID(id))
}

// FetchMinerIDs returns every id published by the miner.
func (m *Miner) FetchMinerIDs(ctx context.Context) ([][]byte, error) {
	count, err := m.escrow.MinerIDsCount(ctx, m.Address())
	if err != nil {
		return nil, err
	}
	if count > maxMinerIDs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyMinerIDs, count, maxMinerIDs)
	}
	ids := make([][]byte, count)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := range count {
		g.Go(func() error {
			id, err := m.escrow.MinerID(ctx, m.Address(), i)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// TokenBalance returns the tokens held by the miner outside the escrow.
func (m *Miner) TokenBalance(ctx context.Context) (*big.Int, error) {
	return m.token.BalanceOf(ctx, m.Address())
}

// LockedTokens returns the miner's locked stake.
func (m *Miner) LockedTokens(ctx context.Context) (*big.Int, error) {
	return m.escrow.LockedTokens(ctx, m.Address())
}
