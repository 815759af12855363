// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package actor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/agent"
	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/deployer"
	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/registrar"
	"github.com/nucypher/nkms-eth/sampler"
	"github.com/nucypher/nkms-eth/test/datagen"
	"github.com/nucypher/nkms-eth/test/testchain"
)

type network struct {
	chain  *testchain.Chain
	token  *agent.Token
	escrow *agent.MinerEscrow
	policy *agent.PolicyManager
}

func newNetwork(t *testing.T) *network {
	t.Helper()
	chain := testchain.New(4, new(big.Int).Mul(big.NewInt(100), nkms.M))
	reg, err := registrar.NewMem(big.NewInt(1337))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	cfg := deployer.DefaultConfig()
	cfg.Miner = nkms.DevMinerConfig()
	d := deployer.New(chain, bind.NewSigner(chain.Key(0)), reg, testchain.Artifacts(), cfg)
	d.Arm()
	dep, err := d.DeployAll(context.Background())
	require.NoError(t, err)

	n := &network{chain: chain}
	n.token, err = agent.NewToken(chain, dep.Token)
	require.NoError(t, err)
	n.escrow, err = agent.NewMinerEscrow(chain, dep.Escrow)
	require.NoError(t, err)
	n.policy, err = agent.NewPolicyManager(chain, dep.PolicyManager)
	require.NoError(t, err)
	return n
}

// miner funds account i with amount tokens and returns its miner.
func (n *network) miner(t *testing.T, i int, amount int64) *Miner {
	t.Helper()
	_, err := n.token.Transfer(n.chain.Address(i), big.NewInt(amount)).
		Send().
		WithSigner(bind.NewSigner(n.chain.Key(0))).
		Receipt(context.Background())
	require.NoError(t, err)
	return NewMiner(n.escrow, n.token, bind.NewSigner(n.chain.Key(i)))
}

func TestMiner_Lock(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	m := n.miner(t, 1, 1e9)
	assert.Equal(t, n.chain.Address(1), m.Address())

	receipts, err := m.Lock(ctx, big.NewInt(1e9), 10)
	require.NoError(t, err)
	assert.NotNil(t, receipts.Approve)
	assert.NotNil(t, receipts.Deposit)
	assert.NotNil(t, receipts.SwitchLock)

	locked, err := m.LockedTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e9), locked)

	balance, err := m.TokenBalance(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())

	info, err := n.escrow.MinerInfo(ctx, m.Address())
	require.NoError(t, err)
	assert.True(t, info.Release)
	assert.Equal(t, uint64(10), info.LockedPeriods.Uint64())

	// below the minimum stake
	small := n.miner(t, 2, 10)
	_, err = small.Lock(ctx, big.NewInt(10), 10)
	assert.ErrorIs(t, err, bind.ErrReverted)
}

func TestMiner_MintAndWithdraw(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	m := n.miner(t, 1, 1e9)
	_, err := m.Lock(ctx, big.NewInt(1e9), 10)
	require.NoError(t, err)

	_, err = m.ConfirmActivity(ctx)
	require.NoError(t, err)
	_, err = m.ConfirmActivity(ctx)
	assert.ErrorIs(t, err, bind.ErrReverted)

	n.chain.AdjustTime(time.Hour)
	_, err = m.Mint(ctx)
	require.NoError(t, err)

	_, err = m.Withdraw(ctx, big.NewInt(50))
	require.NoError(t, err)
	_, err = m.WithdrawAll(ctx)
	require.NoError(t, err)

	// 1e9 * (10 + 1) / 2e7
	balance, err := m.TokenBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(550), balance)
}

func TestMiner_IDs(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	m := n.miner(t, 1, 1e6)
	_, err := m.Lock(ctx, big.NewInt(1e6), 5)
	require.NoError(t, err)

	ids, err := m.FetchMinerIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = m.PublishMinerID(ctx, []byte("127.0.0.1:5551"))
	require.NoError(t, err)
	_, err = m.PublishMinerID(ctx, []byte("127.0.0.1:5552"))
	require.NoError(t, err)

	ids, err = m.FetchMinerIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("127.0.0.1:5551"), []byte("127.0.0.1:5552")}, ids)

	old := maxMinerIDs
	maxMinerIDs = 1
	defer func() { maxMinerIDs = old }()

	_, err = m.FetchMinerIDs(ctx)
	assert.ErrorIs(t, err, ErrTooManyMinerIDs)
}

func TestMiner_NoPolicyManager(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	m := n.miner(t, 1, 1)

	_, err := m.PolicyReward(ctx)
	assert.ErrorIs(t, err, ErrNoPolicyManager)
	_, err = m.CollectPolicyReward(ctx)
	assert.ErrorIs(t, err, ErrNoPolicyManager)

	reward, err := m.WithPolicyManager(n.policy).PolicyReward(ctx)
	require.NoError(t, err)
	assert.Zero(t, reward.Sign())
}

func TestPolicyAuthor(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	m := n.miner(t, 1, 1e9).WithPolicyManager(n.policy)
	_, err := m.Lock(ctx, big.NewInt(1e9), 10)
	require.NoError(t, err)

	author := NewPolicyAuthor(n.policy, bind.NewSigner(n.chain.Key(2)))
	assert.Equal(t, n.chain.Address(2), author.Address())

	id := datagen.RandomPolicyID()
	p, err := author.CreatePolicy(ctx, id, m.Address(), big.NewInt(200), 10)
	require.NoError(t, err)
	assert.Equal(t, author.Address(), p.Client)
	assert.Equal(t, m.Address(), p.Node)
	assert.Equal(t, big.NewInt(20), p.Rate)

	// the node serves the first policy period
	n.chain.AdjustTime(time.Hour)
	_, err = m.ConfirmActivity(ctx)
	require.NoError(t, err)
	n.chain.AdjustTime(time.Hour)
	_, err = m.Mint(ctx)
	require.NoError(t, err)

	reward, err := m.PolicyReward(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(20), reward)
	_, err = m.CollectPolicyReward(ctx)
	require.NoError(t, err)
	reward, err = m.PolicyReward(ctx)
	require.NoError(t, err)
	assert.Zero(t, reward.Sign())

	_, err = author.RevokePolicy(ctx, id)
	require.NoError(t, err)
	p, err = author.Policy(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.Disabled)
}

func TestPolicyAuthor_CreatePolicies(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	for i := 1; i <= 2; i++ {
		_, err := n.miner(t, i, 1e9).Lock(ctx, big.NewInt(1e9), 20)
		require.NoError(t, err)
	}

	author := NewPolicyAuthor(n.policy, bind.NewSigner(n.chain.Key(3)))
	opts := sampler.DefaultOptions()
	opts.MaxAttempts = 50

	policies, err := author.CreatePolicies(ctx, n.escrow, 2, big.NewInt(100), 10, opts)
	require.NoError(t, err)
	require.Len(t, policies, 2)

	nodes := []common.Address{policies[0].Node, policies[1].Node}
	assert.ElementsMatch(t, []common.Address{n.chain.Address(1), n.chain.Address(2)}, nodes)
	for _, p := range policies {
		assert.Equal(t, big.NewInt(10), p.Rate)
		assert.Equal(t, n.chain.Address(3), p.Client)
	}

	_, err = author.CreatePolicies(ctx, n.escrow, 3, big.NewInt(100), 10, opts)
	assert.ErrorIs(t, err, sampler.ErrInsufficientParticipants)
}
