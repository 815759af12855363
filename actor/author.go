// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package actor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/nucypher/nkms-eth/agent"
	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/sampler"
)

// PolicyAuthor pays miners to serve policies.
type PolicyAuthor struct {
	policy *agent.PolicyManager
	signer bind.Signer
}

func NewPolicyAuthor(policy *agent.PolicyManager, signer bind.Signer) *PolicyAuthor {
	return &PolicyAuthor{
		policy: policy,
		signer: signer,
	}
}

func (a *PolicyAuthor) Address() common.Address {
	return a.signer.Address()
}

// CreatePolicy pays value for node to serve the policy during periods periods
// and returns the record stored on chain.
func (a *PolicyAuthor) CreatePolicy(
	ctx context.Context,
	id [32]byte,
	node common.Address,
	value *big.Int,
	periods uint64,
) (*agent.Policy, error) {
	if _, err := a.policy.CreatePolicy(id, node, periods, value).Send().WithSigner(a.signer).Receipt(ctx); err != nil {
		return nil, fmt.Errorf("create policy %x: %w", id, err)
	}
	logger.Info("policy created", "id", common.Hash(id), "node", node, "value", value, "periods", periods)
	return a.policy.Policy(ctx, id)
}

// RevokePolicy disables a policy created by the author.
func (a *PolicyAuthor) RevokePolicy(ctx context.Context, id [32]byte) (*types.Receipt, error) {
	return a.policy.RevokePolicy(id).Send().WithSigner(a.signer).Receipt(ctx)
}

// Policy returns the on-chain record of a policy.
func (a *PolicyAuthor) Policy(ctx context.Context, id [32]byte) (*agent.Policy, error) {
	return a.policy.Policy(ctx, id)
}

// CreatePolicies samples quantity miners from the escrow and creates one
// policy with a random id for each of them.
func (a *PolicyAuthor) CreatePolicies(
	ctx context.Context,
	escrow *agent.MinerEscrow,
	quantity int,
	valuePerNode *big.Int,
	periods uint64,
	opts sampler.Options,
) ([]*agent.Policy, error) {
	nodes, err := escrow.Sample(ctx, quantity, opts)
	if err != nil {
		return nil, err
	}
	policies := make([]*agent.Policy, 0, len(nodes))
	for _, node := range nodes {
		var id [32]byte
		if _, err := rand.Read(id[:]); err != nil {
			return nil, err
		}
		p, err := a.CreatePolicy(ctx, id, node, valuePerNode, periods)
		if err != nil {
			return policies, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}
