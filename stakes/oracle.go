// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/nucypher/nkms-eth/nkms"
)

// Oracle exposes a Ledger through the context-aware, big.Int based view
// consumed by the sampler.
type Oracle struct {
	ledger *Ledger
}

// Oracle returns the sampling view of the ledger.
func (l *Ledger) Oracle() *Oracle {
	return &Oracle{ledger: l}
}

func (o *Oracle) TotalLocked(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.ledger.AllLockedTokens().ToBig(), nil
}

func (o *Oracle) FindCumSum(ctx context.Context, start common.Address, offset *big.Int, periods uint64) (common.Address, *big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nkms.NullAddress, nil, err
	}
	if offset.Sign() < 0 {
		return nkms.NullAddress, nil, fmt.Errorf("negative offset %v", offset)
	}
	u, overflow := uint256.FromBig(offset)
	if overflow {
		// no ledger holds 2^256 locked tokens
		return nkms.NullAddress, new(big.Int), nil
	}
	addr, shift, err := o.ledger.FindCumSum(start, u, periods)
	if err != nil {
		return nkms.NullAddress, nil, err
	}
	return addr, shift.ToBig(), nil
}

func (o *Oracle) NextMiner(ctx context.Context, prev common.Address) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nkms.NullAddress, err
	}
	return o.ledger.NextMiner(prev)
}
