// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sampler

import (
	"context"
	"iter"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/nkms"
)

// Iterable enumerates participants in ledger order.
type Iterable interface {
	// NextMiner returns the participant following prev, the first one when prev
	// is the null address, and the null address after the last one.
	NextMiner(ctx context.Context, prev common.Address) (common.Address, error)
}

// Sweep lazily yields every participant in ledger order. Each range over the
// returned sequence starts again from the null address. An error is yielded
// once and ends the sequence.
func Sweep(ctx context.Context, ledger Iterable) iter.Seq2[common.Address, error] {
	return func(yield func(common.Address, error) bool) {
		current := nkms.NullAddress
		for {
			if err := ctx.Err(); err != nil {
				yield(nkms.NullAddress, err)
				return
			}
			next, err := ledger.NextMiner(ctx, current)
			if err != nil {
				yield(nkms.NullAddress, err)
				return
			}
			if next == nkms.NullAddress {
				return
			}
			if !yield(next, nil) {
				return
			}
			current = next
		}
	}
}

// Collect drains a sweep into a slice.
func Collect(ctx context.Context, ledger Iterable) ([]common.Address, error) {
	var all []common.Address
	for addr, err := range Sweep(ctx, ledger) {
		if err != nil {
			return nil, err
		}
		all = append(all, addr)
	}
	return all, nil
}
