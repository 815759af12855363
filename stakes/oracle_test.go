// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/sampler"
)

var (
	_ sampler.Ledger   = (*Oracle)(nil)
	_ sampler.Iterable = (*Oracle)(nil)
)

func TestOracle(t *testing.T) {
	ctx := context.Background()
	o := newABC(t).Oracle()

	total, err := o.TotalLocked(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000e6), total)

	got, shift, err := o.FindCumSum(ctx, nkms.NullAddress, big.NewInt(350e6), 0)
	require.NoError(t, err)
	assert.Equal(t, addr(0xc), got)
	assert.Equal(t, big.NewInt(50e6), shift)

	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	got, _, err = o.FindCumSum(ctx, nkms.NullAddress, huge, 0)
	require.NoError(t, err)
	assert.Equal(t, nkms.NullAddress, got)

	_, _, err = o.FindCumSum(ctx, nkms.NullAddress, big.NewInt(-1), 0)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = o.TotalLocked(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOracle_Sampling(t *testing.T) {
	ctx := context.Background()
	o := newABC(t).Oracle()

	all, err := sampler.Collect(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr(0xa), addr(0xb), addr(0xc)}, all)

	opts := sampler.DefaultOptions()
	opts.Periods = 0
	s := sampler.New(o, opts).WithSource(sampler.NewSeededSource(7))

	for range 20 {
		picked, err := s.Sample(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, picked, 2)
		assert.NotEqual(t, picked[0], picked[1])
		assert.Subset(t, all, picked)
	}

	// with a ten period filter only A and B remain eligible
	opts.Periods = 10
	picked, err := sampler.New(o, opts).Sample(ctx, 2)
	if err == nil {
		assert.ElementsMatch(t, []common.Address{addr(0xa), addr(0xb)}, picked)
	} else {
		assert.ErrorIs(t, err, sampler.ErrInsufficientParticipants)
	}
	_, err = sampler.New(o, opts).Sample(ctx, 3)
	assert.ErrorIs(t, err, sampler.ErrInsufficientParticipants)
}
