// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/nkms"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// newABC lists A, B and C locking 100, 200 and 700 million units.
func newABC(t *testing.T) *Ledger {
	l := NewLedger(nkms.DevMinerConfig())
	require.NoError(t, l.Deposit(addr(0xa), u(100e6), 10))
	require.NoError(t, l.Deposit(addr(0xb), u(200e6), 20))
	require.NoError(t, l.Deposit(addr(0xc), u(700e6), 5))
	return l
}

func TestLedger_Deposit(t *testing.T) {
	l := NewLedger(nkms.DevMinerConfig())

	assert.ErrorIs(t, l.Deposit(addr(1), u(1), 10), ErrBelowMinimum)
	assert.ErrorIs(t, l.Deposit(addr(1), u(1e6), 0), ErrPeriodsTooShort)
	assert.ErrorIs(t, l.Deposit(nkms.NullAddress, u(1e6), 10), ErrUnknownMiner)

	maxLocked := uint256.MustFromBig(nkms.DevMinerConfig().MaxAllowedLocked)
	assert.ErrorIs(t, l.Deposit(addr(1), new(uint256.Int).AddUint64(maxLocked, 1), 10), ErrAboveMaximum)

	require.NoError(t, l.Deposit(addr(1), u(1e6), 10))
	require.NoError(t, l.Deposit(addr(1), u(2e6), 5))

	m, ok := l.MinerInfo(addr(1))
	require.True(t, ok)
	assert.Equal(t, u(3e6), m.Value)
	assert.Equal(t, u(3e6), m.Locked)
	assert.Equal(t, uint64(10), m.LockedPeriods)
	assert.Equal(t, []common.Address{addr(1)}, l.Miners())
}

func TestLedger_AllLockedTokens(t *testing.T) {
	l := newABC(t)
	assert.Equal(t, u(1000e6), l.AllLockedTokens())
	assert.Equal(t, u(200e6), l.LockedTokens(addr(0xb)))
	assert.True(t, l.LockedTokens(addr(0xf)).IsZero())
}

func TestLedger_FindCumSum(t *testing.T) {
	l := newABC(t)

	tests := []struct {
		name      string
		start     common.Address
		offset    uint64
		periods   uint64
		wantAddr  common.Address
		wantShift uint64
	}{
		{"first interval", nkms.NullAddress, 0, 0, addr(0xa), 0},
		{"inside first", nkms.NullAddress, 99e6, 0, addr(0xa), 99e6},
		{"boundary", nkms.NullAddress, 100e6, 0, addr(0xb), 0},
		{"last interval", nkms.NullAddress, 999e6, 0, addr(0xc), 699e6},
		{"past the end", nkms.NullAddress, 1000e6, 0, nkms.NullAddress, 0},
		{"from middle", addr(0xb), 250e6, 0, addr(0xc), 50e6},
		{"skip short locks", nkms.NullAddress, 150e6, 10, addr(0xb), 50e6},
		{"only long locks", nkms.NullAddress, 150e6, 20, addr(0xb), 150e6},
		{"none eligible", nkms.NullAddress, 0, 30, nkms.NullAddress, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, shift, err := l.FindCumSum(tt.start, u(tt.offset), tt.periods)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, got)
			assert.Equal(t, u(tt.wantShift), shift)
		})
	}

	_, _, err := l.FindCumSum(addr(0xf), u(0), 0)
	assert.ErrorIs(t, err, ErrUnknownMiner)
}

func TestLedger_NextMiner(t *testing.T) {
	l := newABC(t)

	var walked []common.Address
	for cur := nkms.NullAddress; ; {
		next, err := l.NextMiner(cur)
		require.NoError(t, err)
		if next == nkms.NullAddress {
			break
		}
		walked = append(walked, next)
		cur = next
	}
	assert.Equal(t, []common.Address{addr(0xa), addr(0xb), addr(0xc)}, walked)

	_, err := l.NextMiner(addr(0xf))
	assert.ErrorIs(t, err, ErrUnknownMiner)
}

func TestLedger_ConfirmAndMint(t *testing.T) {
	l := NewLedger(nkms.DevMinerConfig())
	require.NoError(t, l.Deposit(addr(1), u(1e9), 10))

	require.NoError(t, l.ConfirmActivity(addr(1), 5))
	assert.ErrorIs(t, l.ConfirmActivity(addr(1), 5), ErrAlreadyConfirmed)
	assert.ErrorIs(t, l.ConfirmActivity(addr(2), 5), ErrUnknownMiner)

	// nothing minted for the current period
	minted, err := l.Mint(addr(1), 5)
	require.NoError(t, err)
	assert.True(t, minted.IsZero())

	// 1e9 * (10 + 1) / 2e7
	minted, err = l.Mint(addr(1), 6)
	require.NoError(t, err)
	assert.Equal(t, u(550), minted)
	assert.Equal(t, u(550), l.Minted())

	m, _ := l.MinerInfo(addr(1))
	assert.Equal(t, u(1e9+550), m.Value)
	assert.Equal(t, u(550), l.Unlocked(addr(1)))

	// minted rewards are not paid twice
	minted, err = l.Mint(addr(1), 7)
	require.NoError(t, err)
	assert.True(t, minted.IsZero())
}

func TestLedger_ReleaseAndWithdraw(t *testing.T) {
	l := NewLedger(nkms.DevMinerConfig())
	require.NoError(t, l.Deposit(addr(1), u(1e6), 2))

	assert.ErrorIs(t, l.Withdraw(addr(1), u(1)), ErrInsufficientBalance)

	release, err := l.SwitchLock(addr(1))
	require.NoError(t, err)
	assert.True(t, release)

	require.NoError(t, l.ConfirmActivity(addr(1), 1))
	assert.Equal(t, u(1e6), l.LockedTokens(addr(1)))
	require.NoError(t, l.ConfirmActivity(addr(1), 2))
	assert.True(t, l.LockedTokens(addr(1)).IsZero())
	assert.ErrorIs(t, l.ConfirmActivity(addr(1), 3), ErrNothingLocked)

	_, err = l.Mint(addr(1), 3)
	require.NoError(t, err)

	free := l.Unlocked(addr(1))
	require.NoError(t, l.Withdraw(addr(1), free))

	_, ok := l.MinerInfo(addr(1))
	assert.False(t, ok)
	assert.Empty(t, l.Miners())
}

func TestLedger_MinerIDs(t *testing.T) {
	l := NewLedger(nkms.DevMinerConfig())
	assert.ErrorIs(t, l.SetMinerID(addr(1), []byte("id")), ErrUnknownMiner)

	require.NoError(t, l.Deposit(addr(1), u(1e6), 2))
	id := []byte("first")
	require.NoError(t, l.SetMinerID(addr(1), id))
	require.NoError(t, l.SetMinerID(addr(1), []byte("second")))
	id[0] = 'F'

	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, l.MinerIDs(addr(1)))
	assert.Nil(t, l.MinerIDs(addr(2)))
}

func TestLedger_Clone(t *testing.T) {
	l := newABC(t)
	require.NoError(t, l.SetMinerID(addr(0xa), []byte("a")))

	c := l.Clone()
	require.NoError(t, c.Deposit(addr(0xd), u(1e6), 1))
	require.NoError(t, c.SetMinerID(addr(0xa), []byte("b")))
	_, err := c.SwitchLock(addr(0xb))
	require.NoError(t, err)

	assert.Equal(t, []common.Address{addr(0xa), addr(0xb), addr(0xc)}, l.Miners())
	assert.Equal(t, [][]byte{[]byte("a")}, l.MinerIDs(addr(0xa)))
	m, _ := l.MinerInfo(addr(0xb))
	assert.False(t, m.Release)

	assert.Equal(t, []common.Address{addr(0xa), addr(0xb), addr(0xc), addr(0xd)}, c.Miners())
	assert.Equal(t, u(1001e6), c.AllLockedTokens())
}
