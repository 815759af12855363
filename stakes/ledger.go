// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakes keeps the escrow accounting in memory. Miners are held in
// enrolment order, which defines the cumulative stake line walked by FindCumSum.
package stakes

import (
	"errors"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/nucypher/nkms-eth/nkms"
)

var (
	ErrUnknownMiner        = errors.New("unknown miner")
	ErrBelowMinimum        = errors.New("amount below minimum allowed")
	ErrAboveMaximum        = errors.New("locked amount above maximum allowed")
	ErrPeriodsTooShort     = errors.New("lock periods below minimum release periods")
	ErrNothingLocked       = errors.New("no tokens locked")
	ErrAlreadyConfirmed    = errors.New("activity already confirmed for period")
	ErrInsufficientBalance = errors.New("amount exceeds unlocked balance")
)

// Miner is a snapshot of one escrow entry.
type Miner struct {
	Address       common.Address
	Value         *uint256.Int // tokens held by the escrow for the miner
	Locked        *uint256.Int // part of Value that cannot be withdrawn
	LockedPeriods uint64       // periods left before Locked is released
	Release       bool         // whether confirmations count down LockedPeriods
	LastConfirmed uint64
	Confirmed     bool
}

type miner struct {
	Miner
	pending map[uint64]*uint256.Int // unminted reward by confirmed period
	ids     [][]byte
}

func (m *miner) snapshot() Miner {
	s := m.Miner
	s.Value = m.Value.Clone()
	s.Locked = m.Locked.Clone()
	return s
}

// Ledger is an in-memory stake ledger. It is safe for concurrent use.
type Ledger struct {
	mu     sync.RWMutex
	cfg    nkms.MinerConfig
	minAmt *uint256.Int
	maxAmt *uint256.Int
	miners map[common.Address]*miner
	list   *linkedList
	minted *uint256.Int
}

// NewLedger creates an empty ledger governed by cfg.
func NewLedger(cfg nkms.MinerConfig) *Ledger {
	return &Ledger{
		cfg:    cfg,
		minAmt: uint256.MustFromBig(cfg.MinAllowedLocked),
		maxAmt: uint256.MustFromBig(cfg.MaxAllowedLocked),
		miners: make(map[common.Address]*miner),
		list:   newLinkedList(),
		minted: new(uint256.Int),
	}
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c := &Ledger{
		cfg:    l.cfg,
		minAmt: l.minAmt.Clone(),
		maxAmt: l.maxAmt.Clone(),
		miners: make(map[common.Address]*miner, len(l.miners)),
		list:   newLinkedList(),
		minted: l.minted.Clone(),
	}
	_ = l.list.Iter(func(addr common.Address) error {
		m := l.miners[addr]
		cm := &miner{
			Miner:   m.snapshot(),
			pending: make(map[uint64]*uint256.Int, len(m.pending)),
			ids:     make([][]byte, len(m.ids)),
		}
		for period, amount := range m.pending {
			cm.pending[period] = amount.Clone()
		}
		for i, id := range m.ids {
			cm.ids[i] = slices.Clone(id)
		}
		c.miners[addr] = cm
		c.list.Add(addr)
		return nil
	})
	return c
}

// Config returns the parameters of the ledger.
func (l *Ledger) Config() nkms.MinerConfig {
	return l.cfg
}

// Deposit escrows amount for addr and locks it for at least periods. A miner
// that is not yet listed is appended to the end of the miner list.
func (l *Ledger) Deposit(addr common.Address, amount *uint256.Int, periods uint64) error {
	if addr == nkms.NullAddress {
		return ErrUnknownMiner
	}
	if amount.Lt(l.minAmt) {
		return ErrBelowMinimum
	}
	if periods < l.cfg.MinReleasePeriods {
		return ErrPeriodsTooShort
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.miners[addr]
	if !ok {
		m = &miner{
			Miner: Miner{
				Address: addr,
				Value:   new(uint256.Int),
				Locked:  new(uint256.Int),
			},
			pending: make(map[uint64]*uint256.Int),
		}
	}
	locked, overflow := new(uint256.Int).AddOverflow(m.Locked, amount)
	if overflow || locked.Gt(l.maxAmt) {
		return ErrAboveMaximum
	}
	m.Value = new(uint256.Int).Add(m.Value, amount)
	m.Locked = locked
	m.LockedPeriods = max(m.LockedPeriods, periods)

	if !ok {
		l.miners[addr] = m
		l.list.Add(addr)
	}
	return nil
}

// SwitchLock toggles whether confirmations release the lock and returns the
// new state.
func (l *Ledger) SwitchLock(addr common.Address) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.miners[addr]
	if !ok {
		return false, ErrUnknownMiner
	}
	m.Release = !m.Release
	return m.Release, nil
}

// ConfirmActivity records that the miner was online during period and accrues
// the reward for it. Releasing miners count down their lock by one period.
func (l *Ledger) ConfirmActivity(addr common.Address, period uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.miners[addr]
	if !ok {
		return ErrUnknownMiner
	}
	if m.Locked.IsZero() || m.LockedPeriods == 0 {
		return ErrNothingLocked
	}
	if m.Confirmed && m.LastConfirmed >= period {
		return ErrAlreadyConfirmed
	}

	m.pending[period] = l.reward(m)
	m.LastConfirmed = period
	m.Confirmed = true

	if m.Release {
		m.LockedPeriods--
		if m.LockedPeriods == 0 {
			m.Locked = new(uint256.Int)
		}
	}
	return nil
}

// reward is locked * (1 + min(lockedPeriods, lockedPeriodsCoefficient)) / miningCoefficient.
func (l *Ledger) reward(m *miner) *uint256.Int {
	periods := min(m.LockedPeriods, l.cfg.LockedPeriodsCoefficient, l.cfg.MaxAwardedPeriods)
	r := new(uint256.Int).Mul(m.Locked, uint256.NewInt(periods+1))
	return r.Div(r, uint256.NewInt(l.cfg.MiningCoefficient))
}

// Mint moves the reward of every confirmed period before current into the
// miner's escrowed value and returns the minted amount.
func (l *Ledger) Mint(addr common.Address, current uint64) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.miners[addr]
	if !ok {
		return nil, ErrUnknownMiner
	}
	total := new(uint256.Int)
	for period, amount := range m.pending {
		if period < current {
			total.Add(total, amount)
			delete(m.pending, period)
		}
	}
	m.Value = new(uint256.Int).Add(m.Value, total)
	l.minted.Add(l.minted, total)
	return total, nil
}

// Withdraw releases amount of the unlocked value back to the miner. A miner
// left with nothing escrowed is removed from the list.
func (l *Ledger) Withdraw(addr common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.miners[addr]
	if !ok {
		return ErrUnknownMiner
	}
	free := new(uint256.Int).Sub(m.Value, m.Locked)
	if amount.Gt(free) {
		return ErrInsufficientBalance
	}
	m.Value = new(uint256.Int).Sub(m.Value, amount)
	if m.Value.IsZero() && len(m.pending) == 0 {
		delete(l.miners, addr)
		l.list.Remove(addr)
	}
	return nil
}

// Unlocked returns the part of the miner's value that may be withdrawn.
func (l *Ledger) Unlocked(addr common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.miners[addr]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(m.Value, m.Locked)
}

// SetMinerID appends an opaque id published by the miner.
func (l *Ledger) SetMinerID(addr common.Address, id []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.miners[addr]
	if !ok {
		return ErrUnknownMiner
	}
	m.ids = append(m.ids, slices.Clone(id))
	return nil
}

// MinerIDs returns the ids published by the miner in publication order.
func (l *Ledger) MinerIDs(addr common.Address) [][]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.miners[addr]
	if !ok {
		return nil
	}
	ids := make([][]byte, len(m.ids))
	for i, id := range m.ids {
		ids[i] = slices.Clone(id)
	}
	return ids
}

// MinerInfo returns a snapshot of the miner's entry.
func (l *Ledger) MinerInfo(addr common.Address) (Miner, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.miners[addr]
	if !ok {
		return Miner{}, false
	}
	return m.snapshot(), true
}

// LockedTokens returns the tokens locked by addr.
func (l *Ledger) LockedTokens(addr common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.miners[addr]
	if !ok {
		return new(uint256.Int)
	}
	return m.Locked.Clone()
}

// AllLockedTokens returns the length of the cumulative stake line.
func (l *Ledger) AllLockedTokens() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := new(uint256.Int)
	_ = l.list.Iter(func(addr common.Address) error {
		total.Add(total, l.miners[addr].Locked)
		return nil
	})
	return total
}

// Minted returns the total reward minted so far.
func (l *Ledger) Minted() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.minted.Clone()
}

// Miners returns every listed miner in list order.
func (l *Ledger) Miners() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make([]common.Address, 0, l.list.Len())
	_ = l.list.Iter(func(addr common.Address) error {
		all = append(all, addr)
		return nil
	})
	return all
}

// FindCumSum walks the list from start, or from the head when start is the
// null address, and returns the miner whose locked interval contains offset
// along with the remaining distance into that interval. Offsets count from
// the beginning of start's interval. Miners locked for fewer than minPeriods
// are skipped. The null address is returned past the last eligible interval.
func (l *Ledger) FindCumSum(start common.Address, offset *uint256.Int, minPeriods uint64) (common.Address, *uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	current := start
	if current == nkms.NullAddress {
		current = l.list.Next(nkms.NullAddress)
	} else if !l.list.Contains(current) {
		return nkms.NullAddress, nil, ErrUnknownMiner
	}

	remaining := offset.Clone()
	for ; current != nkms.NullAddress; current = l.list.Next(current) {
		m := l.miners[current]
		if m.LockedPeriods < minPeriods || m.Locked.IsZero() {
			continue
		}
		if remaining.Lt(m.Locked) {
			return current, remaining, nil
		}
		remaining.Sub(remaining, m.Locked)
	}
	return nkms.NullAddress, new(uint256.Int), nil
}

// NextMiner returns the miner after prev, the first miner for the null
// address and the null address after the last miner.
func (l *Ledger) NextMiner(prev common.Address) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if prev != nkms.NullAddress && !l.list.Contains(prev) {
		return nkms.NullAddress, ErrUnknownMiner
	}
	return l.list.Next(prev), nil
}
