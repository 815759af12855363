// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nkms

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NullAddress is the sentinel used by the escrow's miner list. It marks both the
// start and the end of a walk.
var NullAddress = common.Address{}

// TokenDecimals is the number of sub-digits of the token.
const TokenDecimals = 18

// M is one whole token expressed in its smallest unit.
var M = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// TokenConfig holds the token supply parameters passed to the token constructor.
type TokenConfig struct {
	Premine    *big.Int
	Saturation *big.Int
}

// DefaultTokenConfig returns the production token supply: 1e9 tokens premined,
// saturating at 1e10 tokens.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Premine:    new(big.Int).Mul(big.NewInt(1e9), M),
		Saturation: new(big.Int).Mul(big.NewInt(1e10), M),
	}
}

// Reward is the amount left to be minted by miners.
func (c TokenConfig) Reward() *big.Int {
	return new(big.Int).Sub(c.Saturation, c.Premine)
}

// MinerConfig holds the escrow parameters. Field order matches the escrow constructor.
type MinerConfig struct {
	HoursPerPeriod           uint64
	MiningCoefficient        uint64
	LockedPeriodsCoefficient uint64
	MaxAwardedPeriods        uint64
	MinReleasePeriods        uint64
	MinAllowedLocked         *big.Int
	MaxAllowedLocked         *big.Int
}

// DefaultMinerConfig returns the production escrow parameters.
func DefaultMinerConfig() MinerConfig {
	return MinerConfig{
		HoursPerPeriod:           24,
		MiningCoefficient:        2e7,
		LockedPeriodsCoefficient: 365,
		MaxAwardedPeriods:        365,
		MinReleasePeriods:        30, // 720 hours
		MinAllowedLocked:         big.NewInt(1e6),
		MaxAllowedLocked:         new(big.Int).Mul(big.NewInt(1e7), M),
	}
}

// DevMinerConfig shortens periods so that transient chains can move through
// several of them quickly.
func DevMinerConfig() MinerConfig {
	cfg := DefaultMinerConfig()
	cfg.HoursPerPeriod = 1
	cfg.MinReleasePeriods = 1
	return cfg
}

// SecondsPerPeriod returns the period length in seconds.
func (c MinerConfig) SecondsPerPeriod() uint64 {
	return c.HoursPerPeriod * 3600
}

// Coefficients returns the escrow constructor arguments following the token address.
func (c MinerConfig) Coefficients() []*big.Int {
	return []*big.Int{
		new(big.Int).SetUint64(c.HoursPerPeriod),
		new(big.Int).SetUint64(c.MiningCoefficient),
		new(big.Int).SetUint64(c.LockedPeriodsCoefficient),
		new(big.Int).SetUint64(c.MaxAwardedPeriods),
		new(big.Int).SetUint64(c.MinReleasePeriods),
		new(big.Int).Set(c.MinAllowedLocked),
		new(big.Int).Set(c.MaxAllowedLocked),
	}
}

// Period returns the escrow period containing the unix timestamp.
func (c MinerConfig) Period(timestamp uint64) uint64 {
	return timestamp / c.SecondsPerPeriod()
}
