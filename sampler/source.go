// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sampler

import (
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand/v2"
)

// Source produces uniform random integers.
type Source interface {
	// Int returns a uniform random integer in [0, max). max must be positive.
	Int(max *big.Int) (*big.Int, error)
}

type cryptoSource struct{}

// CryptoSource returns the operating system's cryptographically strong source.
func CryptoSource() Source {
	return cryptoSource{}
}

func (cryptoSource) Int(max *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, max)
}

type seededSource struct {
	rnd *mrand.Rand
}

// NewSeededSource returns a deterministic source. It is only meant for tests and
// offline simulation, never for selecting live participants.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rnd: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //#nosec G404
}

func (s *seededSource) Int(max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, errors.New("max must be positive")
	}
	if max.IsUint64() {
		return new(big.Int).SetUint64(s.rnd.Uint64N(max.Uint64())), nil
	}
	// rejection sampling over the byte length of max
	buf := make([]byte, (max.BitLen()+7)/8)
	mask := byte(0xff >> (uint(len(buf)*8 - max.BitLen())))
	n := new(big.Int)
	for {
		for i := range buf {
			buf[i] = byte(s.rnd.Uint32())
		}
		buf[0] &= mask
		if n.SetBytes(buf).Cmp(max) < 0 {
			return n, nil
		}
	}
}
