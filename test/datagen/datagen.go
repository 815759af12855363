// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package datagen produces random values for tests.
package datagen

import (
	"crypto/rand"
	mathrand "math/rand/v2"

	"github.com/ethereum/go-ethereum/common"
)

func RandomHash() (h common.Hash) {
	rand.Read(h[:])
	return
}

func RandomAddress() (addr common.Address) {
	rand.Read(addr[:])
	return
}

func RandomPolicyID() [32]byte {
	return RandomHash()
}

func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}
