// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nkms

import (
	"fmt"
	"time"
)

// Network identifies the chain the client talks to.
type Network string

const (
	// Mainnet connects to the public ethereum mainnet.
	Mainnet Network = "mainnet"
	// Ropsten connects to the public ropsten testnet.
	Ropsten Network = "ropsten"
	// Tester is an ephemeral in-process chain.
	Tester Network = "tester"
	// TestRPC is an ephemeral chain reached over RPC.
	TestRPC Network = "testrpc"
	// Temp is a local private chain whose data is removed on shutdown.
	Temp Network = "temp"
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(s); n {
	case Mainnet, Ropsten, Tester, TestRPC, Temp:
		return n, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// IsTest reports whether the network runs in-process.
func (n Network) IsTest() bool {
	return n == Tester
}

// IsTransient reports whether the chain state is discarded on shutdown.
func (n Network) IsTransient() bool {
	switch n {
	case Tester, TestRPC, Temp:
		return true
	}
	return false
}

// IsPublic reports whether the network is a public ethereum network.
func (n Network) IsPublic() bool {
	return n == Mainnet || n == Ropsten
}

// DefaultTimeout is how long to wait for a transaction receipt on the network.
func (n Network) DefaultTimeout() time.Duration {
	switch n {
	case Tester:
		return 10 * time.Second
	case TestRPC, Temp:
		return 60 * time.Second
	default:
		return 180 * time.Second
	}
}

// DefaultRPC returns the conventional endpoint of the network, if any.
func (n Network) DefaultRPC() string {
	switch n {
	case Mainnet, Ropsten, Temp:
		return "http://localhost:8545"
	case TestRPC:
		return "http://localhost:8546"
	}
	return ""
}
