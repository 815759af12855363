// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain connects to an ethereum network. The returned Blockchain is
// owned by the caller and must be closed.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"

	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/nkms"
)

var logger = log.WithContext("pkg", "chain")

// ErrNotTester is returned by operations only the in-process chain supports.
var ErrNotTester = errors.New("only supported on the tester network")

// RopstenChainID is the chain id of the ropsten testnet.
var RopstenChainID = big.NewInt(3)

// DefaultTesterAccounts is the number of funded accounts of the tester network.
const DefaultTesterAccounts = 10

// Config selects the network to connect to.
type Config struct {
	Network nkms.Network
	// RPC is the endpoint of RPC networks. The network default is used when empty.
	RPC string
	// Accounts is the number of funded dev accounts of the tester network.
	Accounts int
	// Timeout overrides the network default receipt timeout.
	Timeout time.Duration
}

// Blockchain is a connection to a network.
type Blockchain struct {
	network nkms.Network
	backend bind.Backend
	chainID *big.Int
	timeout time.Duration
	keys    []*ecdsa.PrivateKey
	closer  func() error
	sim     *simulated.Backend
}

// Connect dials cfg.Network. For the tester network an in-process chain is
// created with funded dev accounts.
func Connect(ctx context.Context, cfg Config) (*Blockchain, error) {
	if _, err := nkms.ParseNetwork(string(cfg.Network)); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = cfg.Network.DefaultTimeout()
	}

	var (
		bc  *Blockchain
		err error
	)
	if cfg.Network == nkms.Tester {
		bc, err = newTester(cfg.Accounts)
	} else {
		bc, err = dial(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	bc.network = cfg.Network
	bc.timeout = timeout

	logger.Info("connected", "network", bc.network, "chainID", bc.chainID)
	return bc, nil
}

func dial(ctx context.Context, cfg Config) (*Blockchain, error) {
	url := cfg.RPC
	if url == "" {
		url = cfg.Network.DefaultRPC()
	}
	if url == "" {
		return nil, fmt.Errorf("network %s requires an rpc url", cfg.Network)
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("query chain id of %s: %w", url, err)
	}

	var expected *big.Int
	switch cfg.Network {
	case nkms.Mainnet:
		expected = params.MainnetChainConfig.ChainID
	case nkms.Ropsten:
		expected = RopstenChainID
	}
	if expected != nil && expected.Cmp(chainID) != 0 {
		client.Close()
		return nil, fmt.Errorf("%s expects chain id %v, %s serves %v", cfg.Network, expected, url, chainID)
	}

	return &Blockchain{
		backend: client,
		chainID: chainID,
		closer: func() error {
			client.Close()
			return nil
		},
	}, nil
}

// TesterKey returns the key of the i-th dev account of the tester network.
func TesterKey(i int) *ecdsa.PrivateKey {
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(fmt.Sprintf("nkms tester account %d", i))))
	if err != nil {
		panic(err)
	}
	return key
}

func newTester(accounts int) (*Blockchain, error) {
	if accounts <= 0 {
		accounts = DefaultTesterAccounts
	}
	// 1M ether each
	balance := new(big.Int).Mul(big.NewInt(1e6), big.NewInt(params.Ether))

	alloc := make(types.GenesisAlloc, accounts)
	keys := make([]*ecdsa.PrivateKey, 0, accounts)
	for i := range accounts {
		key := TesterKey(i)
		keys = append(keys, key)
		alloc[crypto.PubkeyToAddress(key.PublicKey)] = types.Account{Balance: balance}
	}

	sim := simulated.NewBackend(alloc)
	client := sim.Client()
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		_ = sim.Close()
		return nil, err
	}
	return &Blockchain{
		backend: &autoCommit{Client: client, sim: sim},
		chainID: chainID,
		keys:    keys,
		closer:  sim.Close,
		sim:     sim,
	}, nil
}

// autoCommit seals a block after every transaction so that receipts are
// available immediately.
type autoCommit struct {
	simulated.Client
	sim *simulated.Backend
}

func (a *autoCommit) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := a.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	a.sim.Commit()
	return nil
}

// Backend returns the chain access used by contract bindings.
func (b *Blockchain) Backend() bind.Backend {
	return b.backend
}

func (b *Blockchain) Network() nkms.Network {
	return b.network
}

func (b *Blockchain) ChainID() *big.Int {
	return new(big.Int).Set(b.chainID)
}

// Keys returns the funded dev accounts. It is empty for RPC networks.
func (b *Blockchain) Keys() []*ecdsa.PrivateKey {
	return b.keys
}

// Accounts returns the addresses of Keys.
func (b *Blockchain) Accounts() []common.Address {
	addrs := make([]common.Address, 0, len(b.keys))
	for _, k := range b.keys {
		addrs = append(addrs, crypto.PubkeyToAddress(k.PublicKey))
	}
	return addrs
}

// Timeout returns the receipt timeout of the network.
func (b *Blockchain) Timeout() time.Duration {
	return b.timeout
}

// WaitForReceipt waits for a transaction at most the network timeout.
func (b *Blockchain) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return bind.WaitForReceipt(ctx, b.backend, hash)
}

// WaitTime moves the chain clock forward by d and seals a block.
func (b *Blockchain) WaitTime(d time.Duration) error {
	if b.sim == nil {
		return ErrNotTester
	}
	// the adjusted block is timed from the head's parent, which must not be genesis
	b.sim.Commit()
	b.sim.Commit()
	if err := b.sim.AdjustTime(d); err != nil {
		return err
	}
	logger.Debug("chain time adjusted", "by", d)
	return nil
}

// Close releases the connection.
func (b *Blockchain) Close() error {
	if b.closer == nil {
		return nil
	}
	err := b.closer()
	b.closer = nil
	return err
}
