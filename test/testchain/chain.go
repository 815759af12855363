// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testchain is an in-process chain backend for tests. Contracts are
// native models of the token, escrow and policy manager, reached through their
// real ABI encoding. Every transaction is mined into its own block at once.
package testchain

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nucypher/nkms-eth/contracts"
)

const (
	// CallGas is the gas estimated for every contract call.
	CallGas = 100_000
	// CreateGas is the gas estimated for every contract creation.
	CreateGas = 1_000_000
)

var bytecodePrefix = []byte("testchain:")

type constructor func(creator common.Address, args []any) (model, error)

var constructors = map[string]constructor{
	contracts.TokenName:         newToken,
	contracts.EscrowName:        newEscrow,
	contracts.PolicyManagerName: newPolicyManager,
}

// Bytecode returns the creation code the fake chain recognizes for the named contract.
func Bytecode(name string) []byte {
	return append(append(append([]byte{}, bytecodePrefix...), name...), ';')
}

// Artifacts returns deployable artifacts of all contracts for the fake chain.
func Artifacts() map[string]*contracts.Artifact {
	all := make(map[string]*contracts.Artifact, len(contracts.Names))
	for _, name := range contracts.Names {
		a, err := contracts.NewArtifact(name, Bytecode(name))
		if err != nil {
			panic(err)
		}
		all[name] = a
	}
	return all
}

// Chain is a fake chain backend. It is safe for concurrent use.
type Chain struct {
	mu       sync.Mutex
	chainID  *big.Int
	signer   types.Signer
	number   uint64
	state    *state
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	accounts []*ecdsa.PrivateKey
}

// New creates a chain whose accounts each hold balance wei.
func New(accounts int, balance *big.Int) *Chain {
	chainID := big.NewInt(1337)
	// start on a day boundary so that short tests stay within one period
	now := uint64(time.Now().Unix())
	c := &Chain{
		chainID:  chainID,
		signer:   types.LatestSignerForChainID(chainID),
		state:    newState(now - now%86400),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
	}
	for i := range accounts {
		key, err := crypto.ToECDSA(crypto.Keccak256([]byte(fmt.Sprintf("testchain account %d", i))))
		if err != nil {
			panic(err)
		}
		c.accounts = append(c.accounts, key)
		c.state.balances[crypto.PubkeyToAddress(key.PublicKey)] = new(big.Int).Set(balance)
	}
	return c
}

// Keys returns the private keys of the funded accounts.
func (c *Chain) Keys() []*ecdsa.PrivateKey {
	return c.accounts
}

// Key returns the private key of the i-th account.
func (c *Chain) Key(i int) *ecdsa.PrivateKey {
	return c.accounts[i]
}

// Address returns the address of the i-th account.
func (c *Chain) Address(i int) common.Address {
	return crypto.PubkeyToAddress(c.accounts[i].PublicKey)
}

// AdjustTime moves the chain clock forward.
func (c *Chain) AdjustTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.timestamp += uint64(d / time.Second)
}

// Timestamp returns the chain clock in unix seconds.
func (c *Chain) Timestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.timestamp
}

// BlockNumber returns the number of the latest block.
func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.number, nil
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int), nil
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.balance(account), nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// CallContract runs msg against the latest state without persisting anything.
// Historical blocks are not kept; the latest state is used for any block.
func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.To == nil {
		return nil, errors.New("call without recipient")
	}
	st := c.state.clone()
	if _, ok := st.contracts[*msg.To]; !ok {
		return nil, nil
	}
	out, err := c.execute(st, msg.From, msg.To, msg.Value, msg.Data, 0)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Chain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.execute(c.state.clone(), msg.From, msg.To, msg.Value, msg.Data, c.nonces[msg.From]); err != nil {
		return 0, err
	}
	if msg.To == nil {
		return CreateGas, nil
	}
	return CallGas, nil
}

// SendTransaction mines tx into a new block. Failed executions are mined too,
// with a failed receipt and no state change.
func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if _, ok := c.receipts[tx.Hash()]; ok {
		return errors.New("already known")
	}
	if nonce := c.nonces[from]; tx.Nonce() != nonce {
		return fmt.Errorf("invalid nonce: have %d, want %d", tx.Nonce(), nonce)
	}
	if c.state.balance(from).Cmp(tx.Value()) < 0 {
		return errors.New("insufficient funds for transfer")
	}

	c.number++
	c.state.timestamp++

	st := c.state.clone()
	_, execErr := c.execute(st, from, tx.To(), tx.Value(), tx.Data(), tx.Nonce())

	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		GasUsed:           min(tx.Gas(), CallGas),
		CumulativeGasUsed: min(tx.Gas(), CallGas),
		BlockNumber:       new(big.Int).SetUint64(c.number),
		Logs:              []*types.Log{},
	}
	if execErr != nil {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		c.state = st
		if tx.To() == nil {
			receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
		}
	}
	c.nonces[from]++
	c.receipts[tx.Hash()] = receipt
	return nil
}

// execute applies a message to st. A nil to creates a contract at the address
// derived from the sender and nonce.
func (c *Chain) execute(st *state, from common.Address, to *common.Address, value *big.Int, data []byte, nonce uint64) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	if to == nil {
		return nil, c.create(st, from, value, data, nonce)
	}

	if err := st.transfer(from, *to, value); err != nil {
		return nil, err
	}
	m, ok := st.contracts[*to]
	if !ok {
		// plain value transfer
		return nil, nil
	}
	contractABI := contracts.MustABI(m.name())
	if len(data) < 4 {
		return nil, revert("missing method selector")
	}
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, revert("unknown method selector %x", data[:4])
	}
	if value.Sign() > 0 && !method.IsPayable() {
		return nil, revert("method %s is not payable", method.Name)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, revert("bad arguments for %s: %v", method.Name, err)
	}

	out, err := m.call(&env{st: st, self: *to, from: from, value: value}, method.Name, args)
	if err != nil {
		return nil, asRevert(err)
	}
	if len(method.Outputs) == 0 {
		return nil, nil
	}
	return method.Outputs.Pack(out...)
}

func (c *Chain) create(st *state, from common.Address, value *big.Int, data []byte, nonce uint64) error {
	if !bytes.HasPrefix(data, bytecodePrefix) {
		return revert("unknown bytecode")
	}
	end := bytes.IndexByte(data, ';')
	if end < 0 {
		return revert("unknown bytecode")
	}
	name := string(data[len(bytecodePrefix):end])
	newModel, ok := constructors[name]
	if !ok {
		return revert("unknown contract %s", name)
	}
	args, err := constructorArgs(contracts.MustABI(name), data[end+1:])
	if err != nil {
		return revert("bad constructor arguments: %v", err)
	}
	m, err := newModel(from, args)
	if err != nil {
		return asRevert(err)
	}
	addr := crypto.CreateAddress(from, nonce)
	st.contracts[addr] = m
	return st.transfer(from, addr, value)
}

func constructorArgs(contractABI *abi.ABI, input []byte) ([]any, error) {
	return contractABI.Constructor.Inputs.Unpack(input)
}
