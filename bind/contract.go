// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bind

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type Contract struct {
	backend Backend
	abi     *abi.ABI
	addr    common.Address
}

// NewContract creates a new contract instance with the given backend, ABI data and address.
func NewContract(backend Backend, abiData []byte, address common.Address) (*Contract, error) {
	contractABI, err := abi.JSON(bytes.NewReader(abiData))
	if err != nil {
		return nil, err
	}
	return NewContractWithABI(backend, &contractABI, address)
}

// NewContractWithABI is like NewContract for an already parsed ABI.
func NewContractWithABI(backend Backend, contractABI *abi.ABI, address common.Address) (*Contract, error) {
	if address == (common.Address{}) {
		return nil, errors.New("empty contract address")
	}
	return &Contract{
		backend: backend,
		abi:     contractABI,
		addr:    address,
	}, nil
}

// Deploy sends a contract creation transaction, waits until it is mined and
// returns the created contract with its receipt. Constructor arguments are
// appended to the bytecode.
func Deploy(
	ctx context.Context,
	backend Backend,
	signer Signer,
	contractABI *abi.ABI,
	bytecode []byte,
	args ...any,
) (*Contract, *types.Receipt, error) {
	input, err := contractABI.Pack("", args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack constructor: %w", err)
	}
	data := append(slices.Clone(bytecode), input...)

	trx, err := issue(ctx, backend, signer, nil, nil, data, nil)
	if err != nil {
		metricTxs().AddWithLabel(1, map[string]string{"method": "deploy", "status": "failed"})
		return nil, nil, fmt.Errorf("unable to deploy contract: %w", err)
	}
	receipt, err := WaitForReceipt(ctx, backend, trx.Hash())
	if err != nil {
		metricTxs().AddWithLabel(1, map[string]string{"method": "deploy", "status": "failed"})
		return nil, receipt, err
	}
	metricTxs().AddWithLabel(1, map[string]string{"method": "deploy", "status": "success"})

	if receipt.ContractAddress == (common.Address{}) {
		return nil, receipt, fmt.Errorf("no contract created by transaction %s", trx.Hash())
	}
	logger.Debug("contract deployed", "address", receipt.ContractAddress, "tx", trx.Hash(), "gas", receipt.GasUsed)

	contract, err := NewContractWithABI(backend, contractABI, receipt.ContractAddress)
	if err != nil {
		return nil, receipt, err
	}
	return contract, receipt, nil
}

// Method starts building an invocation of the named method.
func (c *Contract) Method(method string, args ...any) *MethodBuilder {
	return &MethodBuilder{
		contract: c,
		method:   method,
		args:     args,
	}
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.addr
}

// ABI returns the contract ABI.
func (c *Contract) ABI() *abi.ABI {
	return c.abi
}

// Backend returns the underlying chain backend.
func (c *Contract) Backend() Backend {
	return c.backend
}
