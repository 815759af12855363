// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bind

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxOptions to override default transaction parameters when building or sending a transaction.
type TxOptions struct {
	// Gas sets the gas limit for the transaction.
	Gas *uint64
	// GasPrice sets the price paid per gas unit.
	GasPrice *big.Int
	// Nonce sets the transaction nonce.
	Nonce *uint64
}

// SendBuilder performs write operations.
type SendBuilder struct {
	op     *MethodBuilder
	signer Signer
	opts   *TxOptions
}

// WithSigner sets the signer for the transaction.
func (b *SendBuilder) WithSigner(signer Signer) *SendBuilder {
	b.signer = signer
	return b
}

// WithOptions sets the transaction options.
func (b *SendBuilder) WithOptions(opts *TxOptions) *SendBuilder {
	b.opts = opts
	return b
}

// IssueTx sends the transaction without waiting for receipt.
func (b *SendBuilder) IssueTx(ctx context.Context) (*types.Transaction, error) {
	data, err := b.op.Pack()
	if err != nil {
		return nil, err
	}
	to := b.op.contract.addr
	trx, err := issue(ctx, b.op.contract.backend, b.signer, &to, b.op.value, data, b.opts)
	if err != nil {
		metricTxs().AddWithLabel(1, map[string]string{"method": b.op.method, "status": "failed"})
		return nil, fmt.Errorf("send %s: %w", b.op.method, err)
	}
	logger.Debug("transaction sent", "method", b.op.method, "tx", trx.Hash(), "nonce", trx.Nonce())
	return trx, nil
}

// Receipt sends the transaction and waits for it to be mined. A reverted
// transaction yields its receipt along with ErrReverted.
func (b *SendBuilder) Receipt(ctx context.Context) (*types.Receipt, error) {
	trx, err := b.IssueTx(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := WaitForReceipt(ctx, b.op.contract.backend, trx.Hash())
	if err != nil {
		metricTxs().AddWithLabel(1, map[string]string{"method": b.op.method, "status": "failed"})
		return receipt, fmt.Errorf("%s (%s): %w", b.op.method, trx.Hash().Hex(), err)
	}
	metricTxs().AddWithLabel(1, map[string]string{"method": b.op.method, "status": "success"})
	return receipt, nil
}

// issue fills in the missing transaction parameters from the backend, signs
// and sends. A nil to creates a contract.
func issue(
	ctx context.Context,
	backend Backend,
	signer Signer,
	to *common.Address,
	value *big.Int,
	data []byte,
	opts *TxOptions,
) (*types.Transaction, error) {
	if signer == nil {
		return nil, errors.New("signer not set")
	}
	if opts == nil {
		opts = &TxOptions{}
	}
	if value == nil {
		value = new(big.Int)
	}
	from := signer.Address()

	nonce := opts.Nonce
	if nonce == nil {
		n, err := backend.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("failed to get nonce: %w", err)
		}
		nonce = &n
	}
	gasPrice := opts.GasPrice
	if gasPrice == nil {
		p, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		gasPrice = p
	}
	gas := opts.Gas
	if gas == nil {
		g, err := backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", decodeRevert(err))
		}
		gas = &g
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	trx := types.NewTx(&types.LegacyTx{
		Nonce:    *nonce,
		GasPrice: gasPrice,
		Gas:      *gas,
		To:       to,
		Value:    value,
		Data:     data,
	})
	signed, err := signer.SignTx(trx, chainID)
	if err != nil {
		return nil, err
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, decodeRevert(err)
	}
	return signed, nil
}
