// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bind talks to contracts through their ABI. A single Contract type
// serves every contract: calls and transactions are assembled with builders.
//
//	contract.Method("balanceOf", addr).Call().ExecuteInto(ctx, &balance)
//	contract.Method("approve", spender, amount).Send().WithSigner(signer).Receipt(ctx)
package bind

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/metrics"
)

var (
	logger = log.WithContext("pkg", "bind")

	metricCalls        = metrics.LazyLoadCounterVec("contract_calls_count", []string{"method", "status"})
	metricCallDuration = metrics.LazyLoadHistogram("contract_call_duration_ms", metrics.BucketCalls)
	metricTxs          = metrics.LazyLoadCounterVec("contract_txs_count", []string{"method", "status"})
	metricReceiptWait  = metrics.LazyLoadHistogram("receipt_wait_duration_ms", metrics.BucketReceipts)
)

// ReceiptReader fetches receipts of mined transactions.
type ReceiptReader interface {
	// TransactionReceipt returns ethereum.NotFound while the transaction is pending.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Backend is the chain access needed to deploy, call and transact. It is
// satisfied by ethclient.Client and by the simulated backend client.
type Backend interface {
	ethereum.ContractCaller
	ethereum.TransactionSender
	ethereum.GasPricer
	ethereum.GasEstimator
	ReceiptReader

	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}
