// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bind

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// CallBuilder performs read operations.
type CallBuilder struct {
	op    *MethodBuilder
	from  common.Address
	block *big.Int
}

// From sets the caller seen by the contract.
func (b *CallBuilder) From(from common.Address) *CallBuilder {
	b.from = from
	return b
}

// AtBlock queries the state at the given block. Nil means the latest block.
func (b *CallBuilder) AtBlock(number *big.Int) *CallBuilder {
	b.block = number
	return b
}

// Raw performs the call and returns the undecoded result.
func (b *CallBuilder) Raw(ctx context.Context) ([]byte, error) {
	data, err := b.op.Pack()
	if err != nil {
		return nil, err
	}
	to := b.op.contract.addr
	msg := ethereum.CallMsg{
		From:  b.from,
		To:    &to,
		Value: b.op.value,
		Data:  data,
	}

	start := time.Now()
	out, err := b.op.contract.backend.CallContract(ctx, msg, b.block)
	metricCallDuration().Observe(time.Since(start).Milliseconds())
	if err != nil {
		metricCalls().AddWithLabel(1, map[string]string{"method": b.op.method, "status": "failed"})
		return nil, fmt.Errorf("call %s: %w", b.op.method, decodeRevert(err))
	}
	metricCalls().AddWithLabel(1, map[string]string{"method": b.op.method, "status": "success"})
	return out, nil
}

// Execute performs the call and returns the decoded outputs.
func (b *CallBuilder) Execute(ctx context.Context) ([]any, error) {
	out, err := b.Raw(ctx)
	if err != nil {
		return nil, err
	}
	values, err := b.op.contract.abi.Unpack(b.op.method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", b.op.method, err)
	}
	return values, nil
}

// ExecuteInto performs the call and unpacks the outputs into result. A single
// output is unpacked into a pointer of its Go type, several outputs into a
// struct whose fields are named after them.
func (b *CallBuilder) ExecuteInto(ctx context.Context, result any) error {
	out, err := b.Raw(ctx)
	if err != nil {
		return err
	}
	if err := b.op.contract.abi.UnpackIntoInterface(result, b.op.method, out); err != nil {
		return fmt.Errorf("unpack %s: %w", b.op.method, err)
	}
	return nil
}
