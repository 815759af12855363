// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bind

import (
	"fmt"
	"math/big"
	"strings"
)

type MethodBuilder struct {
	contract *Contract
	method   string
	args     []any
	value    *big.Int
}

// WithValue attaches wei to the invocation. Only payable methods accept it.
func (b *MethodBuilder) WithValue(value *big.Int) *MethodBuilder {
	b.value = value
	return b
}

// Call returns a builder for a read-only invocation.
func (b *MethodBuilder) Call() *CallBuilder {
	return &CallBuilder{
		op: b,
	}
}

// Send returns a builder for a transaction.
func (b *MethodBuilder) Send() *SendBuilder {
	return &SendBuilder{
		op: b,
	}
}

// Name returns the method name.
func (b *MethodBuilder) Name() string {
	return b.method
}

// Contract returns the contract the method belongs to.
func (b *MethodBuilder) Contract() *Contract {
	return b.contract
}

// Pack returns the call data: the method selector followed by the encoded arguments.
func (b *MethodBuilder) Pack() ([]byte, error) {
	if _, ok := b.contract.abi.Methods[b.method]; !ok {
		return nil, fmt.Errorf("method not found: %s", b.method)
	}
	data, err := b.contract.abi.Pack(b.method, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method (%s): %w", b.method, err)
	}
	return data, nil
}

func (b *MethodBuilder) String() string {
	builder := strings.Builder{}
	builder.WriteString("contract=")
	builder.WriteString(b.contract.addr.Hex())
	builder.WriteString(", method=")
	builder.WriteString(b.method)
	if b.value != nil && b.value.Sign() != 0 {
		builder.WriteString(", value=")
		builder.WriteString(b.value.String())
	}
	if len(b.args) > 0 {
		builder.WriteString(", args=[")
		for i, arg := range b.args {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString(fmt.Sprintf("%v", arg))
		}
		builder.WriteString("]")
	}
	return builder.String()
}
