// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package testchain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

// revertError mirrors the JSON-RPC error returned by a node for a reverted call.
type revertError struct {
	reason string
	data   []byte
}

func newRevertError(reason string) *revertError {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(reason)
	return &revertError{
		reason: reason,
		data:   append(append([]byte{}, errorSelector...), packed...),
	}
}

func (e *revertError) Error() string {
	return "execution reverted: " + e.reason
}

func (e *revertError) ErrorCode() int {
	return 3
}

func (e *revertError) ErrorData() any {
	return hexutil.Encode(e.data)
}

// revert aborts the current message with reason.
func revert(format string, args ...any) error {
	return newRevertError(fmt.Sprintf(format, args...))
}

// asRevert turns a model error into a revert error.
func asRevert(err error) error {
	var re *revertError
	if errors.As(err, &re) {
		return re
	}
	return newRevertError(err.Error())
}
