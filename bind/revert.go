// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bind

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrReverted is returned when the EVM rolled back a call or transaction.
var ErrReverted = errors.New("execution reverted")

// RevertError carries the revert payload returned by the node. It matches
// ErrReverted with errors.Is.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrReverted.Error()
	}
	return ErrReverted.Error() + ": " + e.Reason
}

func (e *RevertError) Unwrap() error {
	return ErrReverted
}

// UnpackRevert decodes an Error(string) or Panic(uint256) revert payload.
func UnpackRevert(data []byte) (string, error) {
	return abi.UnpackRevert(data)
}

// decodeRevert turns a node error carrying revert data into a RevertError.
// Other errors are returned untouched.
func decodeRevert(err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}

	var raw []byte
	switch data := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(data)
		if decodeErr != nil {
			return err
		}
		raw = decoded
	case []byte:
		raw = data
	default:
		return err
	}

	reason, unpackErr := UnpackRevert(raw)
	if unpackErr != nil {
		return &RevertError{Data: raw}
	}
	return &RevertError{Reason: reason, Data: raw}
}
