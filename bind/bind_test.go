// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bind

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/contracts"
	"github.com/nucypher/nkms-eth/test/testchain"
)

func deployToken(t *testing.T) (*testchain.Chain, *Contract) {
	chain := testchain.New(3, big.NewInt(1e18))
	token, receipt, err := Deploy(
		context.Background(),
		chain,
		NewSigner(chain.Key(0)),
		contracts.MustABI(contracts.TokenName),
		testchain.Bytecode(contracts.TokenName),
		big.NewInt(1000),
		big.NewInt(5000),
	)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, crypto.CreateAddress(chain.Address(0), 0), token.Address())
	return chain, token
}

func TestDeployAndCall(t *testing.T) {
	ctx := context.Background()
	chain, token := deployToken(t)

	var supply *big.Int
	require.NoError(t, token.Method("totalSupply").Call().ExecuteInto(ctx, &supply))
	assert.Equal(t, big.NewInt(1000), supply)

	out, err := token.Method("balanceOf", chain.Address(0)).Call().Execute(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, big.NewInt(1000), out[0])
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	chain, token := deployToken(t)

	receipt, err := token.Method("transfer", chain.Address(1), big.NewInt(10)).
		Send().
		WithSigner(NewSigner(chain.Key(0))).
		Receipt(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	var balance *big.Int
	require.NoError(t, token.Method("balanceOf", chain.Address(1)).Call().ExecuteInto(ctx, &balance))
	assert.Equal(t, big.NewInt(10), balance)

	nonce, err := chain.PendingNonceAt(ctx, chain.Address(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nonce)
}

func TestSend_Revert(t *testing.T) {
	ctx := context.Background()
	chain, token := deployToken(t)
	poor := NewSigner(chain.Key(1))

	// caught by gas estimation
	_, err := token.Method("transfer", chain.Address(2), big.NewInt(1)).Send().WithSigner(poor).Receipt(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReverted)
	var revertErr *RevertError
	require.True(t, errors.As(err, &revertErr))
	assert.Equal(t, "transfer amount exceeds balance", revertErr.Reason)

	// mined as failed when estimation is skipped
	gas := uint64(testchain.CallGas)
	receipt, err := token.Method("transfer", chain.Address(2), big.NewInt(1)).
		Send().
		WithSigner(poor).
		WithOptions(&TxOptions{Gas: &gas}).
		Receipt(ctx)
	assert.ErrorIs(t, err, ErrReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestCall_Revert(t *testing.T) {
	ctx := context.Background()
	chain, token := deployToken(t)

	_, err := token.Method("transfer", chain.Address(2), big.NewInt(1)).Call().From(chain.Address(1)).Execute(ctx)
	assert.ErrorIs(t, err, ErrReverted)
	assert.Contains(t, err.Error(), "transfer amount exceeds balance")

	// the same call succeeds for the holder and changes nothing
	out, err := token.Method("transfer", chain.Address(2), big.NewInt(1)).Call().From(chain.Address(0)).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{true}, out)

	var balance *big.Int
	require.NoError(t, token.Method("balanceOf", chain.Address(2)).Call().AtBlock(nil).ExecuteInto(ctx, &balance))
	assert.Zero(t, balance.Sign())
}

func TestMethodErrors(t *testing.T) {
	ctx := context.Background()
	chain, token := deployToken(t)

	_, err := token.Method("nope").Call().Execute(ctx)
	assert.ErrorContains(t, err, "method not found: nope")

	_, err = token.Method("balanceOf").Call().Execute(ctx)
	assert.ErrorContains(t, err, "failed to pack method (balanceOf)")

	_, err = token.Method("approve", chain.Address(1), big.NewInt(1)).Send().IssueTx(ctx)
	assert.ErrorContains(t, err, "signer not set")

	_, err = NewContract(chain, []byte("[]"), common.Address{})
	assert.Error(t, err)
	_, err = NewContract(chain, []byte("{"), chain.Address(0))
	assert.Error(t, err)
}

func TestMethodBuilder_String(t *testing.T) {
	_, token := deployToken(t)
	s := token.Method("transfer", common.Address{1}, big.NewInt(5)).WithValue(big.NewInt(7)).String()
	assert.Contains(t, s, "method=transfer")
	assert.Contains(t, s, "value=7")
	assert.Contains(t, s, "args=[0x0100000000000000000000000000000000000000, 5]")
}

func TestWaitForReceipt_Timeout(t *testing.T) {
	interval := ReceiptPollInterval
	ReceiptPollInterval = 10 * time.Millisecond
	defer func() { ReceiptPollInterval = interval }()

	chain := testchain.New(1, big.NewInt(1))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := WaitForReceipt(ctx, chain, common.Hash{1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnpackRevert(t *testing.T) {
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack("nope")
	require.NoError(t, err)
	data := append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...)

	reason, err := UnpackRevert(data)
	require.NoError(t, err)
	assert.Equal(t, "nope", reason)

	_, err = UnpackRevert([]byte{1, 2, 3})
	assert.Error(t, err)

	assert.Equal(t, "execution reverted", (&RevertError{}).Error())
	assert.Equal(t, "execution reverted: nope", (&RevertError{Reason: "nope"}).Error())
}

func TestPrivateKeySigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewSigner(key)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())

	trx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1), To: &common.Address{}})
	signed, err := signer.SignTx(trx, big.NewInt(5))
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(5)), signed)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)
}
