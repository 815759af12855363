// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"flag"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/registrar"
)

var globalFlags = []cli.Flag{
	configFlag,
	networkFlag,
	rpcFlag,
	dataDirFlag,
	keyFileFlag,
	verbosityFlag,
	jsonLogsFlag,
	metricsAddrFlag,
	adminAddrFlag,
}

// commandContext returns the context of a command run with the given global arguments.
func commandContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	global := flag.NewFlagSet("nkms", flag.ContinueOnError)
	for _, f := range globalFlags {
		f.Apply(global)
	}
	require.NoError(t, global.Parse(args))
	parent := cli.NewContext(nil, global, nil)
	return cli.NewContext(nil, flag.NewFlagSet("cmd", flag.ContinueOnError), parent)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nkms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: temp\nrpc: http://localhost:1\nverbosity: 5\n"), 0o600))

	cfg, err := loadConfig(commandContext(t, "--config", path, "--rpc", "http://localhost:2", "--json-logs"))
	require.NoError(t, err)
	assert.Equal(t, "temp", cfg.Network)
	assert.Equal(t, "http://localhost:2", cfg.RPC)
	assert.Equal(t, 5, cfg.Verbosity)
	assert.True(t, cfg.JSONLogs)

	cfg, err = loadConfig(commandContext(t))
	require.NoError(t, err)
	assert.Equal(t, string(nkms.Tester), cfg.Network)

	_, err = loadConfig(commandContext(t, "--network", "kovan"))
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "miner.key")

	key, err := loadKey(path)
	require.NoError(t, err)
	again, err := loadKey(path)
	require.NoError(t, err)
	assert.Equal(t, crypto.FromECDSA(key), crypto.FromECDSA(again))

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	_, err = loadKey(path)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	v, err := parseAmount("1000000")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e6), v)
	for _, bad := range []string{"", "-1", "1e6", "abc"} {
		_, err := parseAmount(bad)
		assert.Error(t, err, bad)
	}

	addr, err := parseAddress("0x000000000000000000000000000000000000000a")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x0a"), addr)
	_, err = parseAddress("0x0a")
	assert.Error(t, err)

	id, err := parsePolicyID("0x" + common.Bytes2Hex(common.LeftPadBytes([]byte{1}, 32)))
	require.NoError(t, err)
	assert.Equal(t, byte(1), id[31])
	_, err = parsePolicyID("0x01")
	assert.Error(t, err)
	_, err = parsePolicyID("zz")
	assert.Error(t, err)

	a, err := parsePolicyID("")
	require.NoError(t, err)
	b, err := parsePolicyID("")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewEnv_Tester(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "node.key")
	e, err := newEnv(commandContext(t, "--network", "tester", "--key-file", keyFile, "--verbosity", "0"))
	require.NoError(t, err)
	defer e.Close()

	key, err := crypto.LoadECDSA(keyFile)
	require.NoError(t, err)
	signer, err := e.requireSigner()
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())

	_, err = e.escrow()
	assert.ErrorIs(t, err, registrar.ErrUnknownContract)
	_, err = e.miner()
	assert.ErrorIs(t, err, registrar.ErrUnknownContract)
}
