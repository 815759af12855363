// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/sampler"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sampler.DefaultOptions(), cfg.SamplerOptions())
	assert.Equal(t, nkms.Tester, cfg.ChainConfig().Network)
	assert.True(t, strings.HasSuffix(cfg.DataDir, ".nkms"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nkms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: testrpc
rpc: http://localhost:9545
timeout: 30s
json_logs: true
sampler:
  max_attempts: 9
  periods: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testrpc", cfg.Network)
	assert.True(t, cfg.JSONLogs)

	chainCfg := cfg.ChainConfig()
	assert.Equal(t, nkms.TestRPC, chainCfg.Network)
	assert.Equal(t, "http://localhost:9545", chainCfg.RPC)
	assert.Equal(t, 30*time.Second, chainCfg.Timeout)

	opts := cfg.SamplerOptions()
	assert.Equal(t, sampler.DefaultOversampleFactor, opts.OversampleFactor)
	assert.Equal(t, 9, opts.MaxAttempts)
	assert.Equal(t, uint64(3), opts.Periods)
	assert.Equal(t, filepath.Join(cfg.DataDir, "registrar", "testrpc"), cfg.RegistrarPath())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "colour: red", "field colour not found"},
		{"bad network", "network: kovan", "unknown network"},
		{"bad factor", "sampler:\n  oversample_factor: 0.5", "oversample factor"},
		{"bad attempts", "sampler:\n  max_attempts: 0", "max attempts"},
		{"negative timeout", "timeout: -1s", "negative timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}
