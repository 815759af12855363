// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package config loads the nkms configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nucypher/nkms-eth/chain"
	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/sampler"
)

// Config is the file representation of the command line settings. Flags
// given on the command line take precedence.
type Config struct {
	Network      string        `yaml:"network"`
	RPC          string        `yaml:"rpc"`
	DataDir      string        `yaml:"data_dir"`
	KeyFile      string        `yaml:"key_file"`
	ArtifactsDir string        `yaml:"artifacts_dir"`
	Timeout      time.Duration `yaml:"timeout"`
	Verbosity    int           `yaml:"verbosity"`
	JSONLogs     bool          `yaml:"json_logs"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	AdminAddr    string        `yaml:"admin_addr"`

	Sampler Sampler `yaml:"sampler"`
	Tester  Tester  `yaml:"tester"`
}

type Sampler struct {
	OversampleFactor float64 `yaml:"oversample_factor"`
	MaxAttempts      int     `yaml:"max_attempts"`
	Periods          uint64  `yaml:"periods"`
}

type Tester struct {
	Accounts int `yaml:"accounts"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	opts := sampler.DefaultOptions()
	return Config{
		Network:   string(nkms.Tester),
		DataDir:   filepath.Join(homeDir(), ".nkms"),
		Verbosity: log.LegacyLevelInfo,
		Sampler: Sampler{
			OversampleFactor: opts.OversampleFactor,
			MaxAttempts:      opts.MaxAttempts,
			Periods:          opts.Periods,
		},
		Tester: Tester{Accounts: chain.DefaultTesterAccounts},
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// Load reads the yaml file at path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads yaml from r over the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := nkms.ParseNetwork(c.Network); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %v", c.Timeout)
	}
	if c.Sampler.OversampleFactor < 1 {
		return fmt.Errorf("oversample factor must be >= 1, got %v", c.Sampler.OversampleFactor)
	}
	if c.Sampler.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be positive, got %d", c.Sampler.MaxAttempts)
	}
	return nil
}

// SamplerOptions returns the sampling options of the file.
func (c Config) SamplerOptions() sampler.Options {
	return sampler.Options{
		OversampleFactor: c.Sampler.OversampleFactor,
		MaxAttempts:      c.Sampler.MaxAttempts,
		Periods:          c.Sampler.Periods,
	}
}

// ChainConfig returns the connection settings of the file.
func (c Config) ChainConfig() chain.Config {
	return chain.Config{
		Network:  nkms.Network(c.Network),
		RPC:      c.RPC,
		Accounts: c.Tester.Accounts,
		Timeout:  c.Timeout,
	}
}

// RegistrarPath is where contract addresses of the network are stored.
func (c Config) RegistrarPath() string {
	return filepath.Join(c.DataDir, "registrar", c.Network)
}
