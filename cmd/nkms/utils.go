// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nucypher/nkms-eth/actor"
	"github.com/nucypher/nkms-eth/admin"
	"github.com/nucypher/nkms-eth/agent"
	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/chain"
	"github.com/nucypher/nkms-eth/config"
	"github.com/nucypher/nkms-eth/contracts"
	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/metrics"
	"github.com/nucypher/nkms-eth/registrar"
)

var logger = log.WithContext("pkg", "nkms")

// loadConfig reads the config file, if any, and applies the global flags over it.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, errors.WithMessage(err, "load config")
		}
	}

	if ctx.GlobalIsSet(networkFlag.Name) {
		cfg.Network = ctx.GlobalString(networkFlag.Name)
	}
	if ctx.GlobalIsSet(rpcFlag.Name) {
		cfg.RPC = ctx.GlobalString(rpcFlag.Name)
	}
	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(dataDirFlag.Name)
	}
	if ctx.GlobalIsSet(keyFileFlag.Name) {
		cfg.KeyFile = ctx.GlobalString(keyFileFlag.Name)
	}
	if ctx.GlobalIsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.GlobalInt(verbosityFlag.Name)
	}
	if ctx.GlobalIsSet(jsonLogsFlag.Name) {
		cfg.JSONLogs = ctx.GlobalBool(jsonLogsFlag.Name)
	}
	if ctx.GlobalIsSet(metricsAddrFlag.Name) {
		cfg.MetricsAddr = ctx.GlobalString(metricsAddrFlag.Name)
	}
	if ctx.GlobalIsSet(adminAddrFlag.Name) {
		cfg.AdminAddr = ctx.GlobalString(adminAddrFlag.Name)
	}
	return cfg, cfg.Validate()
}

func initLogger(cfg config.Config) *slog.LevelVar {
	logLevel := new(slog.LevelVar)
	logLevel.Set(log.FromLegacyLevel(cfg.Verbosity))
	log.SetDefault(log.NewHandler(os.Stderr, logLevel, cfg.JSONLogs))
	return logLevel
}

// loadKey reads the key file, generating and saving a new key when it does not exist.
func loadKey(keyFile string) (key *ecdsa.PrivateKey, err error) {
	// try to load from file
	if key, err = crypto.LoadECDSA(keyFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		return key, nil
	}

	// no such file, generate new key and write in
	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0o700); err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(keyFile, key); err != nil {
		return nil, err
	}
	logger.Info("generated new key", "file", keyFile, "address", crypto.PubkeyToAddress(key.PublicKey))
	return key, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("amount required")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// parsePolicyID decodes a 32 byte hex id. A random id is returned for an empty string.
func parsePolicyID(s string) ([32]byte, error) {
	var id [32]byte
	if s == "" {
		_, err := rand.Read(id[:])
		return id, err
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return id, errors.Wrapf(err, "invalid policy id %q", s)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("policy id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func handleExitSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// env holds the resources shared by the commands talking to a chain.
type env struct {
	ctx     context.Context
	cfg     config.Config
	chain   *chain.Blockchain
	reg     *registrar.Registrar
	signer  bind.Signer
	closers []func()
}

func newEnv(ctx *cli.Context) (e *env, err error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logLevel := initLogger(cfg)

	exitCtx, cancel := handleExitSignal()
	e = &env{ctx: exitCtx, cfg: cfg, closers: []func(){cancel}}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	if cfg.MetricsAddr != "" {
		metrics.InitializePrometheusMetrics()
		url, stop, err := admin.StartMetricsServer(cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, stop)
		logger.Info("metrics service started", "url", url)
	}

	if e.chain, err = chain.Connect(exitCtx, cfg.ChainConfig()); err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func() { _ = e.chain.Close() })

	if e.chain.Network().IsTransient() {
		e.reg, err = registrar.NewMem(e.chain.ChainID())
	} else {
		e.reg, err = registrar.Open(cfg.RegistrarPath(), e.chain.ChainID())
	}
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func() { _ = e.reg.Close() })

	if cfg.AdminAddr != "" {
		url, stop, err := admin.StartServer(cfg.AdminAddr, logLevel, e.reg)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, stop)
		logger.Info("admin service started", "url", url)
	}

	switch {
	case cfg.KeyFile != "":
		key, err := loadKey(cfg.KeyFile)
		if err != nil {
			return nil, errors.WithMessage(err, "load key")
		}
		e.signer = bind.NewSigner(key)
	case len(e.chain.Keys()) > 0:
		e.signer = bind.NewSigner(e.chain.Keys()[0])
	}
	return e, nil
}

// Close releases the resources in reverse order.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

func (e *env) requireSigner() (bind.Signer, error) {
	if e.signer == nil {
		return nil, fmt.Errorf("--%s required on network %s", keyFileFlag.Name, e.chain.Network())
	}
	return e.signer, nil
}

func (e *env) address(name string) (common.Address, error) {
	addr, err := e.reg.Latest(name)
	if err != nil {
		return common.Address{}, errors.WithMessage(err, "run deploy first")
	}
	return addr, nil
}

func (e *env) token() (*agent.Token, error) {
	addr, err := e.address(contracts.TokenName)
	if err != nil {
		return nil, err
	}
	return agent.NewToken(e.chain.Backend(), addr)
}

func (e *env) escrow() (*agent.MinerEscrow, error) {
	addr, err := e.address(contracts.EscrowName)
	if err != nil {
		return nil, err
	}
	return agent.NewMinerEscrow(e.chain.Backend(), addr)
}

func (e *env) policyManager() (*agent.PolicyManager, error) {
	addr, err := e.address(contracts.PolicyManagerName)
	if err != nil {
		return nil, err
	}
	return agent.NewPolicyManager(e.chain.Backend(), addr)
}

func (e *env) miner() (*actor.Miner, error) {
	signer, err := e.requireSigner()
	if err != nil {
		return nil, err
	}
	token, err := e.token()
	if err != nil {
		return nil, err
	}
	escrow, err := e.escrow()
	if err != nil {
		return nil, err
	}
	m := actor.NewMiner(escrow, token, signer)
	if pm, err := e.policyManager(); err == nil {
		m = m.WithPolicyManager(pm)
	}
	return m, nil
}

func (e *env) author() (*actor.PolicyAuthor, error) {
	signer, err := e.requireSigner()
	if err != nil {
		return nil, err
	}
	pm, err := e.policyManager()
	if err != nil {
		return nil, err
	}
	return actor.NewPolicyAuthor(pm, signer), nil
}
