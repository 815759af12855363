// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package deployer deploys and wires the token, escrow and policy manager
// contracts, enrolling every deployment in the registrar.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/bind"
	"github.com/nucypher/nkms-eth/contracts"
	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/registrar"
)

var logger = log.WithContext("pkg", "deployer")

var (
	// ErrNotArmed is returned by deploy operations before Arm is called.
	ErrNotArmed = errors.New("deployer is not armed")
	// ErrAlreadyDeployed is returned when the registrar already holds the contract.
	ErrAlreadyDeployed = errors.New("contract already deployed")
	// ErrNotDeployed is returned when a prerequisite contract is missing.
	ErrNotDeployed = errors.New("contract not deployed")
)

// Config holds the constructor parameters of the contracts.
type Config struct {
	Token nkms.TokenConfig
	Miner nkms.MinerConfig
}

// DefaultConfig returns the production parameters.
func DefaultConfig() Config {
	return Config{
		Token: nkms.DefaultTokenConfig(),
		Miner: nkms.DefaultMinerConfig(),
	}
}

// Deployment is the set of addresses produced by DeployAll.
type Deployment struct {
	Token         common.Address
	Escrow        common.Address
	PolicyManager common.Address
}

// Deployer issues contract creation transactions signed by the deployer account.
type Deployer struct {
	backend   bind.Backend
	signer    bind.Signer
	registrar *registrar.Registrar
	artifacts map[string]*contracts.Artifact
	config    Config

	mu    sync.Mutex
	armed bool
}

func New(
	backend bind.Backend,
	signer bind.Signer,
	reg *registrar.Registrar,
	artifacts map[string]*contracts.Artifact,
	config Config,
) *Deployer {
	return &Deployer{
		backend:   backend,
		signer:    signer,
		registrar: reg,
		artifacts: artifacts,
		config:    config,
	}
}

// Arm allows the deployer to send transactions.
func (d *Deployer) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = true
	logger.Info("deployer armed", "account", d.signer.Address())
}

func (d *Deployer) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

func (d *Deployer) deployed(name string) (common.Address, error) {
	addr, err := d.registrar.Latest(name)
	if errors.Is(err, registrar.ErrUnknownContract) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNotDeployed, name)
	}
	return addr, err
}

func (d *Deployer) deploy(ctx context.Context, name string, args ...any) (*bind.Contract, error) {
	if !d.Armed() {
		return nil, ErrNotArmed
	}
	if _, err := d.registrar.Latest(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDeployed, name)
	} else if !errors.Is(err, registrar.ErrUnknownContract) {
		return nil, err
	}
	artifact, ok := d.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("no artifact for '%s'", name)
	}

	contract, receipt, err := bind.Deploy(ctx, d.backend, d.signer, artifact.ABI, artifact.Bytecode, args...)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	if err := d.registrar.Enroll(name, contract.Address()); err != nil {
		return nil, err
	}
	logger.Info("contract deployed", "name", name, "address", contract.Address(), "gas", receipt.GasUsed)
	return contract, nil
}

func (d *Deployer) transact(ctx context.Context, b *bind.MethodBuilder) error {
	if _, err := b.Send().WithSigner(d.signer).Receipt(ctx); err != nil {
		return fmt.Errorf("%s: %w", b, err)
	}
	return nil
}

// DeployToken deploys the token with the configured premine and saturation.
func (d *Deployer) DeployToken(ctx context.Context) (common.Address, error) {
	c, err := d.deploy(ctx, contracts.TokenName, d.config.Token.Premine, d.config.Token.Saturation)
	if err != nil {
		return common.Address{}, err
	}
	return c.Address(), nil
}

// DeployEscrow deploys the miners escrow for the enrolled token and
// registers it as the token's minter.
func (d *Deployer) DeployEscrow(ctx context.Context) (common.Address, error) {
	if !d.Armed() {
		return common.Address{}, ErrNotArmed
	}
	tokenAddr, err := d.deployed(contracts.TokenName)
	if err != nil {
		return common.Address{}, err
	}
	args := []any{tokenAddr}
	for _, c := range d.config.Miner.Coefficients() {
		args = append(args, c)
	}
	c, err := d.deploy(ctx, contracts.EscrowName, args...)
	if err != nil {
		return common.Address{}, err
	}

	token, err := bind.NewContractWithABI(d.backend, contracts.MustABI(contracts.TokenName), tokenAddr)
	if err != nil {
		return common.Address{}, err
	}
	if err := d.transact(ctx, token.Method("addMiner", c.Address())); err != nil {
		return common.Address{}, err
	}
	return c.Address(), nil
}

// DeployPolicyManager deploys the policy manager for the enrolled escrow and
// attaches it to the escrow.
func (d *Deployer) DeployPolicyManager(ctx context.Context) (common.Address, error) {
	if !d.Armed() {
		return common.Address{}, ErrNotArmed
	}
	escrowAddr, err := d.deployed(contracts.EscrowName)
	if err != nil {
		return common.Address{}, err
	}
	c, err := d.deploy(ctx, contracts.PolicyManagerName, escrowAddr)
	if err != nil {
		return common.Address{}, err
	}

	escrow, err := bind.NewContractWithABI(d.backend, contracts.MustABI(contracts.EscrowName), escrowAddr)
	if err != nil {
		return common.Address{}, err
	}
	if err := d.transact(ctx, escrow.Method("setPolicyManager", c.Address())); err != nil {
		return common.Address{}, err
	}
	return c.Address(), nil
}

// DeployAll deploys the token, the escrow and the policy manager in order.
func (d *Deployer) DeployAll(ctx context.Context) (*Deployment, error) {
	var (
		dep Deployment
		err error
	)
	if dep.Token, err = d.DeployToken(ctx); err != nil {
		return nil, err
	}
	if dep.Escrow, err = d.DeployEscrow(ctx); err != nil {
		return nil, err
	}
	if dep.PolicyManager, err = d.DeployPolicyManager(ctx); err != nil {
		return nil, err
	}
	return &dep, nil
}
