// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nucypher/nkms-eth/agent"
	"github.com/nucypher/nkms-eth/contracts"
	"github.com/nucypher/nkms-eth/deployer"
)

func withEnv(action func(ctx *cli.Context, e *env) error) func(ctx *cli.Context) error {
	return func(ctx *cli.Context) error {
		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()
		return action(ctx, e)
	}
}

var deployAction = withEnv(func(ctx *cli.Context, e *env) error {
	dir := ctx.String(artifactsDirFlag.Name)
	if dir == "" {
		return fmt.Errorf("--%s required", artifactsDirFlag.Name)
	}
	if e.chain.Network().IsPublic() && !ctx.Bool(forceFlag.Name) {
		return fmt.Errorf("refusing to deploy to %s without --%s", e.chain.Network(), forceFlag.Name)
	}
	signer, err := e.requireSigner()
	if err != nil {
		return err
	}
	artifacts, err := contracts.LoadArtifacts(dir)
	if err != nil {
		return err
	}

	d := deployer.New(e.chain.Backend(), signer, e.reg, artifacts, deployer.DefaultConfig())
	d.Arm()
	dep, err := d.DeployAll(e.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\n", contracts.TokenName, dep.Token.Hex())
	fmt.Printf("%s\t%s\n", contracts.EscrowName, dep.Escrow.Hex())
	fmt.Printf("%s\t%s\n", contracts.PolicyManagerName, dep.PolicyManager.Hex())
	return nil
})

var sampleAction = withEnv(func(ctx *cli.Context, e *env) error {
	escrow, err := e.escrow()
	if err != nil {
		return err
	}
	opts := e.cfg.SamplerOptions()
	if ctx.IsSet(periodsFlag.Name) {
		opts.Periods = ctx.Uint64(periodsFlag.Name)
	}
	miners, err := escrow.Sample(e.ctx, ctx.Int(quantityFlag.Name), opts)
	if err != nil {
		return err
	}
	for _, m := range miners {
		fmt.Println(m.Hex())
	}
	return nil
})

var swarmAction = withEnv(func(_ *cli.Context, e *env) error {
	escrow, err := e.escrow()
	if err != nil {
		return err
	}
	for miner, err := range escrow.Swarm(e.ctx) {
		if err != nil {
			return err
		}
		fmt.Println(miner.Hex())
	}
	return nil
})

var balanceAction = withEnv(func(ctx *cli.Context, e *env) error {
	var addr common.Address
	if arg := ctx.Args().First(); arg != "" {
		var err error
		if addr, err = parseAddress(arg); err != nil {
			return err
		}
	} else {
		signer, err := e.requireSigner()
		if err != nil {
			return err
		}
		addr = signer.Address()
	}

	eth, err := e.chain.Backend().BalanceAt(e.ctx, addr, nil)
	if err != nil {
		return err
	}
	fmt.Printf("address\t%s\nether\t%s\n", addr.Hex(), eth)

	token, err := e.token()
	if err != nil {
		return err
	}
	tokens, err := token.BalanceOf(e.ctx, addr)
	if err != nil {
		return err
	}
	fmt.Printf("tokens\t%s\n", tokens)

	escrow, err := e.escrow()
	if err != nil {
		return err
	}
	info, err := escrow.MinerInfo(e.ctx, addr)
	if err != nil {
		return err
	}
	fmt.Printf("escrowed\t%s\nlocked\t%s\nperiods\t%d\nrelease\t%t\n",
		info.Value, info.LockedValue, info.LockedPeriods, info.Release)
	return nil
})

var lockAction = withEnv(func(ctx *cli.Context, e *env) error {
	amount, err := parseAmount(ctx.String(amountFlag.Name))
	if err != nil {
		return err
	}
	m, err := e.miner()
	if err != nil {
		return err
	}
	receipts, err := m.Lock(e.ctx, amount, ctx.Uint64(periodsFlag.Name))
	if err != nil {
		return err
	}
	fmt.Println(receipts.Deposit.TxHash.Hex())
	return nil
})

var confirmActivityAction = withEnv(func(_ *cli.Context, e *env) error {
	m, err := e.miner()
	if err != nil {
		return err
	}
	receipt, err := m.ConfirmActivity(e.ctx)
	if err != nil {
		return err
	}
	fmt.Println(receipt.TxHash.Hex())
	return nil
})

var mintAction = withEnv(func(_ *cli.Context, e *env) error {
	m, err := e.miner()
	if err != nil {
		return err
	}
	receipt, err := m.Mint(e.ctx)
	if err != nil {
		return err
	}
	fmt.Println(receipt.TxHash.Hex())
	return nil
})

var withdrawAction = withEnv(func(ctx *cli.Context, e *env) error {
	m, err := e.miner()
	if err != nil {
		return err
	}
	if ctx.String(amountFlag.Name) == "" {
		receipt, err := m.WithdrawAll(e.ctx)
		if err != nil {
			return err
		}
		fmt.Println(receipt.TxHash.Hex())
		return nil
	}
	amount, err := parseAmount(ctx.String(amountFlag.Name))
	if err != nil {
		return err
	}
	receipt, err := m.Withdraw(e.ctx, amount)
	if err != nil {
		return err
	}
	fmt.Println(receipt.TxHash.Hex())
	return nil
})

var publishIDAction = withEnv(func(ctx *cli.Context, e *env) error {
	id := ctx.Args().First()
	if id == "" {
		return errors.New("miner id required")
	}
	m, err := e.miner()
	if err != nil {
		return err
	}
	receipt, err := m.PublishMinerID(e.ctx, []byte(id))
	if err != nil {
		return err
	}
	fmt.Println(receipt.TxHash.Hex())
	return nil
})

var policyCreateAction = withEnv(func(ctx *cli.Context, e *env) error {
	id, err := parsePolicyID(ctx.String(idFlag.Name))
	if err != nil {
		return err
	}
	node, err := parseAddress(ctx.String(nodeFlag.Name))
	if err != nil {
		return err
	}
	value, err := parseAmount(ctx.String(valueFlag.Name))
	if err != nil {
		return err
	}
	author, err := e.author()
	if err != nil {
		return err
	}
	p, err := author.CreatePolicy(e.ctx, id, node, value, ctx.Uint64(periodsFlag.Name))
	if err != nil {
		return err
	}
	printPolicy(p)
	return nil
})

var policyGetAction = withEnv(func(ctx *cli.Context, e *env) error {
	if ctx.Args().First() == "" {
		return errors.New("policy id required")
	}
	id, err := parsePolicyID(ctx.Args().First())
	if err != nil {
		return err
	}
	pm, err := e.policyManager()
	if err != nil {
		return err
	}
	p, err := pm.Policy(e.ctx, id)
	if err != nil {
		return err
	}
	printPolicy(p)
	return nil
})

var policyRevokeAction = withEnv(func(ctx *cli.Context, e *env) error {
	if ctx.Args().First() == "" {
		return errors.New("policy id required")
	}
	id, err := parsePolicyID(ctx.Args().First())
	if err != nil {
		return err
	}
	author, err := e.author()
	if err != nil {
		return err
	}
	receipt, err := author.RevokePolicy(e.ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(receipt.TxHash.Hex())
	return nil
})

func printPolicy(p *agent.Policy) {
	fmt.Printf("id\t%s\nclient\t%s\nnode\t%s\nrate\t%s\nperiods\t%d-%d\ndisabled\t%t\n",
		common.Hash(p.ID).Hex(), p.Client.Hex(), p.Node.Hex(), p.Rate, p.StartPeriod, p.LastPeriod, p.Disabled)
}
