// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "nkms",
		Usage:     "Stake and policy tooling of the NuCypher KMS network",
		Copyright: "2025 NuCypher",
		Flags: []cli.Flag{
			configFlag,
			networkFlag,
			rpcFlag,
			dataDirFlag,
			keyFileFlag,
			verbosityFlag,
			jsonLogsFlag,
			metricsAddrFlag,
			adminAddrFlag,
		},
		Commands: []cli.Command{
			{
				Name:   "deploy",
				Usage:  "deploy the token, escrow and policy manager contracts",
				Flags:  []cli.Flag{artifactsDirFlag, forceFlag},
				Action: deployAction,
			},
			{
				Name:   "sample",
				Usage:  "select miners weighted by their locked tokens",
				Flags:  []cli.Flag{quantityFlag, periodsFlag},
				Action: sampleAction,
			},
			{
				Name:   "swarm",
				Usage:  "list every miner in escrow order",
				Action: swarmAction,
			},
			{
				Name:      "balance",
				Usage:     "show ether, token and locked balances",
				ArgsUsage: "[address]",
				Action:    balanceAction,
			},
			{
				Name:   "lock",
				Usage:  "lock tokens in the escrow",
				Flags:  []cli.Flag{amountFlag, periodsFlag},
				Action: lockAction,
			},
			{
				Name:   "confirm-activity",
				Usage:  "confirm the miner is active in the current period",
				Action: confirmActivityAction,
			},
			{
				Name:   "mint",
				Usage:  "mint the rewards of confirmed periods",
				Action: mintAction,
			},
			{
				Name:   "withdraw",
				Usage:  "withdraw unlocked tokens, all of them when no amount is given",
				Flags:  []cli.Flag{amountFlag},
				Action: withdrawAction,
			},
			{
				Name:      "publish-id",
				Usage:     "publish a miner id",
				ArgsUsage: "<id>",
				Action:    publishIDAction,
			},
			{
				Name:  "policy",
				Usage: "manage policies",
				Subcommands: []cli.Command{
					{
						Name:   "create",
						Usage:  "pay a miner to serve a policy",
						Flags:  []cli.Flag{idFlag, nodeFlag, valueFlag, periodsFlag},
						Action: policyCreateAction,
					},
					{
						Name:      "get",
						Usage:     "show a policy",
						ArgsUsage: "<id>",
						Action:    policyGetAction,
					},
					{
						Name:      "revoke",
						Usage:     "revoke a policy and refund the unserved periods",
						ArgsUsage: "<id>",
						Action:    policyRevokeAction,
					},
				},
			},
			{
				Name:   "simulate",
				Usage:  "sample an offline ledger and print selection frequencies",
				Flags:  []cli.Flag{minersFlag, quantityFlag, roundsFlag, periodsFlag, seedFlag},
				Action: simulateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
