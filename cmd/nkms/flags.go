// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/sampler"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a yaml configuration file",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "the network to connect to (mainnet|ropsten|tester|testrpc|temp)",
	}
	rpcFlag = cli.StringFlag{
		Name:  "rpc",
		Usage: "rpc endpoint of the network",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the contract registrar",
	}
	keyFileFlag = cli.StringFlag{
		Name:  "key-file",
		Usage: "private key file of the account, created when missing",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "metrics service listening address, disabled when empty",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Usage: "admin service listening address, disabled when empty",
	}

	artifactsDirFlag = cli.StringFlag{
		Name:  "artifacts-dir",
		Usage: "directory holding the compiled <Contract>.bin files",
	}
	forceFlag = cli.BoolFlag{
		Name:  "force",
		Usage: "allow deploying to a public network",
	}
	quantityFlag = cli.IntFlag{
		Name:  "quantity",
		Value: 1,
		Usage: "number of miners to select",
	}
	periodsFlag = cli.Uint64Flag{
		Name:  "periods",
		Value: sampler.DefaultPeriods,
		Usage: "number of periods",
	}
	amountFlag = cli.StringFlag{
		Name:  "amount",
		Usage: "token amount in the smallest unit",
	}
	nodeFlag = cli.StringFlag{
		Name:  "node",
		Usage: "address of the miner serving the policy",
	}
	valueFlag = cli.StringFlag{
		Name:  "value",
		Usage: "policy payment in wei",
	}
	idFlag = cli.StringFlag{
		Name:  "id",
		Usage: "hex policy id, random when empty",
	}
	minersFlag = cli.IntFlag{
		Name:  "miners",
		Value: 10,
		Usage: "number of simulated miners",
	}
	roundsFlag = cli.IntFlag{
		Name:  "rounds",
		Value: 1000,
		Usage: "number of simulated samplings",
	}
	seedFlag = cli.Uint64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "seed of the simulated stakes and draws",
	}
)
