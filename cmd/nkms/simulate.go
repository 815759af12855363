// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/mattn/go-isatty"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/nucypher/nkms-eth/nkms"
	"github.com/nucypher/nkms-eth/sampler"
	"github.com/nucypher/nkms-eth/stakes"
)

type simulationParams struct {
	Miners   int
	Quantity int
	Rounds   int
	Periods  uint64
	Seed     uint64
	Options  sampler.Options
	// Progress draws a progress bar on stderr.
	Progress bool
}

type simulation struct {
	Miners []stakes.Miner
	Total  *big.Int
	Counts map[common.Address]int
	Rounds int
}

// simulate fills a native ledger with seeded random stakes and samples it
// repeatedly with a seeded source.
func simulate(ctx context.Context, p simulationParams) (*simulation, error) {
	if p.Miners <= 0 || p.Rounds <= 0 {
		return nil, fmt.Errorf("miners and rounds must be positive")
	}
	cfg := nkms.DefaultMinerConfig()
	ledger := stakes.NewLedger(cfg)
	rnd := mrand.New(mrand.NewPCG(p.Seed, p.Seed+1)) //#nosec G404

	for i := range p.Miners {
		addr := common.BigToAddress(big.NewInt(int64(i + 1)))
		tokens := big.NewInt(1 + rnd.Int64N(10_000))
		amount, overflow := uint256.FromBig(tokens.Mul(tokens, nkms.M))
		if overflow {
			return nil, fmt.Errorf("stake of %s overflows", addr)
		}
		periods := cfg.MinReleasePeriods + rnd.Uint64N(cfg.MaxAwardedPeriods)
		if err := ledger.Deposit(addr, amount, periods); err != nil {
			return nil, err
		}
	}

	opts := p.Options
	opts.Periods = p.Periods
	s := sampler.New(ledger.Oracle(), opts).WithSource(sampler.NewSeededSource(p.Seed))

	sim := &simulation{
		Total:  ledger.AllLockedTokens().ToBig(),
		Counts: make(map[common.Address]int),
		Rounds: p.Rounds,
	}
	for _, addr := range ledger.Miners() {
		info, _ := ledger.MinerInfo(addr)
		sim.Miners = append(sim.Miners, info)
	}
	var bar *pb.ProgressBar
	if p.Progress {
		bar = pb.New(p.Rounds).SetMaxWidth(90)
		bar.Output = os.Stderr
		bar.Start()
		defer bar.Finish()
	}
	for range p.Rounds {
		picked, err := s.Sample(ctx, p.Quantity)
		if err != nil {
			return nil, err
		}
		for _, addr := range picked {
			sim.Counts[addr]++
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return sim, nil
}

func simulateAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	initLogger(cfg)

	exitCtx, cancel := handleExitSignal()
	defer cancel()

	sim, err := simulate(exitCtx, simulationParams{
		Miners:   ctx.Int(minersFlag.Name),
		Quantity: ctx.Int(quantityFlag.Name),
		Rounds:   ctx.Int(roundsFlag.Name),
		Periods:  ctx.Uint64(periodsFlag.Name),
		Seed:     ctx.Uint64(seedFlag.Name),
		Options:  cfg.SamplerOptions(),
		Progress: isatty.IsTerminal(os.Stderr.Fd()),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "miner\tlocked\tperiods\tstake share\tselected")
	total := new(big.Float).SetInt(sim.Total)
	for _, m := range sim.Miners {
		share, _ := new(big.Float).Quo(new(big.Float).SetInt(m.Locked.ToBig()), total).Float64()
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\n",
			m.Address.Hex(), m.Locked.Dec(), m.LockedPeriods, share,
			float64(sim.Counts[m.Address])/float64(sim.Rounds))
	}
	return w.Flush()
}
