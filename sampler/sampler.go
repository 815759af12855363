// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sampler selects staking participants with a probability proportional
// to their locked stake.
//
// Drawn points on the cumulative stake line [0, totalLocked) are sorted and
// turned into gaps. The gaps are walked forward through the ledger, so that every
// lookup continues from the participant found by the previous one:
//
//	          start
//	          v
//	|-------->*--------------->*---->*------------->|
//	          |                      ^
//	          |                      stop
//	          |       delta
//	          |---------------------------->|
//	          |                       shift
//	          |                      |----->|
package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/metrics"
	"github.com/nucypher/nkms-eth/nkms"
)

var (
	logger = log.WithContext("pkg", "sampler")

	metricAttempts = metrics.LazyLoadCounter("sampler_attempts_count")
	metricLookups  = metrics.LazyLoadCounter("sampler_lookups_count")
	metricFailures = metrics.LazyLoadCounter("sampler_failures_count")
)

// ErrInsufficientParticipants is returned when the ledger holds no locked stake
// or when every attempt fails to gather enough distinct participants.
var ErrInsufficientParticipants = errors.New("not enough participants")

const (
	DefaultOversampleFactor = 1.7
	DefaultMaxAttempts      = 5
	DefaultPeriods          = 10
)

// Ledger is the read-only view of the stake ledger needed for sampling.
type Ledger interface {
	// TotalLocked returns the stake locked by all participants.
	TotalLocked(ctx context.Context) (*big.Int, error)

	// FindCumSum walks the participants starting at start (the first participant
	// when start is the null address) and returns the one whose stake interval
	// contains offset, together with how far into that interval offset landed.
	// Offsets are measured from the beginning of start's interval. Participants
	// committed for fewer than periods are skipped. The null address is returned
	// when offset lies past the last eligible interval.
	FindCumSum(ctx context.Context, start common.Address, offset *big.Int, periods uint64) (common.Address, *big.Int, error)
}

// Options tunes a sampling request.
type Options struct {
	// OversampleFactor multiplies the number of drawn points to absorb
	// collisions of several points in one participant's interval.
	OversampleFactor float64
	// MaxAttempts bounds the number of independent rounds.
	MaxAttempts int
	// Periods is the minimum remaining lock duration of a participant. It is
	// passed to the ledger untouched.
	Periods uint64
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		OversampleFactor: DefaultOversampleFactor,
		MaxAttempts:      DefaultMaxAttempts,
		Periods:          DefaultPeriods,
	}
}

func (o Options) validate() error {
	if math.IsNaN(o.OversampleFactor) || o.OversampleFactor < 1 {
		return fmt.Errorf("oversample factor must be >= 1, got %v", o.OversampleFactor)
	}
	if o.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be positive, got %d", o.MaxAttempts)
	}
	return nil
}

// Sampler draws stake-weighted participant sets from a Ledger.
type Sampler struct {
	ledger Ledger
	opts   Options
	source Source
}

// New creates a sampler reading from ledger. Randomness comes from CryptoSource.
func New(ledger Ledger, opts Options) *Sampler {
	return &Sampler{
		ledger: ledger,
		opts:   opts,
		source: CryptoSource(),
	}
}

// WithSource returns a copy of the sampler drawing from src.
func (s *Sampler) WithSource(src Source) *Sampler {
	return &Sampler{
		ledger: s.ledger,
		opts:   s.opts,
		source: src,
	}
}

// Options returns the sampler options.
func (s *Sampler) Options() Options {
	return s.opts
}

// Sample selects quantity distinct participants. The result is in random order,
// so callers may ask for more than they need and drop unresponsive ones.
func (s *Sampler) Sample(ctx context.Context, quantity int) ([]common.Address, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("negative quantity %d", quantity)
	}
	if quantity == 0 {
		return []common.Address{}, nil
	}
	if err := s.opts.validate(); err != nil {
		return nil, err
	}

	total, err := s.ledger.TotalLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("total locked: %w", err)
	}
	if total == nil || total.Sign() <= 0 {
		metricFailures().Add(1)
		return nil, fmt.Errorf("%w: no locked stake", ErrInsufficientParticipants)
	}

	nSelect := max(int(math.Round(float64(quantity)*s.opts.OversampleFactor)), quantity)

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		metricAttempts().Add(1)

		found, err := s.attempt(ctx, total, nSelect)
		if err != nil {
			return nil, err
		}
		logger.Debug("sampling attempt", "attempt", attempt, "points", nSelect, "found", len(found), "want", quantity)

		if len(found) >= quantity {
			return s.pick(found, quantity)
		}
	}

	metricFailures().Add(1)
	return nil, fmt.Errorf("%w: selection failed after %d attempts", ErrInsufficientParticipants, s.opts.MaxAttempts)
}

// attempt draws n points and maps them to the distinct participants holding them,
// in walk order.
func (s *Sampler) attempt(ctx context.Context, total *big.Int, n int) ([]common.Address, error) {
	points := make([]*big.Int, 0, n+1)
	points = append(points, new(big.Int))
	for range n {
		p, err := s.source.Int(total)
		if err != nil {
			return nil, fmt.Errorf("draw point: %w", err)
		}
		points = append(points, p)
	}
	slices.SortFunc(points[1:], func(a, b *big.Int) int { return a.Cmp(b) })

	var (
		found = make([]common.Address, 0, n)
		seen  = make(map[common.Address]struct{}, n)
		addr  = nkms.NullAddress
		shift = new(big.Int)
	)
	for i := 1; i < len(points); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		offset := new(big.Int).Sub(points[i], points[i-1])
		offset.Add(offset, shift)

		metricLookups().Add(1)
		next, nextShift, err := s.ledger.FindCumSum(ctx, addr, offset, s.opts.Periods)
		if err != nil {
			return nil, fmt.Errorf("find cumulative sum: %w", err)
		}
		if next == nkms.NullAddress {
			// past the last eligible interval, later points only go further
			break
		}
		if _, ok := seen[next]; !ok {
			seen[next] = struct{}{}
			found = append(found, next)
		}
		addr, shift = next, nextShift
	}
	return found, nil
}

// pick draws quantity addresses from found without replacement.
func (s *Sampler) pick(found []common.Address, quantity int) ([]common.Address, error) {
	picked := slices.Clone(found)
	for i := range quantity {
		j, err := s.source.Int(big.NewInt(int64(len(picked) - i)))
		if err != nil {
			return nil, fmt.Errorf("draw subset: %w", err)
		}
		k := i + int(j.Int64())
		picked[i], picked[k] = picked[k], picked[i]
	}
	return picked[:quantity], nil
}

// Sample is a shorthand for New(ledger, opts).Sample(ctx, quantity).
func Sample(ctx context.Context, ledger Ledger, quantity int, opts Options) ([]common.Address, error) {
	return New(ledger, opts).Sample(ctx, quantity)
}
