// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registrar keeps the addresses of deployed contracts per chain.
// Every deployment of a contract name is appended, the newest one wins.
package registrar

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/nucypher/nkms-eth/cache"
	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/lvldb"
	"github.com/nucypher/nkms-eth/metrics"
)

var (
	logger = log.WithContext("pkg", "registrar")

	metricCacheHit  = metrics.LazyLoadGauge("registrar_cache_hit_count")
	metricCacheMiss = metrics.LazyLoadGauge("registrar_cache_miss_count")
)

const cacheSize = 64

var (
	// ErrUnknownContract is returned when nothing is enrolled under a name.
	ErrUnknownContract = errors.New("unknown contract")
	// ErrAddressTaken is returned when an address is already enrolled under another name.
	ErrAddressTaken = errors.New("address enrolled under another name")
)

// Registrar is an address book of deployed contracts backed by level db.
type Registrar struct {
	db         *lvldb.LevelDB
	cache      *cache.LRU
	chainID    *big.Int
	namePrefix []byte
	addrPrefix []byte
	mu         sync.Mutex
}

// Open opens or creates the registrar stored at path.
func Open(path string, chainID *big.Int) (*Registrar, error) {
	db, err := lvldb.New(path, lvldb.Options{})
	if err != nil {
		return nil, errors.WithMessage(err, "open registrar")
	}
	return newRegistrar(db, chainID)
}

// NewMem creates a registrar which lives in memory only.
func NewMem(chainID *big.Int) (*Registrar, error) {
	db, err := lvldb.NewMem()
	if err != nil {
		return nil, errors.WithMessage(err, "open registrar")
	}
	return newRegistrar(db, chainID)
}

func newRegistrar(db *lvldb.LevelDB, chainID *big.Int) (*Registrar, error) {
	c, err := cache.NewLRU(cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	prefix := "registrar/" + chainID.String() + "/"
	return &Registrar{
		db:         db,
		cache:      c,
		chainID:    new(big.Int).Set(chainID),
		namePrefix: []byte(prefix + "name/"),
		addrPrefix: []byte(prefix + "addr/"),
	}, nil
}

// ChainID returns the chain the registrar records deployments for.
func (r *Registrar) ChainID() *big.Int {
	return new(big.Int).Set(r.chainID)
}

func (r *Registrar) key(name string) []byte {
	return append(bytes.Clone(r.namePrefix), name...)
}

func (r *Registrar) addrKey(addr common.Address) []byte {
	return append(bytes.Clone(r.addrPrefix), addr.Bytes()...)
}

// reportCacheStats publishes the cache counters and logs them when the hit
// rate moved.
func (r *Registrar) reportCacheStats() {
	snap, moved := r.cache.Stats().Snapshot()
	metricCacheHit().Set(snap.Hit)
	metricCacheMiss().Set(snap.Miss)
	if moved {
		logger.Debug("cache stats", "hit", snap.Hit, "miss", snap.Miss, "rate", snap.HitRate())
	}
}

func (r *Registrar) load(name string) ([]common.Address, error) {
	v, err := r.cache.GetOrLoad(name, func(any) (any, error) {
		data, err := r.db.Get(r.key(name))
		if err != nil {
			if r.db.IsNotFound(err) {
				return []common.Address(nil), nil
			}
			return nil, errors.Wrap(err, "read registrar")
		}
		var addrs []common.Address
		if err := rlp.DecodeBytes(data, &addrs); err != nil {
			return nil, errors.Wrap(err, "decode registrar entry")
		}
		return addrs, nil
	})
	r.reportCacheStats()
	if err != nil {
		return nil, err
	}
	return v.([]common.Address), nil
}

// Enroll records a deployment of the named contract. Enrolling the same
// address twice is a no-op, enrolling it under another name fails with
// ErrAddressTaken.
func (r *Registrar) Enroll(name string, addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs, err := r.load(name)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if a == addr {
			return nil
		}
	}
	taken, err := r.db.Has(r.addrKey(addr))
	if err != nil {
		return errors.Wrap(err, "read registrar")
	}
	if taken {
		return errors.Wrapf(ErrAddressTaken, "%s", addr.Hex())
	}
	updated := append(append([]common.Address(nil), addrs...), addr)

	data, err := rlp.EncodeToBytes(updated)
	if err != nil {
		return errors.Wrap(err, "encode registrar entry")
	}
	batch := r.db.NewBatch()
	batch.Put(r.key(name), data)
	batch.Put(r.addrKey(addr), []byte(name))
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write registrar")
	}
	r.cache.Add(name, updated)

	logger.Debug("enrolled contract", "name", name, "address", addr, "chain", r.chainID)
	return nil
}

// Addresses returns every enrolled address of the named contract, oldest first.
func (r *Registrar) Addresses(name string) ([]common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs, err := r.load(name)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errors.Wrapf(ErrUnknownContract, "%s", name)
	}
	return append([]common.Address(nil), addrs...), nil
}

// Latest returns the most recently enrolled address of the named contract.
func (r *Registrar) Latest(name string) (common.Address, error) {
	addrs, err := r.Addresses(name)
	if err != nil {
		return common.Address{}, err
	}
	return addrs[len(addrs)-1], nil
}

// Names lists the enrolled contract names in key order.
func (r *Registrar) Names() ([]string, error) {
	var names []string
	err := r.db.Iterate(r.namePrefix, func(key, _ []byte) bool {
		names = append(names, string(key[len(r.namePrefix):]))
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "iterate registrar")
	}
	return names, nil
}

// Forget removes every enrolled address of the named contract.
func (r *Registrar) Forget(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs, err := r.load(name)
	if err != nil {
		return err
	}
	batch := r.db.NewBatch()
	batch.Delete(r.key(name))
	for _, addr := range addrs {
		batch.Delete(r.addrKey(addr))
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "delete registrar entry")
	}
	r.cache.Remove(name)
	return nil
}

// Close closes the underlying db.
func (r *Registrar) Close() error {
	r.cache.Purge()
	return r.db.Close()
}
