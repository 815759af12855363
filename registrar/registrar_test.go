// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registrar

import (
	"fmt"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/cache"
	"github.com/nucypher/nkms-eth/test/datagen"
)

var (
	addr1 = datagen.RandomAddress()
	addr2 = datagen.RandomAddress()
	addr3 = datagen.RandomAddress()
)

func TestRegistrar(t *testing.T) {
	r, err := NewMem(big.NewInt(1337))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Latest("Token")
	assert.True(t, errors.Is(err, ErrUnknownContract))

	require.NoError(t, r.Enroll("Token", addr1))
	require.NoError(t, r.Enroll("Token", addr2))
	require.NoError(t, r.Enroll("Token", addr1))
	require.NoError(t, r.Enroll("Escrow", addr3))

	addrs, err := r.Addresses("Token")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr1, addr2}, addrs)

	latest, err := r.Latest("Token")
	require.NoError(t, err)
	assert.Equal(t, addr2, latest)

	names, err := r.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"Escrow", "Token"}, names)

	require.NoError(t, r.Forget("Token"))
	_, err = r.Addresses("Token")
	assert.True(t, errors.Is(err, ErrUnknownContract))
}

func TestRegistrar_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrar")

	r, err := Open(path, big.NewInt(3))
	require.NoError(t, err)
	require.NoError(t, r.Enroll("Escrow", addr1))
	require.NoError(t, r.Close())

	r, err = Open(path, big.NewInt(3))
	require.NoError(t, err)
	latest, err := r.Latest("Escrow")
	require.NoError(t, err)
	assert.Equal(t, addr1, latest)
	require.NoError(t, r.Close())

	// other chains do not see the entry
	r, err = Open(path, big.NewInt(1))
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Latest("Escrow")
	assert.True(t, errors.Is(err, ErrUnknownContract))
	assert.Equal(t, big.NewInt(1), r.ChainID())
}

func TestRegistrar_Many(t *testing.T) {
	r, err := NewMem(big.NewInt(1))
	require.NoError(t, err)
	defer r.Close()

	// more names than the cache holds
	n := cacheSize + 1 + datagen.RandIntN(cacheSize)
	want := make(map[string]common.Address, n)
	for i := range n {
		name := fmt.Sprintf("Contract%03d", i)
		want[name] = datagen.RandomAddress()
		require.NoError(t, r.Enroll(name, want[name]))
	}
	for name, addr := range want {
		latest, err := r.Latest(name)
		require.NoError(t, err)
		assert.Equal(t, addr, latest, name)
	}
	names, err := r.Names()
	require.NoError(t, err)
	assert.Len(t, names, n)
}

func TestRegistrar_AddressTaken(t *testing.T) {
	r, err := NewMem(big.NewInt(1337))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Enroll("Token", addr1))
	err = r.Enroll("Escrow", addr1)
	assert.True(t, errors.Is(err, ErrAddressTaken))

	_, err = r.Latest("Escrow")
	assert.True(t, errors.Is(err, ErrUnknownContract))

	// forgetting a name frees its addresses
	require.NoError(t, r.Forget("Token"))
	require.NoError(t, r.Enroll("Escrow", addr1))
	latest, err := r.Latest("Escrow")
	require.NoError(t, err)
	assert.Equal(t, addr1, latest)

	names, err := r.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"Escrow"}, names)
}

func TestRegistrar_CacheStats(t *testing.T) {
	r, err := NewMem(big.NewInt(1337))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Enroll("Token", addr1))
	for range 3 {
		_, err := r.Latest("Token")
		require.NoError(t, err)
	}

	snap, _ := r.cache.Stats().Snapshot()
	assert.Equal(t, cache.Snapshot{Hit: 3, Miss: 1}, snap)
}
