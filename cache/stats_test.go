// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Snapshot(t *testing.T) {
	var s Stats
	snap, moved := s.Snapshot()
	assert.Equal(t, Snapshot{}, snap)
	assert.Zero(t, snap.HitRate())
	assert.False(t, moved)

	s.Hit()
	s.Miss()
	snap, moved = s.Snapshot()
	assert.Equal(t, Snapshot{Hit: 1, Miss: 1}, snap)
	assert.Equal(t, 0.5, snap.HitRate())
	assert.True(t, moved)

	// same rate
	s.Hit()
	s.Miss()
	_, moved = s.Snapshot()
	assert.False(t, moved)

	s.Hit()
	snap, moved = s.Snapshot()
	assert.Equal(t, Snapshot{Hit: 3, Miss: 2}, snap)
	assert.True(t, moved)
}
