// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Snapshot is a point in time copy of the lookup counters.
type Snapshot struct {
	Hit  int64
	Miss int64
}

// HitRate returns the share of lookups served from the cache, 0 without lookups.
func (s Snapshot) HitRate() float64 {
	if s.Hit+s.Miss == 0 {
		return 0
	}
	return float64(s.Hit) / float64(s.Hit+s.Miss)
}

// Stats counts cache lookups.
type Stats struct {
	hit, miss atomic.Int64
	permille  atomic.Int64 // hit rate seen by the last Snapshot
}

func (s *Stats) Hit()  { s.hit.Add(1) }
func (s *Stats) Miss() { s.miss.Add(1) }

// Snapshot returns the counters and whether the hit rate moved by at least a
// tenth of a percent since the previous call.
func (s *Stats) Snapshot() (Snapshot, bool) {
	snap := Snapshot{Hit: s.hit.Load(), Miss: s.miss.Load()}
	permille := int64(snap.HitRate() * 1000)
	return snap, s.permille.Swap(permille) != permille
}
