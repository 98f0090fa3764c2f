/*
 * Copyright (c) 2024 Yunshan Networks
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hamt

import (
	"sync/atomic"

	"github.com/deepflowio/hamt/pool"
)

type Counter struct {
	Hit        uint64 `statsd:"hit"`
	Miss       uint64 `statsd:"miss"`
	Collisions uint64 `statsd:"collisions"` // 因哈希冲突新建的节点数
	MaxDepth   int    `statsd:"max_depth,gauge"`

	GrowthCycles  uint64 `statsd:"growth_cycles"`
	MigratedSlots uint64 `statsd:"migrated_slots"`

	Size       int    `statsd:"size,gauge"`
	RootSize   int    `statsd:"root_size,gauge"`
	RootBitlen uint32 `statsd:"root_bitlen,gauge"`
	Migrating  bool   `statsd:"migrating,gauge"`

	pool.ArenaCounter
}

// mapStats 由Map所在goroutine写入、stats采集goroutine读取，全部为原子操作。
// 计数类字段读取时清零，gauge类字段在每次修改Map后更新。
type mapStats struct {
	hit           atomic.Uint64
	miss          atomic.Uint64
	collisions    atomic.Uint64
	maxDepth      atomic.Int64
	growthCycles  atomic.Uint64
	migratedSlots atomic.Uint64

	size       atomic.Int64
	rootSize   atomic.Int64
	rootBitlen atomic.Uint32
	migrating  atomic.Bool
}

// 并发查找时可能有多个写者
func (s *mapStats) updateDepth(depth int) {
	for {
		old := s.maxDepth.Load()
		if int64(depth) <= old || s.maxDepth.CompareAndSwap(old, int64(depth)) {
			return
		}
	}
}

func (s *mapStats) publish(size, rootSize int, rootBitlen uint32, migrating bool) {
	s.size.Store(int64(size))
	s.rootSize.Store(int64(rootSize))
	s.rootBitlen.Store(rootBitlen)
	s.migrating.Store(migrating)
}

func (s *mapStats) read(arena pool.ArenaCounter) *Counter {
	return &Counter{
		Hit:           s.hit.Swap(0),
		Miss:          s.miss.Swap(0),
		Collisions:    s.collisions.Swap(0),
		MaxDepth:      int(s.maxDepth.Swap(0)),
		GrowthCycles:  s.growthCycles.Swap(0),
		MigratedSlots: s.migratedSlots.Swap(0),
		Size:          int(s.size.Load()),
		RootSize:      int(s.rootSize.Load()),
		RootBitlen:    s.rootBitlen.Load(),
		Migrating:     s.migrating.Load(),
		ArenaCounter:  arena,
	}
}
