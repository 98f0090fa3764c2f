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
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/op/go-logging"

	"github.com/deepflowio/hamt/hmap"
	"github.com/deepflowio/hamt/hmap/keyhash"
	"github.com/deepflowio/hamt/logger"
	"github.com/deepflowio/hamt/pool"
	"github.com/deepflowio/hamt/stats"
	"github.com/deepflowio/hamt/utils"
)

var log = logging.MustGetLogger("hamt")

// 冲突分裂时重新加盐的上限，超过说明哈希函数对不同salt给出相同结果
const MAX_SALT = 64

// Map is a hash array mapped trie whose root table grows incrementally,
// one slot per Set, so that no single call pays for a full rehash.
//
// 注意：不是线程安全的。Find/Get不修改结构，可以在读锁下并发调用；
// GetCounter可以在stats采集goroutine中调用
type Map[K, V any] struct {
	utils.Closable

	id  string
	log *logger.PrefixLogger

	hasher  keyhash.Hasher[K]
	equaler keyhash.Equaler[K]

	root  rootTable[K, V]
	arena *pool.Arena[entry[K, V]]
	size  int // 当前容纳的entry个数

	stats mapStats

	collisionChainDebugThreshold uint32       // 冲突链深度超过该值时保留冲突链信息，为0时不保存
	debugChain                   atomic.Value // 冲突链，类型为[]byte
	debugChainRead               uint32       // 冲突链是否已读，如果已读替换为新的 (atomic.Value无法清空)
}

func (m *Map[K, V]) ID() string {
	return m.id
}

// KeySize is the size of one collision chain record, which holds a salt 0
// hash code rather than the key itself.
func (m *Map[K, V]) KeySize() int {
	return HASHCODE_BITLEN / 8
}

func (m *Map[K, V]) Close() error {
	hmap.DeregisterForDebug(m)
	return m.Closable.Close()
}

func (m *Map[K, V]) NoStats() *Map[K, V] {
	m.Close()
	return m
}

func (m *Map[K, V]) Size() int {
	return m.size
}

// RootSize returns the slot count of the current root generation.
func (m *Map[K, V]) RootSize() int {
	return m.root.size
}

func (m *Map[K, V]) find(key K) *entry[K, V] {
	stream := newArcStream(key, m.hasher)
	s := m.root.lookup(&stream)
	depth := 1
	for s.node != nil {
		if s = s.node.get(stream.read(ARC_BITLEN)); s == nil {
			break
		}
		depth++
	}
	m.stats.updateDepth(depth)
	if s != nil && s.leaf != nil && m.equaler.Equal(s.leaf.key, key) {
		m.stats.hit.Add(1)
		return s.leaf
	}
	m.stats.miss.Add(1)
	return nil
}

// Find returns a pointer to the value stored for key, valid until key is
// erased or the map cleared, or nil if key is absent.
func (m *Map[K, V]) Find(key K) *V {
	if e := m.find(key); e != nil {
		return &e.value
	}
	return nil
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	if e := m.find(key); e != nil {
		return e.value, true
	}
	var blank V
	return blank, false
}

func (m *Map[K, V]) newEntry(hashcode uint64, key K, value V) *entry[K, V] {
	e := m.arena.Alloc()
	e.hashcode = hashcode
	e.key = key
	e.value = value
	return e
}

// Set inserts key or overwrites its value, then advances the root table
// growth by one step.
func (m *Map[K, V]) Set(key K, value V) {
	stream := newArcStream(key, m.hasher)
	s := m.root.lookup(&stream)
	depth := 1
	for s.node != nil {
		s = s.node.getOrCreateSlot(stream.read(ARC_BITLEN))
		depth++
	}
	switch {
	case s.leaf == nil:
		s.leaf = m.newEntry(stream.origin, key, value)
		m.size++
	case m.equaler.Equal(s.leaf.key, key):
		s.leaf.value = value
	default:
		e := m.newEntry(stream.origin, key, value)
		depth += m.resolveCollision(s, &stream, e)
		m.size++
	}
	m.stats.updateDepth(depth)
	m.grow()
	m.publishStats()
}

func (m *Map[K, V]) publishStats() {
	m.stats.publish(m.size, m.root.size, m.root.bitlen, m.root.migrating())
}

// resolveCollision replaces the leaf in s with a chain of nodes that ends
// where the arcs of the resident leaf and e first differ, and returns the
// number of nodes created.
func (m *Map[K, V]) resolveCollision(s *slot[K, V], stream *arcStream[K], e *entry[K, V]) int {
	resident := s.leaf
	residentStream := stream.fork(resident.key, resident.hashcode)
	levels := 0
	for {
		n := &node[K, V]{}
		*s = nodeSlot(n)
		levels++
		arc, residentArc := stream.read(ARC_BITLEN), residentStream.read(ARC_BITLEN)
		if arc != residentArc {
			n.initTwo(arc, leafSlot(e), residentArc, leafSlot(resident))
			break
		}
		if stream.salt > MAX_SALT {
			panic(fmt.Sprintf("hamt: %s keys %v and %v still collide after %d salts", m.id, e.key, resident.key, MAX_SALT))
		}
		s = n.getOrCreateSlot(arc)
	}
	m.stats.collisions.Add(uint64(levels))
	m.saveCollisionChain(levels, e.hashcode, resident.hashcode)
	return levels
}

func (m *Map[K, V]) saveCollisionChain(levels int, hashcodes ...uint64) {
	if atomic.LoadUint32(&m.debugChainRead) != 1 {
		return
	}
	// 已读，构造新的chain
	threshold := int(atomic.LoadUint32(&m.collisionChainDebugThreshold))
	if threshold <= 0 || levels < threshold {
		return
	}
	chain := make([]byte, m.KeySize()*len(hashcodes))
	for i, hashcode := range hashcodes {
		binary.BigEndian.PutUint64(chain[i*m.KeySize():], hashcode)
	}
	m.debugChain.Store(chain)
	atomic.StoreUint32(&m.debugChainRead, 0)
	m.log.Warningf("collision chain of %d levels: %016x-%016x", levels, hashcodes[0], hashcodes[1])
}

func (m *Map[K, V]) grow() {
	migrated := m.root.migratedSlots
	wasMigrating := m.root.migrating()
	completed := m.root.amortizedResize(m.hasher)
	m.stats.migratedSlots.Add(m.root.migratedSlots - migrated)
	if !wasMigrating && m.root.migrating() {
		m.log.Debugf("root grow from %d to %d slots started, size %d", m.root.size, m.root.size<<ARC_BITLEN, m.size)
	}
	if completed {
		m.stats.growthCycles.Add(1)
		m.log.Debugf("root grow to %d slots (%d bits) completed, size %d", m.root.size, m.root.bitlen, m.size)
	}
}

// Erase removes key and returns the number of entries removed. The
// emptied slot stays in its node; nodes are never compacted.
func (m *Map[K, V]) Erase(key K) int {
	stream := newArcStream(key, m.hasher)
	s := m.root.lookup(&stream)
	for s.node != nil {
		if s = s.node.get(stream.read(ARC_BITLEN)); s == nil {
			return 0
		}
	}
	if s.leaf == nil || !m.equaler.Equal(s.leaf.key, key) {
		return 0
	}
	m.arena.Release(s.leaf)
	*s = slot[K, V]{}
	m.size--
	m.publishStats()
	return 1
}

// Walk visits every entry once, in no particular order. The callback must
// not modify the map.
func (m *Map[K, V]) Walk(callback func(key K, value V)) {
	var visit func(s *slot[K, V])
	visit = func(s *slot[K, V]) {
		if s.leaf != nil {
			callback(s.leaf.key, s.leaf.value)
		} else if s.node != nil {
			s.node.each(func(_ uint32, child *slot[K, V]) { visit(child) })
		}
	}
	m.root.walk(visit)
}

// Depth returns the number of levels on the longest root-to-leaf path,
// counting the root table as level 1. An empty map has depth 0.
func (m *Map[K, V]) Depth() int {
	var depthOf func(s *slot[K, V]) int
	depthOf = func(s *slot[K, V]) int {
		if s.leaf != nil {
			return 1
		}
		if s.node == nil {
			return 0
		}
		max := 0
		s.node.each(func(_ uint32, child *slot[K, V]) {
			if d := depthOf(child); d > max {
				max = d
			}
		})
		if max == 0 {
			return 0
		}
		return max + 1
	}
	depth := 0
	m.root.walk(func(s *slot[K, V]) {
		if d := depthOf(s); d > depth {
			depth = d
		}
	})
	return depth
}

// Clear drops every entry and shrinks the root table back to its initial
// size.
func (m *Map[K, V]) Clear() {
	m.root.init()
	m.arena.Reset()
	m.size = 0
	m.publishStats()

	atomic.StoreUint32(&m.debugChainRead, 1)
}

// GetCounter 只读取原子统计，可以与Set并发
func (m *Map[K, V]) GetCounter() interface{} {
	return m.stats.read(m.arena.GetCounter())
}

func (m *Map[K, V]) GetCollisionChain() []byte {
	if atomic.LoadUint32(&m.debugChainRead) == 1 {
		return nil
	}
	chain := m.debugChain.Load()
	atomic.StoreUint32(&m.debugChainRead, 1)
	if chain == nil {
		return nil
	}
	return chain.([]byte)
}

func (m *Map[K, V]) SetCollisionChainDebugThreshold(t int) {
	atomic.StoreUint32(&m.collisionChainDebugThreshold, uint32(t))
	// 标记为已读，刷新链
	if t > 0 {
		atomic.StoreUint32(&m.debugChainRead, 1)
	}
}

func NewMap[K, V any](module string, strategy keyhash.Strategy[K], opts ...stats.OptionStatTags) *Map[K, V] {
	m := NewMapNoStats[K, V](module, strategy)

	statOptions := []stats.Option{stats.OptionStatTags{"module": module}}
	for _, opt := range opts {
		statOptions = append(statOptions, opt)
	}
	if err := stats.RegisterCountable("hamt", m, statOptions...); err != nil {
		log.Warningf("register stats of %s failed: %s", m.id, err)
	}

	hmap.RegisterForDebug(m)

	return m
}

func NewMapNoStats[K, V any](module string, strategy keyhash.Strategy[K], options ...pool.Option) *Map[K, V] {
	m := &Map[K, V]{
		id:             "hamt-" + module,
		hasher:         strategy.Hasher,
		equaler:        strategy.Equaler,
		arena:          pool.NewArena[entry[K, V]](options...),
		debugChainRead: 1,
	}
	m.log = logger.NewPrefixLogger("hamt", "["+m.id+"]")
	m.root.init()
	m.publishStats()
	return m
}

func NewU64Map[V any](module string, opts ...stats.OptionStatTags) *Map[uint64, V] {
	return NewMap[uint64, V](module, keyhash.U64Strategy(), opts...)
}

func NewStringMap[V any](module string, opts ...stats.OptionStatTags) *Map[string, V] {
	return NewMap[string, V](module, keyhash.StringStrategy(), opts...)
}
