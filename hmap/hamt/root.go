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
	"github.com/deepflowio/hamt/hmap/keyhash"
)

const (
	INIT_ROOT_BITLEN = 3
	// 根表下标需要一次读出，且根表最大为2^28个槽位
	MAX_ROOT_BITLEN = 28
)

// rootTable is level 0 of the trie. It grows by ARC_SIZE times in
// increments: once resizeBorder counts down to size a table for the next
// generation is allocated, then each later step moves old slot
// resizeBorder into it. Slots below resizeBorder are still in entries,
// the others already live in newEntries.
type rootTable[K, V any] struct {
	bitlen uint32 // 根表下标的比特数
	size   int    // 1 << bitlen

	// 倒计数：大于size时尚未开始扩容，等于size时申请新表，小于size时为迁移游标，
	// 同时也是新旧两代根表的分界
	resizeBorder int

	entries    []slot[K, V]
	newEntries []slot[K, V] // 仅在迁移过程中非nil

	growthCycles  uint64
	migratedSlots uint64
}

func (r *rootTable[K, V]) init() {
	r.bitlen = INIT_ROOT_BITLEN
	r.size = 1 << INIT_ROOT_BITLEN
	r.resizeBorder = r.size << ARC_BITLEN
	r.entries = make([]slot[K, V], r.size)
	r.newEntries = nil
}

func (r *rootTable[K, V]) migrating() bool {
	return r.newEntries != nil
}

// lookup reads the root arc(s) from stream and returns the root slot for
// the key, routed to whichever generation currently owns it.
func (r *rootTable[K, V]) lookup(stream *arcStream[K]) *slot[K, V] {
	arc := stream.read(r.bitlen)
	if int(arc) < r.resizeBorder {
		return &r.entries[arc]
	}
	arc |= stream.read(ARC_BITLEN) << r.bitlen
	return &r.newEntries[arc]
}

func (r *rootTable[K, V]) canGrow() bool {
	return r.bitlen+ARC_BITLEN <= MAX_ROOT_BITLEN
}

// amortizedResize advances the growth protocol by one step. It returns true
// when the step completed a growth cycle.
func (r *rootTable[K, V]) amortizedResize(hasher keyhash.Hasher[K]) bool {
	if !r.canGrow() {
		return false
	}
	r.resizeBorder--
	if r.resizeBorder == r.size {
		r.newEntries = make([]slot[K, V], r.size<<ARC_BITLEN)
		return false
	}
	if r.resizeBorder > r.size {
		return false
	}

	r.migrate(r.resizeBorder, hasher)
	if r.resizeBorder > 0 {
		return false
	}

	r.entries = r.newEntries
	r.newEntries = nil
	r.bitlen += ARC_BITLEN
	r.size <<= ARC_BITLEN
	r.resizeBorder = r.size << ARC_BITLEN
	r.growthCycles++
	return true
}

// migrate moves old slot i into the new generation. A leaf is re-indexed
// with bitlen+ARC_BITLEN bits of its hash code; a node is dissolved and its
// children promoted, since a child's arc is exactly the ARC_BITLEN bits the
// root index gains.
func (r *rootTable[K, V]) migrate(i int, hasher keyhash.Hasher[K]) {
	s := &r.entries[i]
	switch {
	case s.leaf != nil:
		stream := newArcStreamWithHashcode(s.leaf.key, hasher, s.leaf.hashcode)
		r.newEntries[stream.read(r.bitlen+ARC_BITLEN)] = *s
	case s.node != nil:
		s.node.each(func(arc uint32, child *slot[K, V]) {
			if !child.isEmpty() {
				r.newEntries[i|int(arc)<<r.bitlen] = *child
			}
		})
	}
	*s = slot[K, V]{}
	r.migratedSlots++
}

// walk visits every non-empty root slot of both generations.
func (r *rootTable[K, V]) walk(callback func(s *slot[K, V])) {
	for i := range r.entries {
		if !r.entries[i].isEmpty() {
			callback(&r.entries[i])
		}
	}
	for i := range r.newEntries {
		if !r.newEntries[i].isEmpty() {
			callback(&r.newEntries[i])
		}
	}
}
