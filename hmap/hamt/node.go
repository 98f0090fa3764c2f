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
	"fmt"
)

const (
	ARC_BITLEN = 5
	ARC_SIZE   = 1 << ARC_BITLEN
	ARC_MASK   = ARC_SIZE - 1
)

type entry[K, V any] struct {
	hashcode uint64 // salt为0时的哈希值，迁移和冲突分裂时免于重复计算
	key      K
	value    V
}

// slot是{空, 叶子, 子节点}的和类型，leaf和node至多一个非nil
type slot[K, V any] struct {
	leaf *entry[K, V]
	node *node[K, V]
}

func (s *slot[K, V]) isEmpty() bool {
	return s.leaf == nil && s.node == nil
}

func leafSlot[K, V any](e *entry[K, V]) slot[K, V] {
	return slot[K, V]{leaf: e}
}

func nodeSlot[K, V any](n *node[K, V]) slot[K, V] {
	return slot[K, V]{node: n}
}

// node is a sparse array of up to 32 slots. Bit i of bitmap is set iff arc
// i owns a slot, and that slot lives at slots[bitCount(bitmap & (1<<i - 1))].
// len(slots) always equals bitCount(bitmap).
type node[K, V any] struct {
	bitmap uint32
	slots  []slot[K, V]
}

func bitCount(n uint32) uint32 {
	n = (n & 0x55555555) + (n >> 1 & 0x55555555)
	n = (n & 0x33333333) + (n >> 2 & 0x33333333)
	n = (n & 0x0f0f0f0f) + (n >> 4 & 0x0f0f0f0f)
	n = (n & 0x00ff00ff) + (n >> 8 & 0x00ff00ff)
	return (n & 0x0000ffff) + (n >> 16 & 0x0000ffff)
}

func checkArc(arc uint32) {
	if arc >= ARC_SIZE {
		panic(fmt.Sprintf("hamt: arc %d out of range [0, %d)", arc, ARC_SIZE))
	}
}

func (n *node[K, V]) has(arc uint32) bool {
	return n.bitmap>>arc&1 == 1
}

func (n *node[K, V]) index(arc uint32) uint32 {
	return bitCount(n.bitmap & (1<<arc - 1))
}

// get returns the slot at arc, or nil if the node has none there.
func (n *node[K, V]) get(arc uint32) *slot[K, V] {
	checkArc(arc)
	if !n.has(arc) {
		return nil
	}
	return &n.slots[n.index(arc)]
}

// getOrCreateSlot returns the slot at arc, inserting an empty one first if
// needed. The pointer is valid until the next insertion into n.
func (n *node[K, V]) getOrCreateSlot(arc uint32) *slot[K, V] {
	checkArc(arc)
	if !n.has(arc) {
		n.insert(arc, slot[K, V]{})
	}
	return &n.slots[n.index(arc)]
}

func (n *node[K, V]) setSlot(arc uint32, s slot[K, V]) {
	checkArc(arc)
	if n.has(arc) {
		n.slots[n.index(arc)] = s
		return
	}
	n.insert(arc, s)
}

// 扩容恰好一个元素，插入点之后的元素后移
func (n *node[K, V]) insert(arc uint32, s slot[K, V]) {
	i := n.index(arc)
	slots := make([]slot[K, V], len(n.slots)+1)
	copy(slots, n.slots[:i])
	slots[i] = s
	copy(slots[i+1:], n.slots[i:])
	n.slots = slots
	n.bitmap |= 1 << arc
}

func (n *node[K, V]) initTwo(arc1 uint32, s1 slot[K, V], arc2 uint32, s2 slot[K, V]) {
	checkArc(arc1)
	checkArc(arc2)
	if arc1 == arc2 {
		panic(fmt.Sprintf("hamt: initTwo with identical arc %d", arc1))
	}
	n.bitmap = 1<<arc1 | 1<<arc2
	if arc1 < arc2 {
		n.slots = []slot[K, V]{s1, s2}
	} else {
		n.slots = []slot[K, V]{s2, s1}
	}
}

// each visits the slots in arc order, including slots emptied by erase.
func (n *node[K, V]) each(callback func(arc uint32, s *slot[K, V])) {
	bitmap := n.bitmap
	for i := range n.slots {
		arc := bitCount(bitmap&-bitmap - 1)
		callback(arc, &n.slots[i])
		bitmap &= bitmap - 1
	}
}
