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

package pool

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/docker/go-units"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("pool")

type Option = interface{}
type OptionInitBlockSize int

const INIT_BLOCK_SIZE = OptionInitBlockSize(8)

type ArenaCounter struct {
	ObjectSize uint64

	InUseObjects    uint64 `statsd:"arena_in_use_objects,gauge"`
	InUseBytes      uint64 `statsd:"arena_in_use_bytes,gauge"`
	ReservedBytes   uint64 `statsd:"arena_reserved_bytes,gauge"`
	Blocks          uint64 `statsd:"arena_blocks,gauge"`
	RecycledObjects uint64 `statsd:"arena_recycled_objects,gauge"`
}

func (c ArenaCounter) String() string {
	return fmt.Sprintf("in use %d objects (%s), reserved %s in %d blocks, %d recycled",
		c.InUseObjects, units.BytesSize(float64(c.InUseBytes)),
		units.BytesSize(float64(c.ReservedBytes)), c.Blocks, c.RecycledObjects)
}

// Arena 定长对象分配器：按块批量申请，块内顺序分配，释放的对象挂入空闲链表复用。
// 对象一经分配地址不再变化，块不做压缩。
// 注意：不是线程安全的，仅GetCounter可以在其他goroutine中调用
type Arena[T any] struct {
	blocks   [][]T // 块链，最后一个为当前块，块大小按1.25倍增长
	position int   // 当前块中下一个未分配对象的下标
	free     []*T  // 空闲链表

	// 以下统计供stats采集goroutine读取
	inUse      atomic.Int64
	reserved   atomic.Int64
	blockCount atomic.Int64
	recycled   atomic.Int64
}

func (a *Arena[T]) current() []T {
	return a.blocks[len(a.blocks)-1]
}

func (a *Arena[T]) enlarge() {
	size := len(a.current())
	size += size >> 2
	a.blocks = append(a.blocks, make([]T, size))
	a.reserved.Add(int64(size))
	a.blockCount.Store(int64(len(a.blocks)))
	a.position = 0
	log.Debugf("arena of %T enlarged to %d blocks, new block holds %d objects", *new(T), len(a.blocks), size)
}

// Alloc returns a zeroed object. Recycled objects are handed out before the
// current block is bumped.
func (a *Arena[T]) Alloc() *T {
	a.inUse.Add(1)
	if n := len(a.free); n > 0 {
		p := a.free[n-1]
		a.free[n-1] = nil
		a.free = a.free[:n-1]
		a.recycled.Store(int64(len(a.free)))
		return p
	}
	if a.position == len(a.current()) {
		a.enlarge()
	}
	p := &a.current()[a.position]
	a.position++
	return p
}

// Release zeroes p and keeps it for a later Alloc. p must come from this
// arena and must not be used afterwards.
func (a *Arena[T]) Release(p *T) {
	var blank T
	*p = blank
	a.free = append(a.free, p)
	a.recycled.Store(int64(len(a.free)))
	a.inUse.Add(-1)
}

// Reset drops every block but the most recent one and forgets all
// outstanding objects.
func (a *Arena[T]) Reset() {
	last := a.current()
	var blank T
	for i := range last[:a.position] {
		last[i] = blank
	}
	a.blocks = [][]T{last}
	a.position = 0
	a.free = nil
	a.inUse.Store(0)
	a.reserved.Store(int64(len(last)))
	a.blockCount.Store(1)
	a.recycled.Store(0)
}

func (a *Arena[T]) InUse() int {
	return int(a.inUse.Load())
}

func (a *Arena[T]) GetCounter() ArenaCounter {
	objectSize := uint64(unsafe.Sizeof(*new(T)))
	inUse := uint64(a.inUse.Load())
	return ArenaCounter{
		ObjectSize:      objectSize,
		InUseObjects:    inUse,
		InUseBytes:      inUse * objectSize,
		ReservedBytes:   uint64(a.reserved.Load()) * objectSize,
		Blocks:          uint64(a.blockCount.Load()),
		RecycledObjects: uint64(a.recycled.Load()),
	}
}

func NewArena[T any](options ...Option) *Arena[T] {
	initBlockSize := INIT_BLOCK_SIZE
	for _, opt := range options {
		if size, ok := opt.(OptionInitBlockSize); ok && size >= 4 {
			initBlockSize = size
		}
	}
	a := &Arena[T]{
		blocks: [][]T{make([]T, initBlockSize)},
	}
	a.reserved.Store(int64(initBlockSize))
	a.blockCount.Store(1)
	return a
}
