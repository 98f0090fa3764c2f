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

const HASHCODE_BITLEN = 64

// arcStream cuts a key's hash code into arcs, low bits first. When the
// bits left in the current hash code cannot fill a read, the key is
// re-hashed with the next salt and reading restarts at bit 0.
type arcStream[K any] struct {
	key    K
	hasher keyhash.Hasher[K]

	origin   uint64 // salt为0时的哈希值
	hashcode uint64
	salt     uint32
	cursor   uint32
}

func newArcStream[K any](key K, hasher keyhash.Hasher[K]) arcStream[K] {
	hashcode := hasher.Hash(key, 0)
	return arcStream[K]{key: key, hasher: hasher, origin: hashcode, hashcode: hashcode}
}

func newArcStreamWithHashcode[K any](key K, hasher keyhash.Hasher[K], hashcode uint64) arcStream[K] {
	return arcStream[K]{key: key, hasher: hasher, origin: hashcode, hashcode: hashcode}
}

func (s *arcStream[K]) read(width uint32) uint32 {
	if s.cursor+width > HASHCODE_BITLEN {
		s.salt++
		s.hashcode = s.hasher.Hash(s.key, s.salt)
		s.cursor = 0
	}
	arc := uint32(s.hashcode >> s.cursor & (1<<width - 1))
	s.cursor += width
	return arc
}

// fork returns a stream of another key positioned at the same salt and
// cursor as s. origin is the other key's salt 0 hash code.
func (s *arcStream[K]) fork(key K, origin uint64) arcStream[K] {
	f := arcStream[K]{key: key, hasher: s.hasher, origin: origin, salt: s.salt, cursor: s.cursor}
	if s.salt == 0 {
		f.hashcode = origin
	} else {
		f.hashcode = s.hasher.Hash(key, s.salt)
	}
	return f
}
