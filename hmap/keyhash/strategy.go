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

package keyhash

import (
	"bytes"

	"github.com/OneOfOne/xxhash"
)

// 2^64 / phi，与32位黄金分割素数同源
const GOLDEN_RATIO_PRIME64 = 0x9e3779b97f4a7c15

// Hasher computes the hash code of a key under a salt. For a given
// (key, salt) pair the result must be deterministic, and salts 0, 1, 2...
// must produce materially different bit patterns: the trie re-salts when it
// runs out of hash bits, and two unequal keys whose hash codes agree under
// every salt can never be separated.
type Hasher[K any] interface {
	Hash(key K, salt uint32) uint64
}

// Equaler must agree with the Hasher it is paired with: equal keys hash
// identically under every salt. A mismatched pair is not detected.
type Equaler[K any] interface {
	Equal(k1, k2 K) bool
}

type HasherFunc[K any] func(key K, salt uint32) uint64

func (f HasherFunc[K]) Hash(key K, salt uint32) uint64 {
	return f(key, salt)
}

type EqualerFunc[K any] func(k1, k2 K) bool

func (f EqualerFunc[K]) Equal(k1, k2 K) bool {
	return f(k1, k2)
}

type Strategy[K any] struct {
	Hasher[K]
	Equaler[K]
}

func NewStrategy[K any](hasher Hasher[K], equaler Equaler[K]) Strategy[K] {
	return Strategy[K]{Hasher: hasher, Equaler: equaler}
}

// 盐值在乘法之前混入
func saltSeed(salt uint32) uint64 {
	return uint64(salt) * GOLDEN_RATIO_PRIME64
}

type U64Hasher struct{}

func (U64Hasher) Hash(key uint64, salt uint32) uint64 {
	return HashFinish64((key ^ saltSeed(salt)) * GOLDEN_RATIO_PRIME64)
}

type U32Hasher struct{}

func (U32Hasher) Hash(key uint32, salt uint32) uint64 {
	seed := uint32(saltSeed(salt) >> 32)
	low := HashFinish(HashAdd(seed, key))
	high := uint32(Jenkins32(key ^ seed ^ low))
	return uint64(high)<<32 | uint64(low)
}

type StringHasher struct{}

func (StringHasher) Hash(key string, salt uint32) uint64 {
	return xxhash.ChecksumString64S(key, saltSeed(salt))
}

type BytesHasher struct{}

func (BytesHasher) Hash(key []byte, salt uint32) uint64 {
	return xxhash.Checksum64S(key, saltSeed(salt))
}

type Comparable[K comparable] struct{}

func (Comparable[K]) Equal(k1, k2 K) bool {
	return k1 == k2
}

type BytesEqual struct{}

func (BytesEqual) Equal(k1, k2 []byte) bool {
	return bytes.Equal(k1, k2)
}

func U64Strategy() Strategy[uint64] {
	return NewStrategy[uint64](U64Hasher{}, Comparable[uint64]{})
}

func U32Strategy() Strategy[uint32] {
	return NewStrategy[uint32](U32Hasher{}, Comparable[uint32]{})
}

func StringStrategy() Strategy[string] {
	return NewStrategy[string](StringHasher{}, Comparable[string]{})
}

func BytesStrategy() Strategy[[]byte] {
	return NewStrategy[[]byte](BytesHasher{}, BytesEqual{})
}
