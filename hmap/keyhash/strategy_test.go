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
	"math/bits"
	"testing"
)

func bashHash32(hash uint32) int32 {
	hash = (hash >> 16) ^ hash
	hash = (hash >> 8) ^ hash
	return int32(hash)
}

var testData32 = []uint32{0x4ce667, 0x4ce465, 0x4ce564, 0x4ce766}

func TestJenkins32(t *testing.T) {
	table := make(map[int32]int)
	jTable := make(map[int32]int)
	for _, data := range testData32 {
		hash := bashHash32(data) & 0xff
		table[hash]++
		hash = Jenkins32(data) & 0xff
		jTable[hash]++
	}
	if len(table) > len(jTable) {
		t.Error("Jenkins32 hash error.")
		t.Errorf("jenkins: %v", jTable)
		t.Errorf("base: %v", table)
	}
}

func TestHasherDeterministic(t *testing.T) {
	for salt := uint32(0); salt < 4; salt++ {
		for _, key := range []uint64{0, 1, 2, 0xffffffffffffffff, 0x4ce66700160000} {
			if (U64Hasher{}).Hash(key, salt) != (U64Hasher{}).Hash(key, salt) {
				t.Errorf("U64Hasher not deterministic for key %x salt %d", key, salt)
			}
		}
		for _, key := range []string{"", "a", "hamt", "incremental resize"} {
			if (StringHasher{}).Hash(key, salt) != (StringHasher{}).Hash(key, salt) {
				t.Errorf("StringHasher not deterministic for key %q salt %d", key, salt)
			}
			if (StringHasher{}).Hash(key, salt) != (BytesHasher{}).Hash([]byte(key), salt) {
				t.Errorf("StringHasher and BytesHasher disagree for key %q salt %d", key, salt)
			}
		}
	}
}

// 不同盐值下的哈希值应有足够多的比特不同，否则同一路径上的冲突永远无法分开
func TestSaltChangesBits(t *testing.T) {
	const minDiffBits = 8
	for key := uint64(1); key < 1000; key++ {
		h0, h1 := (U64Hasher{}).Hash(key, 0), (U64Hasher{}).Hash(key, 1)
		if d := bits.OnesCount64(h0 ^ h1); d < minDiffBits {
			t.Errorf("U64Hasher key %d: salt 0/1 differ in %d bits only", key, d)
		}
		s0, s1 := (U32Hasher{}).Hash(uint32(key), 0), (U32Hasher{}).Hash(uint32(key), 1)
		if d := bits.OnesCount64(s0 ^ s1); d < minDiffBits {
			t.Errorf("U32Hasher key %d: salt 0/1 differ in %d bits only", key, d)
		}
	}
	for _, key := range []string{"a", "b", "hamt"} {
		h0, h1 := (StringHasher{}).Hash(key, 0), (StringHasher{}).Hash(key, 1)
		if d := bits.OnesCount64(h0 ^ h1); d < minDiffBits {
			t.Errorf("StringHasher key %q: salt 0/1 differ in %d bits only", key, d)
		}
	}
}

func TestU64HasherNoCollision(t *testing.T) {
	seen := make(map[uint64]uint64)
	for key := uint64(0); key < 1<<16; key++ {
		h := (U64Hasher{}).Hash(key, 0)
		if other, ok := seen[h]; ok {
			t.Fatalf("keys %d and %d share hash %x", key, other, h)
		}
		seen[h] = key
	}
}

func TestStrategies(t *testing.T) {
	u := U64Strategy()
	if !u.Equal(7, 7) || u.Equal(7, 8) {
		t.Error("U64Strategy equality error")
	}
	s := StringStrategy()
	if !s.Equal("x", "x") || s.Equal("x", "y") {
		t.Error("StringStrategy equality error")
	}
	b := BytesStrategy()
	if !b.Equal([]byte("x"), []byte("x")) || b.Equal([]byte("x"), nil) {
		t.Error("BytesStrategy equality error")
	}
	f := NewStrategy[int](HasherFunc[int](func(k int, salt uint32) uint64 {
		return uint64(k) + uint64(salt)
	}), EqualerFunc[int](func(a, b int) bool { return a == b }))
	if f.Hash(3, 2) != 5 || !f.Equal(1, 1) {
		t.Error("func adapters error")
	}
}

func BenchmarkU64Hasher(b *testing.B) {
	for i := 0; i < b.N; i++ {
		(U64Hasher{}).Hash(uint64(i), 0)
	}
}

func BenchmarkStringHasher(b *testing.B) {
	for i := 0; i < b.N; i++ {
		(StringHasher{}).Hash("incremental resize", 0)
	}
}

func BenchmarkJenkins32(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Jenkins32(uint32(i))
	}
}
