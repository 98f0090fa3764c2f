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

package hmap

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Debug is implemented by maps that can report the last collision chain
// exceeding a configured threshold. A chain is a concatenation of
// KeySize()-byte records.
type Debug interface {
	ID() string
	KeySize() int
	GetCollisionChain() []byte
	SetCollisionChainDebugThreshold(int)
}

func dumpHexBytes(bs []byte) string {
	sb := strings.Builder{}
	sb.WriteString("0x")
	isZero := true
	for _, b := range bs {
		if isZero {
			if b == 0 {
				continue
			}
			isZero = false
			sb.WriteString(fmt.Sprintf("%x", b))
		} else {
			sb.WriteString(fmt.Sprintf("%02x", b))
		}
	}
	if isZero {
		sb.WriteRune('0')
	}
	return sb.String()
}

// DumpCollisionChain reads (and consumes) d's chain, formatted as
// dash-separated hex records.
func DumpCollisionChain(d Debug) string {
	chain := d.GetCollisionChain()
	if len(chain) == 0 {
		return ""
	}
	keySize := d.KeySize()
	nKeys := (len(chain) + keySize - 1) / keySize
	keys := make([]string, 0, nKeys)
	for i := 0; i < nKeys; i++ {
		end := (i + 1) * keySize
		if end > len(chain) {
			end = len(chain)
		}
		keys = append(keys, dumpHexBytes(chain[i*keySize:end]))
	}
	return strings.Join(keys, "-")
}

var debugItemMutex sync.Mutex
var debugItems []Debug

func RegisterForDebug(d ...Debug) {
	debugItemMutex.Lock()
	debugItems = append(debugItems, d...)
	debugItemMutex.Unlock()
}

func DeregisterForDebug(ds ...Debug) {
	debugItemMutex.Lock()
	defer debugItemMutex.Unlock()
	for _, d := range ds {
		for i, item := range debugItems {
			if item == d {
				debugItems = append(debugItems[:i], debugItems[i+1:]...)
				break
			}
		}
	}
}

func SetCollisionChainDebugThreshold(t int) {
	debugItemMutex.Lock()
	for _, d := range debugItems {
		d.SetCollisionChainDebugThreshold(t)
	}
	debugItemMutex.Unlock()
}

// DumpCollisionChains collects the pending chain of every registered item,
// one "id: chain" line each, sorted by id. Items without a chain are
// omitted.
func DumpCollisionChains() string {
	debugItemMutex.Lock()
	items := append([]Debug(nil), debugItems...)
	debugItemMutex.Unlock()

	lines := make([]string, 0, len(items))
	for _, d := range items {
		if chain := DumpCollisionChain(d); chain != "" {
			lines = append(lines, d.ID()+": "+chain)
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
