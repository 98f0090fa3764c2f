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

package bench

import (
	"fmt"
	"math/rand"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Workiva/go-datastructures/bitarray"
	units "github.com/docker/go-units"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/deepflowio/hamt/config"
	"github.com/deepflowio/hamt/hmap"
	"github.com/deepflowio/hamt/hmap/hamt"
	"github.com/deepflowio/hamt/hmap/keyhash"
	"github.com/deepflowio/hamt/stats"
)

var log = logging.MustGetLogger("bench")

var rateUnits = []string{"", "K", "M", "G"}

type Report struct {
	KeyType  string
	KeySpace uint64

	KeyCount       int
	Distinct       int
	InsertDuration time.Duration

	QueryCount    int
	Hits          int
	Mismatches    int // 与位图记录的插入结果不一致的查询次数
	QueryDuration time.Duration

	Depth          int
	RootSize       int
	HeapAlloc      uint64
	CollisionChain string
}

// ExpectedHitRate is the chance that a uniformly drawn key was inserted.
func (r *Report) ExpectedHitRate() float64 {
	return float64(r.Distinct) / float64(r.KeySpace)
}

func (r *Report) HitRate() float64 {
	if r.QueryCount == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.QueryCount)
}

func rate(count int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return units.CustomSize("%.4g%s", float64(count)/d.Seconds(), 1000.0, rateUnits) + " ops/s"
}

func (r *Report) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "key type %s, %d keys (%d distinct) in space %d\n", r.KeyType, r.KeyCount, r.Distinct, r.KeySpace)
	fmt.Fprintf(sb, "insert %v (%s)\n", r.InsertDuration.Round(time.Microsecond), rate(r.KeyCount, r.InsertDuration))
	fmt.Fprintf(sb, "query %d %v (%s), hit rate %.4f%% expected %.4f%%, mismatches %d\n",
		r.QueryCount, r.QueryDuration.Round(time.Microsecond), rate(r.QueryCount, r.QueryDuration),
		r.HitRate()*100, r.ExpectedHitRate()*100, r.Mismatches)
	fmt.Fprintf(sb, "depth %d, root %d slots, heap %s", r.Depth, r.RootSize, units.BytesSize(float64(r.HeapAlloc)))
	if r.CollisionChain != "" {
		fmt.Fprintf(sb, "\ncollision chain %s", r.CollisionChain)
	}
	return sb.String()
}

// StartStats points the global collector at the configured sinks and
// returns the function that flushes and stops it.
func StartStats(c *config.StatsConfig) (func(), error) {
	var sinks stats.MultiSink
	if c.StatsdAddress != "" {
		sink, err := stats.NewStatsdSink(c.StatsdAddress)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if c.InfluxdbAddress != "" {
		sink, err := stats.NewInfluxSink(c.InfluxdbAddress, c.InfluxdbDatabase)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		return func() {}, nil
	}

	stats.SetMinInterval(time.Duration(c.Interval) * time.Second)
	stats.SetSink(sinks)
	monitor, err := stats.RegisterRuntimeMonitor()
	if err != nil {
		log.Warningf("register runtime monitor failed: %s", err)
	}
	stats.Start()
	log.Infof("stats started, interval %ds", c.Interval)
	return func() {
		stats.Stop()
		if monitor != nil {
			stats.DeregisterCountable(monitor)
		}
		stats.SetSink(nil)
	}, nil
}

// Run inserts KeyCount random keys drawn from [0, KeySpace), then checks
// QueryCount more random keys against a bitmap of what was inserted.
func Run(c *config.Config) (*Report, error) {
	switch c.KeyType {
	case config.KEY_TYPE_STRING:
		return run(c, newMap(c, keyhash.StringStrategy()), func(k uint64) string {
			return strconv.FormatUint(k, 10)
		})
	case config.KEY_TYPE_U64:
		return run(c, newMap(c, keyhash.U64Strategy()), func(k uint64) uint64 {
			return k
		})
	}
	return nil, errors.Errorf("unsupported key type %q", c.KeyType)
}

func newMap[K any](c *config.Config, strategy keyhash.Strategy[K]) *hamt.Map[K, uint64] {
	module := "bench-" + c.KeyType
	var m *hamt.Map[K, uint64]
	if c.StatsEnabled() {
		m = hamt.NewMap[K, uint64](module, strategy, stats.OptionStatTags{"key_type": c.KeyType})
	} else {
		m = hamt.NewMapNoStats[K, uint64](module, strategy)
	}
	m.SetCollisionChainDebugThreshold(c.Debug.CollisionDepthThreshold)
	return m
}

func run[K any](c *config.Config, m *hamt.Map[K, uint64], keyOf func(uint64) K) (*Report, error) {
	defer m.Close()

	inserted := bitarray.NewBitArray(c.KeySpace)
	random := rand.New(rand.NewSource(c.Seed))
	report := &Report{
		KeyType:    c.KeyType,
		KeySpace:   c.KeySpace,
		KeyCount:   c.KeyCount,
		QueryCount: c.QueryCount,
	}

	keys := make([]uint64, c.KeyCount)
	for i := range keys {
		keys[i] = random.Uint64() % c.KeySpace
		if err := inserted.SetBit(keys[i]); err != nil {
			return nil, errors.Wrapf(err, "mark key %d", keys[i])
		}
	}
	start := time.Now()
	for _, k := range keys {
		m.Set(keyOf(k), k)
	}
	report.InsertDuration = time.Since(start)
	report.Distinct = m.Size()
	log.Infof("inserted %d keys, %d distinct", c.KeyCount, report.Distinct)

	queries := make([]uint64, c.QueryCount)
	for i := range queries {
		queries[i] = random.Uint64() % c.KeySpace
	}
	hits := make([]bool, c.QueryCount)
	start = time.Now()
	for i, k := range queries {
		if value, ok := m.Get(keyOf(k)); ok {
			hits[i] = value == k
			report.Hits++
		}
	}
	report.QueryDuration = time.Since(start)

	for i, k := range queries {
		expect, err := inserted.GetBit(k)
		if err != nil {
			return nil, errors.Wrapf(err, "check key %d", k)
		}
		if hits[i] != expect {
			report.Mismatches++
		}
	}

	report.Depth = m.Depth()
	report.RootSize = m.RootSize()
	memStats := runtime.MemStats{}
	runtime.ReadMemStats(&memStats)
	report.HeapAlloc = memStats.HeapAlloc
	report.CollisionChain = hmap.DumpCollisionChain(m)

	if report.Mismatches > 0 {
		return report, errors.Errorf("%d of %d queries disagree with inserted keys", report.Mismatches, report.QueryCount)
	}
	return report, nil
}
