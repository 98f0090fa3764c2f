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

package stats

import (
	"runtime"
	"time"
)

type RuntimeMonitor struct {
	lastPauseDuration uint64
	lastNumGC         uint32
}

func (t *RuntimeMonitor) GetCounter() interface{} {
	memStats := runtime.MemStats{}
	runtime.ReadMemStats(&memStats)
	gcDuration := memStats.PauseTotalNs - t.lastPauseDuration
	gcCount := memStats.NumGC - t.lastNumGC
	t.lastPauseDuration = memStats.PauseTotalNs
	t.lastNumGC = memStats.NumGC
	return []StatItem{
		{"gc_duration", COUNT_TYPE, int64(gcDuration)},
		{"gc_count", COUNT_TYPE, int64(gcCount)},
		{"heap_alloc", GAUGE_TYPE, int64(memStats.HeapAlloc)},
		{"heap_objects", GAUGE_TYPE, int64(memStats.HeapObjects)},
	}
}

func RegisterRuntimeMonitor() (*RuntimeMonitor, error) {
	monitor := &RuntimeMonitor{}
	if err := RegisterCountable("runtime", monitor, OptionInterval(time.Second)); err != nil {
		return nil, err
	}
	return monitor, nil
}
