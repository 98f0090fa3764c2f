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
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepflowio/hamt/utils"
)

type testCounter struct {
	Size    int     `statsd:"size,gauge"`
	Hit     uint64  `statsd:"hit"`
	Ratio   float64 `statsd:"ratio,gauge"`
	Growing bool    `statsd:"growing,gauge"`
	Ignored int
	hidden  int `statsd:"hidden"`
}

type testCountable struct {
	utils.Closable
	counter testCounter
}

func (c *testCountable) GetCounter() interface{} {
	counter := c.counter
	c.counter = testCounter{Size: counter.Size}
	return &counter
}

func TestFlatten(t *testing.T) {
	items := Flatten(&testCounter{Size: 3, Hit: 7, Ratio: 0.5, Growing: true, Ignored: 9, hidden: 1})
	assert.Equal(t, []StatItem{
		{"size", GAUGE_TYPE, int64(3)},
		{"hit", COUNT_TYPE, int64(7)},
		{"ratio", GAUGE_TYPE, 0.5},
		{"growing", GAUGE_TYPE, int64(1)},
	}, items)

	raw := []StatItem{{"duration", COUNT_TYPE, uint64(10)}}
	assert.Equal(t, raw, Flatten(raw))
	assert.Nil(t, Flatten(nil))
	assert.Nil(t, Flatten(42))
}

func TestCollectorSend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := NewMockSink(ctrl)

	collector := NewCollector(sink)
	countable := &testCountable{counter: testCounter{Size: 5, Hit: 2}}
	require.NoError(t, collector.Register("hamt", countable, OptionStatTags{"module": "test"}))
	assert.Error(t, collector.Register("hamt", countable))
	assert.Error(t, collector.Register("hamt", &testCountable{}, "bad option"))

	now := time.Unix(1700000000, 0)
	sink.EXPECT().Send("hamt", map[string]string{"module": "test"}, gomock.Any(), now).DoAndReturn(
		func(module string, tags map[string]string, items []StatItem, timestamp time.Time) error {
			assert.Contains(t, items, StatItem{"size", GAUGE_TYPE, int64(5)})
			assert.Contains(t, items, StatItem{"hit", COUNT_TYPE, int64(2)})
			return nil
		})
	collector.Collect(now)

	// interval未到，不采集
	collector.Collect(now.Add(MinInterval / 2))

	sink.EXPECT().Send("hamt", gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("network down"))
	collector.Collect(now.Add(MinInterval))

	countable.Close()
	collector.Collect(now.Add(2 * MinInterval))
	assert.Equal(t, 0, collector.Len())
}

func TestCollectorDeregister(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := NewMockSink(ctrl)

	collector := NewCollector(sink)
	a, b := &testCountable{}, &testCountable{}
	require.NoError(t, collector.Register("a", a, OptionInterval(time.Hour)))
	require.NoError(t, collector.Register("b", b))
	collector.Deregister(a)
	assert.Equal(t, 1, collector.Len())

	sink.EXPECT().Send("b", gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	collector.Collect(time.Now())

	sink.EXPECT().Close().Return(nil)
	collector.SetSink(nil)
}

func TestCollectorStartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := NewMockSink(ctrl)

	collector := NewCollector(sink)
	require.NoError(t, collector.Register("runtime", &RuntimeMonitor{}))
	sink.EXPECT().Send("runtime", gomock.Any(), gomock.Len(4), gomock.Any()).Return(nil).MinTimes(1)
	collector.Start()
	collector.Start()
	collector.Stop()
	collector.Stop()
}

func TestStatsdSink(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	sink, err := NewStatsdSink(conn.LocalAddr().String())
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Send("map", map[string]string{"module": "test"},
		[]StatItem{{"size", GAUGE_TYPE, int64(100)}, {"hit", COUNT_TYPE, int64(3)}}, time.Now()))

	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	packet := string(buf[:n])
	assert.Contains(t, packet, "hamt.map.size")
	assert.Contains(t, packet, "module=test")
	assert.Contains(t, packet, "100|g")
}

func TestInfluxSink(t *testing.T) {
	var body, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/write") {
			b, _ := io.ReadAll(r.Body)
			body, query = string(b), r.URL.RawQuery
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink, err := NewInfluxSink(server.URL, "hamt")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Send("map", map[string]string{"module": "test"},
		[]StatItem{{"size", GAUGE_TYPE, int64(100)}}, time.Unix(1700000000, 0)))
	assert.Contains(t, query, "db=hamt")
	assert.Contains(t, body, "map,module=test size=100i 1700000000")
}

func TestOptionStatTagsString(t *testing.T) {
	assert.Equal(t, "{}", OptionStatTags{}.String())
	assert.Equal(t, "{a: 1, b: 2}", OptionStatTags{"b": "2", "a": "1"}.String())
}

func TestMultiSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	a, b := NewMockSink(ctrl), NewMockSink(ctrl)

	sink := MultiSink{a, b}
	items := []StatItem{{"size", GAUGE_TYPE, int64(1)}}
	a.EXPECT().Send("map", gomock.Any(), items, gomock.Any()).Return(errors.New("unreachable"))
	b.EXPECT().Send("map", gomock.Any(), items, gomock.Any()).Return(nil)
	assert.Error(t, sink.Send("map", nil, items, time.Now()))

	a.EXPECT().Close().Return(nil)
	b.EXPECT().Close().Return(nil)
	assert.NoError(t, sink.Close())
}
