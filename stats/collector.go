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
	"reflect"
	"strings"
	"sync"
	"time"

	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("stats")

var defaultCollector = NewCollector(nil)

type statSource struct {
	module    string
	countable Countable
	tags      OptionStatTags
	interval  time.Duration

	lastCollect time.Time
}

type Collector struct {
	sync.Mutex

	sources []*statSource
	sink    Sink

	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewCollector(sink Sink) *Collector {
	return &Collector{sink: sink}
}

func (c *Collector) SetSink(sink Sink) {
	c.Lock()
	old := c.sink
	c.sink = sink
	c.Unlock()
	if old != nil && old != sink {
		if err := old.Close(); err != nil {
			log.Warningf("close stats sink failed: %s", err)
		}
	}
}

func (c *Collector) Register(module string, countable Countable, opts ...Option) error {
	if countable == nil {
		return errors.Errorf("register nil countable for module %s", module)
	}
	source := &statSource{module: module, countable: countable, tags: OptionStatTags{}, interval: MinInterval}
	for _, opt := range opts {
		switch o := opt.(type) {
		case OptionStatTags:
			for k, v := range o {
				source.tags[k] = v
			}
		case OptionInterval:
			source.interval = time.Duration(o)
		default:
			return errors.Errorf("unknown stats option %T for module %s", opt, module)
		}
	}
	if source.interval < MinInterval {
		source.interval = MinInterval
	}

	c.Lock()
	defer c.Unlock()
	for _, s := range c.sources {
		if s.countable == countable {
			return errors.Errorf("countable of module %s registered twice", module)
		}
	}
	c.sources = append(c.sources, source)
	log.Debugf("register countable %s %s, interval %v", module, source.tags, source.interval)
	return nil
}

func (c *Collector) Deregister(countable Countable) {
	c.Lock()
	defer c.Unlock()
	for i, s := range c.sources {
		if s.countable == countable {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			return
		}
	}
}

func (c *Collector) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.sources)
}

// Collect reads every countable whose interval has elapsed at now and hands
// the result to the sink. Closed countables are dropped without a read.
func (c *Collector) Collect(now time.Time) {
	c.Lock()
	sink := c.sink
	sources := c.sources[:0:0]
	alive := c.sources[:0]
	for _, s := range c.sources {
		if closable, ok := s.countable.(Closable); ok && closable.Closed() {
			log.Debugf("countable %s %s closed, deregistered", s.module, s.tags)
			continue
		}
		alive = append(alive, s)
		if now.Sub(s.lastCollect) >= s.interval {
			s.lastCollect = now
			sources = append(sources, s)
		}
	}
	for i := len(alive); i < len(c.sources); i++ {
		c.sources[i] = nil
	}
	c.sources = alive
	c.Unlock()

	for _, s := range sources {
		items := Flatten(s.countable.GetCounter())
		if sink == nil || len(items) == 0 {
			continue
		}
		if err := sink.Send(s.module, s.tags, items, now); err != nil {
			log.Warningf("send stats of %s %s failed: %s", s.module, s.tags, err)
		}
	}
}

func (c *Collector) Start() {
	c.Lock()
	defer c.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
}

func (c *Collector) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(MinInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.Collect(now)
		case <-stop:
			c.Collect(time.Now())
			return
		}
	}
}

// Stop flushes one last round and waits for the collector goroutine.
func (c *Collector) Stop() {
	c.Lock()
	if !c.running {
		c.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.Unlock()
	close(stop)
	<-done
}

// Flatten converts a counter into stat items. Struct fields are exported
// through their `statsd:"name[,gauge]"` tag, untagged fields are skipped.
func Flatten(counter interface{}) []StatItem {
	if counter == nil {
		return nil
	}
	if items, ok := counter.([]StatItem); ok {
		return items
	}
	v := reflect.Indirect(reflect.ValueOf(counter))
	if v.Kind() != reflect.Struct {
		log.Warningf("unsupported counter type %T", counter)
		return nil
	}
	return flattenStruct(v, nil)
}

func flattenStruct(v reflect.Value, items []StatItem) []StatItem {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)
		if field.Anonymous && value.Kind() == reflect.Struct {
			items = flattenStruct(value, items)
			continue
		}
		tag := field.Tag.Get("statsd")
		if tag == "" || !field.IsExported() {
			continue
		}
		name, statType := tag, COUNT_TYPE
		if i := strings.IndexByte(tag, ','); i >= 0 {
			name = tag[:i]
			if tag[i+1:] == "gauge" {
				statType = GAUGE_TYPE
			}
		}
		var item interface{}
		switch value.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			item = value.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			item = int64(value.Uint())
		case reflect.Float32, reflect.Float64:
			item = value.Float()
		case reflect.Bool:
			if value.Bool() {
				item = int64(1)
			} else {
				item = int64(0)
			}
		default:
			continue
		}
		items = append(items, StatItem{name, statType, item})
	}
	return items
}
