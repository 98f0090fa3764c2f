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
	"sort"
	"time"

	client "github.com/influxdata/influxdb/client/v2"
	"github.com/pkg/errors"
	"gopkg.in/alexcesaro/statsd.v2"
)

const (
	STATSD_PREFIX      = "hamt"
	INFLUXDB_PRECISION = "s"
)

type StatsdSink struct {
	client *statsd.Client
}

// NewStatsdSink sends counters over UDP, tags are encoded in InfluxDB
// statsd format.
func NewStatsdSink(address string) (*StatsdSink, error) {
	c, err := statsd.New(
		statsd.Address(address),
		statsd.Prefix(STATSD_PREFIX),
		statsd.TagsFormat(statsd.InfluxDB),
		statsd.ErrorHandler(func(err error) {
			log.Warningf("statsd %s: %s", address, err)
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "create statsd client to %s", address)
	}
	return &StatsdSink{client: c}, nil
}

func sortedTags(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kvs := make([]string, 0, len(tags)*2)
	for _, k := range keys {
		kvs = append(kvs, k, tags[k])
	}
	return kvs
}

func (s *StatsdSink) Send(module string, tags map[string]string, items []StatItem, timestamp time.Time) error {
	c := s.client
	if len(tags) > 0 {
		c = s.client.Clone(statsd.Tags(sortedTags(tags)...))
	}
	for _, item := range items {
		bucket := module + "." + item.Name
		if item.StatType == GAUGE_TYPE {
			c.Gauge(bucket, item.Value)
		} else {
			c.Count(bucket, item.Value)
		}
	}
	c.Flush()
	return nil
}

func (s *StatsdSink) Close() error {
	s.client.Close()
	return nil
}

type InfluxSink struct {
	client   client.Client
	database string
}

func NewInfluxSink(address, database string) (*InfluxSink, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:    address,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create influxdb client to %s", address)
	}
	return &InfluxSink{client: c, database: database}, nil
}

func (s *InfluxSink) Send(module string, tags map[string]string, items []StatItem, timestamp time.Time) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  s.database,
		Precision: INFLUXDB_PRECISION,
	})
	if err != nil {
		return errors.Wrap(err, "new batch points")
	}
	fields := make(map[string]interface{}, len(items))
	for _, item := range items {
		fields[item.Name] = item.Value
	}
	pt, err := client.NewPoint(module, tags, fields, timestamp)
	if err != nil {
		return errors.Wrapf(err, "new point of %s", module)
	}
	bp.AddPoint(pt)
	if err := s.client.Write(bp); err != nil {
		return errors.Wrapf(err, "write %s to influxdb database %s", module, s.database)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	return s.client.Close()
}

// MultiSink fans one round out to every sink, a failing sink does not stop
// the others.
type MultiSink []Sink

func (s MultiSink) Send(module string, tags map[string]string, items []StatItem, timestamp time.Time) error {
	var firstErr error
	for _, sink := range s {
		if err := sink.Send(module, tags, items, timestamp); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s MultiSink) Close() error {
	var firstErr error
	for _, sink := range s {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
