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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "hamt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultKeyCount, c.KeyCount)
		assert.Equal(t, DefaultKeyCount, c.QueryCount)
		assert.Equal(t, uint64(DefaultKeySpace), c.KeySpace)
		assert.Equal(t, KEY_TYPE_U64, c.KeyType)
		assert.Equal(t, DefaultStatsInterval, c.Stats.Interval)
		assert.False(t, c.StatsEnabled())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log-file: /tmp/hamt/hamt.log
log-level: WARN
key-count: 5000
key-space: 100000
seed: 42
key-type: string
stats:
  statsd-address: 127.0.0.1:8125
  interval: 0
debug:
  collision-depth-threshold: 4
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hamt/hamt.log", c.LogFile)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 5000, c.KeyCount)
	assert.Equal(t, 5000, c.QueryCount)
	assert.Equal(t, uint64(100000), c.KeySpace)
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, KEY_TYPE_STRING, c.KeyType)
	assert.Equal(t, "127.0.0.1:8125", c.Stats.StatsdAddress)
	assert.Equal(t, DefaultInfluxdbDatabase, c.Stats.InfluxdbDatabase)
	assert.Equal(t, DefaultStatsInterval, c.Stats.Interval)
	assert.Equal(t, 4, c.Debug.CollisionDepthThreshold)
	assert.True(t, c.StatsEnabled())
}

func TestLoadInvalid(t *testing.T) {
	for _, content := range []string{
		"key-type: bytes",
		"log-level: loud",
		"key-count: -1",
		"query-count: -5",
		"key-count: [1",
		"key-space: 2147483648",
	} {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, content)
	}
}
