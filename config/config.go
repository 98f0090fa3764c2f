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
	"strings"

	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/deepflowio/hamt/logger"
)

var log = logging.MustGetLogger("config")

const (
	KEY_TYPE_U64    = "u64"
	KEY_TYPE_STRING = "string"

	DefaultLogLevel         = "info"
	DefaultKeyCount         = 1000000
	DefaultKeySpace         = 1 << 26
	MaxKeySpace             = 1 << 30 // 校验用的位图按key-space分配，1<<30对应128MB
	DefaultSeed             = 1
	DefaultInfluxdbDatabase = "hamt"
	DefaultStatsInterval    = 10 // second
)

type StatsConfig struct {
	StatsdAddress    string `yaml:"statsd-address"`
	InfluxdbAddress  string `yaml:"influxdb-address"`
	InfluxdbDatabase string `yaml:"influxdb-database"`
	Interval         int    `yaml:"interval"`
}

type DebugConfig struct {
	CollisionDepthThreshold int `yaml:"collision-depth-threshold"`
}

type Config struct {
	LogFile    string      `yaml:"log-file"`
	LogLevel   string      `yaml:"log-level"`
	KeyCount   int         `yaml:"key-count"`
	QueryCount int         `yaml:"query-count"` // 为0时与key-count相同
	KeySpace   uint64      `yaml:"key-space"`   // key取值范围为[0, key-space)
	Seed       int64       `yaml:"seed"`
	KeyType    string      `yaml:"key-type"`
	Stats      StatsConfig `yaml:"stats"`
	Debug      DebugConfig `yaml:"debug"`
}

func (c *Config) StatsEnabled() bool {
	return c.Stats.StatsdAddress != "" || c.Stats.InfluxdbAddress != ""
}

func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if c.KeyCount < 0 {
		return errors.Errorf("key-count %d is negative", c.KeyCount)
	}
	if c.KeyCount == 0 {
		c.KeyCount = DefaultKeyCount
	}
	if c.QueryCount < 0 {
		return errors.Errorf("query-count %d is negative", c.QueryCount)
	}
	if c.QueryCount == 0 {
		c.QueryCount = c.KeyCount
	}
	if c.KeySpace == 0 {
		c.KeySpace = DefaultKeySpace
	}
	if c.KeySpace > MaxKeySpace {
		return errors.Errorf("key-space %d exceeds %d", c.KeySpace, uint64(MaxKeySpace))
	}

	switch c.KeyType {
	case "":
		c.KeyType = KEY_TYPE_U64
	case KEY_TYPE_U64, KEY_TYPE_STRING:
	default:
		return errors.Errorf("key-type %q not in [%s, %s]", c.KeyType, KEY_TYPE_U64, KEY_TYPE_STRING)
	}

	if c.Stats.InfluxdbDatabase == "" {
		c.Stats.InfluxdbDatabase = DefaultInfluxdbDatabase
	}
	if c.Stats.Interval <= 0 {
		c.Stats.Interval = DefaultStatsInterval
	}
	if c.Debug.CollisionDepthThreshold < 0 {
		c.Debug.CollisionDepthThreshold = 0
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		KeyCount: DefaultKeyCount,
		KeySpace: DefaultKeySpace,
		Seed:     DefaultSeed,
		KeyType:  KEY_TYPE_U64,
		Stats: StatsConfig{
			InfluxdbDatabase: DefaultInfluxdbDatabase,
			Interval:         DefaultStatsInterval,
		},
	}
}

// Load 读取yaml配置文件，文件不存在时使用默认配置
func Load(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, config.Validate()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Infof("no config file %s, use defaults", path)
		return config, config.Validate()
	}
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	if err = yaml.Unmarshal(configBytes, config); err != nil {
		return nil, errors.Wrapf(err, "unmarshal config file %s", path)
	}
	if err = config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return config, nil
}
