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

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		input  string
		output logging.Level
		err    bool
	}{
		{"info", logging.INFO, false},
		{"DEBUG", logging.DEBUG, false},
		{" warn ", logging.WARNING, false},
		{"Warning", logging.WARNING, false},
		{"error", logging.ERROR, false},
		{"verbose", logging.INFO, true},
	} {
		level, err := ParseLevel(tc.input)
		if tc.err {
			assert.Error(t, err, tc.input)
			continue
		}
		assert.NoError(t, err, tc.input)
		if level != tc.output {
			t.Errorf("应为%s, 实为%s", tc.output, level)
		}
	}
}

func TestInitLogInvalidLevel(t *testing.T) {
	assert.Error(t, InitLog("", "loud"))
}

func TestInitLogFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "sub", "hamt.log")
	require.NoError(t, InitLog(filePath, "info"))
	defer InitConsoleLog()

	logging.MustGetLogger("logger_test").Info("hello")
	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello")
	assert.Contains(t, string(content), "[logger_test]")
}

func TestPrefixLogger(t *testing.T) {
	buffer := &bytes.Buffer{}
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(
		logging.NewLogBackend(buffer, "", 0),
		logging.MustStringFormatter("%{level:.4s} %{message}"),
	))
	backend.SetLevel(logging.INFO, "")
	logging.SetBackend(backend)
	defer InitConsoleLog()

	l := NewPrefixLogger("prefix_test", "[map-a]")
	assert.Equal(t, "[map-a]", l.Prefix())
	l.Infof("grow to %d", 256)
	l.Warning("deep", "chain")
	l.Debugf("hidden %d", 1)

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO [map-a] grow to 256", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "WARN [map-a]"), lines[1])
}
