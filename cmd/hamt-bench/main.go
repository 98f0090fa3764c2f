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

package main

import (
	"fmt"
	"os"

	logging "github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/deepflowio/hamt/bench"
	"github.com/deepflowio/hamt/config"
	"github.com/deepflowio/hamt/logger"
)

var log = logging.MustGetLogger("hamt-bench")

var RevCount, Revision, CommitDate string

func newRootCommand() *cobra.Command {
	var (
		configPath string
		keyCount   int
		queryCount int
		keySpace   uint64
		keyType    string
		seed       int64
		version    bool
	)
	root := &cobra.Command{
		Use:   "hamt-bench",
		Short: "Insert random keys into a HAMT and check lookups against the inserted set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if version {
				fmt.Printf("%s-%s %s\n", RevCount, Revision, CommitDate)
				return nil
			}
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("key-count") {
				c.KeyCount = keyCount
			}
			if flags.Changed("query-count") {
				c.QueryCount = queryCount
			}
			if flags.Changed("key-space") {
				c.KeySpace = keySpace
			}
			if flags.Changed("key-type") {
				c.KeyType = keyType
			}
			if flags.Changed("seed") {
				c.Seed = seed
			}
			if err := c.Validate(); err != nil {
				return err
			}
			if err := logger.InitLog(c.LogFile, c.LogLevel); err != nil {
				return err
			}

			stop, err := bench.StartStats(&c.Stats)
			if err != nil {
				return err
			}
			defer stop()

			report, err := bench.Run(c)
			if report != nil {
				fmt.Println(report)
			}
			return err
		},
		SilenceUsage: true,
	}
	flags := root.Flags()
	flags.StringVarP(&configPath, "config", "f", "", "Specify config file location")
	flags.IntVar(&keyCount, "key-count", config.DefaultKeyCount, "Number of keys to insert")
	flags.IntVar(&queryCount, "query-count", 0, "Number of keys to query, same as key-count if 0")
	flags.Uint64Var(&keySpace, "key-space", config.DefaultKeySpace, "Keys are drawn from [0, key-space)")
	flags.StringVar(&keyType, "key-type", config.KEY_TYPE_U64, "Key type, u64 or string")
	flags.Int64Var(&seed, "seed", config.DefaultSeed, "Random seed")
	flags.BoolVarP(&version, "version", "v", false, "Display the version")
	return root
}

func main() {
	logger.InitConsoleLog()
	root := newRootCommand()
	root.SetArgs(os.Args[1:])
	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
