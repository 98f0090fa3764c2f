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
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepflowio/hamt/hmap/hamt"
	"github.com/deepflowio/hamt/logger"
)

type pair struct {
	key, value uint64
}

var demoPairs = []pair{{10, 2}, {434, 20}}

func runDemo(w io.Writer) {
	m := hamt.NewU64Map[uint64]("demo").NoStats()
	for _, p := range demoPairs {
		m.Set(p.key, p.value)
	}
	for _, p := range demoPairs {
		if value := m.Find(p.key); value != nil {
			fmt.Fprintf(w, "%d => %d\n", p.key, *value)
		} else {
			fmt.Fprintf(w, "%d not found\n", p.key)
		}
	}
	fmt.Fprintf(w, "size %d\n", m.Size())
}

func main() {
	logger.InitConsoleLog()
	root := &cobra.Command{
		Use:   "hamt-demo",
		Short: "Insert two integer keys into a HAMT and look them up",
		Run: func(cmd *cobra.Command, args []string) {
			runDemo(cmd.OutOrStdout())
		},
	}
	root.SetArgs(os.Args[1:])
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
