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

package utils

import (
	"sync/atomic"
)

// 嵌入到需要注册stats的结构体中，Close之后stats会在下一次采集时将其注销
// Closed由stats采集goroutine调用，读写均为原子操作
type Closable struct {
	closed atomic.Bool
}

func (c *Closable) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Closable) Closed() bool {
	return c.closed.Load()
}
