/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
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

package limit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/pkg/limit"
)

func TestLimiter(t *testing.T) {
	const (
		interval = 10 * time.Millisecond
		window   = 100 * time.Millisecond
		waiting  = interval + 2*window
	)

	t.Run("single event test", func(t *testing.T) {
		lim := limit.New[string](interval, window, window)
		defer lim.Close()

		var calls atomic.Int32
		callback := func() { calls.Add(1) }
		if lim.Allow("session", callback) {
			callback()
		}

		time.Sleep(waiting)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 0, lim.Len())
	})

	t.Run("burst with trailing event test", func(t *testing.T) {
		lim := limit.New[string](interval, window, window)
		defer lim.Close()

		var calls atomic.Int32
		callback := func() { calls.Add(1) }
		for i := 0; i < 100; i++ {
			if lim.Allow("session", callback) {
				callback()
			}
		}
		assert.Equal(t, int32(1), calls.Load())

		time.Sleep(waiting)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("concurrent events test", func(t *testing.T) {
		lim := limit.New[int](interval, window, window)
		defer lim.Close()

		var calls atomic.Int32
		callback := func() { calls.Add(1) }

		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func(key int) {
				defer wg.Done()
				if lim.Allow(key%4, callback) {
					callback()
				}
			}(i)
		}
		wg.Wait()

		time.Sleep(waiting)
		// One immediate and one trailing call per key.
		assert.Equal(t, int32(8), calls.Load())
	})

	t.Run("close drops trailing events test", func(t *testing.T) {
		lim := limit.New[string](interval, window, window)

		var calls atomic.Int32
		callback := func() { calls.Add(1) }
		assert.True(t, lim.Allow("session", callback))
		assert.False(t, lim.Allow("session", callback))
		lim.Close()
		lim.Close()

		time.Sleep(waiting)
		assert.Equal(t, int32(0), calls.Load())
	})
}
