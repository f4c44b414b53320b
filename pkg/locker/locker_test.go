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

package locker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/pkg/locker"
)

func TestLocker(t *testing.T) {
	t.Run("lock test", func(t *testing.T) {
		l := locker.New()
		l.Lock("lisbon")

		done := make(chan struct{})
		go func() {
			l.Lock("lisbon")
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("lock should not have returned while it was still held")
		case <-time.After(50 * time.Millisecond):
		}

		assert.NoError(t, l.Unlock("lisbon"))
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("lock should have completed")
		}

		assert.NoError(t, l.Unlock("lisbon"))
		assert.Equal(t, 0, l.Len())
	})

	t.Run("unlock unknown lock test", func(t *testing.T) {
		l := locker.New()
		assert.ErrorIs(t, l.Unlock("porto"), locker.ErrNoSuchLock)
	})

	t.Run("try lock test", func(t *testing.T) {
		l := locker.New()

		for i := 0; i < 2; i++ {
			assert.True(t, l.TryLock("lisbon"))
			assert.False(t, l.TryLock("lisbon"))
			assert.False(t, l.TryLock("lisbon"))
			assert.True(t, l.TryLock("porto"))

			assert.NoError(t, l.Unlock("lisbon"))
			assert.NoError(t, l.Unlock("porto"))
			assert.Equal(t, 0, l.Len())
		}
	})

	t.Run("concurrency test", func(t *testing.T) {
		l := locker.New()
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < 1000; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.Lock("lisbon")
				counter++
				assert.NoError(t, l.Unlock("lisbon"))
			}()
		}
		wg.Wait()

		assert.Equal(t, 1000, counter)
		assert.Equal(t, 0, l.Len())
	})
}
