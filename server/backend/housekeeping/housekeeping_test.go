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


package housekeeping_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/server/backend/housekeeping"
)

type fakeUnloader struct {
	mu       sync.Mutex
	idle     []string
	busy     map[string]bool
	failOn   string
	unloaded []string
}

func (f *fakeUnloader) IdleCandidates(_ time.Duration, limit int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.idle) > limit {
		return append([]string{}, f.idle[:limit]...)
	}
	return append([]string{}, f.idle...)
}

func (f *fakeUnloader) Unload(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == f.failOn {
		return false, errors.New("storage unavailable")
	}
	if f.busy[id] {
		return false, nil
	}

	f.unloaded = append(f.unloaded, id)
	for i, c := range f.idle {
		if c == id {
			f.idle = append(f.idle[:i], f.idle[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeUnloader) Unloaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.unloaded...)
}

func newConfig(interval string, limit int) *housekeeping.Config {
	conf := &housekeeping.Config{
		Interval:        interval,
		IdleTimeout:     "1m",
		CandidatesLimit: limit,
	}
	conf.EnsureDefaultValue()
	return conf
}

func TestConfig(t *testing.T) {
	t.Run("default value test", func(t *testing.T) {
		conf := &housekeeping.Config{}
		conf.EnsureDefaultValue()
		assert.NoError(t, conf.Validate())

		interval, err := conf.ParseInterval()
		assert.NoError(t, err)
		assert.Equal(t, time.Minute, interval)

		idle, err := conf.ParseIdleTimeout()
		assert.NoError(t, err)
		assert.Equal(t, 10*time.Minute, idle)
	})

	t.Run("validate test", func(t *testing.T) {
		conf := newConfig("1m", 10)
		conf.Interval = "hourly"
		assert.Error(t, conf.Validate())

		conf = newConfig("1m", 10)
		conf.IdleTimeout = "-1s"
		assert.Error(t, conf.Validate())

		conf = newConfig("1m", 10)
		conf.CandidatesLimit = -1
		assert.Error(t, conf.Validate())
	})
}

func TestHousekeeping(t *testing.T) {
	t.Run("unload candidates test", func(t *testing.T) {
		unloader := &fakeUnloader{
			idle: []string{"a", "b", "c"},
			busy: map[string]bool{"b": true},
		}
		h, err := housekeeping.New(newConfig("1m", 10), unloader)
		require.NoError(t, err)

		n, err := h.UnloadCandidates(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"a", "c"}, unloader.Unloaded())
	})

	t.Run("candidates limit test", func(t *testing.T) {
		unloader := &fakeUnloader{idle: []string{"a", "b", "c"}}
		h, err := housekeeping.New(newConfig("1m", 2), unloader)
		require.NoError(t, err)

		n, err := h.UnloadCandidates(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"a", "b"}, unloader.Unloaded())
	})

	t.Run("unload failure test", func(t *testing.T) {
		unloader := &fakeUnloader{idle: []string{"a", "b"}, failOn: "a"}
		h, err := housekeeping.New(newConfig("1m", 10), unloader)
		require.NoError(t, err)

		n, err := h.UnloadCandidates(context.Background())
		assert.Error(t, err)
		assert.Equal(t, 0, n)
		assert.Empty(t, unloader.Unloaded())
	})

	t.Run("periodic run test", func(t *testing.T) {
		unloader := &fakeUnloader{idle: []string{"a"}}
		h, err := housekeeping.Start(newConfig("10ms", 10), unloader)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return len(unloader.Unloaded()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.NoError(t, h.Stop())
	})
}
