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


package backend_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/backend/database/bolt"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
)

func TestBackend(t *testing.T) {
	t.Run("memory backend test", func(t *testing.T) {
		conf := newValidBackendConf()
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)

		be, err := backend.New(&conf, nil, metrics)
		require.NoError(t, err)
		assert.NotEmpty(t, be.Config.Hostname)
		assert.Nil(t, be.Broadcaster)

		require.NoError(t, be.Start(context.Background()))
		assert.NoError(t, be.Shutdown())
	})

	t.Run("missing database config test", func(t *testing.T) {
		conf := newValidBackendConf()
		conf.Database = string(database.Postgres)

		_, err := backend.New(&conf, nil, nil)
		assert.ErrorIs(t, err, backend.ErrMissingDatabaseConfig)
	})

	t.Run("missing fanout config test", func(t *testing.T) {
		conf := newValidBackendConf()
		conf.RedisFanout = true

		_, err := backend.New(&conf, nil, nil)
		assert.ErrorIs(t, err, backend.ErrMissingDatabaseConfig)
	})

	t.Run("bolt backend test", func(t *testing.T) {
		conf := newValidBackendConf()
		conf.Database = string(database.Bolt)

		be, err := backend.New(&conf, &backend.DatabaseConfigs{
			Bolt: &bolt.Config{Path: filepath.Join(t.TempDir(), "trips.db"), OpenTimeout: "1s"},
		}, nil)
		require.NoError(t, err)
		_, ok := be.DB.(*bolt.DB)
		assert.True(t, ok)
		assert.NoError(t, be.Shutdown())
	})

	t.Run("fan out test", func(t *testing.T) {
		conf := newValidBackendConf()
		conf.FlushConcurrency = 2
		be, err := backend.New(&conf, nil, nil)
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, be.Shutdown())
		}()

		errOdd := errors.New("odd")
		var running, peak, done atomic.Int32
		err = backend.FanOut(context.Background(), be, []int{1, 2, 3, 4, 5}, func(_ context.Context, n int) error {
			now := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if now <= p || peak.CompareAndSwap(p, now) {
					break
				}
			}
			done.Add(1)
			if n%2 == 1 {
				return errOdd
			}
			return nil
		})
		assert.ErrorIs(t, err, errOdd)
		assert.Equal(t, int32(5), done.Load())
		assert.LessOrEqual(t, peak.Load(), int32(2))

		assert.NoError(t, backend.FanOut(context.Background(), be, []int{}, func(context.Context, int) error {
			return errOdd
		}))
	})
}
