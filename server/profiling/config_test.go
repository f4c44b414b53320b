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

package profiling_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/server/profiling"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
)

func TestConfig(t *testing.T) {
	scenarios := []*struct {
		config   *profiling.Config
		expected error
	}{
		{config: &profiling.Config{Port: -1}, expected: profiling.ErrInvalidProfilingPort},
		{config: &profiling.Config{Port: 0}, expected: profiling.ErrInvalidProfilingPort},
		{config: &profiling.Config{Port: 8081}, expected: nil},
	}
	for _, scenario := range scenarios {
		assert.ErrorIs(t, scenario.config.Validate(), scenario.expected, "provided config: %#v", scenario.config)
	}
}

func TestServer(t *testing.T) {
	t.Run("metrics endpoint test", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		assert.NoError(t, err)
		metrics.AddRequest("GET /api/itineraries/{itinerary}/versions", "OK")
		metrics.AddOperation(prometheus.ResultSuccess)
		metrics.AddVersions("rollback", 2)
		metrics.ObserveRollback("full", true, 20*time.Millisecond)
		metrics.AddConnections(1)
		metrics.AddBroadcast("rollback")
		metrics.SetOpenItineraries(3)

		server := profiling.NewServer(&profiling.Config{Port: 8081}, metrics)
		ts := httptest.NewServer(server.Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/metrics")
		assert.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		assert.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `tripsync_rollback_executed_total{kind="full",result="success"} 1`)
		assert.Contains(t, string(body), `tripsync_version_created_total{kind="rollback"} 2`)
		assert.Contains(t, string(body), "tripsync_websocket_connections 1")
		assert.Contains(t, string(body), "tripsync_server_version")
	})

	t.Run("pprof disabled test", func(t *testing.T) {
		server := profiling.NewServer(&profiling.Config{Port: 8081}, nil)
		ts := httptest.NewServer(server.Handler())
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/debug/pprof/")
		assert.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
