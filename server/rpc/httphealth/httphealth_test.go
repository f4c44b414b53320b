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


package httphealth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/server/rpc/httphealth"
)

func TestHTTPHealthCheck(t *testing.T) {
	t.Run("serving test", func(t *testing.T) {
		path, handler := httphealth.NewHandler(func(context.Context) error { return nil })
		assert.Equal(t, "/healthz", path)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		resp := &httphealth.CheckResponse{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
		assert.Equal(t, httphealth.StatusServing, resp.Status)
	})

	t.Run("not serving test", func(t *testing.T) {
		path, handler := httphealth.NewHandler(func(context.Context) error { return errors.New("closed") })

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		resp := &httphealth.CheckResponse{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
		assert.Equal(t, httphealth.StatusNotServing, resp.Status)
		assert.Equal(t, "closed", resp.Error)
	})

	t.Run("method not allowed test", func(t *testing.T) {
		path, handler := httphealth.NewHandler(func(context.Context) error { return nil })

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
