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


package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	gotime "time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/itineraries"
	"github.com/yorkie-team/tripsync/server/rpc"
)

type testServer struct {
	*httptest.Server
	registry *itineraries.Registry
}

func newTestServer(t *testing.T) *testServer {
	beConf := backend.Config{PersistInterval: "1h"}
	beConf.EnsureDefaultValue()
	be, err := backend.New(&beConf, nil, nil)
	require.NoError(t, err)

	registry, err := itineraries.New(be)
	require.NoError(t, err)

	conf := &rpc.Config{}
	conf.EnsureDefaultValue()
	server := httptest.NewServer(rpc.NewServer(conf, be, registry).Handler())

	t.Cleanup(func() {
		assert.NoError(t, registry.Close(context.Background()))
		server.Close()
		assert.NoError(t, be.Shutdown())
	})
	return &testServer{Server: server, registry: registry}
}

func (s *testServer) dial(t *testing.T, itineraryID, userID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/" + itineraryID + "?user=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func (s *testServer) do(t *testing.T, method, path string, body any, out any) int {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func read(t *testing.T, conn *websocket.Conn) *types.Message {
	require.NoError(t, conn.SetReadDeadline(gotime.Now().Add(2*gotime.Second)))
	msg := &types.Message{}
	require.NoError(t, conn.ReadJSON(msg))
	return msg
}

func TestWebSocket(t *testing.T) {
	path := tree.MustParsePath

	t.Run("operation relay test", func(t *testing.T) {
		s := newTestServer(t)
		alice := s.dial(t, "trip-ws", "alice")
		assert.Equal(t, types.MessageFullSync, read(t, alice).Type)
		bob := s.dial(t, "trip-ws", "bob")
		assert.Equal(t, types.MessageFullSync, read(t, bob).Type)

		op := operation.NewObjectSet("alice", path("title"), "Kyoto")
		require.NoError(t, alice.WriteJSON(types.NewOperationMessage("trip-ws", op)))

		ack := read(t, alice)
		assert.Equal(t, types.MessageAck, ack.Type)
		assert.Equal(t, op.ID, ack.OperationID)
		assert.Equal(t, int64(1), ack.Version)

		relayed := read(t, bob)
		assert.Equal(t, types.MessageOperation, relayed.Type)
		assert.Equal(t, op.ID, relayed.Operation.ID)

		require.NoError(t, bob.WriteJSON(types.NewRequestSyncMessage("trip-ws", 0)))
		sync := read(t, bob)
		assert.Equal(t, types.MessageFullSync, sync.Type)
		assert.Equal(t, `{"title":"Kyoto"}`, string(mustMarshal(t, sync.State)))
	})

	t.Run("rejected operation test", func(t *testing.T) {
		s := newTestServer(t)
		alice := s.dial(t, "trip-reject", "alice")
		read(t, alice)

		op := operation.NewArrayDelete("alice", path("days"), 0)
		require.NoError(t, alice.WriteJSON(types.NewOperationMessage("trip-reject", op)))

		reject := read(t, alice)
		assert.Equal(t, types.MessageReject, reject.Type)
		assert.Equal(t, op.ID, reject.OperationID)
		assert.NotEmpty(t, reject.Reason)
	})

	t.Run("malformed message test", func(t *testing.T) {
		s := newTestServer(t)
		alice := s.dial(t, "trip-malformed", "alice")
		read(t, alice)

		require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
		assert.Equal(t, types.MessageError, read(t, alice).Type)
	})

	t.Run("missing user test", func(t *testing.T) {
		s := newTestServer(t)
		url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/trip-1"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		assert.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestREST(t *testing.T) {
	t.Run("health test", func(t *testing.T) {
		s := newTestServer(t)
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil, nil))

		detail := &types.VersionDetail{}
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/version", nil, detail))
		assert.NotEmpty(t, detail.TripsyncVersion)
		assert.NotEmpty(t, detail.GoVersion)
	})

	t.Run("versions test", func(t *testing.T) {
		s := newTestServer(t)

		v1 := &version.Version{}
		status := s.do(t, http.MethodPost, "/api/itineraries/trip-rest/versions", &types.CreateVersionRequest{
			Name: "empty",
			Tags: []string{"start"},
		}, v1)
		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, int64(1), v1.VersionNumber)

		alice := s.dial(t, "trip-rest", "alice")
		read(t, alice)
		op := operation.NewObjectSet("alice", tree.MustParsePath("title"), "Oslo")
		require.NoError(t, alice.WriteJSON(types.NewOperationMessage("trip-rest", op)))
		read(t, alice)

		v2 := &version.Version{}
		s.do(t, http.MethodPost, "/api/itineraries/trip-rest/versions", &types.CreateVersionRequest{Name: "oslo"}, v2)

		list := &types.VersionList{}
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/itineraries/trip-rest/versions", nil, list))
		assert.Len(t, list.Versions, 2)
		assert.Equal(t, v2.ID, list.CurrentID)

		search := &types.VersionList{}
		s.do(t, http.MethodGet, "/api/itineraries/trip-rest/versions?q=start", nil, search)
		assert.Len(t, search.Versions, 1)

		byNumber := &version.Version{}
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/itineraries/trip-rest/versions/number/2", nil, byNumber))
		assert.Equal(t, v2.ID, byNumber.ID)

		compare := &types.CompareResponse{}
		assert.Equal(t, http.StatusOK, s.do(
			t, http.MethodGet,
			"/api/itineraries/trip-rest/compare?from="+v1.ID+"&to="+v2.ID,
			nil, compare,
		))
		assert.Len(t, compare.Changes, 1)

		errResp := &types.ErrorResponse{}
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/itineraries/trip-rest/versions/nope", nil, errResp))
		assert.Equal(t, "ErrVersionNotFound", errResp.Code)

		assert.Equal(t, http.StatusBadRequest, s.do(
			t, http.MethodPost, "/api/itineraries/trip-rest/versions",
			&types.CreateVersionRequest{Name: strings.Repeat("x", 200)}, errResp,
		))
	})

	t.Run("rollback test", func(t *testing.T) {
		s := newTestServer(t)

		v1 := &version.Version{}
		s.do(t, http.MethodPost, "/api/itineraries/trip-undo/versions", &types.CreateVersionRequest{Name: "empty"}, v1)

		alice := s.dial(t, "trip-undo", "alice")
		read(t, alice)
		op := operation.NewObjectSet("alice", tree.MustParsePath("title"), "Rome")
		require.NoError(t, alice.WriteJSON(types.NewOperationMessage("trip-undo", op)))
		read(t, alice)

		preview := &types.PreviewResponse{}
		assert.Equal(t, http.StatusOK, s.do(
			t, http.MethodPost, "/api/itineraries/trip-undo/rollback/preview",
			&types.PreviewRequest{TargetVersionID: v1.ID}, preview,
		))
		assert.NotEmpty(t, preview.PreviewID)

		result := map[string]any{}
		assert.Equal(t, http.StatusOK, s.do(
			t, http.MethodPost, "/api/itineraries/trip-undo/rollback",
			&types.RollbackRequest{PreviewID: preview.PreviewID}, &result,
		))
		assert.Equal(t, true, result["success"])

		sync := read(t, alice)
		assert.Equal(t, types.MessageFullSync, sync.Type)
		assert.Equal(t, `{}`, string(mustMarshal(t, sync.State)))

		errResp := &types.ErrorResponse{}
		assert.Equal(t, http.StatusNotFound, s.do(
			t, http.MethodPost, "/api/itineraries/trip-undo/rollback",
			&types.RollbackRequest{PreviewID: preview.PreviewID}, errResp,
		))
		assert.Equal(t, "ErrPreviewNotFound", errResp.Code)

		state := &types.ItineraryState{}
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/itineraries/trip-undo", nil, state))
		assert.Equal(t, 1, state.Sessions)
	})

	t.Run("invalid itinerary id test", func(t *testing.T) {
		s := newTestServer(t)
		errResp := &types.ErrorResponse{}
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/itineraries/trip%20one/versions", nil, errResp))
		assert.Equal(t, "ErrInvalidItineraryID", errResp.Code)
	})
}

func mustMarshal(t *testing.T, o *tree.Object) []byte {
	data, err := tree.Marshal(o)
	require.NoError(t, err)
	return data
}
