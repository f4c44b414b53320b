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

package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	gotime "time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/client"
	"github.com/yorkie-team/tripsync/pkg/document"
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/rollback"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/itineraries"
	"github.com/yorkie-team/tripsync/server/rpc"
)

const (
	waitFor = 3 * gotime.Second
	tick    = 10 * gotime.Millisecond
)

func newServer(t *testing.T) (*httptest.Server, *itineraries.Registry) {
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
		server.Close()
		assert.NoError(t, registry.Close(context.Background()))
		assert.NoError(t, be.Shutdown())
	})
	return server, registry
}

func connect(t *testing.T, addr, itineraryID, userID string, opts ...client.Option) *client.Client {
	doc := document.New(itineraryID, userID, tree.NewObjectFrom())
	opts = append([]client.Option{client.WithRetryInterval(10*gotime.Millisecond, 50*gotime.Millisecond)}, opts...)
	cli, err := client.New(addr, doc, opts...)
	require.NoError(t, err)
	require.NoError(t, cli.Connect(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, cli.Close())
	})

	assert.Eventually(t, func() bool {
		return cli.Status() == client.StatusConnected
	}, waitFor, tick)
	return cli
}

// scriptedServer hands the websocket connections of a client to the given
// handlers in turn. Connections beyond the handlers are held open.
func scriptedServer(t *testing.T, handlers ...func(conn *websocket.Conn)) *httptest.Server {
	var mu sync.Mutex
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() {
			_ = conn.Close()
		}()

		var handle func(conn *websocket.Conn)
		mu.Lock()
		if len(handlers) > 0 {
			handle, handlers = handlers[0], handlers[1:]
		}
		mu.Unlock()

		if handle != nil {
			handle(conn)
			return
		}
		hold(conn, nil)
	}))
	t.Cleanup(server.Close)
	return server
}

// readOperation returns the next operation message of the connection.
func readOperation(conn *websocket.Conn) (*types.Message, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		msg, err := types.DecodeMessage(data)
		if err != nil {
			return nil, err
		}
		if msg.Type == types.MessageOperation {
			return msg, nil
		}
	}
}

// hold reads the connection until it is closed, forwarding the operation
// messages to ops when it is not nil.
func hold(conn *websocket.Conn, ops chan<- *types.Message) {
	for {
		msg, err := readOperation(conn)
		if err != nil {
			return
		}
		if ops != nil {
			ops <- msg
		}
	}
}

func marshal(t *testing.T, o *tree.Object) string {
	data, err := tree.Marshal(o)
	require.NoError(t, err)
	return string(data)
}

func TestClient(t *testing.T) {
	path := tree.MustParsePath

	t.Run("invalid address test", func(t *testing.T) {
		doc := document.New("trip", "alice", tree.NewObjectFrom())
		_, err := client.New("ftp://localhost:8080", doc)
		assert.ErrorIs(t, err, client.ErrInvalidAddr)
		assert.Equal(t, errors.ErrCodeInvalidArgument, errors.StatusOf(err))

		_, err = client.New("http://", doc)
		assert.ErrorIs(t, err, client.ErrInvalidAddr)
	})

	t.Run("connect after close test", func(t *testing.T) {
		server, _ := newServer(t)
		doc := document.New("trip-closed", "alice", tree.NewObjectFrom())
		cli, err := client.New(server.URL, doc)
		require.NoError(t, err)
		require.NoError(t, cli.Close())
		assert.ErrorIs(t, cli.Connect(context.Background()), client.ErrClientClosed)
		assert.Equal(t, client.StatusClosed, cli.Status())
	})

	t.Run("converge test", func(t *testing.T) {
		server, registry := newServer(t)
		alice := connect(t, server.URL, "trip-converge", "alice")
		bob := connect(t, server.URL, "trip-converge", "bob")

		require.NoError(t, alice.Apply(operation.NewObjectSet("alice", path("title"), "Kyoto")))
		require.NoError(t, bob.Apply(operation.NewTextInsert("bob", path("notes"), 0, "temples")))
		require.NoError(t, alice.Apply(operation.NewTextInsert("alice", path("notes"), 0, "see ")))

		it, err := registry.Open(context.Background(), "trip-converge")
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			server := marshal(t, it.Snapshot())
			return alice.Document().PendingCount() == 0 &&
				bob.Document().PendingCount() == 0 &&
				marshal(t, alice.Document().Snapshot()) == server &&
				marshal(t, bob.Document().Snapshot()) == server
		}, waitFor, tick)

		title, err := bob.Document().Get(path("title"))
		require.NoError(t, err)
		assert.Equal(t, "Kyoto", title)
		assert.Equal(t, int64(1), alice.Seen())
		assert.Equal(t, int64(2), bob.Seen())
	})

	t.Run("offline edits test", func(t *testing.T) {
		server, registry := newServer(t)
		doc := document.New("trip-offline", "alice", tree.NewObjectFrom())
		require.NoError(t, doc.ApplyLocalOperation(operation.NewObjectSet("alice", path("title"), "Osaka")))

		cli, err := client.New(server.URL, doc)
		require.NoError(t, err)
		require.NoError(t, cli.Connect(context.Background()))
		defer func() {
			assert.NoError(t, cli.Close())
		}()

		it, err := registry.Open(context.Background(), "trip-offline")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return doc.PendingCount() == 0 && marshal(t, it.Snapshot()) == `{"title":"Osaka"}`
		}, waitFor, tick)
	})

	t.Run("reconnect test", func(t *testing.T) {
		server, registry := newServer(t)
		alice := connect(t, server.URL, "trip-reconnect", "alice",
			client.WithRetryInterval(200*gotime.Millisecond, 400*gotime.Millisecond),
		)
		require.NoError(t, alice.Apply(operation.NewObjectSet("alice", path("title"), "Nara")))
		assert.Eventually(t, func() bool {
			return alice.Document().PendingCount() == 0
		}, waitFor, tick)

		// Deleting the itinerary drops its sessions; the client comes back to
		// an empty itinerary.
		require.NoError(t, registry.Delete(context.Background(), "trip-reconnect"))
		assert.Eventually(t, func() bool {
			return alice.Status() == client.StatusConnected &&
				marshal(t, alice.Document().Snapshot()) == `{}`
		}, waitFor, tick)

		require.NoError(t, alice.Apply(operation.NewObjectSet("alice", path("title"), "Nara")))
		it, err := registry.Open(context.Background(), "trip-reconnect")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			return marshal(t, it.Snapshot()) == `{"title":"Nara"}`
		}, waitFor, tick)
	})

	t.Run("rollback notification test", func(t *testing.T) {
		server, registry := newServer(t)
		ctx := context.Background()

		notified := make(chan rollback.Notification, 1)
		states := make(chan string, 1)
		doc := document.New("trip-rollback", "alice", tree.NewObjectFrom())
		alice, err := client.New(server.URL, doc, client.WithRollbackHandler(func(n rollback.Notification) {
			data, _ := tree.Marshal(doc.Snapshot())
			states <- string(data)
			notified <- n
		}))
		require.NoError(t, err)
		require.NoError(t, alice.Connect(ctx))
		defer func() {
			assert.NoError(t, alice.Close())
		}()
		assert.Eventually(t, func() bool {
			return alice.Status() == client.StatusConnected
		}, waitFor, tick)

		it, err := registry.Open(ctx, "trip-rollback")
		require.NoError(t, err)
		v1, err := it.CreateVersion(ctx, version.Meta{Name: "empty"})
		require.NoError(t, err)

		require.NoError(t, alice.Apply(operation.NewObjectSet("alice", path("title"), "Kobe")))
		assert.Eventually(t, func() bool {
			return marshal(t, it.Snapshot()) == `{"title":"Kobe"}`
		}, waitFor, tick)

		result, err := it.ExecuteRollback(ctx, &types.RollbackRequest{
			TargetVersionID:     v1.ID,
			NotifyCollaborators: true,
		})
		require.NoError(t, err)
		assert.True(t, result.Success)

		select {
		case n := <-notified:
			assert.Equal(t, "trip-rollback", n.ItineraryID)
			assert.Equal(t, v1.ID, n.TargetVersion.ID)
		case <-gotime.After(waitFor):
			t.Fatal("rollback notification not received")
		}

		// The restored state is adopted before the notification arrives.
		assert.Equal(t, `{}`, <-states)
	})

	t.Run("unacknowledged operation is resent after reconnect test", func(t *testing.T) {
		received := make(chan *types.Message, 4)
		server := scriptedServer(t,
			func(conn *websocket.Conn) {
				if err := conn.WriteJSON(types.NewFullSyncMessage("trip-lost-ack", tree.NewObjectFrom(), 0)); err != nil {
					return
				}
				if msg, err := readOperation(conn); err == nil {
					received <- msg
				}
			},
			func(conn *websocket.Conn) {
				if err := conn.WriteJSON(types.NewFullSyncMessage("trip-lost-ack", tree.NewObjectFrom(), 0)); err != nil {
					return
				}
				msg, err := readOperation(conn)
				if err != nil {
					return
				}
				received <- msg
				if err := conn.WriteJSON(types.NewAckMessage("trip-lost-ack", msg.Operation.ID, 1)); err != nil {
					return
				}
				hold(conn, received)
			},
		)

		alice := connect(t, server.URL, "trip-lost-ack", "alice")
		op := operation.NewObjectSet("alice", path("title"), "Kyoto")
		require.NoError(t, alice.Apply(op))

		for i := 0; i < 2; i++ {
			select {
			case msg := <-received:
				assert.Equal(t, op.ID, msg.Operation.ID)
			case <-gotime.After(waitFor):
				t.Fatal("operation not sent")
			}
		}
		assert.Eventually(t, func() bool {
			return alice.Document().PendingCount() == 0 &&
				marshal(t, alice.Document().Snapshot()) == `{"title":"Kyoto"}`
		}, waitFor, tick)
		assert.Empty(t, received)
	})

	t.Run("operation applied before the connection dropped is not resent test", func(t *testing.T) {
		ids := make(chan string, 1)
		resent := make(chan *types.Message, 4)
		server := scriptedServer(t,
			func(conn *websocket.Conn) {
				if err := conn.WriteJSON(types.NewFullSyncMessage("trip-applied", tree.NewObjectFrom(), 0)); err != nil {
					return
				}
				if msg, err := readOperation(conn); err == nil {
					ids <- msg.Operation.ID
				}
			},
			func(conn *websocket.Conn) {
				full := types.NewFullSyncMessage("trip-applied", tree.NewObjectFrom("title", "Kyoto"), 1)
				full.Applied = []string{<-ids}
				if err := conn.WriteJSON(full); err != nil {
					return
				}
				hold(conn, resent)
			},
		)

		alice := connect(t, server.URL, "trip-applied", "alice")
		require.NoError(t, alice.Apply(operation.NewObjectSet("alice", path("title"), "Kyoto")))

		assert.Eventually(t, func() bool {
			return alice.Document().PendingCount() == 0 &&
				marshal(t, alice.Document().Snapshot()) == `{"title":"Kyoto"}`
		}, waitFor, tick)
		assert.Never(t, func() bool {
			return len(resent) > 0
		}, 200*gotime.Millisecond, tick)
	})

	t.Run("resent operation is applied once test", func(t *testing.T) {
		server, registry := newServer(t)
		ctx := context.Background()
		alice := connect(t, server.URL, "trip-once", "alice")

		it, err := registry.Open(ctx, "trip-once")
		require.NoError(t, err)
		op := operation.NewObjectSet("alice", path("title"), "Sapporo")
		require.NoError(t, alice.Apply(op))
		assert.Eventually(t, func() bool {
			return alice.Document().PendingCount() == 0
		}, waitFor, tick)

		// The same operation arrives again on another connection.
		session, err := it.Join(ctx, "alice")
		require.NoError(t, err)
		defer it.Leave(ctx, session)
		full := <-session.Events()
		assert.Equal(t, []string{op.ID}, full.Applied)

		require.NoError(t, it.ApplyOperation(ctx, session, types.NewOperationMessage("trip-once", op)))
		ack := <-session.Events()
		assert.Equal(t, types.MessageAck, ack.Type)
		assert.Equal(t, int64(1), it.Version())
		assert.Equal(t, `{"title":"Sapporo"}`, marshal(t, it.Snapshot()))
	})
}
