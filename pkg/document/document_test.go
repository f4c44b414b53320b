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

package document_test

import (
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/pkg/document"
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

var baseTime = gotime.Date(2026, 5, 1, 9, 0, 0, 0, gotime.UTC)

// recorder collects the events of a document.
type recorder struct {
	mu     sync.Mutex
	events []document.Event
}

func (r *recorder) OnEvent(event document.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []document.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	var types []document.EventType
	for _, ev := range r.events {
		types = append(types, ev.Type)
	}
	return types
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newDoc(t *testing.T, userID, data string, opts ...document.Option) (*document.Document, *recorder) {
	root, err := tree.UnmarshalObject([]byte(data))
	assert.NoError(t, err)

	rec := &recorder{}
	opts = append(opts, document.WithListener(rec))
	return document.New("itinerary-1", userID, root, opts...), rec
}

func snapshot(t *testing.T, doc *document.Document) string {
	data, err := tree.Marshal(doc.Snapshot())
	assert.NoError(t, err)
	return string(data)
}

func at(op *operation.Operation, offset gotime.Duration) *operation.Operation {
	op.Timestamp = baseTime.Add(offset)
	return op
}

func TestDocument(t *testing.T) {
	path := tree.MustParsePath

	t.Run("text insert on empty field test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"notes":""}`)
		doc.SetConnected(true)
		rec.reset()

		op := operation.NewTextInsert("alice", path("notes"), 5, "ABC")
		assert.NoError(t, doc.ApplyLocalOperation(op))
		assert.Equal(t, `{"notes":"ABC"}`, snapshot(t, doc))
		assert.Equal(t, int64(0), doc.Version())
		assert.Equal(t, document.Syncing, doc.State())
		assert.Equal(t, []document.EventType{
			document.LocalChangeEvent,
			document.SendToServerEvent,
		}, rec.types())

		assert.NoError(t, doc.AcknowledgeOperation(op.ID))
		assert.Equal(t, int64(1), doc.Version())
		assert.Equal(t, document.Synced, doc.State())
		assert.Equal(t, `{"notes":"ABC"}`, snapshot(t, doc))

		data, err := tree.Marshal(doc.ConfirmedSnapshot())
		assert.NoError(t, err)
		assert.Equal(t, `{"notes":"ABC"}`, string(data))
	})

	t.Run("pending queue monotonicity test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":""}`)

		var ops []*operation.Operation
		for i := 0; i < 5; i++ {
			op := operation.NewTextInsert("alice", path("title"), i, "x")
			assert.NoError(t, doc.ApplyLocalOperation(op))
			ops = append(ops, op)
		}
		assert.Equal(t, 5, doc.PendingCount())

		for k := 1; k <= 2; k++ {
			assert.NoError(t, doc.AcknowledgeOperation(ops[k-1].ID))
			assert.Equal(t, 5-k, doc.PendingCount())
		}

		// Acknowledging the last operation implies every earlier one.
		assert.NoError(t, doc.AcknowledgeOperation(ops[4].ID))
		assert.Equal(t, 0, doc.PendingCount())
		assert.Equal(t, int64(5), doc.Version())
		assert.Equal(t, `{"title":"xxxxx"}`, snapshot(t, doc))

		err := doc.AcknowledgeOperation(ops[0].ID)
		assert.ErrorIs(t, err, document.ErrUnknownOperation)
	})

	t.Run("concurrent object set under last write wins test", func(t *testing.T) {
		initial := `{"budget":{"amount":500}}`
		first := at(operation.NewObjectSet("alice", path("budget.amount"), 1000), 0)
		second := at(operation.NewObjectSet("bob", path("budget.amount"), 1200), gotime.Second)

		// alice sees her write first, then bob's.
		alice, _ := newDoc(t, "alice", initial)
		assert.NoError(t, alice.ApplyLocalOperation(first))
		assert.NoError(t, alice.ApplyRemoteOperation(second))
		assert.Equal(t, `{"budget":{"amount":1200}}`, snapshot(t, alice))
		assert.NoError(t, alice.AcknowledgeOperation(first.ID))
		assert.Equal(t, `{"budget":{"amount":1200}}`, snapshot(t, alice))

		// bob receives alice's older write while his own is pending.
		bob, _ := newDoc(t, "bob", initial)
		assert.NoError(t, bob.ApplyLocalOperation(second))
		assert.NoError(t, bob.ApplyRemoteOperation(first))
		assert.Equal(t, `{"budget":{"amount":1200}}`, snapshot(t, bob))
		assert.NoError(t, bob.AcknowledgeOperation(second.ID))
		assert.Equal(t, `{"budget":{"amount":1200}}`, snapshot(t, bob))

		// alice writes locally after bob's newer write was already applied.
		late, _ := newDoc(t, "alice", initial)
		assert.NoError(t, late.ApplyRemoteOperation(second))
		assert.NoError(t, late.ApplyLocalOperation(first))
		assert.Equal(t, `{"budget":{"amount":1000}}`, snapshot(t, late))
		assert.NoError(t, late.AcknowledgeOperation(first.ID))
		assert.Equal(t, `{"budget":{"amount":1200}}`, snapshot(t, late))
	})

	t.Run("ties are broken by user id test", func(t *testing.T) {
		a := at(operation.NewObjectSet("alice", path("budget"), 1), 0)
		b := at(operation.NewObjectSet("bob", path("budget"), 2), 0)

		doc, _ := newDoc(t, "alice", `{}`)
		assert.NoError(t, doc.ApplyLocalOperation(a))
		assert.NoError(t, doc.ApplyRemoteOperation(b))
		assert.Equal(t, `{"budget":2}`, snapshot(t, doc))
	})

	t.Run("local wins resolver test", func(t *testing.T) {
		local := at(operation.NewObjectSet("alice", path("budget"), 1), 0)
		remote := at(operation.NewObjectSet("bob", path("budget"), 2), gotime.Second)

		doc, _ := newDoc(t, "alice", `{}`, document.WithResolver(document.LocalWins))
		assert.NoError(t, doc.ApplyLocalOperation(local))
		assert.NoError(t, doc.ApplyRemoteOperation(remote))
		assert.Equal(t, `{"budget":1}`, snapshot(t, doc))
	})

	t.Run("remote operation is rebased on pending ones test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":"Kyoto"}`)
		local := operation.NewTextInsert("alice", path("title"), 0, "A")
		assert.NoError(t, doc.ApplyLocalOperation(local))

		assert.NoError(t, doc.ApplyRemoteOperation(operation.NewTextInsert("bob", path("title"), 5, "!")))
		assert.Equal(t, `{"title":"AKyoto!"}`, snapshot(t, doc))
		assert.Equal(t, int64(1), doc.Version())

		data, err := tree.Marshal(doc.ConfirmedSnapshot())
		assert.NoError(t, err)
		assert.Equal(t, `{"title":"Kyoto!"}`, string(data))

		assert.NoError(t, doc.AcknowledgeOperation(local.ID))
		data, err = tree.Marshal(doc.ConfirmedSnapshot())
		assert.NoError(t, err)
		assert.Equal(t, `{"title":"AKyoto!"}`, string(data))
	})

	t.Run("remote operation that does not apply test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"title":"Kyoto"}`)
		err := doc.ApplyRemoteOperation(operation.NewArrayDelete("bob", path("days"), 0))
		assert.ErrorIs(t, err, document.ErrRemoteOperationFailed)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeStructural))
		assert.Equal(t, int64(0), doc.Version())
		assert.Empty(t, rec.types())
	})

	t.Run("local operation that does not apply test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"title":"Kyoto"}`)
		doc.SetConnected(true)
		rec.reset()

		err := doc.ApplyLocalOperation(operation.NewTextDelete("alice", path("description"), 0, 3))
		assert.True(t, errors.IsStatus(err, errors.ErrCodeStructural))
		assert.Equal(t, 0, doc.PendingCount())
		assert.Equal(t, 0, doc.UndoCount())
		assert.Equal(t, `{"title":"Kyoto"}`, snapshot(t, doc))
		assert.Empty(t, rec.types())

		err = doc.ApplyLocalOperation(operation.NewObjectSet("alice", tree.NewPath("days", 0), "x"))
		assert.ErrorIs(t, err, tree.ErrPathNotFound)
		assert.Equal(t, 0, doc.PendingCount())
		assert.Equal(t, `{"title":"Kyoto"}`, snapshot(t, doc))

		err = doc.ApplyRemoteOperation(operation.NewObjectSet("bob", tree.NewPath("meta", "days", 0), "x"))
		assert.ErrorIs(t, err, document.ErrRemoteOperationFailed)
		assert.Equal(t, `{"title":"Kyoto"}`, snapshot(t, doc))
		assert.Empty(t, rec.types())
	})

	t.Run("reject recomputes the live tree test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"title":"Kyoto","notes":""}`)

		first := operation.NewObjectSet("alice", path("title"), "Osaka")
		second := operation.NewTextInsert("alice", path("notes"), 0, "ramen")
		assert.NoError(t, doc.ApplyLocalOperation(first))
		assert.NoError(t, doc.ApplyLocalOperation(second))
		rec.reset()

		assert.NoError(t, doc.RejectOperation(first.ID, "forbidden"))
		assert.Equal(t, `{"title":"Kyoto","notes":"ramen"}`, snapshot(t, doc))
		assert.Equal(t, 1, doc.PendingCount())
		assert.Equal(t, []document.EventType{document.OperationRejectedEvent}, rec.types())
		assert.Equal(t, "forbidden", rec.events[0].Reason)
		assert.Equal(t, first.ID, rec.events[0].Operation.ID)

		assert.ErrorIs(t, doc.RejectOperation(first.ID, "again"), document.ErrUnknownOperation)
	})

	t.Run("force sync test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"title":"Kyoto"}`)
		assert.NoError(t, doc.ApplyLocalOperation(operation.NewObjectSet("alice", path("title"), "Osaka")))
		rec.reset()

		state, err := tree.UnmarshalObject([]byte(`{"title":"Nara"}`))
		assert.NoError(t, err)
		doc.ForceSync(state)

		assert.Equal(t, `{"title":"Nara"}`, snapshot(t, doc))
		assert.Equal(t, 0, doc.PendingCount())
		assert.Equal(t, document.Synced, doc.State())
		assert.Equal(t, []document.EventType{document.ForcedSyncEvent}, rec.types())
		assert.Len(t, rec.events[0].Dropped, 1)

		// the state is copied
		state.Set("title", "changed")
		assert.Equal(t, `{"title":"Nara"}`, snapshot(t, doc))
	})

	t.Run("pending queue overflow test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"title":""}`, document.WithMaxPendingOperations(2))
		for i := 0; i < 3; i++ {
			assert.NoError(t, doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 0, "x")))
		}
		assert.Equal(t, document.Conflicted, doc.State())
		assert.Contains(t, rec.types(), document.ErrorEvent)

		err := doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 0, "x"))
		assert.ErrorIs(t, err, document.ErrDesynchronized)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeDesync))

		doc.ForceSync(tree.NewObject())
		assert.Equal(t, document.Synced, doc.State())
		assert.NoError(t, doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 0, "x")))
	})

	t.Run("connection test", func(t *testing.T) {
		doc, rec := newDoc(t, "alice", `{"title":""}`)

		first := operation.NewTextInsert("alice", path("title"), 0, "a")
		second := operation.NewTextInsert("alice", path("title"), 1, "b")
		assert.NoError(t, doc.ApplyLocalOperation(first))
		assert.NoError(t, doc.ApplyLocalOperation(second))
		assert.Equal(t, []document.EventType{
			document.LocalChangeEvent,
			document.LocalChangeEvent,
		}, rec.types())
		rec.reset()

		doc.SetConnected(true)
		assert.True(t, doc.IsConnected())
		assert.Equal(t, []document.EventType{
			document.ConnectedEvent,
			document.SendToServerEvent,
			document.SendToServerEvent,
		}, rec.types())
		assert.Equal(t, first.ID, rec.events[1].Operation.ID)
		assert.Equal(t, second.ID, rec.events[2].Operation.ID)
		rec.reset()

		doc.SetConnected(true)
		assert.Empty(t, rec.types())

		doc.SetConnected(false)
		assert.Equal(t, []document.EventType{document.DisconnectedEvent}, rec.types())
		assert.Equal(t, 2, doc.PendingCount())
		assert.Equal(t, 0, doc.ResendPending())
	})

	t.Run("undo and redo test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":"Kyoto"}`)

		assert.NoError(t, doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 5, " trip")))
		assert.NoError(t, doc.ApplyLocalOperation(operation.NewObjectSet("alice", path("budget"), 100)))
		assert.Equal(t, 2, doc.UndoCount())

		ok, err := doc.Undo()
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, `{"title":"Kyoto trip"}`, snapshot(t, doc))

		ok, err = doc.Undo()
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, `{"title":"Kyoto"}`, snapshot(t, doc))
		assert.Equal(t, 0, doc.UndoCount())
		assert.Equal(t, 2, doc.RedoCount())

		ok, err = doc.Undo()
		assert.False(t, ok)
		assert.NoError(t, err)

		ok, err = doc.Redo()
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, `{"title":"Kyoto trip"}`, snapshot(t, doc))
		assert.Equal(t, 1, doc.UndoCount())
		assert.Equal(t, 1, doc.RedoCount())

		// every undo and redo is a local operation sent to the server
		assert.Equal(t, 5, doc.PendingCount())

		assert.NoError(t, doc.ApplyLocalOperation(operation.NewObjectSet("alice", path("days"), []any{})))
		assert.Equal(t, 0, doc.RedoCount())
	})

	t.Run("undo depth is bounded test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":""}`, document.WithMaxUndoDepth(3))
		for i := 0; i < 5; i++ {
			assert.NoError(t, doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 0, "x")))
		}
		assert.Equal(t, 3, doc.UndoCount())
	})

	t.Run("undo after a remote edit test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":"Kyoto"}`)
		local := operation.NewTextInsert("alice", path("title"), 5, "!")
		assert.NoError(t, doc.ApplyLocalOperation(local))
		assert.NoError(t, doc.AcknowledgeOperation(local.ID))

		assert.NoError(t, doc.ApplyRemoteOperation(operation.NewTextInsert("bob", path("title"), 0, ">> ")))
		assert.Equal(t, `{"title":">> Kyoto!"}`, snapshot(t, doc))

		ok, err := doc.Undo()
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, `{"title":">> Kyoto"}`, snapshot(t, doc))
	})

	t.Run("listeners may call back into the document test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":""}`)

		var counts []int
		unsubscribe := doc.Subscribe(document.ListenerFunc(func(event document.Event) {
			counts = append(counts, doc.PendingCount())
		}))
		assert.NoError(t, doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 0, "x")))
		assert.Equal(t, []int{1}, counts)

		unsubscribe()
		assert.NoError(t, doc.ApplyLocalOperation(operation.NewTextInsert("alice", path("title"), 0, "x")))
		assert.Equal(t, []int{1}, counts)
	})

	t.Run("snapshot is a copy test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{"title":"Kyoto"}`)
		snap := doc.Snapshot()
		snap.Set("title", "changed")
		assert.Equal(t, `{"title":"Kyoto"}`, snapshot(t, doc))
	})

	t.Run("last modified test", func(t *testing.T) {
		doc, _ := newDoc(t, "alice", `{}`)
		assert.NoError(t, doc.ApplyRemoteOperation(at(operation.NewObjectSet("bob", path("title"), "x"), gotime.Minute)))
		assert.Equal(t, document.Modification{By: "bob", At: baseTime.Add(gotime.Minute)}, doc.LastModified())
	})
}

func TestResolver(t *testing.T) {
	older := at(operation.NewObjectSet("bob", tree.MustParsePath("budget"), 1), 0)
	newer := at(operation.NewObjectSet("alice", tree.MustParsePath("budget"), 2), gotime.Second)

	t.Run("last write wins test", func(t *testing.T) {
		assert.True(t, document.LastWriteWins.Resolve(document.Collision{Existing: older, Incoming: newer}))
		assert.False(t, document.LastWriteWins.Resolve(document.Collision{Existing: newer, Incoming: older}))
	})

	t.Run("local and remote wins test", func(t *testing.T) {
		c := document.Collision{Existing: newer, Incoming: older, LocalUserID: "bob"}
		assert.True(t, document.LocalWins.Resolve(c))
		assert.False(t, document.RemoteWins.Resolve(c))
	})

	t.Run("resolver by name test", func(t *testing.T) {
		r, ok := document.ResolverByName("remote-wins")
		assert.True(t, ok)
		assert.NotNil(t, r)

		_, ok = document.ResolverByName("first-write-wins")
		assert.False(t, ok)
	})
}
