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

// Package document implements the replica of a shared itinerary: the live
// tree edited optimistically by the local user, the queue of operations the
// server has not acknowledged yet, and the integration of the operations of
// other users.
package document

import (
	"fmt"
	"sort"
	"sync"
	gotime "time"

	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

var (
	// ErrUnknownOperation is returned when an acknowledgement or a rejection
	// names an operation that is not pending.
	ErrUnknownOperation = errors.NotFound("unknown pending operation").WithCode("ErrUnknownOperation")

	// ErrDesynchronized is returned while the document waits for a forced
	// sync after its pending queue overflowed.
	ErrDesynchronized = errors.Desync("document desynchronized").WithCode("ErrDesynchronized")

	// ErrRemoteOperationFailed is reported when an operation of another
	// user does not apply to the acknowledged tree.
	ErrRemoteOperationFailed = errors.Structural("remote operation failed").WithCode("ErrRemoteOperationFailed")
)

// SyncState is the synchronization state of a document.
type SyncState string

const (
	// Synced means every local operation was acknowledged.
	Synced SyncState = "synced"

	// Syncing means some local operations wait for acknowledgement.
	Syncing SyncState = "syncing"

	// Conflicted means the pending queue overflowed and only a forced sync
	// can recover the document.
	Conflicted SyncState = "conflicted"
)

// Modification tells who changed the document last and when.
type Modification struct {
	By string
	At gotime.Time
}

// Document is a replica of a shared itinerary. All operations are applied
// under one lock, so the trees are never mutated concurrently.
type Document struct {
	mu sync.Mutex

	id      string
	userID  string
	options Options
	logger  *zap.SugaredLogger

	// confirmed is the tree built from acknowledged and remote operations.
	confirmed       *tree.Object
	confirmedWrites writes

	// live is confirmed with the pending operations applied on top.
	live       *tree.Object
	liveWrites writes

	pending []*operation.Operation
	undo    []*operation.Operation
	redo    []*operation.Operation

	version      int64
	lastModified Modification
	connected    bool
	conflicted   bool

	listeners      map[int]Listener
	nextListenerID int
}

// New creates a replica of the document with the given id edited by the
// given user. The initial tree is copied.
func New(id, userID string, initial *tree.Object, opts ...Option) *Document {
	options := newOptions(opts...)
	confirmed := tree.CloneObject(initial)

	doc := &Document{
		id:              id,
		userID:          userID,
		options:         options,
		logger:          options.Logger.With("doc", id, "user", userID),
		confirmed:       confirmed,
		confirmedWrites: make(writes),
		live:            tree.CloneObject(confirmed),
		liveWrites:      make(writes),
		listeners:       make(map[int]Listener),
	}
	for _, l := range options.Listeners {
		doc.listeners[doc.nextListenerID] = l
		doc.nextListenerID++
	}
	return doc
}

// ID returns the id of this document.
func (d *Document) ID() string {
	return d.id
}

// UserID returns the local user of this document.
func (d *Document) UserID() string {
	return d.userID
}

// Subscribe adds a listener and returns a function removing it.
func (d *Document) Subscribe(listener Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextListenerID
	d.nextListenerID++
	d.listeners[id] = listener

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// ApplyLocalOperation applies an edit of the local user to the live tree
// and queues it for the server. The document is left unchanged when the
// operation does not apply, e.g. when it deletes a missing path.
func (d *Document) ApplyLocalOperation(op *operation.Operation) error {
	d.mu.Lock()
	events, err := d.applyLocal(op, true)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
	return err
}

func (d *Document) applyLocal(op *operation.Operation, clearRedo bool) ([]Event, error) {
	if d.conflicted {
		return nil, ErrDesynchronized
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}

	// The local user's latest edit always shows up in the live tree. If it
	// loses against a remote write, the acknowledgement rebuilds the tree.
	op = op.Clone()
	inverse, err := op.Apply(d.live)
	if err != nil {
		return nil, err
	}
	d.liveWrites.record(op)

	d.pending = append(d.pending, op)
	d.undo = pushBounded(d.undo, inverse, d.options.MaxUndoDepth)
	if clearRedo {
		d.redo = nil
	}
	d.lastModified = Modification{By: op.UserID, At: op.Timestamp}

	events := []Event{d.event(LocalChangeEvent, op)}
	if d.connected {
		events = append(events, d.event(SendToServerEvent, op))
	}

	if len(d.pending) > d.options.MaxPendingOperations {
		d.conflicted = true
		err := fmt.Errorf("%d pending operations over %d: %w",
			len(d.pending), d.options.MaxPendingOperations, ErrDesynchronized)
		d.logger.Warn(err)
		ev := d.event(ErrorEvent, nil)
		ev.Err = err
		events = append(events, ev)
	}

	return events, nil
}

// ApplyRemoteOperation integrates an operation of another user. Remote
// operations are integrated in the order they arrive: applied to the
// acknowledged tree, then rebased on every pending local operation before
// being applied to the live tree. When the operation writes a value the
// local user also wrote, the resolver decides which write stays.
func (d *Document) ApplyRemoteOperation(op *operation.Operation) error {
	d.mu.Lock()
	events, err := d.applyRemote(op)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
	return err
}

func (d *Document) applyRemote(op *operation.Operation) ([]Event, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	remote := op.Clone()
	_, applied, err := d.confirmedWrites.applyAdmitted(d.confirmed, remote, d.userID, d.options.Resolver)
	if err != nil {
		d.logger.Debugf("remote %s: %v", remote.String(), err)
		return nil, fmt.Errorf("%s: %s: %w", remote.String(), err.Error(), ErrRemoteOperationFailed)
	}
	if !applied {
		remote = remote.Clone()
		remote.Type = operation.Noop
		remote.Payload = operation.Payload{}
	}

	for i, p := range d.pending {
		d.pending[i], remote = operation.Transform(p, remote)
	}

	if _, _, err := d.liveWrites.applyAdmitted(d.live, remote, d.userID, d.options.Resolver); err != nil {
		d.logger.Debugf("remote %s on live tree: %v", remote.String(), err)
		d.recomputeLive()
	}
	d.rebaseHistory(remote)

	d.version++
	d.lastModified = Modification{By: op.UserID, At: op.Timestamp}

	return []Event{d.event(RemoteChangeEvent, op)}, nil
}

// AcknowledgeOperation removes the operation from the pending queue once
// the server accepted it. Since the queue is FIFO, acknowledging an
// operation also acknowledges every operation queued before it.
func (d *Document) AcknowledgeOperation(id string) error {
	d.mu.Lock()
	events, err := d.acknowledge(id)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
	return err
}

func (d *Document) acknowledge(id string) ([]Event, error) {
	idx := d.indexOfPending(id)
	if idx < 0 {
		return nil, fmt.Errorf("ack %s: %w", id, ErrUnknownOperation)
	}

	acked := d.pending[:idx+1]
	d.pending = append([]*operation.Operation{}, d.pending[idx+1:]...)

	var events []Event
	drifted := false
	for _, op := range acked {
		_, applied, err := d.confirmedWrites.applyAdmitted(d.confirmed, op, d.userID, d.options.Resolver)
		if err != nil {
			d.logger.Warnf("acknowledged %s: %v", op.String(), err)
		}
		if err != nil || !applied {
			drifted = true
		}
		d.version++
		events = append(events, d.event(OperationAcknowledgedEvent, op))
	}
	if drifted {
		d.recomputeLive()
	}

	return events, nil
}

// RejectOperation removes the operation from the pending queue after the
// server refused it. The live tree is rebuilt from the acknowledged tree
// and the remaining pending operations.
func (d *Document) RejectOperation(id, reason string) error {
	d.mu.Lock()
	events, err := d.reject(id, reason)
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
	return err
}

func (d *Document) reject(id, reason string) ([]Event, error) {
	idx := d.indexOfPending(id)
	if idx < 0 {
		return nil, fmt.Errorf("reject %s: %w", id, ErrUnknownOperation)
	}

	op := d.pending[idx]
	d.pending = append(d.pending[:idx:idx], d.pending[idx+1:]...)
	d.recomputeLive()
	d.undo = nil
	d.redo = nil

	ev := d.event(OperationRejectedEvent, op)
	ev.Reason = reason
	return []Event{ev}, nil
}

// ForceSync discards the pending queue and both trees and adopts the given
// server authoritative state.
func (d *Document) ForceSync(state *tree.Object) {
	d.mu.Lock()
	dropped := d.pending

	d.confirmed = tree.CloneObject(state)
	d.confirmedWrites = make(writes)
	d.live = tree.CloneObject(d.confirmed)
	d.liveWrites = make(writes)
	d.pending = nil
	d.undo = nil
	d.redo = nil
	d.conflicted = false

	ev := d.event(ForcedSyncEvent, nil)
	ev.Dropped = dropped
	listeners := d.listenersLocked()
	d.mu.Unlock()

	if len(dropped) > 0 {
		d.logger.Infof("forced sync dropped %d pending operations", len(dropped))
	}
	d.dispatch(listeners, []Event{ev})
}

// SetConnected records whether the transport is available. Pending
// operations are kept while disconnected and sent again on reconnection.
func (d *Document) SetConnected(connected bool) {
	d.mu.Lock()
	if d.connected == connected {
		d.mu.Unlock()
		return
	}
	d.connected = connected

	var events []Event
	if connected {
		events = append(events, d.event(ConnectedEvent, nil))
		for _, op := range d.pending {
			events = append(events, d.event(SendToServerEvent, op))
		}
	} else {
		events = append(events, d.event(DisconnectedEvent, nil))
	}
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
}

// ResendPending asks the transport to send every pending operation again,
// e.g. after a transport failure.
func (d *Document) ResendPending() int {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return 0
	}
	var events []Event
	for _, op := range d.pending {
		events = append(events, d.event(SendToServerEvent, op))
	}
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
	return len(events)
}

// Undo reverts the last local operation by applying its inverse as a new
// local operation. It returns false when there is nothing to undo.
func (d *Document) Undo() (bool, error) {
	return d.replay(&d.undo, &d.redo)
}

// Redo applies again the last undone operation. It returns false when
// there is nothing to redo.
func (d *Document) Redo() (bool, error) {
	return d.replay(&d.redo, &d.undo)
}

func (d *Document) replay(from, to *[]*operation.Operation) (bool, error) {
	d.mu.Lock()

	var next *operation.Operation
	for len(*from) > 0 && next == nil {
		last := (*from)[len(*from)-1]
		*from = (*from)[:len(*from)-1]
		if !last.IsNoop() {
			next = last
		}
	}
	if next == nil {
		d.mu.Unlock()
		return false, nil
	}

	op := next.WithIdentity(d.userID, d.options.Clock().UTC())
	undo := d.undo
	events, err := d.applyLocal(op, false)
	if err != nil {
		*from = append(*from, next)
		listeners := d.listenersLocked()
		d.mu.Unlock()
		d.dispatch(listeners, events)
		return false, err
	}

	// applyLocal pushed the inverse onto the undo stack; move it to the
	// stack the replayed operation belongs to.
	if to == &d.redo {
		inverse := d.undo[len(d.undo)-1]
		d.undo = undo
		*to = pushBounded(*to, inverse, d.options.MaxUndoDepth)
	}
	listeners := d.listenersLocked()
	d.mu.Unlock()

	d.dispatch(listeners, events)
	return true, nil
}

// Snapshot returns a copy of the live tree.
func (d *Document) Snapshot() *tree.Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	return tree.CloneObject(d.live)
}

// ConfirmedSnapshot returns a copy of the acknowledged tree.
func (d *Document) ConfirmedSnapshot() *tree.Object {
	d.mu.Lock()
	defer d.mu.Unlock()
	return tree.CloneObject(d.confirmed)
}

// Get returns a copy of the live value at the given path.
func (d *Document) Get(path tree.Path) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := tree.Get(d.live, path)
	if err != nil {
		return nil, err
	}
	return tree.Clone(v), nil
}

// Version returns the number of operations the server accepted: the
// acknowledged local operations and the integrated remote ones.
func (d *Document) Version() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// LastModified returns who changed the document last and when.
func (d *Document) LastModified() Modification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastModified
}

// PendingCount returns the number of unacknowledged local operations.
func (d *Document) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Pending returns copies of the unacknowledged local operations in
// submission order.
func (d *Document) Pending() []*operation.Operation {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := make([]*operation.Operation, len(d.pending))
	for i, op := range d.pending {
		pending[i] = op.Clone()
	}
	return pending
}

// UndoCount returns the number of operations that can be undone.
func (d *Document) UndoCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.undo)
}

// RedoCount returns the number of operations that can be redone.
func (d *Document) RedoCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.redo)
}

// IsConnected returns whether the transport is available.
func (d *Document) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// IsSyncing returns whether some local operations wait for the server.
func (d *Document) IsSyncing() bool {
	return d.State() == Syncing
}

// State returns the synchronization state of this document.
func (d *Document) State() SyncState {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.conflicted:
		return Conflicted
	case len(d.pending) > 0:
		return Syncing
	default:
		return Synced
	}
}

// recomputeLive rebuilds the live tree from the acknowledged tree and the
// pending queue. Pending operations that no longer apply are kept queued;
// the server decides their fate.
func (d *Document) recomputeLive() {
	d.live = tree.CloneObject(d.confirmed)
	d.liveWrites = d.confirmedWrites.clone()
	for _, op := range d.pending {
		if _, _, err := d.liveWrites.applyAdmitted(d.live, op, d.userID, d.options.Resolver); err != nil {
			d.logger.Debugf("replay %s: %v", op.String(), err)
		}
	}
}

// rebaseHistory rebases the undo and redo stacks on an integrated remote
// operation so that they keep addressing the same values.
func (d *Document) rebaseHistory(remote *operation.Operation) {
	for i, op := range d.undo {
		d.undo[i], _ = operation.Transform(op, remote)
	}
	for i, op := range d.redo {
		d.redo[i], _ = operation.Transform(op, remote)
	}
}

func (d *Document) indexOfPending(id string) int {
	for i, op := range d.pending {
		if op.ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) event(typ EventType, op *operation.Operation) Event {
	return Event{
		Type:       typ,
		DocumentID: d.id,
		Operation:  op,
		Version:    d.version,
	}
}

// listenersLocked returns the listeners in subscription order.
func (d *Document) listenersLocked() []Listener {
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	listeners := make([]Listener, len(ids))
	for i, id := range ids {
		listeners[i] = d.listeners[id]
	}
	return listeners
}

func (d *Document) dispatch(listeners []Listener, events []Event) {
	for _, ev := range events {
		for _, l := range listeners {
			l.OnEvent(ev)
		}
	}
}

func pushBounded(stack []*operation.Operation, op *operation.Operation, bound int) []*operation.Operation {
	if bound <= 0 {
		return nil
	}
	stack = append(stack, op)
	if len(stack) > bound {
		stack = append([]*operation.Operation{}, stack[len(stack)-bound:]...)
	}
	return stack
}
