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


package itineraries

import (
	"context"
	"fmt"
	"sync"
	gotime "time"

	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/cache"
	"github.com/yorkie-team/tripsync/pkg/document"
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/limit"
	"github.com/yorkie-team/tripsync/pkg/rollback"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/backend/pubsub"
	"github.com/yorkie-team/tripsync/server/logging"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
)

// ServerUserID is the user of the authoritative documents.
const ServerUserID = "server"

// appliedTTL is how long the id of an applied operation is remembered.
const appliedTTL = 24 * gotime.Hour

var (
	// ErrInvalidSeen is returned when an operation claims to have seen more
	// relayed operations than were sent.
	ErrInvalidSeen = errors.InvalidArgument("invalid seen count").WithCode("ErrInvalidSeen")

	// ErrSessionClosed is returned when a closed session sends a message.
	ErrSessionClosed = errors.FailedPrecond("session closed").WithCode("ErrSessionClosed")

	// ErrItineraryClosed is returned when joining an itinerary that was
	// unloaded or deleted. Opening it again returns a new one.
	ErrItineraryClosed = errors.FailedPrecond("itinerary closed").WithCode("ErrItineraryClosed")
)

// Session is the connection of one client to an itinerary. It remembers
// the operations relayed to the client that the client has not built on
// yet, so that the operations of the client can be rebased on them.
type Session struct {
	sub    *pubsub.Subscription
	closed bool

	// outgoing are the relayed operations not yet seen by the client,
	// transformed past every operation the client sent since.
	outgoing []*operation.Operation

	// sent is the number of operations relayed since the last full sync.
	sent int64
}

// ID returns the id of this session.
func (s *Session) ID() string {
	return s.sub.ID()
}

// UserID returns the user of this session.
func (s *Session) UserID() string {
	return s.sub.Subscriber()
}

// Events returns the messages to send to the client. The channel is closed
// when the session is dropped.
func (s *Session) Events() <-chan *types.Message {
	return s.sub.Events()
}

// Itinerary is the authoritative document of an itinerary and its versions.
// Operations are integrated in arrival order.
type Itinerary struct {
	id     string
	be     *backend.Backend
	logger *zap.SugaredLogger

	mu          sync.Mutex
	doc         *document.Document
	baseVersion int64
	sessions    map[string]*Session
	dirty       bool
	closed      bool

	// idleSince is when the last session left. It is meaningless while
	// sessions are connected.
	idleSince gotime.Time

	persistMu sync.Mutex

	store    *version.Store
	engine   *rollback.Engine
	auto     *version.AutoVersioner
	previews *cache.LRUExpireCache[string, *previewEntry]
	syncs    *limit.Limiter[string]

	// applied maps the ids of the recently applied operations to their
	// users.
	applied *cache.LRUExpireCache[string, string]

	// notices are the rollback notifications held until the restored state
	// is sent to the sessions.
	notices []rollback.Notification
}

func load(
	ctx context.Context,
	be *backend.Backend,
	id string,
	previews *cache.LRUExpireCache[string, *previewEntry],
	syncs *limit.Limiter[string],
) (*Itinerary, error) {
	logger := logging.New("itinerary", logging.NewField("itinerary", id))

	root := tree.NewObject()
	var baseVersion int64
	info, err := be.DB.FindItinerary(ctx, id)
	switch {
	case errors.Is(err, database.ErrItineraryNotFound):
	case err != nil:
		return nil, fmt.Errorf("load itinerary %s: %w", id, err)
	default:
		if root, err = info.Tree(); err != nil {
			return nil, fmt.Errorf("decode itinerary %s: %w", id, err)
		}
		baseVersion = info.ServerVersion
	}

	applied, err := cache.NewLRUExpireCache[string, string](be.Config.AppliedWindow)
	if err != nil {
		return nil, err
	}

	store, err := version.Open(
		ctx, be.DB, id,
		version.WithMaxVersions(be.Config.MaxVersions),
		version.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	itinerary := &Itinerary{
		id:     id,
		be:     be,
		logger: logger,
		doc: document.New(
			id, ServerUserID, root,
			document.WithResolver(be.Config.ConflictResolver()),
			document.WithLogger(logger),
		),
		baseVersion: baseVersion,
		sessions:    make(map[string]*Session),
		idleSince:   gotime.Now(),
		store:       store,
		previews:    previews,
		syncs:       syncs,
		applied:     applied,
	}
	itinerary.engine = rollback.New(
		store,
		rollback.WithNotifier(rollback.NotifierFunc(itinerary.holdNotification)),
		rollback.WithLogger(logger),
	)

	if interval := be.Config.ParseAutoVersionInterval(); interval > 0 {
		itinerary.auto = version.NewAutoVersioner(store, interval, func(ctx context.Context) (*tree.Object, error) {
			return itinerary.Snapshot(), nil
		})
		itinerary.auto.Start(context.Background())
	}

	logger.Debugf("itinerary loaded at version %d", baseVersion)
	return itinerary, nil
}

// ID returns the id of this itinerary.
func (it *Itinerary) ID() string {
	return it.id
}

// Snapshot returns a copy of the authoritative state.
func (it *Itinerary) Snapshot() *tree.Object {
	return it.doc.Snapshot()
}

// Version returns the number of operations the server has accepted.
func (it *Itinerary) Version() int64 {
	return it.baseVersion + it.doc.Version()
}

// Sessions returns the number of connected sessions.
func (it *Itinerary) Sessions() int {
	it.mu.Lock()
	defer it.mu.Unlock()

	return len(it.sessions)
}

// Join connects a client of the given user. The session starts with a full
// sync of the current state.
func (it *Itinerary) Join(ctx context.Context, userID string) (*Session, error) {
	sub, err := it.be.PubSub.Subscribe(ctx, userID, it.id, it.be.Config.MaxSubscribersPerItinerary)
	if err != nil {
		return nil, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		it.be.PubSub.Unsubscribe(ctx, sub)
		return nil, ErrItineraryClosed
	}

	session := &Session{sub: sub}
	it.sessions[sub.ID()] = session
	it.syncLocked(session)

	if it.be.Metrics != nil {
		it.be.Metrics.AddConnections(1)
	}
	return session, nil
}

// Leave disconnects the session.
func (it *Itinerary) Leave(ctx context.Context, session *Session) {
	it.mu.Lock()
	it.dropLocked(ctx, session)
	it.mu.Unlock()
}

func (it *Itinerary) dropLocked(ctx context.Context, session *Session) {
	if session.closed {
		return
	}
	session.closed = true
	delete(it.sessions, session.ID())
	it.be.PubSub.Unsubscribe(ctx, session.sub)
	if len(it.sessions) == 0 {
		it.idleSince = gotime.Now()
	}

	if it.be.Metrics != nil {
		it.be.Metrics.AddConnections(-1)
	}
}

// ApplyOperation integrates an operation sent by the client of the session.
// The operation is rebased on the relayed operations the client had not
// seen, applied to the authoritative document, acknowledged to the sender
// and relayed to every other session. An operation that does not apply is
// rejected and the error is returned. An operation already applied is
// acknowledged again and not applied twice.
func (it *Itinerary) ApplyOperation(ctx context.Context, session *Session, msg *types.Message) error {
	if msg.Type != types.MessageOperation || msg.Operation == nil {
		return fmt.Errorf("%s without operation: %w", msg.Type, types.ErrInvalidMessage)
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if session.closed {
		return ErrSessionClosed
	}

	if _, ok := it.applied.Get(msg.Operation.ID); ok {
		it.logger.Debugf("acknowledge duplicate operation %s of %s", msg.Operation.ID, session.UserID())
		session.sub.Publish(types.NewAckMessage(it.id, msg.Operation.ID, it.Version()))
		return nil
	}

	unseen := session.sent - msg.Seen
	if msg.Seen < 0 || unseen < 0 || unseen > int64(len(session.outgoing)) {
		session.sub.Publish(types.NewRejectMessage(it.id, msg.Operation.ID, ErrInvalidSeen.Error()))
		it.addOperation(prometheus.ResultFailure)
		return fmt.Errorf("seen %d of %d relayed: %w", msg.Seen, session.sent, ErrInvalidSeen)
	}
	session.outgoing = session.outgoing[int64(len(session.outgoing))-unseen:]

	op := msg.Operation.Clone()
	rebased := make([]*operation.Operation, len(session.outgoing))
	for i, relayed := range session.outgoing {
		op, rebased[i] = operation.Transform(op, relayed)
	}

	if err := it.doc.ApplyRemoteOperation(op); err != nil {
		session.sub.Publish(types.NewRejectMessage(it.id, msg.Operation.ID, err.Error()))
		it.addOperation(prometheus.ResultFailure)
		return err
	}
	session.outgoing = rebased
	it.applied.Add(op.ID, session.UserID(), appliedTTL)
	it.dirty = true
	it.addOperation(prometheus.ResultSuccess)

	ver := it.Version()
	session.sub.Publish(types.NewAckMessage(it.id, op.ID, ver))

	relay := types.NewOperationMessage(it.id, op)
	relay.Version = ver
	var lagging []*Session
	for _, other := range it.sessions {
		if other == session {
			continue
		}
		other.outgoing = append(other.outgoing, op)
		other.sent++
		if !other.sub.Publish(relay) {
			lagging = append(lagging, other)
		}
	}
	for _, other := range lagging {
		it.logger.Warnf("drop session %s of %s: publish timeout", other.ID(), other.UserID())
		it.dropLocked(ctx, other)
	}
	if it.be.Metrics != nil {
		it.be.Metrics.AddBroadcast(string(types.MessageOperation))
	}

	return nil
}

// RequestSync sends the current state to the session and restarts its
// relay count. Requests arriving within the sync window of the previous one
// are collapsed into a single trailing sync.
func (it *Itinerary) RequestSync(_ context.Context, session *Session) error {
	it.mu.Lock()
	closed := session.closed
	it.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	resync := func() {
		it.mu.Lock()
		defer it.mu.Unlock()
		if !session.closed {
			it.syncLocked(session)
		}
	}
	if it.syncs.Allow(session.ID(), resync) {
		resync()
	}
	return nil
}

// syncLocked sends the current state to the session along with the ids of
// the applied operations of its user.
func (it *Itinerary) syncLocked(session *Session) {
	session.outgoing = nil
	session.sent = 0

	msg := types.NewFullSyncMessage(it.id, it.doc.Snapshot(), it.Version())
	it.applied.Range(func(id, userID string) bool {
		if userID == session.UserID() {
			msg.Applied = append(msg.Applied, id)
		}
		return true
	})
	session.sub.Publish(msg)
}

// resetLocked replaces the authoritative state and sends it to every session.
func (it *Itinerary) resetLocked(state *tree.Object) {
	it.doc.ForceSync(state)
	it.dirty = true
	for _, session := range it.sessions {
		it.syncLocked(session)
	}
	if it.be.Metrics != nil {
		it.be.Metrics.AddBroadcast(string(types.MessageFullSync))
	}
}

func (it *Itinerary) addOperation(result string) {
	if it.be.Metrics != nil {
		it.be.Metrics.AddOperation(result)
	}
}

// persist stores the state when it changed since it was last stored.
func (it *Itinerary) persist(ctx context.Context) error {
	it.persistMu.Lock()
	defer it.persistMu.Unlock()

	it.mu.Lock()
	if !it.dirty {
		it.mu.Unlock()
		return nil
	}
	info, err := database.NewItineraryInfo(it.id, it.doc.Snapshot(), it.Version(), gotime.Now())
	it.dirty = false
	it.mu.Unlock()
	if err != nil {
		return err
	}

	if err := it.be.DB.PutItinerary(ctx, info); err != nil {
		it.mu.Lock()
		it.dirty = true
		it.mu.Unlock()
		return fmt.Errorf("store itinerary %s: %w", it.id, err)
	}
	return nil
}

func (it *Itinerary) close(ctx context.Context) error {
	err := it.persist(ctx)
	it.shutdown(ctx)
	return err
}

// shutdown stops the automatic versions and drops every session without
// storing the state.
func (it *Itinerary) shutdown(ctx context.Context) {
	if it.auto != nil {
		it.auto.Stop()
	}

	it.mu.Lock()
	it.closed = true
	for _, session := range it.sessions {
		it.dropLocked(ctx, session)
	}
	it.mu.Unlock()
}

// idleFor returns how long the itinerary has had no sessions. It reports
// false while a session is connected.
func (it *Itinerary) idleFor(now gotime.Time) (gotime.Duration, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed || len(it.sessions) > 0 {
		return 0, false
	}
	return now.Sub(it.idleSince), true
}

// retire marks the itinerary closed when it has no sessions and nothing
// left to store. A retired itinerary refuses new sessions.
func (it *Itinerary) retire() bool {
	it.persistMu.Lock()
	defer it.persistMu.Unlock()
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed || it.dirty || len(it.sessions) > 0 {
		return false
	}
	it.closed = true
	return true
}
