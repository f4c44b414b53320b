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

// Package client provides the websocket client that keeps a document in
// sync with a tripsync server.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	gotime "time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/document"
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

// Status is the status of the connection of a client.
type Status string

// Below are the statuses of a client.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnected    Status = "connected"
	StatusClosed       Status = "closed"
)

var (
	// ErrClientClosed is returned when the client was already closed.
	ErrClientClosed = errors.FailedPrecond("client is closed").WithCode("ErrClientClosed")

	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.FailedPrecond("client is already connected").WithCode("ErrAlreadyConnected")

	// ErrInvalidAddr is returned when the server address cannot be used.
	ErrInvalidAddr = errors.InvalidArgument("invalid server address").WithCode("ErrInvalidAddr")
)

// Client binds a document to an itinerary of a tripsync server. Local
// operations are sent as the document emits them, and the messages of the
// server are applied to the document. The client reconnects with an
// exponential backoff when the connection is lost.
type Client struct {
	url     string
	doc     *document.Document
	options Options
	logger  *zap.SugaredLogger
	outbox  chan *types.Message

	// docMu serializes the changes the client makes to the document, so that
	// seen is stable while an outgoing operation is stamped with it.
	docMu sync.Mutex
	seen  atomic.Int64

	mu          sync.Mutex
	status      Status
	started     bool
	conn        *websocket.Conn
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

// New creates a client of the server at rpcAddr for the given document. The
// document id names the itinerary and its user id names the collaborator.
func New(rpcAddr string, doc *document.Document, opts ...Option) (*Client, error) {
	endpoint, err := endpointOf(rpcAddr, doc.ID(), doc.UserID())
	if err != nil {
		return nil, err
	}

	options := newOptions(opts)
	return &Client{
		url:     endpoint,
		doc:     doc,
		options: options,
		logger: options.Logger.Sugar().With(
			"itinerary", doc.ID(),
			"user", doc.UserID(),
		),
		outbox: make(chan *types.Message, options.OutboxSize),
		status: StatusDisconnected,
	}, nil
}

// endpointOf returns the websocket URL of the itinerary.
func endpointOf(rpcAddr, itineraryID, userID string) (string, error) {
	if !strings.Contains(rpcAddr, "://") {
		rpcAddr = "ws://" + rpcAddr
	}
	u, err := url.Parse(rpcAddr)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rpcAddr, ErrInvalidAddr)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("scheme %q: %w", u.Scheme, ErrInvalidAddr)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %s: %w", rpcAddr, ErrInvalidAddr)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + url.PathEscape(itineraryID)
	u.RawQuery = url.Values{"user": {userID}}.Encode()
	return u.String(), nil
}

// Connect dials the server and keeps the document in sync until Close is
// called. Only the first dial is reported; later failures are retried.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusClosed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.started = true
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusClosed {
		_ = conn.Close()
		return ErrClientClosed
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.unsubscribe = c.doc.Subscribe(document.ListenerFunc(c.handleEvent))
	go c.run(runCtx, conn, c.done)
	return nil
}

// Close disconnects the client. The document keeps its pending operations.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.status == StatusClosed {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusClosed
	cancel, done, unsubscribe := c.cancel, c.done, c.unsubscribe
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

// Apply applies a local operation to the document. It is sent to the
// server while the client is connected and replayed after a reconnection
// otherwise.
func (c *Client) Apply(op *operation.Operation) error {
	c.docMu.Lock()
	defer c.docMu.Unlock()
	return c.doc.ApplyLocalOperation(op)
}

// Undo reverts the last local operation of the document.
func (c *Client) Undo() (bool, error) {
	c.docMu.Lock()
	defer c.docMu.Unlock()
	return c.doc.Undo()
}

// Redo reapplies the last undone operation of the document.
func (c *Client) Redo() (bool, error) {
	c.docMu.Lock()
	defer c.docMu.Unlock()
	return c.doc.Redo()
}

// RequestSync asks the server for its authoritative state. Pending
// operations are dropped when the state arrives.
func (c *Client) RequestSync() {
	c.enqueue(types.NewRequestSyncMessage(c.doc.ID(), c.doc.Version()))
}

// Document returns the document bound to the client.
func (c *Client) Document() *document.Document {
	return c.doc
}

// Status returns the status of the connection.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Seen returns the number of relayed operations received since the last
// full sync.
func (c *Client) Seen() int64 {
	return c.seen.Load()
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusClosed {
		c.status = status
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.options.Dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	return conn, nil
}

func (c *Client) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.options.MinRetryInterval
	b.MaxInterval = c.options.MaxRetryInterval
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		connectedAt := gotime.Now()
		if err := c.serve(ctx, conn); err != nil && ctx.Err() == nil {
			c.logger.Warnf("connection lost: %v", err)
		}
		if ctx.Err() != nil {
			return
		}
		if gotime.Since(connectedAt) > c.options.MaxRetryInterval {
			b.Reset()
		}

		if conn = c.reconnect(ctx, b); conn == nil {
			return
		}
	}
}

// reconnect dials until it succeeds or the context is done.
func (c *Client) reconnect(ctx context.Context, b backoff.BackOff) *websocket.Conn {
	for {
		wait := b.NextBackOff()
		timer := gotime.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := c.dial(ctx)
		if err == nil {
			return conn
		}
		c.logger.Warnf("reconnect after %s: %v", wait, err)
	}
}

// serve exchanges messages over the connection until it fails.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go c.writeLoop(conn, stop, writerDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				gotime.Now().Add(c.options.WriteTimeout),
			)
			_ = conn.Close()
		case <-stop:
		}
	}()

	err := c.readLoop(conn)

	close(stop)
	_ = conn.Close()
	<-writerDone

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	c.docMu.Lock()
	c.doc.SetConnected(false)
	c.docMu.Unlock()
	c.setStatus(StatusDisconnected)
	c.drainOutbox()
	return err
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	handshake := true
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := types.DecodeMessage(data)
		if err != nil {
			c.logger.Warnf("decode message: %v", err)
			continue
		}
		if msg.Type == types.MessageFullSync {
			c.sync(msg, handshake)
			handshake = false
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) writeLoop(conn *websocket.Conn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case msg := <-c.outbox:
			if err := conn.SetWriteDeadline(gotime.Now().Add(c.options.WriteTimeout)); err != nil {
				c.logger.Warnf("set write deadline: %v", err)
			}
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Warnf("write %s: %v", msg.Type, err)
				_ = conn.Close()
				return
			}
		}
	}
}

// sync adopts the authoritative state of the server. The first full sync of
// a connection also replays the pending operations the state does not
// contain, then marks the document connected. The server acknowledges a
// replayed operation it had already applied without applying it again.
func (c *Client) sync(msg *types.Message, handshake bool) {
	c.docMu.Lock()
	defer c.docMu.Unlock()

	var replay []*operation.Operation
	if handshake {
		applied := make(map[string]bool, len(msg.Applied))
		for _, id := range msg.Applied {
			applied[id] = true
		}
		for _, op := range c.doc.Pending() {
			if !applied[op.ID] {
				replay = append(replay, op)
			}
		}
	}

	c.seen.Store(0)
	c.doc.ForceSync(msg.State)

	for _, op := range replay {
		if err := c.doc.ApplyLocalOperation(op); err != nil {
			c.logger.Warnf("replay %s: %v", op.String(), err)
		}
	}

	if handshake {
		c.doc.SetConnected(true)
		c.setStatus(StatusConnected)
	}
}

func (c *Client) handle(msg *types.Message) {
	switch msg.Type {
	case types.MessageRollback:
		if c.options.OnRollback != nil && msg.Rollback != nil {
			c.options.OnRollback(*msg.Rollback)
		}
		return
	case types.MessageError:
		c.logger.Warnf("server error: %s", msg.Reason)
		return
	}

	c.docMu.Lock()
	defer c.docMu.Unlock()

	var err error
	switch msg.Type {
	case types.MessageOperation:
		c.seen.Add(1)
		if err = c.doc.ApplyRemoteOperation(msg.Operation); err != nil {
			c.enqueue(types.NewRequestSyncMessage(c.doc.ID(), c.doc.Version()))
		}
	case types.MessageAck:
		err = c.doc.AcknowledgeOperation(msg.OperationID)
	case types.MessageReject:
		err = c.doc.RejectOperation(msg.OperationID, msg.Reason)
	default:
		c.logger.Warnf("unexpected message type %q", msg.Type)
		return
	}

	if errors.Is(err, document.ErrUnknownOperation) {
		// Operations dropped by a forced sync can still be answered.
		c.logger.Debugf("%s: %v", msg.Type, err)
	} else if err != nil {
		c.logger.Warnf("%s: %v", msg.Type, err)
	}
}

// handleEvent is the listener of the document.
func (c *Client) handleEvent(ev document.Event) {
	switch ev.Type {
	case document.SendToServerEvent:
		msg := types.NewOperationMessage(c.doc.ID(), ev.Operation)
		msg.Seen = c.seen.Load()
		c.enqueue(msg)
	case document.ErrorEvent:
		if errors.Is(ev.Err, document.ErrDesynchronized) {
			c.enqueue(types.NewRequestSyncMessage(c.doc.ID(), ev.Version))
		}
	}
}

// enqueue hands the message to the writer. When the writer cannot keep up
// the connection is reset, and the operations that were not written are
// replayed after the reconnection.
func (c *Client) enqueue(msg *types.Message) {
	select {
	case c.outbox <- msg:
	default:
		c.logger.Warnf("outbox full, resetting connection")
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	}
}

func (c *Client) drainOutbox() {
	for {
		select {
		case <-c.outbox:
		default:
			return
		}
	}
}
