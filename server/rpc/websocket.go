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


package rpc

import (
	"context"
	"net/http"
	gotime "time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/internal/validation"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/server/itineraries"
	"github.com/yorkie-team/tripsync/server/logging"
)

// ErrInvalidUser is returned when a websocket is opened without a valid user.
var ErrInvalidUser = errors.InvalidArgument("invalid user").WithCode("ErrInvalidUser")

func newUpgrader(conf *Config) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(conf.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range conf.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// serveWebSocket connects a client to an itinerary. The client receives a
// full sync first and then the messages of its session.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("user")
	if err := validation.ValidateValue(userID, "required,max=128"); err != nil {
		fail(w, errors.WithMetadata(ErrInvalidUser, map[string]string{"user": userID}))
		return
	}

	itinerary, err := s.registry.Open(ctx, mux.Vars(r)["itinerary"])
	if err != nil {
		fail(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		logging.From(ctx).Debugf("upgrade: %v", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()
	conn.SetReadLimit(s.conf.MaxRequestBytes)

	session, err := itinerary.Join(ctx, userID)
	if err != nil {
		deadline := gotime.Now().Add(s.conf.ParseWriteTimeout())
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			deadline,
		)
		return
	}
	ctx = logging.WithFields(
		ctx,
		logging.NewField("itinerary", itinerary.ID()),
		logging.NewField("session", session.ID()),
	)
	logging.From(ctx).Debugf("%s joined", userID)

	done := make(chan struct{})
	go s.writeLoop(ctx, conn, session, done)
	s.readLoop(ctx, conn, itinerary, session)

	itinerary.Leave(ctx, session)
	<-done
}

// writeLoop is the only writer of the connection. It returns when the
// session is closed or a write fails.
func (s *Server) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	session *itineraries.Session,
	done chan struct{},
) {
	defer close(done)

	writeTimeout := s.conf.ParseWriteTimeout()
	ticker := gotime.NewTicker(s.conf.ParsePingInterval())
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-session.Events():
			deadline := gotime.Now().Add(writeTimeout)
			if !ok {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					deadline,
				)
				_ = conn.Close()
				return
			}

			if err := conn.SetWriteDeadline(deadline); err != nil {
				_ = conn.Close()
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logging.From(ctx).Debugf("write %s: %v", msg.Type, err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			deadline := gotime.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// readLoop handles the messages of the client until the connection fails.
func (s *Server) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	itinerary *itineraries.Itinerary,
	session *itineraries.Session,
) {
	pongWait := 2 * s.conf.ParsePingInterval()
	extend := func() error {
		return conn.SetReadDeadline(gotime.Now().Add(pongWait))
	}
	if err := extend(); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.From(ctx).Debugf("read: %v", err)
			}
			return
		}
		if err := extend(); err != nil {
			return
		}

		msg, err := types.DecodeMessage(data)
		if err != nil {
			s.reply(itinerary, session, types.NewErrorMessage(itinerary.ID(), err.Error()))
			continue
		}
		if msg.DocumentID != "" && msg.DocumentID != itinerary.ID() {
			s.reply(itinerary, session, types.NewErrorMessage(itinerary.ID(), "document id mismatch"))
			continue
		}

		switch msg.Type {
		case types.MessageOperation:
			err = itinerary.ApplyOperation(ctx, session, msg)
			if err != nil {
				// the rejection was sent to the client
				logging.From(ctx).Debugf("operation %s: %v", msg.Operation.ID, err)
			}
		case types.MessageRequestSync:
			err = itinerary.RequestSync(ctx, session)
		default:
			s.reply(itinerary, session, types.NewErrorMessage(
				itinerary.ID(),
				"unexpected message type "+string(msg.Type),
			))
		}
		if errors.Is(err, itineraries.ErrSessionClosed) {
			return
		}
	}
}

func (s *Server) reply(itinerary *itineraries.Itinerary, session *itineraries.Session, msg *types.Message) {
	s.be.PubSub.Send(itinerary.ID(), session.ID(), msg)
}
