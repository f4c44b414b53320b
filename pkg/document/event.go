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

package document

import (
	"github.com/yorkie-team/tripsync/pkg/document/operation"
)

// EventType represents the type of the Event.
type EventType string

const (
	// LocalChangeEvent occurs when a local operation is applied to the
	// live tree.
	LocalChangeEvent EventType = "localChange"

	// RemoteChangeEvent occurs when an operation of another replica is
	// integrated.
	RemoteChangeEvent EventType = "remoteChange"

	// OperationAcknowledgedEvent occurs when the server accepted a local
	// operation.
	OperationAcknowledgedEvent EventType = "operationAcknowledged"

	// OperationRejectedEvent occurs when the server refused a local
	// operation and its effect was reverted.
	OperationRejectedEvent EventType = "operationRejected"

	// ForcedSyncEvent occurs when the document was replaced by a server
	// authoritative state.
	ForcedSyncEvent EventType = "forcedSync"

	// ConnectedEvent occurs when the transport becomes available.
	ConnectedEvent EventType = "connected"

	// DisconnectedEvent occurs when the transport becomes unavailable.
	DisconnectedEvent EventType = "disconnected"

	// SendToServerEvent asks the transport to relay an operation.
	SendToServerEvent EventType = "sendToServer"

	// ErrorEvent reports a desync or a failure that the host must handle.
	ErrorEvent EventType = "error"
)

// Event is an event that occurs in a document.
type Event struct {
	// Type is the type of the event.
	Type EventType

	// DocumentID is the id of the document the event occurred in.
	DocumentID string

	// Operation is the operation the event is about, if any.
	Operation *operation.Operation

	// Dropped holds the pending operations discarded by a forced sync.
	Dropped []*operation.Operation

	// Reason is the reason of a rejection.
	Reason string

	// Err is the error of an error event.
	Err error

	// Version is the version of the document after the event.
	Version int64
}

// Listener receives the events of a document. It is called after the
// document released its lock, so it may call back into the document.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc is an adapter to use an ordinary function as a Listener.
type ListenerFunc func(event Event)

// OnEvent calls f(event).
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}
