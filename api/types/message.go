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

// Package types provides the messages exchanged between the tripsync server
// and its clients. This package is used by both the server and the client.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/rollback"
)

// ErrInvalidMessage is returned when a message misses a field its type needs.
var ErrInvalidMessage = errors.InvalidArgument("invalid message").WithCode("ErrInvalidMessage")

// MessageType is the type of a message.
type MessageType string

// Below are the types of messages sent by clients.
const (
	MessageOperation   MessageType = "operation"
	MessageRequestSync MessageType = "request-sync"
)

// Below are the types of messages sent by the server. MessageOperation is
// also sent to relay operations of other clients.
const (
	MessageAck      MessageType = "ack"
	MessageReject   MessageType = "reject"
	MessageFullSync MessageType = "full-sync"
	MessageRollback MessageType = "rollback"
	MessageError    MessageType = "error"
)

// Message is a message of the websocket protocol.
type Message struct {
	Type        MessageType            `json:"type"`
	DocumentID  string                 `json:"documentId,omitempty"`
	Operation   *operation.Operation   `json:"operation,omitempty"`
	OperationID string                 `json:"operationId,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	State       *tree.Object           `json:"state,omitempty"`
	Since       int64                  `json:"since,omitempty"`
	Version     int64                  `json:"version,omitempty"`
	Rollback    *rollback.Notification `json:"rollback,omitempty"`

	// Seen is the number of relayed operations the sender of an operation
	// had received since its last full sync.
	Seen int64 `json:"seen,omitempty"`

	// Applied are the ids of the recent operations of the receiving user
	// that a full sync state already contains.
	Applied []string `json:"applied,omitempty"`

	// Origin is the id of the connection the message came from. It is never
	// sent to clients.
	Origin string `json:"-"`
}

// NewOperationMessage creates a message carrying an operation.
func NewOperationMessage(documentID string, op *operation.Operation) *Message {
	return &Message{Type: MessageOperation, DocumentID: documentID, Operation: op}
}

// NewRequestSyncMessage creates a message asking for the full state.
func NewRequestSyncMessage(documentID string, since int64) *Message {
	return &Message{Type: MessageRequestSync, DocumentID: documentID, Since: since}
}

// NewAckMessage creates a message acknowledging an operation.
func NewAckMessage(documentID, operationID string, version int64) *Message {
	return &Message{
		Type:        MessageAck,
		DocumentID:  documentID,
		OperationID: operationID,
		Version:     version,
	}
}

// NewRejectMessage creates a message rejecting an operation.
func NewRejectMessage(documentID, operationID, reason string) *Message {
	return &Message{
		Type:        MessageReject,
		DocumentID:  documentID,
		OperationID: operationID,
		Reason:      reason,
	}
}

// NewFullSyncMessage creates a message carrying the authoritative state.
func NewFullSyncMessage(documentID string, state *tree.Object, version int64) *Message {
	return &Message{Type: MessageFullSync, DocumentID: documentID, State: state, Version: version}
}

// NewRollbackMessage creates a message announcing a rollback.
func NewRollbackMessage(n rollback.Notification) *Message {
	return &Message{Type: MessageRollback, DocumentID: n.ItineraryID, Rollback: &n}
}

// NewErrorMessage creates a message reporting a failure to the client.
func NewErrorMessage(documentID, reason string) *Message {
	return &Message{Type: MessageError, DocumentID: documentID, Reason: reason}
}

// Validate returns an error when the message misses a field its type needs.
func (m *Message) Validate() error {
	switch m.Type {
	case MessageOperation:
		if m.Operation == nil {
			return fmt.Errorf("%s without operation: %w", m.Type, ErrInvalidMessage)
		}
		return m.Operation.Validate()
	case MessageRequestSync, MessageError:
		return nil
	case MessageAck, MessageReject:
		if m.OperationID == "" {
			return fmt.Errorf("%s without operation id: %w", m.Type, ErrInvalidMessage)
		}
		return nil
	case MessageFullSync:
		if m.State == nil {
			return fmt.Errorf("%s without state: %w", m.Type, ErrInvalidMessage)
		}
		return nil
	case MessageRollback:
		if m.Rollback == nil {
			return fmt.Errorf("%s without notification: %w", m.Type, ErrInvalidMessage)
		}
		return nil
	default:
		return fmt.Errorf("unknown type %q: %w", m.Type, ErrInvalidMessage)
	}
}

// DecodeMessage decodes and validates a message.
func DecodeMessage(data []byte) (*Message, error) {
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode message: %v: %w", err, ErrInvalidMessage)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
