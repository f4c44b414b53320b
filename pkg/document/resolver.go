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

// Collision describes two operations from different users writing the same
// value. Existing is the last write applied to the value, Incoming is the
// one being integrated.
type Collision struct {
	Existing *operation.Operation
	Incoming *operation.Operation

	// LocalUserID is the user of the document the collision happens in.
	LocalUserID string
}

// IncomingIsLocal returns whether the incoming write was made by the local
// user.
func (c Collision) IncomingIsLocal() bool {
	return c.Incoming.UserID == c.LocalUserID
}

// ExistingIsLocal returns whether the existing write was made by the local
// user.
func (c Collision) ExistingIsLocal() bool {
	return c.Existing.UserID == c.LocalUserID
}

// ConflictResolver decides the outcome of a collision.
type ConflictResolver interface {
	// Resolve returns true when the incoming write replaces the existing one.
	Resolve(c Collision) bool
}

// ResolverFunc is an adapter to use an ordinary function as a
// ConflictResolver.
type ResolverFunc func(c Collision) bool

// Resolve calls f(c).
func (f ResolverFunc) Resolve(c Collision) bool {
	return f(c)
}

var (
	// LastWriteWins keeps the write with the later timestamp. Writes at the
	// same instant are ordered by user id so every replica agrees.
	LastWriteWins ConflictResolver = ResolverFunc(func(c Collision) bool {
		return isLater(c.Incoming, c.Existing)
	})

	// LocalWins keeps the local user's write over a remote one. Between two
	// remote writes it falls back to LastWriteWins.
	LocalWins ConflictResolver = ResolverFunc(func(c Collision) bool {
		switch {
		case c.IncomingIsLocal():
			return true
		case c.ExistingIsLocal():
			return false
		default:
			return isLater(c.Incoming, c.Existing)
		}
	})

	// RemoteWins keeps a remote write over the local user's one. Between two
	// remote writes it falls back to LastWriteWins.
	RemoteWins ConflictResolver = ResolverFunc(func(c Collision) bool {
		switch {
		case c.IncomingIsLocal():
			return false
		case c.ExistingIsLocal():
			return true
		default:
			return isLater(c.Incoming, c.Existing)
		}
	})
)

// ResolverByName returns the resolver registered under the given name.
func ResolverByName(name string) (ConflictResolver, bool) {
	switch name {
	case "", "last-write-wins":
		return LastWriteWins, true
	case "local-wins":
		return LocalWins, true
	case "remote-wins":
		return RemoteWins, true
	default:
		return nil, false
	}
}

func isLater(a, b *operation.Operation) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.UserID > b.UserID
}
