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


package pubsub

import (
	"sync"
	gotime "time"

	"github.com/rs/xid"

	"github.com/yorkie-team/tripsync/api/types"
)

const (
	// publishTimeout is the timeout for publishing a message.
	publishTimeout = 100 * gotime.Millisecond

	// DefaultBufferSize is the buffer size of a subscription.
	DefaultBufferSize = 64
)

// Subscription represents a subscription of a connection to the messages
// of one itinerary.
type Subscription struct {
	id          string
	subscriber  string
	itineraryID string
	mu          sync.Mutex
	closed      bool
	events      chan *types.Message
}

// NewSubscription creates a new instance of Subscription with the given buffer size.
func NewSubscription(subscriber, itineraryID string, bufSize int) *Subscription {
	return &Subscription{
		id:          xid.New().String(),
		subscriber:  subscriber,
		itineraryID: itineraryID,
		events:      make(chan *types.Message, bufSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Subscriber returns the user behind this subscription.
func (s *Subscription) Subscriber() string {
	return s.subscriber
}

// ItineraryID returns the itinerary this subscription listens to.
func (s *Subscription) ItineraryID() string {
	return s.itineraryID
}

// Events returns the message channel of this subscription. It is closed
// when the subscription is closed.
func (s *Subscription) Events() <-chan *types.Message {
	return s.events
}

// Close closes all resources of this Subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Closed returns whether this subscription is closed.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Publish publishes the given message to the subscriber. It returns false
// when the subscription is closed or the subscriber did not drain its
// buffer in time.
func (s *Subscription) Publish(msg *types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- msg:
		return true
	case <-gotime.After(publishTimeout):
		return false
	}
}
