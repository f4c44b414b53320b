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


// Package pubsub delivers itinerary messages to the connections subscribed
// to them and optionally relays them to other servers.
package pubsub

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/rollback"
	"github.com/yorkie-team/tripsync/server/logging"
)

// ErrTooManySubscribers is returned when the the subscription limit is exceeded.
var ErrTooManySubscribers = errors.FailedPrecond("subscription limit exceeded").WithCode("ErrTooManySubscribers")

// Broadcaster relays messages to the subscribers of other servers.
type Broadcaster interface {
	Broadcast(ctx context.Context, itineraryID string, msg *types.Message) error
}

// PubSub is the memory implementation of PubSub. A Broadcaster can be set to
// reach subscribers connected to other servers.
type PubSub struct {
	mu          sync.RWMutex
	subsMap     map[string]map[string]*Subscription
	broadcaster Broadcaster
}

// New creates an instance of PubSub.
func New() *PubSub {
	return &PubSub{
		subsMap: make(map[string]map[string]*Subscription),
	}
}

// SetBroadcaster sets the broadcaster messages are relayed through.
func (m *PubSub) SetBroadcaster(broadcaster Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.broadcaster = broadcaster
}

// Subscribe subscribes the given user to the messages of the itinerary. A
// limit of zero means no limit.
func (m *PubSub) Subscribe(
	ctx context.Context,
	subscriber string,
	itineraryID string,
	limit int,
) (*Subscription, error) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s) Start`, itineraryID, subscriber)
	}

	m.mu.Lock()
	subs, ok := m.subsMap[itineraryID]
	if !ok {
		subs = make(map[string]*Subscription)
		m.subsMap[itineraryID] = subs
	}
	if limit > 0 && len(subs) >= limit {
		m.mu.Unlock()
		return nil, fmt.Errorf("%d subscribers allowed per itinerary: %w", limit, ErrTooManySubscribers)
	}
	sub := NewSubscription(subscriber, itineraryID, DefaultBufferSize)
	subs[sub.ID()] = sub
	m.mu.Unlock()

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s) End`, itineraryID, subscriber)
	}

	return sub, nil
}

// Unsubscribe closes the subscription and forgets it.
func (m *PubSub) Unsubscribe(ctx context.Context, sub *Subscription) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s)`, sub.ItineraryID(), sub.Subscriber())
	}

	sub.Close()
	m.remove(sub)
}

func (m *PubSub) remove(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.subsMap[sub.ItineraryID()]
	if !ok {
		return
	}
	delete(subs, sub.ID())
	if len(subs) == 0 {
		delete(m.subsMap, sub.ItineraryID())
	}
}

// Publish delivers the message to every local subscriber of the itinerary
// except the one the message originates from, then relays it through the
// broadcaster.
func (m *PubSub) Publish(ctx context.Context, itineraryID string, msg *types.Message) {
	m.Deliver(ctx, itineraryID, msg)

	m.mu.RLock()
	broadcaster := m.broadcaster
	m.mu.RUnlock()

	if broadcaster != nil {
		if err := broadcaster.Broadcast(ctx, itineraryID, msg); err != nil {
			logging.From(ctx).Warnf("broadcast %s to %s: %v", msg.Type, itineraryID, err)
		}
	}
}

// Deliver delivers the message to the local subscribers only. A subscriber
// that cannot keep up is dropped; its connection is expected to reconnect
// and request a full sync.
func (m *PubSub) Deliver(ctx context.Context, itineraryID string, msg *types.Message) {
	for _, sub := range m.subscriptions(itineraryID) {
		if msg.Origin != "" && sub.ID() == msg.Origin {
			continue
		}

		if !sub.Publish(msg) {
			logging.From(ctx).Warnf(
				"drop subscription %s of %s on %s: publish timeout",
				sub.ID(), sub.Subscriber(), itineraryID,
			)
			sub.Close()
			m.remove(sub)
		}
	}
}

// Send delivers the message to one subscription of the itinerary.
func (m *PubSub) Send(itineraryID, subscriptionID string, msg *types.Message) bool {
	m.mu.RLock()
	sub, ok := m.subsMap[itineraryID][subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	return sub.Publish(msg)
}

// Subscribers returns the users subscribed to the itinerary, sorted.
func (m *PubSub) Subscribers(itineraryID string) []string {
	var users []string
	for _, sub := range m.subscriptions(itineraryID) {
		users = append(users, sub.Subscriber())
	}
	sort.Strings(users)
	return users
}

// Len returns the number of subscriptions to the itinerary.
func (m *PubSub) Len(itineraryID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.subsMap[itineraryID])
}

// NotifyRollback publishes the rollback notification to the collaborators
// of the itinerary.
func (m *PubSub) NotifyRollback(ctx context.Context, n rollback.Notification) error {
	m.Publish(ctx, n.ItineraryID, types.NewRollbackMessage(n))
	return nil
}

func (m *PubSub) subscriptions(itineraryID string) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]*Subscription, 0, len(m.subsMap[itineraryID]))
	for _, sub := range m.subsMap[itineraryID] {
		subs = append(subs, sub)
	}
	return subs
}
