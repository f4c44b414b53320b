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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/server/logging"
)

// DefaultChannelPrefix is the default prefix of the redis channels.
const DefaultChannelPrefix = "tripsync:itinerary:"

// envelope is a message relayed between servers.
type envelope struct {
	Node        string         `json:"node"`
	ItineraryID string         `json:"itineraryId"`
	Message     *types.Message `json:"message"`
}

// RedisBroadcaster relays messages between servers over redis pub/sub, one
// channel per itinerary.
type RedisBroadcaster struct {
	client *redis.Client
	prefix string
	nodeID string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisBroadcaster creates a broadcaster on the given redis client.
func NewRedisBroadcaster(client *redis.Client, prefix string) *RedisBroadcaster {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	return &RedisBroadcaster{
		client: client,
		prefix: prefix,
		nodeID: xid.New().String(),
	}
}

// NodeID returns the id this server is known by on the channels.
func (b *RedisBroadcaster) NodeID() string {
	return b.nodeID
}

// Broadcast publishes the message to the channel of the itinerary.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, itineraryID string, msg *types.Message) error {
	payload, err := json.Marshal(&envelope{
		Node:        b.nodeID,
		ItineraryID: itineraryID,
		Message:     msg,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.prefix+itineraryID, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", itineraryID, err)
	}
	return nil
}

// Start subscribes to the channels of every itinerary and delivers the
// messages of other servers to the local subscribers of pubSub.
func (b *RedisBroadcaster) Start(ctx context.Context, pubSub *PubSub) error {
	sub := b.client.PSubscribe(ctx, b.prefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to %s*: %w", b.prefix, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	b.mu.Lock()
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				b.handle(ctx, pubSub, raw)
			}
		}
	}()

	return nil
}

func (b *RedisBroadcaster) handle(ctx context.Context, pubSub *PubSub, raw *redis.Message) {
	env := &envelope{}
	if err := json.Unmarshal([]byte(raw.Payload), env); err != nil {
		logging.From(ctx).Warnf("decode envelope from %s: %v", raw.Channel, err)
		return
	}
	if env.Node == b.nodeID || env.Message == nil {
		return
	}

	itineraryID := env.ItineraryID
	if itineraryID == "" {
		itineraryID = strings.TrimPrefix(raw.Channel, b.prefix)
	}
	pubSub.Deliver(ctx, itineraryID, env.Message)
}

// Stop stops relaying messages and waits for the loop to exit.
func (b *RedisBroadcaster) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
