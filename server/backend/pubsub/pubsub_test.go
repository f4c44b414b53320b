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


package pubsub_test

import (
	"context"
	"fmt"
	gosync "sync"
	"testing"
	gotime "time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/rollback"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend/pubsub"
)

func TestPubSub(t *testing.T) {
	t.Run("publish subscribe test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()
		msg := types.NewFullSyncMessage("trip-1", nil, 3)

		subA, err := pubSub.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)
		defer pubSub.Unsubscribe(ctx, subA)

		var wg gosync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := <-subA.Events()
			assert.Equal(t, msg, e)
		}()

		pubSub.Publish(ctx, "trip-1", msg)
		wg.Wait()
	})

	t.Run("origin is skipped test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()

		subA, err := pubSub.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)
		subB, err := pubSub.Subscribe(ctx, "bob", "trip-1", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, pubSub.Subscribers("trip-1"))

		msg := types.NewFullSyncMessage("trip-1", nil, 1)
		msg.Origin = subA.ID()
		pubSub.Publish(ctx, "trip-1", msg)

		assert.Equal(t, msg, <-subB.Events())
		assert.Len(t, subA.Events(), 0)
	})

	t.Run("max subscribers per itinerary limit exceeded test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()

		_, err := pubSub.Subscribe(ctx, "alice", "trip-1", 1)
		assert.NoError(t, err)
		_, err = pubSub.Subscribe(ctx, "bob", "trip-1", 1)
		assert.ErrorIs(t, err, pubsub.ErrTooManySubscribers)

		_, err = pubSub.Subscribe(ctx, "bob", "trip-2", 1)
		assert.NoError(t, err)
	})

	t.Run("unsubscribe closes events test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()

		sub, err := pubSub.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)
		pubSub.Unsubscribe(ctx, sub)

		_, ok := <-sub.Events()
		assert.False(t, ok)
		assert.Equal(t, 0, pubSub.Len("trip-1"))
		assert.False(t, sub.Publish(types.NewFullSyncMessage("trip-1", nil, 1)))
	})

	t.Run("slow subscriber is dropped test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()

		sub, err := pubSub.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)
		for i := 0; i <= pubsub.DefaultBufferSize; i++ {
			pubSub.Publish(ctx, "trip-1", types.NewFullSyncMessage("trip-1", nil, int64(i)))
		}

		assert.True(t, sub.Closed())
		assert.Equal(t, 0, pubSub.Len("trip-1"))
	})

	t.Run("send to one subscription test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()

		subA, err := pubSub.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)
		subB, err := pubSub.Subscribe(ctx, "bob", "trip-1", 0)
		require.NoError(t, err)

		msg := types.NewAckMessage("trip-1", "op-1", 1)
		assert.True(t, pubSub.Send("trip-1", subB.ID(), msg))
		assert.False(t, pubSub.Send("trip-1", "unknown", msg))
		assert.Equal(t, msg, <-subB.Events())
		assert.Len(t, subA.Events(), 0)
	})

	t.Run("notify rollback test", func(t *testing.T) {
		pubSub := pubsub.New()
		ctx := context.Background()

		sub, err := pubSub.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)

		var notifier rollback.Notifier = pubSub
		require.NoError(t, notifier.NotifyRollback(ctx, rollback.Notification{
			ItineraryID:   "trip-1",
			TargetVersion: &version.Version{ID: "v1"},
			NewVersion:    &version.Version{ID: "v3"},
		}))

		msg := <-sub.Events()
		assert.Equal(t, types.MessageRollback, msg.Type)
		assert.Equal(t, "v3", msg.Rollback.NewVersion.ID)
	})
}

func TestRedisBroadcaster(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379", DialTimeout: gotime.Second})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis is not available: %v", err)
	}
	defer func() { assert.NoError(t, client.Close()) }()

	t.Run("relay between servers test", func(t *testing.T) {
		prefix := fmt.Sprintf("tripsync-test-%d:", gotime.Now().UnixNano())

		nodeA, nodeB := pubsub.New(), pubsub.New()
		broadcasterA := pubsub.NewRedisBroadcaster(client, prefix)
		broadcasterB := pubsub.NewRedisBroadcaster(client, prefix)
		nodeA.SetBroadcaster(broadcasterA)
		nodeB.SetBroadcaster(broadcasterB)
		require.NoError(t, broadcasterA.Start(ctx, nodeA))
		defer broadcasterA.Stop()
		require.NoError(t, broadcasterB.Start(ctx, nodeB))
		defer broadcasterB.Stop()

		subA, err := nodeA.Subscribe(ctx, "alice", "trip-1", 0)
		require.NoError(t, err)
		subB, err := nodeB.Subscribe(ctx, "bob", "trip-1", 0)
		require.NoError(t, err)

		nodeA.Publish(ctx, "trip-1", types.NewFullSyncMessage("trip-1", nil, 9))

		assert.Equal(t, int64(9), (<-subA.Events()).Version)
		select {
		case msg := <-subB.Events():
			assert.Equal(t, types.MessageFullSync, msg.Type)
			assert.Equal(t, int64(9), msg.Version)
		case <-gotime.After(5 * gotime.Second):
			t.Fatal("message was not relayed")
		}
		assert.Len(t, subA.Events(), 0)
	})
}
