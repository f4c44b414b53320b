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


// Package redis implements database interfaces using Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	gotime "time"

	"github.com/redis/go-redis/v9"

	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/logging"
)

const (
	fieldData          = "data"
	fieldServerVersion = "server_version"
	fieldUpdatedAt     = "updated_at"
)

// Client is a client that connects to Redis and reads or saves tripsync data.
// Each itinerary is a hash, its versions a plain string, and the set of ids
// is kept for listing.
type Client struct {
	config *Config
	client *redis.Client
}

// Dial creates an instance of Client and pings the given Redis.
func Dial(conf *Config) (*Client, error) {
	timeout, err := gotime.ParseDuration(conf.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse dial timeout: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        conf.Addr,
		Password:    conf.Password,
		DB:          conf.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logging.DefaultLogger().Infof("Redis connected, Addr: %s, DB: %d", conf.Addr, conf.DB)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Redis returns the underlying redis client.
func (c *Client) Redis() *redis.Client {
	return c.client
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// PutVersions stores the encoded version list of the given itinerary.
func (c *Client) PutVersions(ctx context.Context, itineraryID string, data []byte) error {
	if itineraryID == "" {
		return database.ErrInvalidItineraryID
	}

	if err := c.client.Set(ctx, c.versionsKey(itineraryID), data, 0).Err(); err != nil {
		return fmt.Errorf("set versions of %s: %w", itineraryID, err)
	}
	return nil
}

// GetVersions returns the encoded version list of the given itinerary.
func (c *Client) GetVersions(ctx context.Context, itineraryID string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.versionsKey(itineraryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get versions of %s: %w", itineraryID, err)
	}
	return data, nil
}

// PutItinerary stores the authoritative state of an itinerary.
func (c *Client) PutItinerary(ctx context.Context, info *database.ItineraryInfo) error {
	if info.ID == "" {
		return database.ErrInvalidItineraryID
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.itineraryKey(info.ID),
			fieldData, info.Data,
			fieldServerVersion, info.ServerVersion,
			fieldUpdatedAt, info.UpdatedAt.UnixNano(),
		)
		pipe.SAdd(ctx, c.indexKey(), info.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store itinerary %s: %w", info.ID, err)
	}
	return nil
}

// FindItinerary returns the stored state of the given itinerary.
func (c *Client) FindItinerary(ctx context.Context, id string) (*database.ItineraryInfo, error) {
	fields, err := c.client.HGetAll(ctx, c.itineraryKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get itinerary %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}

	return decodeItinerary(id, fields)
}

// ListItineraries returns the stored itineraries ordered by id.
func (c *Client) ListItineraries(ctx context.Context) ([]*database.ItineraryInfo, error) {
	ids, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	sort.Strings(ids)

	var infos []*database.ItineraryInfo
	for _, id := range ids {
		info, err := c.FindItinerary(ctx, id)
		if errors.Is(err, database.ErrItineraryNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// DeleteItinerary removes the itinerary and its versions.
func (c *Client) DeleteItinerary(ctx context.Context, id string) error {
	var deleted *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, c.itineraryKey(id))
		pipe.Del(ctx, c.versionsKey(id))
		pipe.SRem(ctx, c.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete itinerary %s: %w", id, err)
	}
	if deleted.Val() == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}

	return nil
}

func (c *Client) itineraryKey(id string) string {
	return c.config.KeyPrefix + "itinerary:" + id
}

func (c *Client) versionsKey(id string) string {
	return c.config.KeyPrefix + "versions:" + id
}

func (c *Client) indexKey() string {
	return c.config.KeyPrefix + "itineraries"
}

func decodeItinerary(id string, fields map[string]string) (*database.ItineraryInfo, error) {
	serverVersion, err := strconv.ParseInt(fields[fieldServerVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode server version of %s: %w", id, err)
	}
	updatedAt, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode updated at of %s: %w", id, err)
	}

	return &database.ItineraryInfo{
		ID:            id,
		Data:          []byte(fields[fieldData]),
		ServerVersion: serverVersion,
		UpdatedAt:     gotime.Unix(0, updatedAt),
	}, nil
}
