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


// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/logging"
)

// Client is a client that connects to Mongo DB and reads or saves tripsync data.
type Client struct {
	config *Config
	client *mongo.Client
}

// versionsDoc is the stored version list of one itinerary.
type versionsDoc struct {
	ItineraryID string `bson:"_id"`
	Data        []byte `bson:"data"`
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

// PutVersions stores the encoded version list of the given itinerary.
func (c *Client) PutVersions(ctx context.Context, itineraryID string, data []byte) error {
	if itineraryID == "" {
		return database.ErrInvalidItineraryID
	}

	_, err := c.collection(ColVersions).ReplaceOne(
		ctx,
		bson.M{"_id": itineraryID},
		versionsDoc{ItineraryID: itineraryID, Data: data},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert versions of %s: %w", itineraryID, err)
	}

	return nil
}

// GetVersions returns the encoded version list of the given itinerary.
func (c *Client) GetVersions(ctx context.Context, itineraryID string) ([]byte, error) {
	result := c.collection(ColVersions).FindOne(ctx, bson.M{"_id": itineraryID})
	if result.Err() == mongo.ErrNoDocuments {
		return nil, nil
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("find versions of %s: %w", itineraryID, result.Err())
	}

	var doc versionsDoc
	if err := result.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode versions of %s: %w", itineraryID, err)
	}

	return doc.Data, nil
}

// PutItinerary stores the authoritative state of an itinerary.
func (c *Client) PutItinerary(ctx context.Context, info *database.ItineraryInfo) error {
	if info.ID == "" {
		return database.ErrInvalidItineraryID
	}

	_, err := c.collection(ColItineraries).UpdateOne(ctx, bson.M{
		"_id": info.ID,
	}, bson.M{
		"$set": bson.M{
			"data":           info.Data,
			"server_version": info.ServerVersion,
			"updated_at":     info.UpdatedAt,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert itinerary %s: %w", info.ID, err)
	}

	return nil
}

// FindItinerary returns the stored state of the given itinerary.
func (c *Client) FindItinerary(ctx context.Context, id string) (*database.ItineraryInfo, error) {
	result := c.collection(ColItineraries).FindOne(ctx, bson.M{"_id": id})
	if result.Err() == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("find itinerary %s: %w", id, result.Err())
	}

	info := &database.ItineraryInfo{}
	if err := result.Decode(info); err != nil {
		return nil, fmt.Errorf("decode itinerary %s: %w", id, err)
	}

	return info, nil
}

// ListItineraries returns the stored itineraries ordered by id.
func (c *Client) ListItineraries(ctx context.Context) ([]*database.ItineraryInfo, error) {
	cursor, err := c.collection(ColItineraries).Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find itineraries: %w", err)
	}

	var infos []*database.ItineraryInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch itineraries: %w", err)
	}

	// Collation may differ from byte order.
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return infos, nil
}

// DeleteItinerary removes the itinerary and its versions.
func (c *Client) DeleteItinerary(ctx context.Context, id string) error {
	result, err := c.collection(ColItineraries).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete itinerary %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}

	if _, err := c.collection(ColVersions).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete versions of %s: %w", id, err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}
