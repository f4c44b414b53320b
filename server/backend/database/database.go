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


// Package database provides the database interface for the tripsync backend.
package database

import (
	"context"
	gotime "time"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

// Kind is the kind of a database driver.
type Kind string

const (
	// Memory keeps everything in process memory. Nothing survives a restart.
	Memory Kind = "memory"

	// Mongo stores data in MongoDB.
	Mongo Kind = "mongo"

	// Redis stores data in Redis.
	Redis Kind = "redis"

	// Postgres stores data in PostgreSQL.
	Postgres Kind = "postgres"

	// Bolt stores data in an embedded bbolt file.
	Bolt Kind = "bolt"

	// S3 stores data as objects in an S3 bucket.
	S3 Kind = "s3"
)

// Kinds returns every supported database kind.
func Kinds() []Kind {
	return []Kind{Memory, Mongo, Redis, Postgres, Bolt, S3}
}

// IsValid returns whether the kind names a supported driver.
func (k Kind) IsValid() bool {
	for _, kind := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

var (
	// ErrItineraryNotFound is returned when the itinerary could not be found.
	ErrItineraryNotFound = errors.NotFound("itinerary not found").WithCode("ErrItineraryNotFound")

	// ErrInvalidItineraryID is returned when an itinerary id is empty.
	ErrInvalidItineraryID = errors.InvalidArgument("invalid itinerary id").WithCode("ErrInvalidItineraryID")
)

// Database represents database which reads or saves tripsync data.
type Database interface {
	// Close all resources of this database.
	Close() error

	// PutVersions stores the encoded version list of the given itinerary,
	// replacing the previous one.
	PutVersions(ctx context.Context, itineraryID string, data []byte) error

	// GetVersions returns the encoded version list of the given itinerary,
	// or nil when nothing was stored yet.
	GetVersions(ctx context.Context, itineraryID string) ([]byte, error)

	// PutItinerary stores the authoritative state of an itinerary.
	PutItinerary(ctx context.Context, info *ItineraryInfo) error

	// FindItinerary returns the stored state of the given itinerary.
	FindItinerary(ctx context.Context, id string) (*ItineraryInfo, error)

	// ListItineraries returns the stored itineraries ordered by id.
	ListItineraries(ctx context.Context) ([]*ItineraryInfo, error)

	// DeleteItinerary removes the itinerary and its versions.
	DeleteItinerary(ctx context.Context, id string) error
}

// ItineraryInfo is the stored state of an itinerary document.
type ItineraryInfo struct {
	// ID is the id of the itinerary.
	ID string `bson:"_id" json:"id"`

	// Data is the JSON encoded document tree.
	Data []byte `bson:"data" json:"data"`

	// ServerVersion is the number of operations the server has accepted.
	ServerVersion int64 `bson:"server_version" json:"serverVersion"`

	// UpdatedAt is the time when the itinerary was stored.
	UpdatedAt gotime.Time `bson:"updated_at" json:"updatedAt"`
}

// NewItineraryInfo encodes the given document tree into an ItineraryInfo.
func NewItineraryInfo(id string, root *tree.Object, serverVersion int64, now gotime.Time) (*ItineraryInfo, error) {
	if id == "" {
		return nil, ErrInvalidItineraryID
	}

	data, err := tree.Marshal(root)
	if err != nil {
		return nil, err
	}

	return &ItineraryInfo{
		ID:            id,
		Data:          data,
		ServerVersion: serverVersion,
		UpdatedAt:     now,
	}, nil
}

// Tree decodes the stored document tree.
func (i *ItineraryInfo) Tree() (*tree.Object, error) {
	if len(i.Data) == 0 {
		return tree.NewObject(), nil
	}
	return tree.UnmarshalObject(i.Data)
}

// DeepCopy returns a deep copy of this ItineraryInfo.
func (i *ItineraryInfo) DeepCopy() *ItineraryInfo {
	if i == nil {
		return nil
	}

	return &ItineraryInfo{
		ID:            i.ID,
		Data:          append([]byte(nil), i.Data...),
		ServerVersion: i.ServerVersion,
		UpdatedAt:     i.UpdatedAt,
	}
}
