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


// Package memory implements the database interface using in-memory database.
package memory

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/yorkie-team/tripsync/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// PutVersions stores the encoded version list of the given itinerary.
func (d *DB) PutVersions(_ context.Context, itineraryID string, data []byte) error {
	if itineraryID == "" {
		return database.ErrInvalidItineraryID
	}

	txn := d.db.Txn(true)
	defer txn.Abort()

	record := &versionsRecord{
		ItineraryID: itineraryID,
		Data:        append([]byte(nil), data...),
	}
	if err := txn.Insert(tblVersions, record); err != nil {
		return fmt.Errorf("insert versions of %s: %w", itineraryID, err)
	}

	txn.Commit()
	return nil
}

// GetVersions returns the encoded version list of the given itinerary.
func (d *DB) GetVersions(_ context.Context, itineraryID string) ([]byte, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblVersions, "id", itineraryID)
	if err != nil {
		return nil, fmt.Errorf("find versions of %s: %w", itineraryID, err)
	}
	if raw == nil {
		return nil, nil
	}

	return append([]byte(nil), raw.(*versionsRecord).Data...), nil
}

// PutItinerary stores the authoritative state of an itinerary.
func (d *DB) PutItinerary(_ context.Context, info *database.ItineraryInfo) error {
	if info.ID == "" {
		return database.ErrInvalidItineraryID
	}

	txn := d.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tblItineraries, info.DeepCopy()); err != nil {
		return fmt.Errorf("insert itinerary %s: %w", info.ID, err)
	}

	txn.Commit()
	return nil
}

// FindItinerary returns the stored state of the given itinerary.
func (d *DB) FindItinerary(_ context.Context, id string) (*database.ItineraryInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblItineraries, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find itinerary %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}

	return raw.(*database.ItineraryInfo).DeepCopy(), nil
}

// ListItineraries returns the stored itineraries ordered by id.
func (d *DB) ListItineraries(_ context.Context) ([]*database.ItineraryInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblItineraries, "id")
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}

	var infos []*database.ItineraryInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*database.ItineraryInfo).DeepCopy())
	}

	return infos, nil
}

// DeleteItinerary removes the itinerary and its versions.
func (d *DB) DeleteItinerary(_ context.Context, id string) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblItineraries, "id", id)
	if err != nil {
		return fmt.Errorf("find itinerary %s: %w", id, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}

	if err := txn.Delete(tblItineraries, raw); err != nil {
		return fmt.Errorf("delete itinerary %s: %w", id, err)
	}
	if _, err := txn.DeleteAll(tblVersions, "id", id); err != nil {
		return fmt.Errorf("delete versions of %s: %w", id, err)
	}

	txn.Commit()
	return nil
}
