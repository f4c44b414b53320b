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


// Package bolt implements database interfaces using an embedded bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	gotime "time"

	bolt "go.etcd.io/bbolt"

	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/logging"
)

var (
	bktItineraries = []byte("itineraries")
	bktVersions    = []byte("versions")
)

// DB is a database backed by a single bbolt file.
type DB struct {
	db *bolt.DB
}

// Open opens the database file and creates the buckets when they are missing.
func Open(conf *Config) (*DB, error) {
	timeout, err := gotime.ParseDuration(conf.OpenTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse open timeout: %w", err)
	}

	db, err := bolt.Open(conf.Path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", conf.Path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bktItineraries, bktVersions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.DefaultLogger().Infof("bolt opened, Path: %s", conf.Path)

	return &DB{db: db}, nil
}

// Close closes the database file.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close bolt: %w", err)
	}
	return nil
}

// PutVersions stores the encoded version list of the given itinerary.
func (d *DB) PutVersions(_ context.Context, itineraryID string, data []byte) error {
	if itineraryID == "" {
		return database.ErrInvalidItineraryID
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bktVersions).Put([]byte(itineraryID), data); err != nil {
			return fmt.Errorf("put versions of %s: %w", itineraryID, err)
		}
		return nil
	})
}

// GetVersions returns the encoded version list of the given itinerary.
func (d *DB) GetVersions(_ context.Context, itineraryID string) ([]byte, error) {
	var data []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		// Values are only valid inside the transaction.
		if value := tx.Bucket(bktVersions).Get([]byte(itineraryID)); value != nil {
			data = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get versions of %s: %w", itineraryID, err)
	}
	return data, nil
}

// PutItinerary stores the authoritative state of an itinerary.
func (d *DB) PutItinerary(_ context.Context, info *database.ItineraryInfo) error {
	if info.ID == "" {
		return database.ErrInvalidItineraryID
	}

	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode itinerary %s: %w", info.ID, err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bktItineraries).Put([]byte(info.ID), encoded); err != nil {
			return fmt.Errorf("put itinerary %s: %w", info.ID, err)
		}
		return nil
	})
}

// FindItinerary returns the stored state of the given itinerary.
func (d *DB) FindItinerary(_ context.Context, id string) (*database.ItineraryInfo, error) {
	var info *database.ItineraryInfo
	err := d.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bktItineraries).Get([]byte(id))
		if value == nil {
			return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
		}

		decoded, err := decodeItinerary(value)
		if err != nil {
			return err
		}
		info = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ListItineraries returns the stored itineraries ordered by id.
func (d *DB) ListItineraries(_ context.Context) ([]*database.ItineraryInfo, error) {
	var infos []*database.ItineraryInfo
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bktItineraries).ForEach(func(_, value []byte) error {
			info, err := decodeItinerary(value)
			if err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// DeleteItinerary removes the itinerary and its versions.
func (d *DB) DeleteItinerary(_ context.Context, id string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		key := []byte(id)
		itineraries := tx.Bucket(bktItineraries)
		if itineraries.Get(key) == nil {
			return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
		}

		if err := itineraries.Delete(key); err != nil {
			return fmt.Errorf("delete itinerary %s: %w", id, err)
		}
		if err := tx.Bucket(bktVersions).Delete(key); err != nil {
			return fmt.Errorf("delete versions of %s: %w", id, err)
		}
		return nil
	})
}

func decodeItinerary(value []byte) (*database.ItineraryInfo, error) {
	info := &database.ItineraryInfo{}
	if err := json.Unmarshal(value, info); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}
	return info, nil
}
