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


// Package postgres implements database interfaces using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS itineraries (
	id             TEXT PRIMARY KEY,
	data           BYTEA NOT NULL,
	server_version BIGINT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS itinerary_versions (
	itinerary_id TEXT PRIMARY KEY,
	data         BYTEA NOT NULL
);`

// Client is a client that connects to PostgreSQL and reads or saves tripsync data.
type Client struct {
	config *Config
	pool   *pgxpool.Pool
}

// Dial creates an instance of Client, connects the pool and creates the
// tables when they are missing.
func Dial(conf *Config) (*Client, error) {
	timeout, err := gotime.ParseDuration(conf.ConnectionTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse connection timeout: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(conf.ConnectionURI)
	if err != nil {
		return nil, fmt.Errorf("parse postgres uri: %w", err)
	}
	poolConfig.MaxConns = conf.MaxConns

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}

	logging.DefaultLogger().Infof("PostgreSQL connected, MaxConns: %d", conf.MaxConns)

	return &Client{
		config: conf,
		pool:   pool,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// PutVersions stores the encoded version list of the given itinerary.
func (c *Client) PutVersions(ctx context.Context, itineraryID string, data []byte) error {
	if itineraryID == "" {
		return database.ErrInvalidItineraryID
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO itinerary_versions (itinerary_id, data) VALUES ($1, $2)
		ON CONFLICT (itinerary_id) DO UPDATE SET data = EXCLUDED.data`,
		itineraryID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert versions of %s: %w", itineraryID, err)
	}
	return nil
}

// GetVersions returns the encoded version list of the given itinerary.
func (c *Client) GetVersions(ctx context.Context, itineraryID string) ([]byte, error) {
	var data []byte
	err := c.pool.QueryRow(ctx,
		`SELECT data FROM itinerary_versions WHERE itinerary_id = $1`,
		itineraryID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find versions of %s: %w", itineraryID, err)
	}
	return data, nil
}

// PutItinerary stores the authoritative state of an itinerary.
func (c *Client) PutItinerary(ctx context.Context, info *database.ItineraryInfo) error {
	if info.ID == "" {
		return database.ErrInvalidItineraryID
	}

	_, err := c.pool.Exec(ctx, `
		INSERT INTO itineraries (id, data, server_version, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			server_version = EXCLUDED.server_version,
			updated_at = EXCLUDED.updated_at`,
		info.ID, info.Data, info.ServerVersion, info.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert itinerary %s: %w", info.ID, err)
	}
	return nil
}

// FindItinerary returns the stored state of the given itinerary.
func (c *Client) FindItinerary(ctx context.Context, id string) (*database.ItineraryInfo, error) {
	info := &database.ItineraryInfo{ID: id}
	err := c.pool.QueryRow(ctx,
		`SELECT data, server_version, updated_at FROM itineraries WHERE id = $1`,
		id,
	).Scan(&info.Data, &info.ServerVersion, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find itinerary %s: %w", id, err)
	}
	return info, nil
}

// ListItineraries returns the stored itineraries ordered by id.
func (c *Client) ListItineraries(ctx context.Context) ([]*database.ItineraryInfo, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, data, server_version, updated_at FROM itineraries ORDER BY id COLLATE "C"`,
	)
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	defer rows.Close()

	var infos []*database.ItineraryInfo
	for rows.Next() {
		info := &database.ItineraryInfo{}
		if err := rows.Scan(&info.ID, &info.Data, &info.ServerVersion, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan itinerary: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}

	return infos, nil
}

// DeleteItinerary removes the itinerary and its versions in one transaction.
func (c *Client) DeleteItinerary(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM itineraries WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete itinerary %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM itinerary_versions WHERE itinerary_id = $1`, id); err != nil {
			return fmt.Errorf("delete versions of %s: %w", id, err)
		}
		return nil
	})
}
