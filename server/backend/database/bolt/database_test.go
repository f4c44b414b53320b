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


package bolt_test

import (
	"context"
	"path/filepath"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/backend/database/bolt"
	"github.com/yorkie-team/tripsync/server/backend/database/testcases"
)

func TestConfig(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		config := &bolt.Config{}
		config.EnsureDefaultValue()
		assert.NoError(t, config.Validate())

		config.OpenTimeout = "1"
		assert.Error(t, config.Validate())
	})
}

func TestDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripsync.db")
	db, err := bolt.Open(&bolt.Config{Path: path, OpenTimeout: "1s"})
	require.NoError(t, err)
	defer func() { assert.NoError(t, db.Close()) }()

	testcases.RunAll(t, db)
}

func TestReopen(t *testing.T) {
	t.Run("data survives reopening test", func(t *testing.T) {
		ctx := context.Background()
		config := &bolt.Config{Path: filepath.Join(t.TempDir(), "tripsync.db"), OpenTimeout: "1s"}

		db, err := bolt.Open(config)
		require.NoError(t, err)
		info, err := database.NewItineraryInfo("trip-1", tree.NewObjectFrom("title", "Seoul"), 7, gotime.Now())
		require.NoError(t, err)
		require.NoError(t, db.PutItinerary(ctx, info))
		require.NoError(t, db.Close())

		db, err = bolt.Open(config)
		require.NoError(t, err)
		defer func() { assert.NoError(t, db.Close()) }()

		found, err := db.FindItinerary(ctx, "trip-1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), found.ServerVersion)
	})
}
