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


// Package testcases contains testcases for database. It is used by database
// implementations to test their own implementations with the same testcases.
package testcases

import (
	"context"
	"fmt"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend/database"
)

// RunAll runs every testcase against the given db. The itinerary ids are
// prefixed with the test name so that drivers sharing a backing service do
// not see each other's data.
func RunAll(t *testing.T, db database.Database) {
	RunVersionsTest(t, db)
	RunItineraryTest(t, db)
	RunListItinerariesTest(t, db)
	RunDeleteItineraryTest(t, db)
	RunVersionStoreTest(t, db)
}

func itineraryID(t *testing.T, suffix string) string {
	return fmt.Sprintf("%s-%s", t.Name(), suffix)
}

// RunVersionsTest runs the PutVersions and GetVersions test for the given db.
func RunVersionsTest(t *testing.T, db database.Database) {
	t.Run("put and get versions test", func(t *testing.T) {
		ctx := context.Background()
		id := itineraryID(t, "trip")

		data, err := db.GetVersions(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, data)

		assert.NoError(t, db.PutVersions(ctx, id, []byte(`{"versions":[1]}`)))
		assert.NoError(t, db.PutVersions(ctx, id, []byte(`{"versions":[1,2]}`)))

		data, err = db.GetVersions(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, `{"versions":[1,2]}`, string(data))

		other, err := db.GetVersions(ctx, itineraryID(t, "other"))
		assert.NoError(t, err)
		assert.Nil(t, other)
	})
}

// RunItineraryTest runs the PutItinerary and FindItinerary test for the given db.
func RunItineraryTest(t *testing.T, db database.Database) {
	t.Run("put and find itinerary test", func(t *testing.T) {
		ctx := context.Background()
		id := itineraryID(t, "trip")

		_, err := db.FindItinerary(ctx, id)
		assert.ErrorIs(t, err, database.ErrItineraryNotFound)

		root := tree.NewObjectFrom("title", "Kyoto", "budget", 1200)
		now := gotime.Now().UTC().Truncate(gotime.Millisecond)
		info, err := database.NewItineraryInfo(id, root, 1, now)
		require.NoError(t, err)
		assert.NoError(t, db.PutItinerary(ctx, info))

		root.Set("budget", float64(1500))
		info, err = database.NewItineraryInfo(id, root, 2, now)
		require.NoError(t, err)
		assert.NoError(t, db.PutItinerary(ctx, info))

		found, err := db.FindItinerary(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)
		assert.Equal(t, int64(2), found.ServerVersion)
		assert.True(t, now.Equal(found.UpdatedAt))

		decoded, err := found.Tree()
		require.NoError(t, err)
		assert.True(t, tree.Equal(root, decoded))

		found.Data = nil
		again, err := db.FindItinerary(ctx, id)
		require.NoError(t, err)
		assert.NotEmpty(t, again.Data)
	})
}

// RunListItinerariesTest runs the ListItineraries test for the given db.
func RunListItinerariesTest(t *testing.T, db database.Database) {
	t.Run("list itineraries test", func(t *testing.T) {
		ctx := context.Background()
		ids := []string{itineraryID(t, "b"), itineraryID(t, "a"), itineraryID(t, "c")}
		for _, id := range ids {
			info, err := database.NewItineraryInfo(id, tree.NewObjectFrom("title", id), 0, gotime.Now())
			require.NoError(t, err)
			require.NoError(t, db.PutItinerary(ctx, info))
		}

		infos, err := db.ListItineraries(ctx)
		require.NoError(t, err)

		var listed []string
		for _, info := range infos {
			for _, id := range ids {
				if info.ID == id {
					listed = append(listed, id)
				}
			}
		}
		assert.Equal(t, []string{ids[1], ids[0], ids[2]}, listed)
	})
}

// RunDeleteItineraryTest runs the DeleteItinerary test for the given db.
func RunDeleteItineraryTest(t *testing.T, db database.Database) {
	t.Run("delete itinerary test", func(t *testing.T) {
		ctx := context.Background()
		id := itineraryID(t, "trip")

		assert.ErrorIs(t, db.DeleteItinerary(ctx, id), database.ErrItineraryNotFound)

		info, err := database.NewItineraryInfo(id, tree.NewObjectFrom("title", "Oslo"), 0, gotime.Now())
		require.NoError(t, err)
		require.NoError(t, db.PutItinerary(ctx, info))
		require.NoError(t, db.PutVersions(ctx, id, []byte(`{}`)))

		assert.NoError(t, db.DeleteItinerary(ctx, id))

		_, err = db.FindItinerary(ctx, id)
		assert.ErrorIs(t, err, database.ErrItineraryNotFound)
		data, err := db.GetVersions(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, data)
	})
}

// RunVersionStoreTest runs a version store on top of the given db and
// reopens it to check that the versions survive.
func RunVersionStoreTest(t *testing.T, db database.Database) {
	t.Run("version store round trip test", func(t *testing.T) {
		ctx := context.Background()
		id := itineraryID(t, "trip")

		store, err := version.Open(ctx, db, id)
		require.NoError(t, err)
		v1, err := store.CreateVersion(ctx, tree.NewObjectFrom("title", "Rome"), version.Meta{Name: "first"})
		require.NoError(t, err)
		v2, err := store.CreateVersion(ctx, tree.NewObjectFrom("title", "Rome", "budget", 900), version.Meta{Name: "second"})
		require.NoError(t, err)

		reopened, err := version.Open(ctx, db, id)
		require.NoError(t, err)
		assert.Equal(t, 2, reopened.Len())

		current, err := reopened.Current()
		require.NoError(t, err)
		assert.Equal(t, v2.ID, current.ID)

		first, err := reopened.GetVersion(v1.ID)
		require.NoError(t, err)
		assert.True(t, tree.Equal(v1.Data, first.Data))
	})
}
