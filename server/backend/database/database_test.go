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


package database_test

import (
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/server/backend/database"
)

func TestItineraryInfo(t *testing.T) {
	t.Run("encode and decode tree test", func(t *testing.T) {
		root := tree.NewObjectFrom("title", "Lisbon", "days", tree.NewArrayFrom(tree.NewObjectFrom("date", "2026-05-01")))
		info, err := database.NewItineraryInfo("trip-1", root, 3, gotime.Unix(100, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(3), info.ServerVersion)

		decoded, err := info.Tree()
		require.NoError(t, err)
		assert.True(t, tree.Equal(root, decoded))
		assert.Equal(t, []string{"title", "days"}, decoded.Keys())
	})

	t.Run("empty id test", func(t *testing.T) {
		_, err := database.NewItineraryInfo("", tree.NewObject(), 0, gotime.Now())
		assert.ErrorIs(t, err, database.ErrInvalidItineraryID)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))
	})

	t.Run("deep copy test", func(t *testing.T) {
		info := &database.ItineraryInfo{ID: "trip-1", Data: []byte(`{"a":1}`)}
		copied := info.DeepCopy()
		copied.Data[1] = 'b'
		assert.Equal(t, `{"a":1}`, string(info.Data))

		var nilInfo *database.ItineraryInfo
		assert.Nil(t, nilInfo.DeepCopy())
	})

	t.Run("empty data decodes to empty object test", func(t *testing.T) {
		root, err := (&database.ItineraryInfo{ID: "trip-1"}).Tree()
		require.NoError(t, err)
		assert.Equal(t, 0, root.Len())
	})
}

func TestKind(t *testing.T) {
	t.Run("valid kinds test", func(t *testing.T) {
		for _, kind := range database.Kinds() {
			assert.True(t, kind.IsValid(), kind)
		}
		assert.False(t, database.Kind("scylla").IsValid())
	})
}
