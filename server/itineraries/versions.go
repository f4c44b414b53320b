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


package itineraries

import (
	"context"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/version"
)

// Below are the kinds of created versions reported to the metrics.
const (
	versionKindManual   = "manual"
	versionKindRollback = "rollback"
	versionKindBackup   = "backup"
)

// CreateVersion snapshots the current state as a new version.
func (it *Itinerary) CreateVersion(ctx context.Context, meta version.Meta) (*version.Version, error) {
	v, err := it.store.CreateVersion(ctx, it.Snapshot(), meta)
	if err != nil {
		return nil, err
	}

	if it.be.Metrics != nil {
		it.be.Metrics.AddVersions(versionKindManual, 1)
	}
	return v, nil
}

// ListVersions returns the summaries of the versions in order.
func (it *Itinerary) ListVersions() *types.VersionList {
	return summarize(it.store, it.store.Versions())
}

// SearchVersions returns the summaries of the versions matching the query.
func (it *Itinerary) SearchVersions(query string) *types.VersionList {
	return summarize(it.store, it.store.SearchVersions(query))
}

// VersionsInRange returns the summaries of the versions numbered from start
// to end.
func (it *Itinerary) VersionsInRange(start, end int64) *types.VersionList {
	return summarize(it.store, it.store.GetVersionsInRange(start, end))
}

// GetVersion returns the version of the given id with its data.
func (it *Itinerary) GetVersion(id string) (*version.Version, error) {
	return it.store.GetVersion(id)
}

// GetVersionByNumber returns the version of the given number with its data.
func (it *Itinerary) GetVersionByNumber(number int64) (*version.Version, error) {
	return it.store.GetVersionByNumber(number)
}

// DeleteVersion removes the version of the given id.
func (it *Itinerary) DeleteVersion(ctx context.Context, id string) error {
	return it.store.DeleteVersion(ctx, id)
}

// CompareVersions returns the changes from version a to version b.
func (it *Itinerary) CompareVersions(a, b string) ([]diff.Change, error) {
	return it.store.CompareVersions(a, b)
}

func summarize(store *version.Store, versions []*version.Version) *types.VersionList {
	list := &types.VersionList{Versions: make([]*version.Version, 0, len(versions))}
	for _, v := range versions {
		list.Versions = append(list.Versions, v.Summary())
	}
	if current, err := store.Current(); err == nil {
		list.CurrentID = current.ID
	}
	return list
}
