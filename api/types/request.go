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

package types

import (
	"fmt"
	gotime "time"

	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/rollback"
	"github.com/yorkie-team/tripsync/pkg/version"
)

// ItinerarySummary describes a stored itinerary.
type ItinerarySummary struct {
	ID            string      `json:"id"`
	ServerVersion int64       `json:"serverVersion"`
	UpdatedAt     gotime.Time `json:"updatedAt"`
}

// ItineraryState is the authoritative state of an open itinerary.
type ItineraryState struct {
	ID       string       `json:"id"`
	Version  int64        `json:"version"`
	State    *tree.Object `json:"state"`
	Sessions int          `json:"sessions"`
}

// CompareResponse lists the changes from one version to another.
type CompareResponse struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Changes []diff.Change `json:"changes"`
}

// CreateVersionRequest asks to snapshot the current state of an itinerary.
type CreateVersionRequest struct {
	Name        string   `json:"name" validate:"max=120"`
	ChangeNotes string   `json:"changeNotes" validate:"max=2000"`
	Tags        []string `json:"tags" validate:"dive,min=1,max=40"`
	CreatedBy   string   `json:"createdBy"`
}

// Meta returns the version metadata of the request.
func (r *CreateVersionRequest) Meta() version.Meta {
	return version.Meta{
		Name:        r.Name,
		ChangeNotes: r.ChangeNotes,
		Tags:        r.Tags,
		CreatedBy:   r.CreatedBy,
	}
}

// VersionList is a page of versions.
type VersionList struct {
	CurrentID string             `json:"currentId,omitempty"`
	Versions  []*version.Version `json:"versions"`
}

// PreviewRequest asks for the preview of a rollback.
type PreviewRequest struct {
	TargetVersionID string   `json:"targetVersionId" validate:"required"`
	TouchedPaths    []string `json:"touchedPaths"`
}

// PreviewResponse is a rollback preview with the id to execute it by.
type PreviewResponse struct {
	PreviewID string            `json:"previewId"`
	Preview   *rollback.Preview `json:"preview"`
}

// RollbackRequest asks to roll an itinerary back. Either PreviewID or
// TargetVersionID names the version to roll back to.
type RollbackRequest struct {
	PreviewID            string                       `json:"previewId"`
	TargetVersionID      string                       `json:"targetVersionId" validate:"required_without=PreviewID"`
	AutoResolveConflicts bool                         `json:"autoResolveConflicts"`
	SkipConflicts        bool                         `json:"skipConflicts"`
	CreateBackupVersion  bool                         `json:"createBackupVersion"`
	NotifyCollaborators  bool                         `json:"notifyCollaborators"`
	Resolutions          map[string]rollback.Strategy `json:"resolutions"`
	TouchedPaths         []string                     `json:"touchedPaths"`
	Name                 string                       `json:"name" validate:"max=120"`
	ChangeNotes          string                       `json:"changeNotes" validate:"max=2000"`
	UserID               string                       `json:"userId"`
}

// Options returns the execute options of the request.
func (r *RollbackRequest) Options() (rollback.ExecuteOptions, error) {
	touched, err := ParsePaths(r.TouchedPaths)
	if err != nil {
		return rollback.ExecuteOptions{}, err
	}

	return rollback.ExecuteOptions{
		AutoResolveConflicts: r.AutoResolveConflicts,
		SkipConflicts:        r.SkipConflicts,
		CreateBackupVersion:  r.CreateBackupVersion,
		NotifyCollaborators:  r.NotifyCollaborators,
		Resolutions:          r.Resolutions,
		TouchedPaths:         touched,
		Name:                 r.Name,
		ChangeNotes:          r.ChangeNotes,
		UserID:               r.UserID,
	}, nil
}

// PartialRollbackRequest asks to restore some fields of an itinerary.
type PartialRollbackRequest struct {
	RollbackRequest
	SelectedPaths []string `json:"selectedPaths" validate:"required,min=1"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ParsePaths parses the given paths.
func ParsePaths(paths []string) ([]tree.Path, error) {
	parsed := make([]tree.Path, 0, len(paths))
	for _, p := range paths {
		path, err := tree.ParsePath(p)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		parsed = append(parsed, path)
	}
	return parsed, nil
}
