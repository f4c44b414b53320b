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

// Package version keeps the numbered snapshots of an itinerary.
package version

import (
	"strings"
	gotime "time"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

// Below are the tags the store and the rollback engine put on versions.
const (
	TagAuto        = "auto"
	TagBackup      = "backup"
	TagPreRollback = "pre-rollback"
	TagRollback    = "rollback"
)

// Version is an immutable snapshot of an itinerary. Data must never be
// modified; clone it before editing.
type Version struct {
	ID            string       `json:"id"`
	ItineraryID   string       `json:"itineraryId"`
	VersionNumber int64        `json:"versionNumber"`
	Name          string       `json:"name"`
	Data          *tree.Object `json:"data"`
	CreatedAt     gotime.Time  `json:"createdAt"`
	CreatedBy     string       `json:"createdBy,omitempty"`
	ChangeNotes   string       `json:"changeNotes,omitempty"`
	Tags          []string     `json:"tags"`

	// IsActive tells whether this version is the current one of the store.
	IsActive bool `json:"isActive"`
}

// HasTag returns whether the version carries the given tag.
func (v *Version) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Matches returns whether the query is a case-insensitive substring of the
// name, the change notes, a tag, or the title or description of the data.
func (v *Version) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	fields := []string{v.Name, v.ChangeNotes}
	fields = append(fields, v.Tags...)
	if v.Data != nil {
		for _, key := range []string{"title", "description"} {
			if s, ok := memberString(v.Data, key); ok {
				fields = append(fields, s)
			}
		}
	}

	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Summary returns a copy of this version without its data.
func (v *Version) Summary() *Version {
	summary := *v
	summary.Data = nil
	summary.Tags = append([]string{}, v.Tags...)
	return &summary
}

// Meta is the descriptive part of a version to create.
type Meta struct {
	Name        string
	ChangeNotes string
	Tags        []string
	CreatedBy   string
}

// Draft is a version to create.
type Draft struct {
	Data *tree.Object
	Meta Meta
}

func memberString(o *tree.Object, key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
