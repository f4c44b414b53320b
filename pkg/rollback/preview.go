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

package rollback

import (
	"fmt"

	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/version"
)

// ErrEmptyData is returned when there is no current data to roll back.
var ErrEmptyData = errors.InvalidArgument("current data is missing").WithCode("ErrEmptyData")

// Impact summarizes what a rollback changes.
type Impact struct {
	TotalFieldsAffected int `json:"totalFieldsAffected"`
	DaysAffected        int `json:"daysAffected"`
	ActivitiesAffected  int `json:"activitiesAffected"`
	Conflicts           int `json:"conflicts"`
	SafeChanges         int `json:"safeChanges"`
	AutoResolvable      int `json:"autoResolvable"`
}

// Preview is what rolling back to a version would do.
type Preview struct {
	ItineraryID string `json:"itineraryId"`

	// TargetVersion is the version to roll back to.
	TargetVersion *version.Version `json:"targetVersion"`

	// CurrentVersion is the current version of the store when the preview
	// was generated. It is nil when the store has no current version.
	CurrentVersion *version.Version `json:"currentVersion,omitempty"`

	Conflicts   []Conflict    `json:"conflicts"`
	SafeChanges []diff.Change `json:"safeChanges"`
	Impact      Impact        `json:"impactAnalysis"`
}

// HasConflicts returns whether the rollback has conflicts.
func (p *Preview) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// PreviewOptions configures GeneratePreview.
type PreviewOptions struct {
	// TouchedPaths are the paths known to be edited since the target version
	// was created. Changes on or under them are conflicts even when the
	// versions' creation times would not flag them.
	TouchedPaths []tree.Path
}

// GeneratePreview computes the conflicts, the safe changes and the impact of
// rolling back the current data to the given version.
//
// A modified field is a conflict when the current version of the store was
// created after the target version. Added and removed fields are safe
// changes unless they are touched.
func (e *Engine) GeneratePreview(
	targetVersionID string,
	currentData *tree.Object,
	opts PreviewOptions,
) (*Preview, error) {
	if currentData == nil {
		return nil, ErrEmptyData
	}

	target, err := e.store.GetVersion(targetVersionID)
	if err != nil {
		return nil, err
	}

	current, err := e.store.Current()
	if err != nil && !errors.Is(err, version.ErrVersionNotFound) {
		return nil, err
	}
	newer := current != nil && current.CreatedAt.After(target.CreatedAt)

	preview := &Preview{
		ItineraryID:    e.store.ItineraryID(),
		TargetVersion:  target,
		CurrentVersion: current,
		Conflicts:      []Conflict{},
		SafeChanges:    []diff.Change{},
	}

	changes := diff.Diff(currentData, target.Data)
	for _, change := range changes {
		touched := isTouched(change.Path, opts.TouchedPaths)
		if !touched && !(newer && change.Type == diff.Modified) {
			preview.SafeChanges = append(preview.SafeChanges, change)
			continue
		}

		c := Conflict{
			Path:          change.Path,
			Type:          ModifiedAfterVersion,
			ChangeType:    change.Type,
			CurrentValue:  change.OldValue,
			RollbackValue: change.NewValue,
		}
		if touched {
			c.Type = ConcurrentEdit
		}
		e.annotate(&c)
		preview.Conflicts = append(preview.Conflicts, c)
	}

	preview.Impact = e.analyze(changes, preview)
	return preview, nil
}

func (e *Engine) analyze(changes []diff.Change, preview *Preview) Impact {
	impact := Impact{
		TotalFieldsAffected: len(changes),
		Conflicts:           len(preview.Conflicts),
		SafeChanges:         len(preview.SafeChanges),
	}
	for _, c := range preview.Conflicts {
		if c.CanAutoResolve {
			impact.AutoResolvable++
		}
	}

	days := make(map[string]bool)
	activities := make(map[string]bool)
	collect := func(path tree.Path) {
		for i := 0; i+1 < len(path); i++ {
			if !path[i].IsKey() || !path[i+1].IsIndex() {
				continue
			}
			switch path[i].KeyName() {
			case e.options.DaysKey:
				days[path[:i+2].String()] = true
			case e.options.ActivitiesKey:
				activities[path[:i+2].String()] = true
			}
		}
	}

	for _, change := range changes {
		for _, v := range []any{change.OldValue, change.NewValue} {
			if !tree.KindOf(v).IsContainer() {
				continue
			}
			_ = tree.Walk(v, func(rel tree.Path, _ any) error {
				collect(change.Path.Append(rel...))
				return nil
			})
		}
		collect(change.Path)
	}

	impact.DaysAffected = len(days)
	impact.ActivitiesAffected = len(activities)
	return impact
}

func isTouched(path tree.Path, touched []tree.Path) bool {
	for _, t := range touched {
		if path.HasPrefix(t) || t.HasPrefix(path) {
			return true
		}
	}
	return false
}

// summary returns the change notes of a rollback to the target version.
func summary(target *version.Version, applied, resolved, skipped int) string {
	return fmt.Sprintf(
		"Rolled back to version %d (%s): %d changes applied, %d conflicts resolved, %d skipped",
		target.VersionNumber, target.Name, applied, resolved, skipped,
	)
}
