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
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/version"
)

var (
	// ErrUnresolvedConflicts is returned when a rollback has conflicts that
	// are neither resolved nor skipped.
	ErrUnresolvedConflicts = errors.Conflict("unresolved conflicts").WithCode("ErrUnresolvedConflicts")

	// ErrInvalidStrategy is returned when a resolution names an unknown
	// strategy.
	ErrInvalidStrategy = errors.InvalidArgument("invalid resolution strategy").WithCode("ErrInvalidStrategy")

	// ErrNoPathsSelected is returned when a partial rollback selects nothing.
	ErrNoPathsSelected = errors.InvalidArgument("no paths selected").WithCode("ErrNoPathsSelected")

	// ErrRollbackAborted is returned when a rollback stops unexpectedly.
	ErrRollbackAborted = errors.Internal("rollback aborted").WithCode("ErrRollbackAborted")
)

// ExecuteOptions configures a rollback.
type ExecuteOptions struct {
	// AutoResolveConflicts resolves the conflicts that can be resolved
	// automatically with their suggested strategy.
	AutoResolveConflicts bool

	// SkipConflicts keeps the current value of the conflicts that are not
	// resolved otherwise.
	SkipConflicts bool

	// CreateBackupVersion stores the current data as a version before the
	// rollback version.
	CreateBackupVersion bool

	// NotifyCollaborators sends a notification after the rollback.
	NotifyCollaborators bool

	// Resolutions are the strategies chosen for conflicts, keyed by path.
	// They take precedence over the suggested strategies.
	Resolutions map[string]Strategy

	// TouchedPaths are passed to the preview of the rollback.
	TouchedPaths []tree.Path

	// Name and ChangeNotes describe the new version. They are generated
	// when empty.
	Name        string
	ChangeNotes string

	// UserID is the user running the rollback.
	UserID string
}

// Result is the outcome of a rollback. Nothing is stored unless Success is
// true.
type Result struct {
	Success       bool
	NewVersion    *version.Version
	BackupVersion *version.Version
	Preview       *Preview
	Errors        []error
}

// Err returns the errors of the result joined, or nil.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// MarshalJSON encodes the result with its errors as messages.
func (r *Result) MarshalJSON() ([]byte, error) {
	messages := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		messages[i] = err.Error()
	}

	return json.Marshal(struct {
		Success       bool             `json:"success"`
		NewVersion    *version.Version `json:"newVersion,omitempty"`
		BackupVersion *version.Version `json:"backupVersion,omitempty"`
		Preview       *Preview         `json:"preview,omitempty"`
		Errors        []string         `json:"errors,omitempty"`
	}{r.Success, r.NewVersion, r.BackupVersion, r.Preview, messages})
}

func failure(preview *Preview, errs ...error) *Result {
	return &Result{Preview: preview, Errors: errs}
}

// ExecuteRollback rolls the current data back to the given version. The
// resolved data is stored as a new version; the target and the current
// versions are left as they are.
func (e *Engine) ExecuteRollback(
	ctx context.Context,
	targetVersionID string,
	currentData *tree.Object,
	opts ExecuteOptions,
) (result *Result) {
	defer e.recoverInto(&result)

	preview, err := e.GeneratePreview(targetVersionID, currentData, PreviewOptions{
		TouchedPaths: opts.TouchedPaths,
	})
	if err != nil {
		return failure(nil, err)
	}

	strategies, err := e.decide(preview.Conflicts, opts)
	if err != nil {
		return failure(preview, err)
	}

	var changes []diff.Change
	resolved, skipped := 0, 0
	for i, c := range preview.Conflicts {
		switch strategies[i] {
		case Skip:
			skipped++
			continue
		case UseCurrent:
		case UseRollback:
			changes = append(changes, diff.Change{
				Path:     c.Path,
				Type:     c.ChangeType,
				OldValue: c.CurrentValue,
				NewValue: c.RollbackValue,
			})
		case Merge:
			if c.ChangeType == diff.Modified {
				changes = append(changes, diff.Change{
					Path:     c.Path,
					Type:     diff.Modified,
					OldValue: c.CurrentValue,
					NewValue: e.merge(c),
				})
			}
		}
		resolved++
	}
	changes = append(changes, preview.SafeChanges...)

	data := tree.CloneObject(currentData)
	if err := applyChanges(data, changes); err != nil {
		return failure(preview, err)
	}

	target := preview.TargetVersion
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("Rollback to version %d", target.VersionNumber)
	}
	notes := opts.ChangeNotes
	if notes == "" {
		notes = summary(target, len(preview.SafeChanges), resolved, skipped)
	}

	return e.persist(ctx, preview, currentData, data, version.Meta{
		Name:        name,
		ChangeNotes: notes,
		Tags:        []string{version.TagRollback},
		CreatedBy:   opts.UserID,
	}, opts)
}

// ExecutePartialRollback copies the values of the target version at the
// selected paths onto the current data and stores the result as a new
// version. Other paths are left untouched and are never checked for
// conflicts. A selected path missing from the target version is removed.
func (e *Engine) ExecutePartialRollback(
	ctx context.Context,
	targetVersionID string,
	currentData *tree.Object,
	selectedPaths []tree.Path,
	opts ExecuteOptions,
) (result *Result) {
	defer e.recoverInto(&result)

	if currentData == nil {
		return failure(nil, ErrEmptyData)
	}
	if len(selectedPaths) == 0 {
		return failure(nil, ErrNoPathsSelected)
	}

	target, err := e.store.GetVersion(targetVersionID)
	if err != nil {
		return failure(nil, err)
	}
	current, err := e.store.Current()
	if err != nil && !errors.Is(err, version.ErrVersionNotFound) {
		return failure(nil, err)
	}

	changes := make([]diff.Change, 0, len(selectedPaths))
	for _, path := range selectedPaths {
		targetValue, targetErr := tree.Get(target.Data, path)
		currentValue, currentErr := tree.Get(currentData, path)
		switch {
		case targetErr != nil && currentErr != nil:
			return failure(nil, fmt.Errorf("%s: %w", path, tree.ErrPathNotFound))
		case currentErr != nil:
			changes = append(changes, diff.Change{Path: path, Type: diff.Added, NewValue: targetValue})
		case targetErr != nil:
			changes = append(changes, diff.Change{Path: path, Type: diff.Removed, OldValue: currentValue})
		case !tree.Equal(currentValue, targetValue):
			changes = append(changes, diff.Change{
				Path:     path,
				Type:     diff.Modified,
				OldValue: currentValue,
				NewValue: targetValue,
			})
		}
	}

	preview := &Preview{
		ItineraryID:    e.store.ItineraryID(),
		TargetVersion:  target,
		CurrentVersion: current,
		Conflicts:      []Conflict{},
		SafeChanges:    changes,
	}
	preview.Impact = e.analyze(changes, preview)

	data := tree.CloneObject(currentData)
	if err := applyChanges(data, changes); err != nil {
		return failure(preview, err)
	}

	paths := make([]string, len(selectedPaths))
	for i, p := range selectedPaths {
		paths[i] = p.String()
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("Partial rollback to version %d", target.VersionNumber)
	}
	notes := opts.ChangeNotes
	if notes == "" {
		notes = fmt.Sprintf(
			"Restored %s from version %d (%s)",
			strings.Join(paths, ", "), target.VersionNumber, target.Name,
		)
	}

	return e.persist(ctx, preview, currentData, data, version.Meta{
		Name:        name,
		ChangeNotes: notes,
		Tags:        []string{version.TagRollback},
		CreatedBy:   opts.UserID,
	}, opts)
}

// decide returns the strategy of every conflict, failing when one of them
// is left unresolved.
func (e *Engine) decide(conflicts []Conflict, opts ExecuteOptions) ([]Strategy, error) {
	strategies := make([]Strategy, len(conflicts))
	var unresolved []string
	for i, c := range conflicts {
		if s, ok := opts.Resolutions[c.Path.String()]; ok {
			if !s.IsValid() {
				return nil, fmt.Errorf("%s: %q: %w", c.Path, s, ErrInvalidStrategy)
			}
			strategies[i] = s
			continue
		}

		switch {
		case opts.AutoResolveConflicts && c.CanAutoResolve:
			strategies[i] = c.AutoResolveStrategy
		case opts.SkipConflicts:
			strategies[i] = Skip
		default:
			unresolved = append(unresolved, c.Path.String())
		}
	}

	if len(unresolved) > 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(unresolved, ", "), ErrUnresolvedConflicts)
	}
	return strategies, nil
}

// persist stores the backup and the rollback versions in one write and
// notifies the collaborators.
func (e *Engine) persist(
	ctx context.Context,
	preview *Preview,
	currentData, data *tree.Object,
	meta version.Meta,
	opts ExecuteOptions,
) *Result {
	if err := ctx.Err(); err != nil {
		return failure(preview, err)
	}

	target := preview.TargetVersion
	var drafts []version.Draft
	if opts.CreateBackupVersion {
		drafts = append(drafts, version.Draft{
			Data: currentData,
			Meta: version.Meta{
				Name:        fmt.Sprintf("Backup before rollback to version %d", target.VersionNumber),
				ChangeNotes: "Automatic backup",
				Tags:        []string{version.TagBackup, version.TagPreRollback},
				CreatedBy:   opts.UserID,
			},
		})
	}
	drafts = append(drafts, version.Draft{Data: data, Meta: meta})

	created, err := e.store.CreateVersions(ctx, drafts...)
	if err != nil {
		return failure(preview, err)
	}

	result := &Result{
		Success:    true,
		NewVersion: created[len(created)-1],
		Preview:    preview,
	}
	if opts.CreateBackupVersion {
		result.BackupVersion = created[0]
	}
	e.logger.Infof(
		"rolled back to version %d as version %d",
		target.VersionNumber, result.NewVersion.VersionNumber,
	)

	if opts.NotifyCollaborators && e.options.Notifier != nil {
		if err := e.options.Notifier.NotifyRollback(ctx, Notification{
			ItineraryID:   preview.ItineraryID,
			TargetVersion: target,
			NewVersion:    result.NewVersion,
			Impact:        preview.Impact,
		}); err != nil {
			e.logger.Warnf("notify rollback to version %d: %v", target.VersionNumber, err)
		}
	}

	return result
}

func (e *Engine) recoverInto(result **Result) {
	if r := recover(); r != nil {
		e.logger.Errorf("rollback panicked: %v", r)
		*result = failure(nil, fmt.Errorf("%v: %w", r, ErrRollbackAborted))
	}
}

// applyChanges applies the changes to the root. Removals run last in
// reverse order so the indexes of the array elements still refer to the
// original positions.
func applyChanges(root *tree.Object, changes []diff.Change) error {
	var removals []diff.Change
	for _, c := range changes {
		if c.Type == diff.Removed {
			removals = append(removals, c)
			continue
		}
		if err := applyChange(root, c); err != nil {
			return err
		}
	}

	for i := len(removals) - 1; i >= 0; i-- {
		if err := applyChange(root, removals[i]); err != nil {
			return err
		}
	}
	return nil
}

func applyChange(root *tree.Object, c diff.Change) error {
	switch c.Type {
	case diff.Removed:
		_, err := tree.Delete(root, c.Path)
		return err
	case diff.Added:
		if len(c.Path) > 0 && c.Path.Last().IsIndex() {
			arr, err := tree.GetArray(root, c.Path.Parent())
			if err != nil {
				return err
			}
			arr.Insert(min(c.Path.Last().IndexValue(), arr.Len()), tree.Clone(c.NewValue))
			return nil
		}
		return tree.Set(root, c.Path, tree.Clone(c.NewValue))
	default:
		return tree.Set(root, c.Path, tree.Clone(c.NewValue))
	}
}
