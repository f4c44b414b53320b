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
	gotime "time"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/rollback"
)

var (
	// ErrPreviewNotFound is returned when a preview is unknown, expired or
	// was already executed.
	ErrPreviewNotFound = errors.NotFound("preview not found").WithCode("ErrPreviewNotFound")

	// ErrPreviewMismatch is returned when a preview is executed with another
	// target version than it was generated for.
	ErrPreviewMismatch = errors.InvalidArgument("preview target mismatch").WithCode("ErrPreviewMismatch")

	// ErrRollbackInProgress is returned when another rollback of the same
	// itinerary is running.
	ErrRollbackInProgress = errors.FailedPrecond("rollback in progress").WithCode("ErrRollbackInProgress")
)

// Below are the kinds of rollbacks reported to the metrics.
const (
	rollbackKindFull    = "full"
	rollbackKindPartial = "partial"
)

// previewEntry is a generated preview waiting to be executed.
type previewEntry struct {
	itineraryID     string
	targetVersionID string
	touchedPaths    []tree.Path
}

// PreviewRollback previews rolling back to the given version. The returned
// preview id can be executed once until it expires.
func (it *Itinerary) PreviewRollback(targetVersionID string, touched []tree.Path) (*types.PreviewResponse, error) {
	preview, err := it.engine.GeneratePreview(targetVersionID, it.Snapshot(), rollback.PreviewOptions{
		TouchedPaths: touched,
	})
	if err != nil {
		return nil, err
	}

	id := newPreviewID()
	it.previews.Add(id, &previewEntry{
		itineraryID:     it.id,
		targetVersionID: targetVersionID,
		touchedPaths:    touched,
	}, it.be.Config.ParsePreviewTTL())

	return &types.PreviewResponse{PreviewID: id, Preview: preview}, nil
}

// ExecuteRollback rolls the itinerary back and sends the restored state to
// every session. The request names the target version either directly or
// through a preview.
func (it *Itinerary) ExecuteRollback(ctx context.Context, req *types.RollbackRequest) (*rollback.Result, error) {
	targetID, opts, err := it.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	return it.execute(ctx, rollbackKindFull, func(current *tree.Object) *rollback.Result {
		return it.engine.ExecuteRollback(ctx, targetID, current, opts)
	})
}

// ExecutePartialRollback restores the selected paths of the target version
// and sends the restored state to every session.
func (it *Itinerary) ExecutePartialRollback(
	ctx context.Context,
	req *types.PartialRollbackRequest,
) (*rollback.Result, error) {
	targetID, opts, err := it.resolveRequest(&req.RollbackRequest)
	if err != nil {
		return nil, err
	}
	selected, err := types.ParsePaths(req.SelectedPaths)
	if err != nil {
		return nil, errors.InvalidArgument(err.Error()).WithCode("ErrInvalidPath")
	}

	return it.execute(ctx, rollbackKindPartial, func(current *tree.Object) *rollback.Result {
		return it.engine.ExecutePartialRollback(ctx, targetID, current, selected, opts)
	})
}

func (it *Itinerary) resolveRequest(req *types.RollbackRequest) (string, rollback.ExecuteOptions, error) {
	opts, err := req.Options()
	if err != nil {
		return "", rollback.ExecuteOptions{}, errors.InvalidArgument(err.Error()).WithCode("ErrInvalidPath")
	}

	targetID := req.TargetVersionID
	if req.PreviewID != "" {
		entry, ok := it.previews.Take(req.PreviewID)
		if !ok || entry.itineraryID != it.id {
			return "", rollback.ExecuteOptions{}, ErrPreviewNotFound
		}
		if targetID != "" && targetID != entry.targetVersionID {
			return "", rollback.ExecuteOptions{}, ErrPreviewMismatch
		}
		targetID = entry.targetVersionID
		if len(opts.TouchedPaths) == 0 {
			opts.TouchedPaths = entry.touchedPaths
		}
	}
	if targetID == "" {
		return "", rollback.ExecuteOptions{}, errors.InvalidArgument("target version is missing").
			WithCode("ErrMissingTarget")
	}

	return targetID, opts, nil
}

// execute runs a rollback with operations held off, and installs the
// restored state when it succeeds. The sessions receive the restored state
// before the rollback notification.
func (it *Itinerary) execute(
	ctx context.Context,
	kind string,
	run func(*tree.Object) *rollback.Result,
) (*rollback.Result, error) {
	key := rollbackLockKey(it.id)
	if !it.be.Lockers.TryLock(key) {
		return nil, ErrRollbackInProgress
	}
	defer func() {
		if err := it.be.Lockers.Unlock(key); err != nil {
			it.logger.Errorf("unlock %s: %v", key, err)
		}
	}()

	it.mu.Lock()
	defer it.mu.Unlock()

	start := gotime.Now()
	result := run(it.doc.Snapshot())
	notices := it.notices
	it.notices = nil
	if it.be.Metrics != nil {
		it.be.Metrics.ObserveRollback(kind, result.Success, gotime.Since(start))
	}
	if !result.Success {
		return result, nil
	}

	it.resetLocked(result.NewVersion.Data)
	for _, n := range notices {
		if err := it.be.PubSub.NotifyRollback(ctx, n); err != nil {
			it.logger.Warnf("notify rollback to %s: %v", n.TargetVersion.Name, err)
		}
	}
	it.logger.Infof("rolled back to %s as version %d", result.NewVersion.Name, result.NewVersion.VersionNumber)

	if it.be.Metrics != nil {
		it.be.Metrics.AddVersions(versionKindRollback, 1)
		if result.BackupVersion != nil {
			it.be.Metrics.AddVersions(versionKindBackup, 1)
		}
	}
	return result, nil
}

// holdNotification keeps the notification of a running rollback until the
// restored state is sent. It is called with mu held.
func (it *Itinerary) holdNotification(_ context.Context, n rollback.Notification) error {
	it.notices = append(it.notices, n)
	return nil
}

// rollbackLockKey is the locker key held while the itinerary is rolled back
// or unloaded.
func rollbackLockKey(id string) string {
	return "rollback:" + id
}
