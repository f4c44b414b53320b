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

package version

import (
	"context"
	"sync"
	gotime "time"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

// SnapshotFunc asks the host for the current state of the itinerary. It
// returns nil when there is nothing to snapshot.
type SnapshotFunc func(ctx context.Context) (*tree.Object, error)

// AutoVersioner periodically creates a version from the state the host
// hands it. It never reads a document itself.
type AutoVersioner struct {
	store    *Store
	interval gotime.Duration
	snapshot SnapshotFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutoVersioner creates an AutoVersioner snapshotting at the interval.
func NewAutoVersioner(store *Store, interval gotime.Duration, snapshot SnapshotFunc) *AutoVersioner {
	return &AutoVersioner{
		store:    store,
		interval: interval,
		snapshot: snapshot,
	}
}

// Start starts the timer. Calling Start on a running AutoVersioner does
// nothing.
func (a *AutoVersioner) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil || a.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

// Stop stops the timer and waits for a running snapshot to finish.
func (a *AutoVersioner) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *AutoVersioner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := gotime.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := a.Tick(ctx); err != nil {
				a.store.logger.Warnf("auto version: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Tick takes one snapshot. No version is created when the state equals the
// current version. It returns the created version, if any.
func (a *AutoVersioner) Tick(ctx context.Context) (*Version, error) {
	data, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	if current, err := a.store.Current(); err == nil && tree.Equal(current.Data, data) {
		return nil, nil
	}

	return a.store.CreateVersion(ctx, data, Meta{
		Name: "Auto-save",
		Tags: []string{TagAuto},
	})
}
