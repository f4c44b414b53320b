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


// Package itineraries holds the authoritative documents of the itineraries
// served by this server together with their versions.
package itineraries

import (
	"context"
	"fmt"
	"sort"
	"sync"
	gotime "time"

	"github.com/rs/xid"

	"github.com/yorkie-team/tripsync/internal/validation"
	"github.com/yorkie-team/tripsync/pkg/cache"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/limit"
	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/logging"
)

var (
	// ErrRegistryClosed is returned when an itinerary is opened after Close.
	ErrRegistryClosed = errors.FailedPrecond("itinerary registry closed").WithCode("ErrRegistryClosed")

	// ErrInvalidItineraryID is returned when an itinerary id is not valid.
	ErrInvalidItineraryID = errors.InvalidArgument("invalid itinerary id").WithCode("ErrInvalidItineraryID")
)

// Registry keeps one authoritative document per open itinerary.
type Registry struct {
	be *backend.Backend

	mu          sync.Mutex
	closed      bool
	itineraries map[string]*Itinerary

	previews *cache.LRUExpireCache[string, *previewEntry]
	syncs    *limit.Limiter[string]
	now      func() gotime.Time
}

// New creates a registry on the given backend.
func New(be *backend.Backend) (*Registry, error) {
	previews, err := cache.NewLRUExpireCache[string, *previewEntry](be.Config.PreviewCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create preview cache: %w", err)
	}

	window := be.Config.ParseSyncWindow()
	return &Registry{
		be:          be,
		itineraries: make(map[string]*Itinerary),
		previews:    previews,
		syncs:       limit.New[string](window, window, window),
		now:         gotime.Now,
	}, nil
}

// Start attaches the loop storing the changed itineraries.
func (r *Registry) Start() {
	interval := r.be.Config.ParsePersistInterval()
	r.be.Background.AttachGoroutine(func(ctx context.Context) {
		ticker := gotime.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.Flush(ctx); err != nil {
					logging.From(ctx).Warnf("flush itineraries: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}, "itinerary-persist")
}

// Open returns the itinerary of the given id, loading it from the database
// when it is not open yet. A missing itinerary starts empty.
func (r *Registry) Open(ctx context.Context, id string) (*Itinerary, error) {
	if err := validation.ValidateValue(id, "required,max=128,itinerary_id"); err != nil {
		return nil, fmt.Errorf("%q: %s: %w", id, err.Error(), ErrInvalidItineraryID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if itinerary, ok := r.itineraries[id]; ok {
		return itinerary, nil
	}

	itinerary, err := load(ctx, r.be, id, r.previews, r.syncs)
	if err != nil {
		return nil, err
	}
	r.itineraries[id] = itinerary
	if r.be.Metrics != nil {
		r.be.Metrics.SetOpenItineraries(len(r.itineraries))
	}

	return itinerary, nil
}

// List returns the stored itineraries ordered by id. Changes not yet
// flushed are not reflected.
func (r *Registry) List(ctx context.Context) ([]*database.ItineraryInfo, error) {
	return r.be.DB.ListItineraries(ctx)
}

// Delete drops the sessions of the itinerary and removes it with its
// versions from the database.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	itinerary, wasOpen := r.itineraries[id]
	delete(r.itineraries, id)
	if r.be.Metrics != nil {
		r.be.Metrics.SetOpenItineraries(len(r.itineraries))
	}
	r.mu.Unlock()

	if wasOpen {
		// Stored first so that its versions are removed along with it.
		itinerary.mu.Lock()
		itinerary.dirty = true
		itinerary.mu.Unlock()
		if err := itinerary.close(ctx); err != nil {
			return err
		}
	}

	err := r.be.DB.DeleteItinerary(ctx, id)
	if wasOpen && errors.Is(err, database.ErrItineraryNotFound) {
		return nil
	}
	return err
}

// IdleCandidates returns up to limit open itineraries without sessions for
// at least idle, the longest idle first.
func (r *Registry) IdleCandidates(idle gotime.Duration, limit int) []string {
	now := r.now()
	type candidate struct {
		id   string
		idle gotime.Duration
	}

	var candidates []candidate
	for _, it := range r.open() {
		if d, ok := it.idleFor(now); ok && d >= idle {
			candidates = append(candidates, candidate{id: it.ID(), idle: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].idle > candidates[j].idle
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.id)
	}
	return ids
}

// Unload stores the itinerary and releases it from memory. It reports false
// when the itinerary is not open, has sessions or is being rolled back.
func (r *Registry) Unload(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	it, ok := r.itineraries[id]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	key := rollbackLockKey(id)
	if !r.be.Lockers.TryLock(key) {
		return false, nil
	}
	defer func() {
		if err := r.be.Lockers.Unlock(key); err != nil {
			it.logger.Errorf("unlock %s: %v", key, err)
		}
	}()

	if err := it.persist(ctx); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.itineraries[id] != it || !it.retire() {
		return false, nil
	}
	delete(r.itineraries, id)
	if r.be.Metrics != nil {
		r.be.Metrics.SetOpenItineraries(len(r.itineraries))
	}
	it.shutdown(ctx)
	return true, nil
}

// Closed returns whether the registry was closed.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// Len returns the number of open itineraries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.itineraries)
}

// Flush stores every itinerary changed since it was last stored.
func (r *Registry) Flush(ctx context.Context) error {
	return backend.FanOut(ctx, r.be, r.open(), func(ctx context.Context, it *Itinerary) error {
		return it.persist(ctx)
	})
}

// Close stores and closes every open itinerary.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	defer r.syncs.Close()
	return backend.FanOut(ctx, r.be, r.open(), func(ctx context.Context, it *Itinerary) error {
		return it.close(ctx)
	})
}

func (r *Registry) open() []*Itinerary {
	r.mu.Lock()
	defer r.mu.Unlock()

	itineraries := make([]*Itinerary, 0, len(r.itineraries))
	for _, itinerary := range r.itineraries {
		itineraries = append(itineraries, itinerary)
	}
	return itineraries
}

func newPreviewID() string {
	return xid.New().String()
}
