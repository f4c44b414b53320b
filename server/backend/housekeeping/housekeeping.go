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

// Package housekeeping provides the housekeeping service. The housekeeping
// service unloads the itineraries nobody has been connected to for a long
// time, so that memory is only held by itineraries in use.
package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/yorkie-team/tripsync/server/logging"
)

// Unloader holds itineraries in memory.
type Unloader interface {
	// IdleCandidates returns up to limit itineraries without connections for
	// at least idle.
	IdleCandidates(idle time.Duration, limit int) []string

	// Unload stores and releases the itinerary. It reports false when the
	// itinerary became busy again.
	Unload(ctx context.Context, id string) (bool, error)
}

// Housekeeping is the housekeeping service. It periodically unloads idle
// itineraries.
type Housekeeping struct {
	unloader Unloader

	interval        time.Duration
	idleTimeout     time.Duration
	candidatesLimit int

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Start creates and starts the housekeeping service.
func Start(conf *Config, unloader Unloader) (*Housekeeping, error) {
	h, err := New(conf, unloader)
	if err != nil {
		return nil, err
	}
	if err := h.Start(); err != nil {
		return nil, err
	}

	return h, nil
}

// New creates a new housekeeping instance.
func New(conf *Config, unloader Unloader) (*Housekeeping, error) {
	interval, err := conf.ParseInterval()
	if err != nil {
		return nil, err
	}
	idleTimeout, err := conf.ParseIdleTimeout()
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &Housekeeping{
		unloader: unloader,

		interval:        interval,
		idleTimeout:     idleTimeout,
		candidatesLimit: conf.CandidatesLimit,

		ctx:        ctx,
		cancelFunc: cancelFunc,
		done:       make(chan struct{}),
	}, nil
}

// Start starts the housekeeping service.
func (h *Housekeeping) Start() error {
	go h.run()
	return nil
}

// Stop stops the housekeeping service and waits for the running pass.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()
	<-h.done

	return nil
}

// run is the housekeeping loop.
func (h *Housekeeping) run() {
	defer close(h.done)

	for {
		select {
		case <-time.After(h.interval):
		case <-h.ctx.Done():
			return
		}

		if _, err := h.UnloadCandidates(h.ctx); err != nil {
			logging.From(h.ctx).Error(err)
		}
	}
}

// UnloadCandidates unloads the itineraries idle past the timeout and returns
// how many were unloaded.
func (h *Housekeeping) UnloadCandidates(ctx context.Context) (int, error) {
	start := time.Now()
	candidates := h.unloader.IdleCandidates(h.idleTimeout, h.candidatesLimit)

	unloaded := 0
	for _, id := range candidates {
		ok, err := h.unloader.Unload(ctx, id)
		if err != nil {
			return unloaded, fmt.Errorf("unload %s: %w", id, err)
		}
		if ok {
			unloaded++
		}
	}

	if len(candidates) > 0 {
		logging.From(ctx).Infof(
			"HSKP: candidates %d, unloaded %d, %s",
			len(candidates),
			unloaded,
			time.Since(start),
		)
	}

	return unloaded, nil
}
