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


// Package background provides the background service. This service is used to
// manage the background goroutines in the backend.
package background

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/yorkie-team/tripsync/server/logging"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
)

type routineID int32

func (c *routineID) next() string {
	next := atomic.AddInt32((*int32)(c), 1)
	return "b" + strconv.Itoa(int(next))
}

// Background is the background service. It is responsible for managing
// background routines.
type Background struct {
	// closing is closed by backend close.
	closing chan struct{}

	// ctx is canceled when closing so that long running routines return.
	ctx    context.Context
	cancel context.CancelFunc

	// wgMu blocks concurrent WaitGroup mutation while backend closing
	wgMu sync.RWMutex

	// wg is used to wait for the goroutines that depends on the backend state
	// to exit when closing the backend.
	wg sync.WaitGroup

	// routineID is used to generate routine ID.
	routineID routineID

	// metrics is used to collect metrics with prometheus. It may be nil.
	metrics *prometheus.Metrics
}

// New creates a new background service.
func New(metrics *prometheus.Metrics) *Background {
	ctx, cancel := context.WithCancel(context.Background())
	return &Background{
		closing: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		metrics: metrics,
	}
}

// AttachGoroutine creates a goroutine on a given function and tracks it using
// the background's WaitGroup. The context given to f is canceled on Close.
// It returns false when the service is already closed.
func (b *Background) AttachGoroutine(
	f func(ctx context.Context),
	taskType string,
) bool {
	b.wgMu.RLock() // this blocks with ongoing close(b.closing)
	defer b.wgMu.RUnlock()
	select {
	case <-b.closing:
		logging.DefaultLogger().Warnf("backend has closed; skipping %s", taskType)
		return false
	default:
	}

	// now safe to add since WaitGroup wait has not started yet
	b.wg.Add(1)
	routineLogger := logging.New(b.routineID.next(), logging.NewField("task", taskType))
	if b.metrics != nil {
		b.metrics.AddBackgroundGoroutines(taskType)
	}
	go func() {
		defer func() {
			b.wg.Done()
			if b.metrics != nil {
				b.metrics.RemoveBackgroundGoroutines(taskType)
			}
		}()
		f(logging.With(b.ctx, routineLogger))
	}()
	return true
}

// Close closes the background service. This will wait for all goroutines to
// exit.
func (b *Background) Close() {
	b.wgMu.Lock()
	select {
	case <-b.closing:
		b.wgMu.Unlock()
		return
	default:
	}
	close(b.closing)
	b.wgMu.Unlock()

	b.cancel()

	// wait for goroutines before closing backend
	b.wg.Wait()
}
