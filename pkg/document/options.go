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

package document

import (
	gotime "time"

	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/internal/log"
)

const (
	// DefaultMaxPendingOperations is the default bound of the pending queue.
	DefaultMaxPendingOperations = 1000

	// DefaultMaxUndoDepth is the default depth of the undo and redo stacks.
	DefaultMaxUndoDepth = 100
)

// Option configures Options.
type Option func(*Options)

// Options configures how a document behaves.
type Options struct {
	// MaxPendingOperations is the number of unacknowledged local operations
	// past which the document is considered desynchronized.
	MaxPendingOperations int

	// MaxUndoDepth is the number of local operations that can be undone.
	MaxUndoDepth int

	// Resolver decides between concurrent writes of the same value.
	Resolver ConflictResolver

	// Listeners receive the events of the document.
	Listeners []Listener

	// Clock returns the current time. It stamps undo and redo operations.
	Clock func() gotime.Time

	// Logger is the logger of the document.
	Logger *zap.SugaredLogger
}

// WithMaxPendingOperations configures the bound of the pending queue.
func WithMaxPendingOperations(n int) Option {
	return func(o *Options) { o.MaxPendingOperations = n }
}

// WithMaxUndoDepth configures the depth of the undo and redo stacks.
func WithMaxUndoDepth(n int) Option {
	return func(o *Options) { o.MaxUndoDepth = n }
}

// WithResolver configures the conflict resolution policy.
func WithResolver(resolver ConflictResolver) Option {
	return func(o *Options) { o.Resolver = resolver }
}

// WithListener adds a listener of the events of the document.
func WithListener(listener Listener) Option {
	return func(o *Options) { o.Listeners = append(o.Listeners, listener) }
}

// WithClock configures the clock of the document.
func WithClock(clock func() gotime.Time) Option {
	return func(o *Options) { o.Clock = clock }
}

// WithLogger configures the logger of the document.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *Options) { o.Logger = logger }
}

func newOptions(opts ...Option) Options {
	options := Options{
		MaxPendingOperations: DefaultMaxPendingOperations,
		MaxUndoDepth:         DefaultMaxUndoDepth,
		Resolver:             LastWriteWins,
		Clock:                gotime.Now,
		Logger:               log.Logger,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
