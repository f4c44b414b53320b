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

// Package rollback restores itineraries to earlier versions without silently
// discarding the work done since.
package rollback

import (
	"context"

	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/internal/log"
	"github.com/yorkie-team/tripsync/pkg/version"
)

const (
	// DefaultMergeSeparator is put between the two texts of a merge.
	DefaultMergeSeparator = "\n---\n"

	// DefaultSmallDeltaRatio is the largest relative difference between two
	// numbers that is merged automatically.
	DefaultSmallDeltaRatio = 0.1
)

// VersionStore is the store the versions to roll back to are read from and
// the rollback versions are written to.
type VersionStore interface {
	ItineraryID() string
	GetVersion(id string) (*version.Version, error)
	Current() (*version.Version, error)
	CreateVersions(ctx context.Context, drafts ...version.Draft) ([]*version.Version, error)
}

// Notification is sent to the collaborators of an itinerary when it is
// rolled back.
type Notification struct {
	ItineraryID   string           `json:"itineraryId"`
	TargetVersion *version.Version `json:"targetVersion"`
	NewVersion    *version.Version `json:"newVersion"`
	Impact        Impact           `json:"impactAnalysis"`
}

// Notifier delivers rollback notifications.
type Notifier interface {
	NotifyRollback(ctx context.Context, n Notification) error
}

// NotifierFunc is an adapter to use a function as a Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// NotifyRollback calls f(ctx, n).
func (f NotifierFunc) NotifyRollback(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Option configures Options.
type Option func(*Options)

// Options configures an Engine.
type Options struct {
	// Schema categorizes the fields of the itineraries.
	Schema Schema

	// MergeSeparator is put between the two texts of a merge.
	MergeSeparator string

	// SmallDeltaRatio is the largest relative difference of two numbers
	// that is merged automatically.
	SmallDeltaRatio float64

	// DaysKey and ActivitiesKey name the arrays rolled up in the impact
	// analysis.
	DaysKey       string
	ActivitiesKey string

	// Notifier receives the rollback notifications.
	Notifier Notifier

	// Logger is the logger of the engine.
	Logger *zap.SugaredLogger
}

// WithSchema configures the schema of the engine.
func WithSchema(schema Schema) Option {
	return func(o *Options) { o.Schema = schema }
}

// WithMergeSeparator configures the separator of merged texts.
func WithMergeSeparator(sep string) Option {
	return func(o *Options) { o.MergeSeparator = sep }
}

// WithSmallDeltaRatio configures the largest relative difference of two
// numbers that is merged automatically.
func WithSmallDeltaRatio(ratio float64) Option {
	return func(o *Options) { o.SmallDeltaRatio = ratio }
}

// WithRollupKeys configures the arrays rolled up in the impact analysis.
func WithRollupKeys(days, activities string) Option {
	return func(o *Options) {
		o.DaysKey = days
		o.ActivitiesKey = activities
	}
}

// WithNotifier configures the notifier of the engine.
func WithNotifier(notifier Notifier) Option {
	return func(o *Options) { o.Notifier = notifier }
}

// WithLogger configures the logger of the engine.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Engine previews and executes rollbacks of one itinerary. Rollbacks of the
// same itinerary must not run concurrently.
type Engine struct {
	store   VersionStore
	options Options
	logger  *zap.SugaredLogger
}

// New creates an engine working on the given store.
func New(store VersionStore, opts ...Option) *Engine {
	options := Options{
		Schema:          ItinerarySchema(),
		MergeSeparator:  DefaultMergeSeparator,
		SmallDeltaRatio: DefaultSmallDeltaRatio,
		DaysKey:         "days",
		ActivitiesKey:   "activities",
	}
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.Logger
	if logger == nil {
		logger = log.Logger
	}

	return &Engine{
		store:   store,
		options: options,
		logger:  logger.With("itinerary", store.ItineraryID()),
	}
}
