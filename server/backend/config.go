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


package backend

import (
	"fmt"
	"os"
	gotime "time"

	"github.com/yorkie-team/tripsync/pkg/document"
	"github.com/yorkie-team/tripsync/pkg/version"
	"github.com/yorkie-team/tripsync/server/backend/database"
)

// Below are the default values of Config.
const (
	DefaultMaxVersions                = version.DefaultMaxVersions
	DefaultAutoVersionInterval        = "0s"
	DefaultPreviewTTL                 = "10m"
	DefaultPreviewCacheSize           = 1000
	DefaultAppliedWindow              = 1000
	DefaultPersistInterval            = "1s"
	DefaultSyncWindow                 = "500ms"
	DefaultFlushConcurrency           = 8
	DefaultResolver                   = "last-write-wins"
	DefaultMaxSubscribersPerItinerary = 0
	DefaultDatabase                   = string(database.Memory)
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// MaxVersions is the number of versions kept per itinerary.
	MaxVersions int `yaml:"MaxVersions"`

	// AutoVersionInterval is the interval of automatic versions. Zero
	// disables them.
	AutoVersionInterval string `yaml:"AutoVersionInterval"`

	// PreviewTTL is how long a rollback preview can be executed by its id.
	PreviewTTL string `yaml:"PreviewTTL"`

	// PreviewCacheSize is the number of rollback previews kept.
	PreviewCacheSize int `yaml:"PreviewCacheSize"`

	// AppliedWindow is the number of applied operation ids remembered per
	// itinerary. An operation sent again within the window is acknowledged
	// without being applied twice.
	AppliedWindow int `yaml:"AppliedWindow"`

	// PersistInterval is the interval the changed itineraries are stored at.
	PersistInterval string `yaml:"PersistInterval"`

	// SyncWindow is the shortest interval between two full syncs requested
	// by the same connection.
	SyncWindow string `yaml:"SyncWindow"`

	// FlushConcurrency is the number of itineraries stored at once.
	FlushConcurrency int `yaml:"FlushConcurrency"`

	// Resolver is the name of the conflict resolver of the itineraries.
	Resolver string `yaml:"Resolver"`

	// MaxSubscribersPerItinerary is the number of connections allowed per
	// itinerary. Zero means no limit.
	MaxSubscribersPerItinerary int `yaml:"MaxSubscribersPerItinerary"`

	// Database is the kind of the database driver.
	Database string `yaml:"Database"`

	// RedisFanout relays messages to other servers through redis pub/sub.
	// It needs the redis configuration.
	RedisFanout bool `yaml:"RedisFanout"`

	// Hostname is tripsync server hostname. hostname is used by metrics.
	Hostname string `yaml:"Hostname"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.MaxVersions == 0 {
		c.MaxVersions = DefaultMaxVersions
	}
	if c.AutoVersionInterval == "" {
		c.AutoVersionInterval = DefaultAutoVersionInterval
	}
	if c.PreviewTTL == "" {
		c.PreviewTTL = DefaultPreviewTTL
	}
	if c.PreviewCacheSize == 0 {
		c.PreviewCacheSize = DefaultPreviewCacheSize
	}
	if c.AppliedWindow == 0 {
		c.AppliedWindow = DefaultAppliedWindow
	}
	if c.PersistInterval == "" {
		c.PersistInterval = DefaultPersistInterval
	}
	if c.SyncWindow == "" {
		c.SyncWindow = DefaultSyncWindow
	}
	if c.FlushConcurrency == 0 {
		c.FlushConcurrency = DefaultFlushConcurrency
	}
	if c.Resolver == "" {
		c.Resolver = DefaultResolver
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.MaxVersions < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--max-versions" flag`, c.MaxVersions)
	}

	if _, err := gotime.ParseDuration(c.AutoVersionInterval); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--auto-version-interval" flag: %w`,
			c.AutoVersionInterval,
			err,
		)
	}

	if _, err := gotime.ParseDuration(c.PreviewTTL); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--preview-ttl" flag: %w`,
			c.PreviewTTL,
			err,
		)
	}

	if c.PreviewCacheSize < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--preview-cache-size" flag`, c.PreviewCacheSize)
	}

	if c.AppliedWindow < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--applied-window" flag`, c.AppliedWindow)
	}

	if d, err := gotime.ParseDuration(c.PersistInterval); err != nil || d <= 0 {
		return fmt.Errorf(
			`invalid argument "%s" for "--persist-interval" flag: must be a positive duration`,
			c.PersistInterval,
		)
	}

	if d, err := gotime.ParseDuration(c.SyncWindow); err != nil || d <= 0 {
		return fmt.Errorf(
			`invalid argument "%s" for "--sync-window" flag: must be a positive duration`,
			c.SyncWindow,
		)
	}

	if c.FlushConcurrency < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--flush-concurrency" flag`, c.FlushConcurrency)
	}

	if _, ok := document.ResolverByName(c.Resolver); !ok {
		return fmt.Errorf(`invalid argument "%s" for "--resolver" flag`, c.Resolver)
	}

	if c.MaxSubscribersPerItinerary < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--max-subscribers-per-itinerary" flag`,
			c.MaxSubscribersPerItinerary,
		)
	}

	if !database.Kind(c.Database).IsValid() {
		return fmt.Errorf(`invalid argument "%s" for "--database" flag`, c.Database)
	}

	return nil
}

// ParseAutoVersionInterval returns the interval of automatic versions.
func (c *Config) ParseAutoVersionInterval() gotime.Duration {
	return mustParseDuration("auto version interval", c.AutoVersionInterval)
}

// ParsePreviewTTL returns the TTL of rollback previews.
func (c *Config) ParsePreviewTTL() gotime.Duration {
	return mustParseDuration("preview ttl", c.PreviewTTL)
}

// ParsePersistInterval returns the interval changed itineraries are stored at.
func (c *Config) ParsePersistInterval() gotime.Duration {
	return mustParseDuration("persist interval", c.PersistInterval)
}

// ParseSyncWindow returns the shortest interval between two requested syncs
// of a connection.
func (c *Config) ParseSyncWindow() gotime.Duration {
	return mustParseDuration("sync window", c.SyncWindow)
}

// ConflictResolver returns the resolver named by the config.
func (c *Config) ConflictResolver() document.ConflictResolver {
	resolver, ok := document.ResolverByName(c.Resolver)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown resolver: %s\n", c.Resolver)
		os.Exit(1)
	}
	return resolver
}

func mustParseDuration(name, value string) gotime.Duration {
	result, err := gotime.ParseDuration(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", name, err)
		os.Exit(1)
	}

	return result
}
