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

package housekeeping

import (
	"fmt"
	"time"
)

// Below are the default values of Config.
const (
	DefaultInterval        = "1m"
	DefaultIdleTimeout     = "10m"
	DefaultCandidatesLimit = 100
)

// Config is the configuration for the housekeeping service.
type Config struct {
	// Interval is the time between housekeeping runs.
	Interval string `yaml:"Interval"`

	// IdleTimeout is how long an itinerary stays in memory without
	// connections before it is unloaded.
	IdleTimeout string `yaml:"IdleTimeout"`

	// CandidatesLimit is the maximum number of itineraries unloaded per run.
	CandidatesLimit int `yaml:"CandidatesLimit"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.CandidatesLimit == 0 {
		c.CandidatesLimit = DefaultCandidatesLimit
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if d, err := time.ParseDuration(c.Interval); err != nil || d <= 0 {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-interval" flag: must be a positive duration`,
			c.Interval,
		)
	}

	if d, err := time.ParseDuration(c.IdleTimeout); err != nil || d <= 0 {
		return fmt.Errorf(
			`invalid argument %s for "--housekeeping-idle-timeout" flag: must be a positive duration`,
			c.IdleTimeout,
		)
	}

	if c.CandidatesLimit <= 0 {
		return fmt.Errorf(
			`invalid argument %d for "--housekeeping-candidates-limit" flag`,
			c.CandidatesLimit,
		)
	}

	return nil
}

// ParseInterval parses the interval.
func (c *Config) ParseInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %s: %w", c.Interval, err)
	}

	return interval, nil
}

// ParseIdleTimeout parses the idle timeout.
func (c *Config) ParseIdleTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("parse idle timeout %s: %w", c.IdleTimeout, err)
	}

	return timeout, nil
}
