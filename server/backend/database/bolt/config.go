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


package bolt

import (
	"fmt"
	gotime "time"
)

const (
	// DefaultPath is the default path of the database file.
	DefaultPath = "tripsync.db"

	// DefaultOpenTimeout is the default time to wait for the file lock.
	DefaultOpenTimeout = "1s"
)

// Config is the configuration for opening a DB.
type Config struct {
	Path        string `yaml:"Path"`
	OpenTimeout string `yaml:"OpenTimeout"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.OpenTimeout == "" {
		c.OpenTimeout = DefaultOpenTimeout
	}
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf(`invalid argument "" for "--bolt-path" flag`)
	}

	if _, err := gotime.ParseDuration(c.OpenTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--bolt-open-timeout" flag: %w`,
			c.OpenTimeout,
			err,
		)
	}

	return nil
}
