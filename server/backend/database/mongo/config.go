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


package mongo

import (
	"fmt"
	"os"
	gotime "time"
)

const (
	// DefaultConnectionTimeout is the default timeout of the first connection.
	DefaultConnectionTimeout = "5s"

	// DefaultPingTimeout is the default timeout of the ping after connecting.
	DefaultPingTimeout = "5s"

	// DefaultDatabase is the default name of the database.
	DefaultDatabase = "tripsync"
)

// Config is the configuration for creating a Client instance.
type Config struct {
	ConnectionTimeout string `yaml:"ConnectionTimeout"`
	ConnectionURI     string `yaml:"ConnectionURI"`
	Database          string `yaml:"Database"`
	PingTimeout       string `yaml:"PingTimeout"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.ConnectionTimeout == "" {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.PingTimeout == "" {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if _, err := gotime.ParseDuration(c.ConnectionTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--mongo-connection-timeout" flag: %w`,
			c.ConnectionTimeout,
			err,
		)
	}

	if _, err := gotime.ParseDuration(c.PingTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--mongo-ping-timeout" flag: %w`,
			c.PingTimeout,
			err,
		)
	}

	if c.ConnectionURI == "" {
		return fmt.Errorf(`invalid argument "" for "--mongo-connection-uri" flag`)
	}

	return nil
}

// ParseConnectionTimeout returns connection timeout duration.
func (c *Config) ParseConnectionTimeout() gotime.Duration {
	result, err := gotime.ParseDuration(c.ConnectionTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse connection timeout: %v\n", err)
		os.Exit(1)
	}

	return result
}

// ParsePingTimeout returns ping timeout duration.
func (c *Config) ParsePingTimeout() gotime.Duration {
	result, err := gotime.ParseDuration(c.PingTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse ping timeout: %v\n", err)
		os.Exit(1)
	}

	return result
}
