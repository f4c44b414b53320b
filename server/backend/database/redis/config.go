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


package redis

import (
	"fmt"
	gotime "time"
)

const (
	// DefaultAddr is the default address of the redis server.
	DefaultAddr = "localhost:6379"

	// DefaultKeyPrefix is the default prefix of every key.
	DefaultKeyPrefix = "tripsync:"

	// DefaultDialTimeout is the default timeout of the first connection.
	DefaultDialTimeout = "5s"
)

// Config is the configuration for creating a Client instance.
type Config struct {
	Addr        string `yaml:"Addr"`
	Password    string `yaml:"Password"`
	DB          int    `yaml:"DB"`
	KeyPrefix   string `yaml:"KeyPrefix"`
	DialTimeout string `yaml:"DialTimeout"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.DialTimeout == "" {
		c.DialTimeout = DefaultDialTimeout
	}
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf(`invalid argument "" for "--redis-addr" flag`)
	}

	if c.DB < 0 {
		return fmt.Errorf(`invalid argument "%d" for "--redis-db" flag`, c.DB)
	}

	if _, err := gotime.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--redis-dial-timeout" flag: %w`,
			c.DialTimeout,
			err,
		)
	}

	return nil
}
