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


package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/backend/database/bolt"
	"github.com/yorkie-team/tripsync/server/backend/database/mongo"
	"github.com/yorkie-team/tripsync/server/backend/database/postgres"
	"github.com/yorkie-team/tripsync/server/backend/database/redis"
	"github.com/yorkie-team/tripsync/server/backend/database/s3"
	"github.com/yorkie-team/tripsync/server/backend/housekeeping"
	"github.com/yorkie-team/tripsync/server/profiling"
	"github.com/yorkie-team/tripsync/server/rpc"
)

// Below are the values of the default values of tripsync config.
const (
	DefaultRPCPort       = rpc.DefaultPort
	DefaultProfilingPort = 8081
)

// EnvPrefix is the prefix of the environment variables overriding the
// config.
const EnvPrefix = "TRIPSYNC_"

// Config is the configuration for creating a Tripsync instance.
type Config struct {
	RPC          *rpc.Config          `yaml:"RPC"`
	Profiling    *profiling.Config    `yaml:"Profiling"`
	Backend      *backend.Config      `yaml:"Backend"`
	Housekeeping *housekeeping.Config `yaml:"Housekeeping"`
	Mongo        *mongo.Config        `yaml:"Mongo"`
	Redis        *redis.Config        `yaml:"Redis"`
	Postgres     *postgres.Config     `yaml:"Postgres"`
	Bolt         *bolt.Config         `yaml:"Bolt"`
	S3           *s3.Config           `yaml:"S3"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// DatabaseConfigs returns the configs of the database drivers.
func (c *Config) DatabaseConfigs() *backend.DatabaseConfigs {
	return &backend.DatabaseConfigs{
		Mongo:    c.Mongo,
		Redis:    c.Redis,
		Postgres: c.Postgres,
		Bolt:     c.Bolt,
		S3:       c.S3,
	}
}

// ApplyEnv overrides the config with the TRIPSYNC_ environment variables
// found by lookup, such as TRIPSYNC_RPC_PORT or TRIPSYNC_MONGO_CONNECTION_URI.
// A driver block is created when one of its variables is set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}
	atoi := func(name string, target *int) error {
		v, ok := env(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*target = n
		return nil
	}

	if err := atoi("RPC_PORT", &c.RPC.Port); err != nil {
		return err
	}
	if err := atoi("PROFILING_PORT", &c.Profiling.Port); err != nil {
		return err
	}
	if err := atoi("MAX_VERSIONS", &c.Backend.MaxVersions); err != nil {
		return err
	}
	if v, ok := env("DATABASE"); ok {
		c.Backend.Database = v
	}
	if v, ok := env("RESOLVER"); ok {
		c.Backend.Resolver = v
	}
	if v, ok := env("AUTO_VERSION_INTERVAL"); ok {
		c.Backend.AutoVersionInterval = v
	}
	if v, ok := env("HOUSEKEEPING_INTERVAL"); ok {
		c.Housekeeping.Interval = v
	}
	if v, ok := env("HOUSEKEEPING_IDLE_TIMEOUT"); ok {
		c.Housekeeping.IdleTimeout = v
	}
	if v, ok := env("REDIS_FANOUT"); ok {
		fanout, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_FANOUT: %w", EnvPrefix, err)
		}
		c.Backend.RedisFanout = fanout
	}

	if v, ok := env("MONGO_CONNECTION_URI"); ok {
		if c.Mongo == nil {
			c.Mongo = &mongo.Config{}
		}
		c.Mongo.ConnectionURI = v
	}
	if v, ok := env("REDIS_ADDR"); ok {
		if c.Redis == nil {
			c.Redis = &redis.Config{}
		}
		c.Redis.Addr = v
	}
	if v, ok := env("REDIS_PASSWORD"); ok && c.Redis != nil {
		c.Redis.Password = v
	}
	if v, ok := env("POSTGRES_CONNECTION_URI"); ok {
		if c.Postgres == nil {
			c.Postgres = &postgres.Config{}
		}
		c.Postgres.ConnectionURI = v
	}
	if v, ok := env("BOLT_PATH"); ok {
		if c.Bolt == nil {
			c.Bolt = &bolt.Config{}
		}
		c.Bolt.Path = v
	}
	if v, ok := env("S3_BUCKET"); ok {
		if c.S3 == nil {
			c.S3 = &s3.Config{}
		}
		c.S3.Bucket = v
	}
	if c.S3 != nil {
		if v, ok := env("S3_ACCESS_KEY"); ok {
			c.S3.AccessKey = v
		}
		if v, ok := env("S3_SECRET_KEY"); ok {
			c.S3.SecretKey = v
		}
		if v, ok := env("S3_ENDPOINT"); ok {
			c.S3.Endpoint = v
		}
	}

	c.ensureDefaultValue()
	return nil
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}

	validators := []interface{ Validate() error }{}
	if c.Mongo != nil {
		validators = append(validators, c.Mongo)
	}
	if c.Redis != nil {
		validators = append(validators, c.Redis)
	}
	if c.Postgres != nil {
		validators = append(validators, c.Postgres)
	}
	if c.Bolt != nil {
		validators = append(validators, c.Bolt)
	}
	if c.S3 != nil {
		validators = append(validators, c.S3)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.RPC == nil {
		c.RPC = &rpc.Config{}
	}
	c.RPC.EnsureDefaultValue()

	if c.Profiling == nil {
		c.Profiling = &profiling.Config{}
	}
	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend == nil {
		c.Backend = &backend.Config{}
	}
	c.Backend.EnsureDefaultValue()

	if c.Housekeeping == nil {
		c.Housekeeping = &housekeeping.Config{}
	}
	c.Housekeeping.EnsureDefaultValue()

	if c.Mongo != nil {
		c.Mongo.EnsureDefaultValue()
	}
	if c.Redis != nil {
		c.Redis.EnsureDefaultValue()
	}
	if c.Postgres != nil {
		c.Postgres.EnsureDefaultValue()
	}
	if c.Bolt != nil {
		c.Bolt.EnsureDefaultValue()
	}
	if c.S3 != nil {
		c.S3.EnsureDefaultValue()
	}
}

func newConfig(port int, profilingPort int) *Config {
	conf := &Config{
		RPC: &rpc.Config{
			Port: port,
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Backend: &backend.Config{},
	}
	conf.ensureDefaultValue()
	return conf
}
