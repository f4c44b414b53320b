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


package rpc

import (
	"fmt"
	"os"
	"time"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

// Below are the default values of the RPC config.
const (
	DefaultPort            = 8080
	DefaultMaxRequestBytes = 4 * 1024 * 1024
	DefaultWriteTimeout    = "10s"
	DefaultPingInterval    = "30s"
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.InvalidArgument("invalid port number for RPC server").WithCode("ErrInvalidRPCPort")

	// ErrInvalidCertFile occurs when the certificate file is invalid.
	ErrInvalidCertFile = errors.InvalidArgument("invalid cert file for RPC server").WithCode("ErrInvalidCertFile")

	// ErrInvalidKeyFile occurs when the key file is invalid.
	ErrInvalidKeyFile = errors.InvalidArgument("invalid key file for RPC server").WithCode("ErrInvalidKeyFile")

	// ErrInvalidWriteTimeout occurs when the write timeout is invalid.
	ErrInvalidWriteTimeout = errors.InvalidArgument("invalid write timeout for RPC server").
				WithCode("ErrInvalidWriteTimeout")

	// ErrInvalidPingInterval occurs when the ping interval is invalid.
	ErrInvalidPingInterval = errors.InvalidArgument("invalid ping interval for RPC server").
				WithCode("ErrInvalidPingInterval")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the RPC server.
	Port int `yaml:"Port"`

	// CertFile is the path to the certificate file.
	CertFile string `yaml:"CertFile"`

	// KeyFile is the path to the key file.
	KeyFile string `yaml:"KeyFile"`

	// MaxRequestBytes is the maximum size of a request body or a websocket
	// message the server will accept.
	MaxRequestBytes int64 `yaml:"MaxRequestBytes"`

	// WriteTimeout is the deadline of a websocket write.
	WriteTimeout string `yaml:"WriteTimeout"`

	// PingInterval is the interval of websocket pings. A connection that
	// does not answer within two intervals is closed.
	PingInterval string `yaml:"PingInterval"`

	// AllowedOrigins are the origins allowed to open websockets. Empty
	// allows every origin.
	AllowedOrigins []string `yaml:"AllowedOrigins"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRequestBytes == 0 {
		c.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PingInterval == "" {
		c.PingInterval = DefaultPingInterval
	}
}

// Validate validates the port number and the files for certification.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}

	// when specific cert or key file are configured
	if c.CertFile != "" {
		if _, err := os.Stat(c.CertFile); err != nil {
			return fmt.Errorf("%s: %w", c.CertFile, ErrInvalidCertFile)
		}
	}

	if c.KeyFile != "" {
		if _, err := os.Stat(c.KeyFile); err != nil {
			return fmt.Errorf("%s: %w", c.KeyFile, ErrInvalidKeyFile)
		}
	}

	if d, err := time.ParseDuration(c.WriteTimeout); err != nil || d <= 0 {
		return fmt.Errorf("%s: %w", c.WriteTimeout, ErrInvalidWriteTimeout)
	}

	if d, err := time.ParseDuration(c.PingInterval); err != nil || d <= 0 {
		return fmt.Errorf("%s: %w", c.PingInterval, ErrInvalidPingInterval)
	}

	return nil
}

// ParseWriteTimeout returns the write timeout as a duration.
func (c *Config) ParseWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ParsePingInterval returns the ping interval as a duration.
func (c *Config) ParsePingInterval() time.Duration {
	d, err := time.ParseDuration(c.PingInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
