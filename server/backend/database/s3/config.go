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


package s3

import "fmt"

const (
	// DefaultRegion is the default region of the bucket.
	DefaultRegion = "us-east-1"

	// DefaultPrefix is the default prefix of every object key.
	DefaultPrefix = "tripsync/"
)

// Config is the configuration for creating a Client instance. Endpoint is
// only needed for S3 compatible stores such as MinIO.
type Config struct {
	Bucket         string `yaml:"Bucket"`
	Region         string `yaml:"Region"`
	Endpoint       string `yaml:"Endpoint"`
	AccessKey      string `yaml:"AccessKey"`
	SecretKey      string `yaml:"SecretKey"`
	Prefix         string `yaml:"Prefix"`
	ForcePathStyle bool   `yaml:"ForcePathStyle"`
}

// EnsureDefaultValue fills the empty fields with their defaults.
func (c *Config) EnsureDefaultValue() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf(`invalid argument "" for "--s3-bucket" flag`)
	}

	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("s3 access key and secret key must be given together")
	}

	return nil
}
