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

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/yorkie-team/tripsync/server"
)

const defaultEnvFile = ".env"

var (
	flagConfPath string
	flagEnvFile  string
	flagDatabase string
)

// loadEnv loads the variables of the env file into the environment. A
// missing default env file is not an error.
func loadEnv() error {
	path := flagEnvFile
	if path == "" {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if flagEnvFile == "" && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig builds the server configuration from the config file, the
// environment and the flags, in that order of precedence from lowest.
func loadConfig() (*server.Config, error) {
	if err := loadEnv(); err != nil {
		return nil, err
	}

	conf := server.NewConfig()
	if flagConfPath != "" {
		parsed, err := server.NewConfigFromFile(flagConfPath)
		if err != nil {
			return nil, err
		}
		conf = parsed
	}

	if err := conf.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if flagDatabase != "" {
		conf.Backend.Database = flagDatabase
	}
	return conf, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagEnvFile,
		"env-file",
		"",
		"Path of the env file holding TRIPSYNC_ variables (default .env when present)",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagDatabase,
		"database",
		"",
		"Database driver: memory, mongo, redis, postgres, bolt, s3",
	)
}
