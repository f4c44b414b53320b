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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	reset := func() {
		flagConfPath, flagEnvFile, flagDatabase = "", "", ""
	}

	t.Run("env file test", func(t *testing.T) {
		defer reset()
		dir := t.TempDir()
		flagEnvFile = filepath.Join(dir, "tripsync.env")
		require.NoError(t, os.WriteFile(flagEnvFile, []byte("TRIPSYNC_RPC_PORT=9191\nTRIPSYNC_MAX_VERSIONS=7\n"), 0600))
		t.Cleanup(func() {
			_ = os.Unsetenv("TRIPSYNC_RPC_PORT")
			_ = os.Unsetenv("TRIPSYNC_MAX_VERSIONS")
		})

		conf, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 9191, conf.RPC.Port)
		assert.Equal(t, 7, conf.Backend.MaxVersions)
	})

	t.Run("missing env file test", func(t *testing.T) {
		defer reset()
		flagEnvFile = filepath.Join(t.TempDir(), "missing.env")
		_, err := loadConfig()
		assert.Error(t, err)
	})

	t.Run("database flag test", func(t *testing.T) {
		defer reset()
		flagDatabase = "memory"
		conf, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, "memory", conf.Backend.Database)
	})
}
