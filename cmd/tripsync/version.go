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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/tripsync/api/types"
)

var (
	clientOnly bool
	output     string
	rpcAddr    string
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tripsync",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := Validate(); err != nil {
				return err
			}

			versionInfo := types.VersionInfo{ClientVersion: types.NewVersionDetail()}

			var serverErr error
			if !clientOnly {
				versionInfo.ServerVersion, serverErr = fetchServerVersion(rpcAddr)
			}

			switch output {
			case "":
				cmd.Printf("Tripsync Client: %s\n", versionInfo.ClientVersion.TripsyncVersion)
				cmd.Printf("Go: %s\n", versionInfo.ClientVersion.GoVersion)
				cmd.Printf("Build Date: %s\n", versionInfo.ClientVersion.BuildDate)
				if versionInfo.ServerVersion != nil {
					cmd.Printf("Tripsync Server: %s\n", versionInfo.ServerVersion.TripsyncVersion)
					cmd.Printf("Go: %s\n", versionInfo.ServerVersion.GoVersion)
					cmd.Printf("Build Date: %s\n", versionInfo.ServerVersion.BuildDate)
				}
			case "yaml":
				marshalled, err := yaml.Marshal(&versionInfo)
				if err != nil {
					return errors.New("failed to marshal YAML")
				}
				fmt.Println(string(marshalled))
			case "json":
				marshalled, err := json.MarshalIndent(&versionInfo, "", "  ")
				if err != nil {
					return errors.New("failed to marshal JSON")
				}
				fmt.Println(string(marshalled))
			}

			if serverErr != nil {
				cmd.Printf("Error fetching server version: %v\n", serverErr)
			}

			return nil
		},
	}
}

func fetchServerVersion(addr string) (*types.VersionDetail, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	cli := &http.Client{Timeout: 5 * time.Second}
	resp, err := cli.Get(strings.TrimSuffix(addr, "/") + "/api/version")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	detail := &types.VersionDetail{}
	if err := json.NewDecoder(resp.Body).Decode(detail); err != nil {
		return nil, fmt.Errorf("decode server version: %w", err)
	}
	return detail, nil
}

// Validate validates the provided options.
func Validate() error {
	if output != "" && output != "yaml" && output != "json" {
		return errors.New(`--output must be 'yaml' or 'json'`)
	}

	return nil
}

func init() {
	cmd := newVersionCmd()
	cmd.Flags().BoolVar(
		&clientOnly,
		"client",
		false,
		"Shows client version only (no server required).",
	)
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		"",
		"One of 'yaml' or 'json'.",
	)
	cmd.Flags().StringVar(
		&rpcAddr,
		"rpc-addr",
		"localhost:8080",
		"Address of the server",
	)
	rootCmd.AddCommand(cmd)
}
