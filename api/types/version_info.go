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

package types

import (
	"runtime"

	"github.com/yorkie-team/tripsync/internal/version"
)

// VersionInfo represents information of version.
type VersionInfo struct {
	// ClientVersion is the tripsync cli version.
	ClientVersion *VersionDetail `json:"clientVersion,omitempty" yaml:"clientVersion,omitempty"`

	// ServerVersion is the tripsync server version.
	ServerVersion *VersionDetail `json:"serverVersion,omitempty" yaml:"serverVersion,omitempty"`
}

// VersionDetail represents detail information of version.
type VersionDetail struct {
	// TripsyncVersion
	TripsyncVersion string `json:"tripsyncVersion" yaml:"tripsyncVersion"`

	// GitCommit
	GitCommit string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`

	// GoVersion
	GoVersion string `json:"goVersion" yaml:"goVersion"`

	// BuildDate
	BuildDate string `json:"buildDate" yaml:"buildDate"`
}

// NewVersionDetail returns the version of the running binary.
func NewVersionDetail() *VersionDetail {
	return &VersionDetail{
		TripsyncVersion: version.Version,
		GitCommit:       version.GitCommit,
		GoVersion:       runtime.Version(),
		BuildDate:       version.BuildDate,
	}
}
