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

// Package version holds the build information of the binaries. The values
// are replaced at build time with the -X linker flag.
package version

var (
	// Version is the version of the running binary.
	Version = "0.1.0"

	// GitCommit is the commit the binary was built from.
	GitCommit string

	// BuildDate is the date the binary was built.
	BuildDate string
)
