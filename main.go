/*
Copyright 2025 espforge Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// espforge is a post-build firmware packaging tool for ESP32 projects.
// It merges the binaries produced by an external build system into a
// single flashable factory image plus a standalone update image, and
// manages the version-keyed release tree those images live in.
package main

import (
	"fmt"
	"os"

	"github.com/espforge/espforge/cmd"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Set version info for cmd package
	cmd.Version = version
	cmd.Commit = commit
	cmd.BuildDate = buildDate

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
