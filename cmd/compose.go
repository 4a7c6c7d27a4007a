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

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/espforge/espforge/config"
	"github.com/espforge/espforge/internal/boardname"
	"github.com/espforge/espforge/internal/gitver"
	"github.com/espforge/espforge/internal/pipeline"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose factory and update images for a build environment",
	Long: `Compose the binaries a finished build left on disk into two firmware
images: <key>_firmware.bin, a verbatim copy of the application binary
for updating an already-provisioned device, and <key>_factory.bin, a
merged image flashed at offset 0x0 to provision a blank chip.

The chip variant is detected from the built bootloader and selects the
flash layout. bootloader.bin, partitions.bin and boot_app0.bin are
optional; firmware.bin is required. Both images land under
<project-dir>/firmware/<version>/.

Example:
  espforge compose -e esp32-headless
  espforge compose -e esp32-s3-devkit --set-version v2.9.0
  espforge compose -e custom-env --build-dir /tmp/out --project-dir ~/proj`,
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringP("env", "e", "", "build environment name (required)")
	composeCmd.Flags().String("project-dir", ".", "project root directory")
	composeCmd.Flags().String("build-dir", "", "directory holding the built binaries (default <project-dir>/<build_dir>/<env>)")
	composeCmd.Flags().String("set-version", "", "override the resolved firmware version")
	_ = composeCmd.MarkFlagRequired("env")
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	envName, _ := cmd.Flags().GetString("env")
	projectDir, _ := cmd.Flags().GetString("project-dir")
	buildDir, _ := cmd.Flags().GetString("build-dir")
	version, _ := cmd.Flags().GetString("set-version")

	if buildDir == "" {
		buildDir = filepath.Join(projectDir, cfg.Project.BuildDir, envName)
	}

	// The "file" version source is resolved here; the git source is
	// left to the pipeline so it can degrade to "dev" with a warning.
	if version == "" && cfg.Project.VersionSource == "file" {
		version = gitver.FromFile(filepath.Join(projectDir, cfg.Project.VersionFile))
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Options{
		ProjectDir:  projectDir,
		BuildDir:    buildDir,
		EnvName:     envName,
		Version:     version,
		FirmwareDir: cfg.Project.FirmwareDir,
		Names:       boardname.NewResolver(cfg.NameOverrides()),
		Logger:      log.Default(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Composed firmware for %s (%s)\n", res.BoardKey, res.Chip)
	fmt.Printf("  Version: %s\n", res.Version)
	fmt.Printf("  Factory: %s (%d bytes)\n", res.FactoryPath, res.FactorySize)
	fmt.Printf("  Update:  %s\n", res.UpdatePath)
	return nil
}
