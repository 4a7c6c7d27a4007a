// Package gitver resolves the firmware version string that keys the
// release output directory.
package gitver

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// Fallback is the version used whenever resolution fails. Repeated
// untagged builds land in the same "dev" directory and overwrite each
// other, which is accepted behavior.
const Fallback = "dev"

// Describe returns the output of "git describe --tags --dirty" for the
// repository at dir. It is total: a missing git binary, a directory that
// is not a repository, or a repository without tags all yield Fallback.
// Version resolution must never block a build.
func Describe(ctx context.Context, dir string) string {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "describe", "--tags", "--dirty")
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return Fallback
	}

	version := strings.TrimSpace(stdout.String())
	if version == "" {
		return Fallback
	}
	return version
}

// FromFile reads a version string from a plain text file, typically
// version.txt at the project root. Missing or empty files yield
// Fallback.
func FromFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fallback
	}

	version := strings.TrimSpace(string(data))
	if version == "" {
		return Fallback
	}
	return version
}
