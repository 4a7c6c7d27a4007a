// Package release manages the version-keyed firmware output tree that
// the composition pipeline writes into.
package release

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Release summarizes one version directory under the firmware tree.
type Release struct {
	Version   string
	Files     int
	TotalSize int64
}

// List returns the releases under dir, newest first. Version
// directories sort lexically in reverse, which orders tagged builds
// newest-first. A missing firmware tree is an empty list, not an error.
func List(dir string) ([]Release, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var releases []Release
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		bins, err := filepath.Glob(filepath.Join(dir, entry.Name(), "*.bin"))
		if err != nil {
			return nil, err
		}

		var total int64
		for _, bin := range bins {
			info, err := os.Stat(bin)
			if err != nil {
				continue
			}
			total += info.Size()
		}

		releases = append(releases, Release{
			Version:   entry.Name(),
			Files:     len(bins),
			TotalSize: total,
		})
	}

	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Version > releases[j].Version
	})

	return releases, nil
}

// Prune removes all but the newest keep releases from dir and returns
// the removed versions. A keep of zero or less removes nothing.
func Prune(dir string, keep int) ([]string, error) {
	if keep < 1 {
		return nil, nil
	}

	releases, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(releases) <= keep {
		return nil, nil
	}

	var removed []string
	for _, r := range releases[keep:] {
		if err := os.RemoveAll(filepath.Join(dir, r.Version)); err != nil {
			return removed, err
		}
		removed = append(removed, r.Version)
	}

	return removed, nil
}
