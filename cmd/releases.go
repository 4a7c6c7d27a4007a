package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/espforge/espforge/config"
	"github.com/espforge/espforge/internal/release"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List and prune firmware releases",
	Long: `List the version directories under the firmware output tree, newest
first, with their file counts and sizes. With --prune, remove all but
the newest releases.

Example:
  espforge releases                  # List releases
  espforge releases --prune          # Keep the configured number
  espforge releases --prune --keep 3 # Keep only the newest 3`,
	RunE: runReleases,
}

func init() {
	rootCmd.AddCommand(releasesCmd)

	releasesCmd.Flags().String("project-dir", ".", "project root directory")
	releasesCmd.Flags().Bool("prune", false, "remove old releases")
	releasesCmd.Flags().Int("keep", 0, "releases to keep when pruning (default from config)")
}

func runReleases(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	projectDir, _ := cmd.Flags().GetString("project-dir")
	prune, _ := cmd.Flags().GetBool("prune")
	keep, _ := cmd.Flags().GetInt("keep")
	if keep == 0 {
		keep = cfg.Release.KeepReleases
	}

	dir := filepath.Join(projectDir, cfg.Project.FirmwareDir)

	if prune {
		removed, err := release.Prune(dir, keep)
		if err != nil {
			return fmt.Errorf("prune releases: %w", err)
		}
		for _, version := range removed {
			fmt.Printf("Removed %s\n", version)
		}
	}

	releases, err := release.List(dir)
	if err != nil {
		return fmt.Errorf("list releases: %w", err)
	}

	if len(releases) == 0 {
		fmt.Println("No releases found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tFILES\tSIZE")
	fmt.Fprintln(w, "-------\t-----\t----")
	for _, r := range releases {
		fmt.Fprintf(w, "%s\t%d\t%.2f MB\n", r.Version, r.Files, float64(r.TotalSize)/(1024*1024))
	}
	return w.Flush()
}
