// Package pipeline runs the post-build composition step: classify the
// chip variant from the built bootloader, resolve its flash layout,
// merge the segment binaries into a factory image, and persist the
// factory and update images under the version-keyed release tree.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/espforge/espforge/internal/boardname"
	"github.com/espforge/espforge/internal/gitver"
	"github.com/espforge/espforge/internal/image"
)

// segmentFiles names the per-segment binaries the external build system
// drops into the build directory.
var segmentFiles = map[image.SegmentKind]string{
	image.SegmentBootloader: "bootloader.bin",
	image.SegmentPartitions: "partitions.bin",
	image.SegmentBootApp0:   "boot_app0.bin",
	image.SegmentFirmware:   "firmware.bin",
}

// Options configure a single pipeline run.
type Options struct {
	// ProjectDir is the root the firmware output tree lives under.
	ProjectDir string
	// BuildDir holds the built segment binaries.
	BuildDir string
	// EnvName is the build-environment identifier.
	EnvName string
	// Version keys the output directory. Empty means resolve via git
	// describe in ProjectDir.
	Version string
	// Capacity of the factory image; zero selects image.DefaultCapacity.
	Capacity uint32
	// FirmwareDir is the output subdirectory name under ProjectDir;
	// empty means "firmware".
	FirmwareDir string
	// Names resolves the environment name to the board key used in
	// output filenames; nil means builtin table only.
	Names *boardname.Resolver
	// Logger receives run diagnostics; nil means log.Default().
	Logger *log.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID       string
	Chip        image.Chip
	BoardKey    string
	Version     string
	FactoryPath string
	UpdatePath  string
	FactorySize int
}

// Run executes the pipeline once: Classify, LayoutFor, gather segments,
// Compose, persist. Each stage runs at most once; there are no retries.
// Re-running with unchanged inputs overwrites the same outputs with
// byte-identical content.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	runID := uuid.New().String()
	logger = logger.With("run", runID, "env", opts.EnvName)

	names := opts.Names
	if names == nil {
		names = boardname.NewResolver(nil)
	}
	key, known := names.Resolve(opts.EnvName)
	if !known {
		logger.Warn("no board key mapped for build environment, using raw name")
	}

	version := opts.Version
	if version == "" {
		version = gitver.Describe(ctx, opts.ProjectDir)
		if version == gitver.Fallback {
			logger.Warn("could not resolve version from git", "version", version)
		}
	}

	// firmware.bin is the one segment a build must produce.
	appData, err := os.ReadFile(filepath.Join(opts.BuildDir, segmentFiles[image.SegmentFirmware]))
	if err != nil {
		return nil, fmt.Errorf("%w in %s", ErrFirmwareMissing, opts.BuildDir)
	}

	segments := map[image.SegmentKind][]byte{
		image.SegmentFirmware: appData,
	}
	for _, kind := range image.PlacementOrder {
		if kind == image.SegmentFirmware {
			continue
		}
		data, err := os.ReadFile(filepath.Join(opts.BuildDir, segmentFiles[kind]))
		if err != nil {
			// Optional segment; an unreadable file is the same as an
			// absent one.
			logger.Debug("segment not available", "segment", kind)
			continue
		}
		segments[kind] = data
	}

	chip := image.Classify(segments[image.SegmentBootloader])
	layout := image.LayoutFor(chip)
	logger.Info("detected chip",
		"chip", chip,
		"bootloader_base", fmt.Sprintf("0x%04X", layout[image.SegmentBootloader]))

	comp := image.Compose(opts.Capacity, layout, segments)
	for _, p := range comp.Placements {
		if p.Overlap {
			logger.Warn("segment overlaps an earlier placement",
				"segment", p.Kind,
				"address", fmt.Sprintf("0x%06X", p.Address),
				"size", p.Size)
			continue
		}
		logger.Info("placed segment",
			"segment", p.Kind,
			"address", fmt.Sprintf("0x%06X", p.Address),
			"size", p.Size)
	}
	for _, s := range comp.Skipped {
		logger.Warn("segment exceeds image capacity, skipped",
			"segment", s.Kind,
			"address", fmt.Sprintf("0x%06X", s.Address),
			"size", s.Size)
	}

	firmwareDir := opts.FirmwareDir
	if firmwareDir == "" {
		firmwareDir = "firmware"
	}
	outDir := filepath.Join(opts.ProjectDir, firmwareDir, version)
	// Create-if-absent: concurrent builds of different environments may
	// target the same version directory.
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	updatePath := filepath.Join(outDir, key+"_firmware.bin")
	factoryPath := filepath.Join(outDir, key+"_factory.bin")

	if err := writeFileAtomic(updatePath, appData); err != nil {
		return nil, fmt.Errorf("write update image: %w", err)
	}
	if err := writeFileAtomic(factoryPath, comp.Image); err != nil {
		return nil, fmt.Errorf("write factory image: %w", err)
	}

	logger.Info("wrote firmware images",
		"board", key,
		"version", version,
		"factory_size", len(comp.Image))

	return &Result{
		RunID:       runID,
		Chip:        chip,
		BoardKey:    key,
		Version:     version,
		FactoryPath: factoryPath,
		UpdatePath:  updatePath,
		FactorySize: len(comp.Image),
	}, nil
}

// writeFileAtomic writes data through a temp file and rename so a
// failed run never leaves a partially-written artifact behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
