package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espforge/espforge/internal/image"
)

func writeSegment(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// s3Bootloader synthesizes a bootloader image that classifies as
// ESP32-S3: 15360 bytes with chip ID 0x09 at offset 12.
func s3Bootloader() []byte {
	data := bytes.Repeat([]byte{0xB0}, 15360)
	data[12] = 0x09
	return data
}

func TestRunS3Build(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()

	bootloader := s3Bootloader()
	partitions := bytes.Repeat([]byte{0x22}, 0xC00)
	firmware := bytes.Repeat([]byte{0xF1}, 0x25000)
	writeSegment(t, buildDir, "bootloader.bin", bootloader)
	writeSegment(t, buildDir, "partitions.bin", partitions)
	writeSegment(t, buildDir, "firmware.bin", firmware)

	res, err := Run(context.Background(), Options{
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		EnvName:    "esp32-s3-devkit",
		Version:    "v1.0.0",
	})
	require.NoError(t, err)

	assert.Equal(t, image.ChipESP32S3, res.Chip)
	assert.Equal(t, "esp32-s3-devkit", res.BoardKey)
	assert.Equal(t, "v1.0.0", res.Version)

	// Update image is a verbatim copy of the application binary.
	update, err := os.ReadFile(filepath.Join(projectDir, "firmware", "v1.0.0", "esp32-s3-devkit_firmware.bin"))
	require.NoError(t, err)
	assert.Equal(t, firmware, update)

	// Factory image places bootloader@0x0, partitions@0x8000,
	// firmware@0x10000 on the S3 layout.
	factory, err := os.ReadFile(res.FactoryPath)
	require.NoError(t, err)
	assert.Equal(t, bootloader, factory[0:len(bootloader)])
	assert.Equal(t, partitions, factory[0x8000:0x8000+len(partitions)])
	assert.Equal(t, firmware, factory[0x10000:0x10000+len(firmware)])
	assert.Equal(t, 0x35000, len(factory))
	assert.Equal(t, res.FactorySize, len(factory))
}

func TestRunWithoutBootloader(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()

	firmware := bytes.Repeat([]byte{0xF1}, 0x2000)
	writeSegment(t, buildDir, "firmware.bin", firmware)

	res, err := Run(context.Background(), Options{
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		EnvName:    "esp32-headless",
		Version:    "v1.0.0",
	})
	require.NoError(t, err)

	// No bootloader means the default variant with its 0x1000 base; the
	// unused region stays erased.
	assert.Equal(t, image.ChipESP32, res.Chip)

	factory, err := os.ReadFile(res.FactoryPath)
	require.NoError(t, err)
	for i := 0; i < 0x8000; i++ {
		if factory[i] != 0xFF {
			t.Fatalf("byte at 0x%X is 0x%02X, want 0xFF", i, factory[i])
		}
	}
	assert.Equal(t, firmware, factory[0x10000:0x10000+len(firmware)])
}

func TestRunMissingFirmwareIsFatal(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()
	writeSegment(t, buildDir, "bootloader.bin", s3Bootloader())

	_, err := Run(context.Background(), Options{
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		EnvName:    "esp32-s3-devkit",
		Version:    "v1.0.0",
	})
	require.ErrorIs(t, err, ErrFirmwareMissing)

	// No output files were written.
	_, statErr := os.Stat(filepath.Join(projectDir, "firmware"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunVersionFallsBackToDev(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()
	writeSegment(t, buildDir, "firmware.bin", bytes.Repeat([]byte{0xF1}, 0x100))

	res, err := Run(context.Background(), Options{
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		EnvName:    "esp32-headless",
	})
	require.NoError(t, err)

	assert.Equal(t, "dev", res.Version)
	assert.Equal(t, filepath.Join(projectDir, "firmware", "dev", "esp32-headless_factory.bin"), res.FactoryPath)
	_, statErr := os.Stat(res.FactoryPath)
	assert.NoError(t, statErr)
}

func TestRunUnmappedEnvironmentUsesRawName(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()
	writeSegment(t, buildDir, "firmware.bin", bytes.Repeat([]byte{0xF1}, 0x100))

	res, err := Run(context.Background(), Options{
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		EnvName:    "some-new-board",
		Version:    "v1.0.0",
	})
	require.NoError(t, err)

	assert.Equal(t, "some-new-board", res.BoardKey)
	assert.Contains(t, res.FactoryPath, "some-new-board_factory.bin")
}

func TestRunIdempotent(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()
	writeSegment(t, buildDir, "bootloader.bin", s3Bootloader())
	writeSegment(t, buildDir, "partitions.bin", bytes.Repeat([]byte{0x22}, 0xC00))
	writeSegment(t, buildDir, "firmware.bin", bytes.Repeat([]byte{0xF1}, 0x5000))

	opts := Options{
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		EnvName:    "esp32-s3-mini",
		Version:    "v1.0.0",
	}

	first, err := Run(context.Background(), opts)
	require.NoError(t, err)
	firstFactory, err := os.ReadFile(first.FactoryPath)
	require.NoError(t, err)

	second, err := Run(context.Background(), opts)
	require.NoError(t, err)
	secondFactory, err := os.ReadFile(second.FactoryPath)
	require.NoError(t, err)

	assert.Equal(t, first.FactoryPath, second.FactoryPath)
	assert.Equal(t, firstFactory, secondFactory)

	// No temp files left behind in the output directory.
	entries, err := os.ReadDir(filepath.Dir(first.FactoryPath))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunCustomFirmwareDir(t *testing.T) {
	projectDir := t.TempDir()
	buildDir := t.TempDir()
	writeSegment(t, buildDir, "firmware.bin", bytes.Repeat([]byte{0xF1}, 0x100))

	res, err := Run(context.Background(), Options{
		ProjectDir:  projectDir,
		BuildDir:    buildDir,
		EnvName:     "esp32-headless",
		Version:     "v1.0.0",
		FirmwareDir: "dist",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(projectDir, "dist", "v1.0.0", "esp32-headless_factory.bin"), res.FactoryPath)
}
