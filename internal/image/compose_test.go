package image

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeated(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestComposeRoundTrip(t *testing.T) {
	layout := LayoutFor(ChipESP32)
	segments := map[SegmentKind][]byte{
		SegmentBootloader: repeated(0xB0, 0x4000),
		SegmentPartitions: repeated(0x22, 0x1000),
		SegmentBootApp0:   repeated(0xA0, 0x2000),
		SegmentFirmware:   repeated(0xF1, 0x30000),
	}

	res := Compose(0, layout, segments)
	require.Len(t, res.Placements, 4)
	assert.Empty(t, res.Skipped)

	// Reading back each placed range recovers the original bytes.
	for kind, data := range segments {
		addr := layout[kind]
		assert.Equal(t, data, res.Image[addr:addr+uint32(len(data))], "segment %s", kind)
	}
}

func TestComposeTrimToSectorBoundary(t *testing.T) {
	// Furthest written byte ends at 0x9A432; the image must be trimmed
	// to the next sector boundary, 0x9B000.
	layout := Layout{SegmentFirmware: 0x10000}
	segments := map[SegmentKind][]byte{
		SegmentFirmware: make([]byte, 0x9A432-0x10000),
	}

	res := Compose(0, layout, segments)
	assert.Equal(t, 0x9B000, len(res.Image))
}

func TestComposeTrimAlreadyAligned(t *testing.T) {
	layout := Layout{SegmentBootloader: 0x0000}
	segments := map[SegmentKind][]byte{
		SegmentBootloader: make([]byte, 0x2000),
	}

	res := Compose(0, layout, segments)
	assert.Equal(t, 0x2000, len(res.Image))
}

func TestComposeUnwrittenRegionsAreErased(t *testing.T) {
	layout := LayoutFor(ChipESP32)
	segments := map[SegmentKind][]byte{
		SegmentFirmware: repeated(0x11, 0x100),
	}

	res := Compose(0, layout, segments)
	require.Equal(t, 0x11000, len(res.Image))

	// Everything below the firmware base stays at the erased value,
	// including the unused bootloader region.
	for i := 0; i < 0x10000; i++ {
		if res.Image[i] != erasedByte {
			t.Fatalf("byte at 0x%X is 0x%02X, want 0x%02X", i, res.Image[i], erasedByte)
		}
	}
	// And so does the pad between the firmware end and the trim point.
	for i := 0x10100; i < 0x11000; i++ {
		if res.Image[i] != erasedByte {
			t.Fatalf("pad byte at 0x%X is 0x%02X, want 0x%02X", i, res.Image[i], erasedByte)
		}
	}
}

func TestComposeDeterministic(t *testing.T) {
	layout := LayoutFor(ChipESP32S3)
	segments := map[SegmentKind][]byte{
		SegmentBootloader: repeated(0xB0, 15360),
		SegmentPartitions: repeated(0x22, 0xC00),
		SegmentFirmware:   repeated(0xF1, 0x25000),
	}

	first := Compose(0, layout, segments)
	second := Compose(0, layout, segments)
	assert.Equal(t, first.Image, second.Image)
	assert.Equal(t, first.Placements, second.Placements)
}

func TestComposeSkipsOversizedSegment(t *testing.T) {
	layout := Layout{
		SegmentPartitions: 0x8000,
		SegmentFirmware:   0x10000,
	}
	segments := map[SegmentKind][]byte{
		SegmentPartitions: repeated(0x22, 0x1000),
		SegmentFirmware:   make([]byte, 0x400000), // cannot fit at 0x10000
	}

	res := Compose(0, layout, segments)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, SegmentFirmware, res.Skipped[0].Kind)
	assert.Equal(t, uint32(0x10000), res.Skipped[0].Address)

	// The fitting segment is still placed and determines the trim.
	require.Len(t, res.Placements, 1)
	assert.Equal(t, SegmentPartitions, res.Placements[0].Kind)
	assert.Equal(t, 0x9000, len(res.Image))
}

func TestComposeFlagsOverlap(t *testing.T) {
	// A partition blob long enough to run into the firmware base: the
	// later-placed firmware wins and the placement is flagged.
	layout := Layout{
		SegmentPartitions: 0x8000,
		SegmentFirmware:   0x10000,
	}
	segments := map[SegmentKind][]byte{
		SegmentPartitions: repeated(0x22, 0x9000),
		SegmentFirmware:   repeated(0xF1, 0x100),
	}

	res := Compose(0, layout, segments)
	require.Len(t, res.Placements, 2)
	assert.False(t, res.Placements[0].Overlap)
	assert.True(t, res.Placements[1].Overlap)
	assert.Equal(t, byte(0xF1), res.Image[0x10000])
	assert.Equal(t, byte(0x22), res.Image[0xFFFF])
}

func TestComposeNoSegments(t *testing.T) {
	res := Compose(0, LayoutFor(ChipESP32), nil)
	assert.Empty(t, res.Image)
	assert.Empty(t, res.Placements)
	assert.Empty(t, res.Skipped)
}

func TestComposeSegmentWithoutLayoutEntry(t *testing.T) {
	// boot_app0 has no slot in the S3 layout; providing its binary
	// anyway must not place it.
	layout := LayoutFor(ChipESP32S3)
	segments := map[SegmentKind][]byte{
		SegmentBootApp0: repeated(0xA0, 0x2000),
		SegmentFirmware: repeated(0xF1, 0x100),
	}

	res := Compose(0, layout, segments)
	require.Len(t, res.Placements, 1)
	assert.Equal(t, SegmentFirmware, res.Placements[0].Kind)
}

func TestComposeCustomCapacity(t *testing.T) {
	layout := Layout{SegmentBootloader: 0x0000}
	segments := map[SegmentKind][]byte{
		SegmentBootloader: repeated(0xB0, 0x1800),
	}

	// An unaligned capacity caps the trim.
	res := Compose(0x1C00, layout, segments)
	assert.Equal(t, 0x1C00, len(res.Image))
}
