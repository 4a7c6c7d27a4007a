package image

import "maps"

// SegmentKind names one binary blob with a fixed placement address
// within the factory image.
type SegmentKind int

const (
	SegmentBootloader SegmentKind = iota
	SegmentPartitions
	SegmentBootApp0
	SegmentFirmware
)

// String returns the string representation of SegmentKind
func (k SegmentKind) String() string {
	switch k {
	case SegmentBootloader:
		return "bootloader"
	case SegmentPartitions:
		return "partitions"
	case SegmentBootApp0:
		return "boot_app0"
	case SegmentFirmware:
		return "firmware"
	default:
		return "unknown"
	}
}

// PlacementOrder is the fixed order in which segments are placed
// during composition.
var PlacementOrder = [...]SegmentKind{
	SegmentBootloader,
	SegmentPartitions,
	SegmentBootApp0,
	SegmentFirmware,
}

// Layout maps segment kinds to their flash base addresses for one chip
// variant. Kinds absent from the map are not placed on that variant.
type Layout map[SegmentKind]uint32

// Per-variant flash layouts. The bootloader base address differs
// between boot-ROM families (0x0 on S3/C3, 0x1000 on ESP32/S2); these
// offsets are fixed by the hardware boot ROM and a wrong value yields a
// device that does not boot.
var (
	layoutESP32 = Layout{
		SegmentBootloader: 0x1000,
		SegmentPartitions: 0x8000,
		SegmentBootApp0:   0xE000,
		SegmentFirmware:   0x10000,
	}
	layoutESP32S2 = Layout{
		SegmentBootloader: 0x1000,
		SegmentPartitions: 0x8000,
		SegmentBootApp0:   0xE000,
		SegmentFirmware:   0x10000,
	}
	layoutESP32S3 = Layout{
		SegmentBootloader: 0x0000,
		SegmentPartitions: 0x8000,
		SegmentFirmware:   0x10000,
	}
	layoutESP32C3 = Layout{
		SegmentBootloader: 0x0000,
		SegmentPartitions: 0x8000,
		SegmentFirmware:   0x10000,
	}
)

// LayoutFor returns the flash layout for a chip variant. Unknown
// variants fall through to the generic ESP32 layout. The returned map
// is a copy; callers may modify it freely.
func LayoutFor(chip Chip) Layout {
	switch chip {
	case ChipESP32S3:
		return maps.Clone(layoutESP32S3)
	case ChipESP32S2:
		return maps.Clone(layoutESP32S2)
	case ChipESP32C3:
		return maps.Clone(layoutESP32C3)
	default:
		return maps.Clone(layoutESP32)
	}
}
