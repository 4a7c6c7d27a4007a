// Package image implements the binary-level core of espforge: chip
// variant classification from raw bootloader images, per-variant flash
// memory layouts, and multi-segment factory image composition. The
// package is pure — all file I/O lives in callers.
package image

// Chip represents an ESP32 chip variant.
type Chip int

const (
	ChipESP32 Chip = iota
	ChipESP32S3
	ChipESP32S2
	ChipESP32C3
)

// String returns the string representation of Chip
func (c Chip) String() string {
	switch c {
	case ChipESP32:
		return "ESP32"
	case ChipESP32S3:
		return "ESP32-S3"
	case ChipESP32S2:
		return "ESP32-S2"
	case ChipESP32C3:
		return "ESP32-C3"
	default:
		return "unknown"
	}
}

// chipIDOffset is the position of the chip-identifying byte within the
// bootloader image header.
const chipIDOffset = 12

// signatureRule matches a bootloader on its header chip ID byte plus a
// size bracket. The ID byte alone is not reliable across toolchain
// versions, so every rule also constrains the image size.
type signatureRule struct {
	chipID  byte
	minSize int
	maxSize int // exclusive; 0 means unbounded
	chip    Chip
}

// signatureRules are evaluated in order; first match wins. The size
// brackets reflect known bootloader stub sizes per chip family and are
// fixed for compatibility with images already in the field.
var signatureRules = []signatureRule{
	{chipID: 0x09, minSize: 15000, chip: ChipESP32S3},
	{chipID: 0x05, minSize: 13000, maxSize: 14000, chip: ChipESP32C3},
	{chipID: 0x02, minSize: 13000, maxSize: 15000, chip: ChipESP32S2},
	{chipID: 0x00, minSize: 17000, chip: ChipESP32},
}

// sizeLadder classifies on image size alone when no signature rule
// matches. Same compatibility constraint as signatureRules.
var sizeLadder = []struct {
	minSize int
	chip    Chip
}{
	{minSize: 17000, chip: ChipESP32},
	{minSize: 15000, chip: ChipESP32S3},
	{minSize: 13600, chip: ChipESP32S2},
	{minSize: 13000, chip: ChipESP32C3},
}

// Classify infers the chip variant from a raw bootloader image. It is
// total: nil input, an image too short to carry the chip ID byte, or an
// image no rule matches all fall back to plain ESP32. A misdetection
// here surfaces later as a flashing failure, never as an error.
func Classify(bootloader []byte) Chip {
	if len(bootloader) <= chipIDOffset {
		return ChipESP32
	}

	chipID := bootloader[chipIDOffset]
	size := len(bootloader)

	for _, r := range signatureRules {
		if chipID != r.chipID || size < r.minSize {
			continue
		}
		if r.maxSize > 0 && size >= r.maxSize {
			continue
		}
		return r.chip
	}

	for _, s := range sizeLadder {
		if size >= s.minSize {
			return s.chip
		}
	}

	return ChipESP32
}
