package image

// DefaultCapacity is the factory image capacity: 4 MiB, matching the
// smallest flash part the supported boards ship with.
const DefaultCapacity uint32 = 0x400000

// sectorSize is the flash erase sector size; the composed image is
// trimmed to a sector boundary.
const sectorSize = 0x1000

// erasedByte is the value read back from erased flash. Every unwritten
// region of the factory image holds it so that flashing the image never
// programs spurious data into pad regions.
const erasedByte = 0xFF

// Placement records one segment copied into the composed image.
type Placement struct {
	Kind    SegmentKind
	Address uint32
	Size    int
	// Overlap is set when this segment overwrote bytes written by an
	// earlier placement. Tolerated, but callers should surface it.
	Overlap bool
}

// Skip records a segment left out of the composed image because it
// would not fit within the capacity.
type Skip struct {
	Kind    SegmentKind
	Address uint32
	Size    int
}

// Result describes one composition.
type Result struct {
	// Image is the composed factory image, trimmed to the flash sector
	// boundary past the furthest written byte.
	Image      []byte
	Placements []Placement
	Skipped    []Skip
}

// Compose merges segment binaries into a single factory image. A
// capacity-sized buffer is filled with the erased-flash value, then each
// segment kind present in both layout and segments is copied in at its
// layout address, in PlacementOrder. Segments that would extend past
// the capacity are skipped, not placed partially. A zero capacity
// selects DefaultCapacity; nil or empty segment data counts as absent.
//
// Identical inputs always produce a byte-identical image.
func Compose(capacity uint32, layout Layout, segments map[SegmentKind][]byte) Result {
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	buf := make([]byte, capacity)
	for i := range buf {
		buf[i] = erasedByte
	}

	var res Result
	var maxEnd uint32

	for _, kind := range PlacementOrder {
		addr, ok := layout[kind]
		if !ok {
			continue
		}
		data := segments[kind]
		if len(data) == 0 {
			continue
		}

		end := uint64(addr) + uint64(len(data))
		if end > uint64(capacity) {
			res.Skipped = append(res.Skipped, Skip{Kind: kind, Address: addr, Size: len(data)})
			continue
		}

		overlap := false
		for _, p := range res.Placements {
			if addr < p.Address+uint32(p.Size) && p.Address < uint32(end) {
				overlap = true
				break
			}
		}

		copy(buf[addr:end], data)
		res.Placements = append(res.Placements, Placement{
			Kind:    kind,
			Address: addr,
			Size:    len(data),
			Overlap: overlap,
		})
		if uint32(end) > maxEnd {
			maxEnd = uint32(end)
		}
	}

	trim := uint32((uint64(maxEnd) + sectorSize - 1) / sectorSize * sectorSize)
	if trim > capacity {
		// Capacity itself need not be sector-aligned.
		trim = capacity
	}
	res.Image = buf[:trim]
	return res
}
