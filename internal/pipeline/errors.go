package pipeline

import "errors"

var (
	// ErrFirmwareMissing is returned when the required application
	// binary is absent from the build directory. Without it there is
	// nothing worth packaging, so no output files are written.
	ErrFirmwareMissing = errors.New("firmware binary not found")
)
