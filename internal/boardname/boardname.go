// Package boardname maps build-environment identifiers to the stable
// board keys used in firmware filenames.
package boardname

// builtin maps PlatformIO environment names to their board keys. The
// keys are what flashing and release tooling matches on, so entries are
// append-only.
var builtin = map[string]string{
	"esp32-2432s028":        "cyd-1usb",
	"esp32-2432s028-st7789": "cyd-1usb-st7789",
	"esp32-2432s028-2usb":   "cyd-2usb",
	"esp32-s3-2432s028":     "freenove-s3",
	"esp32-s3-devkit":       "esp32-s3-devkit",
	"esp32-headless":        "esp32-headless",
	"esp32-s3-mini":         "esp32-s3-mini",
}

// Resolver resolves environment names to board keys, consulting
// project-supplied overrides before the builtin table.
type Resolver struct {
	overrides map[string]string
}

// NewResolver returns a Resolver with the given overrides. A nil map is
// fine; the builtin table still applies.
func NewResolver(overrides map[string]string) *Resolver {
	return &Resolver{overrides: overrides}
}

// Resolve returns the board key for a build-environment name. Unknown
// names pass through unchanged so an unmapped board stays visible in
// output filenames rather than disappearing; known reports whether a
// mapping existed so callers can warn about the fallback.
func (r *Resolver) Resolve(envName string) (key string, known bool) {
	if key, ok := r.overrides[envName]; ok {
		return key, true
	}
	if key, ok := builtin[envName]; ok {
		return key, true
	}
	return envName, false
}
