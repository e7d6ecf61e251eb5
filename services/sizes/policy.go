// Package sizes translates named size presets into pixel dimension ranges
// and pre-filters image URLs against them using embedded size hints.
package sizes

import "strings"

// Range is an inclusive accept window for image pixel dimensions.
type Range struct {
	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int
}

// unbounded is the practical "no limit" ceiling used by the open presets.
const unbounded = 100000

// presets is the closed set of named size filters selectable by API callers.
// "default" is the banner-shaped window wide landscape promos fall into;
// "custom" disables filtering entirely. The resolution-named presets accept
// a window around the nominal resolution because upstream banners rarely
// match it exactly.
var presets = map[string]Range{
	"default":   {MinWidth: 1920, MaxWidth: 2400, MinHeight: 700, MaxHeight: 1400},
	"custom":    {MinWidth: 0, MaxWidth: unbounded, MinHeight: 0, MaxHeight: unbounded},
	"1920x1080": {MinWidth: 1800, MaxWidth: 2000, MinHeight: 1000, MaxHeight: 1180},
	"2560x1440": {MinWidth: 2400, MaxWidth: 2700, MinHeight: 1300, MaxHeight: 1580},
	"3840x2160": {MinWidth: 3600, MaxWidth: 4100, MinHeight: 2000, MaxHeight: 2300},
	"1280x720":  {MinWidth: 1200, MaxWidth: 1400, MinHeight: 650, MaxHeight: 800},
}

// Resolve maps a preset name to its Range. It is total: unknown or empty
// names resolve to the default range rather than failing, so a bad filter
// value falls back to the default banner window instead of breaking the
// request.
func Resolve(name string) Range {
	if r, ok := presets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return r
	}
	return presets["default"]
}

// Contains reports whether the given pixel dimensions fall inside the range.
func (r Range) Contains(width, height int) bool {
	return width >= r.MinWidth && width <= r.MaxWidth &&
		height >= r.MinHeight && height <= r.MaxHeight
}

// Unrestricted reports whether the range accepts every plausible size.
func (r Range) Unrestricted() bool {
	return r.MinWidth == 0 && r.MinHeight == 0 &&
		r.MaxWidth >= unbounded && r.MaxHeight >= unbounded
}

// Full returns the range that accepts everything. Verification measures
// against it so cached image sets stay unfiltered; presets are applied on
// read.
func Full() Range {
	return presets["custom"]
}
