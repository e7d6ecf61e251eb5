package sizes

import (
	"regexp"
	"strconv"
)

// hintTolerance widens the accept window when comparing URL size hints,
// because hints describe the provider's thumbnailing request and the
// delivered image can differ from them.
const hintTolerance = 0.20

var (
	widthHintRe  = regexp.MustCompile(`[US]X(\d+)`)
	heightHintRe = regexp.MustCompile(`[US]Y(\d+)`)
)

// MightMatch is a cheap pre-filter applied before downloading a candidate.
// It parses size hint tokens embedded in the address (the UX/UY and SX/SY
// markers of scaled image URLs) and rejects candidates whose hinted size
// falls clearly outside the range. A URL without hints always passes: the
// filter can only skip work, never be the sole rejection authority.
func MightMatch(address string, r Range) bool {
	if r.Unrestricted() {
		return true
	}

	if w, ok := sizeHint(widthHintRe, address); ok {
		if !withinTolerance(w, r.MinWidth, r.MaxWidth) {
			return false
		}
	}
	if h, ok := sizeHint(heightHintRe, address); ok {
		if !withinTolerance(h, r.MinHeight, r.MaxHeight) {
			return false
		}
	}
	return true
}

func sizeHint(re *regexp.Regexp, address string) (int, bool) {
	m := re.FindStringSubmatch(address)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func withinTolerance(v, min, max int) bool {
	lo := int(float64(min) * (1 - hintTolerance))
	hi := int(float64(max) * (1 + hintTolerance))
	return v >= lo && v <= hi
}
