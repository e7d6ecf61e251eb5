package sizes

import "testing"

func TestResolve_KnownPresets(t *testing.T) {
	tests := []struct {
		name string
		want Range
	}{
		{"default", Range{1920, 2400, 700, 1400}},
		{"custom", Range{0, 100000, 0, 100000}},
		{"1920x1080", Range{1800, 2000, 1000, 1180}},
		{"2560x1440", Range{2400, 2700, 1300, 1580}},
		{"3840x2160", Range{3600, 4100, 2000, 2300}},
		{"1280x720", Range{1200, 1400, 650, 800}},
	}
	for _, tc := range tests {
		if got := Resolve(tc.name); got != tc.want {
			t.Errorf("Resolve(%q) = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestResolve_UnknownFallsBackToDefault(t *testing.T) {
	def := Resolve("default")
	for _, name := range []string{"", "4k", "1920X1080!", "   ", "💥", "nope"} {
		if got := Resolve(name); got != def {
			t.Errorf("Resolve(%q) = %+v, want default %+v", name, got, def)
		}
	}
}

func TestResolve_NormalizesCaseAndSpace(t *testing.T) {
	if got := Resolve("  1920X1080 "); got != Resolve("1920x1080") {
		t.Errorf("Resolve with case/space variation = %+v", got)
	}
}

func TestRange_Contains(t *testing.T) {
	r := Resolve("1920x1080")
	tests := []struct {
		w, h int
		want bool
	}{
		{1920, 1080, true},
		{1800, 1000, true}, // inclusive lower bound
		{2000, 1180, true}, // inclusive upper bound
		{1799, 1080, false},
		{1920, 1181, false},
		{2001, 1080, false},
	}
	for _, tc := range tests {
		if got := r.Contains(tc.w, tc.h); got != tc.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestRange_Unrestricted(t *testing.T) {
	if !Resolve("custom").Unrestricted() {
		t.Error("custom preset should be unrestricted")
	}
	if Resolve("1280x720").Unrestricted() {
		t.Error("1280x720 preset should not be unrestricted")
	}
	if Resolve("default").Unrestricted() {
		t.Error("default preset is the banner window, not unrestricted")
	}
}

func TestFull_AcceptsEverything(t *testing.T) {
	f := Full()
	if !f.Unrestricted() {
		t.Fatal("Full() must be unrestricted")
	}
	if !f.Contains(1, 1) || !f.Contains(99999, 99999) {
		t.Error("Full() should contain any plausible size")
	}
}
