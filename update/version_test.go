package update

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/altsrc-dev/altsrc/altsource"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "Equal", a: "1.2.3", b: "1.2.3", want: 0},
		{name: "Patch bump", a: "1.2.4", b: "1.2.3", want: 1},
		{name: "Major beats minor", a: "2.0.0", b: "1.9.9", want: 1},
		{name: "Leading v stripped", a: "v1.1.0", b: "1.0.0", want: 1},
		{name: "Short form padded", a: "1.1", b: "1.0.9", want: 1},
		{name: "Single component", a: "2", b: "1.9", want: 1},
		{name: "Prerelease sorts lower", a: "1.0.0-beta", b: "1.0.0", want: -1},
		{name: "Unparsable falls back to strings", a: "abc", b: "abd", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestNewer(t *testing.T) {
	v := func(ver, build, abs string) *altsource.Version {
		return &altsource.Version{Version: ver, BuildVersion: build, AbsoluteVersion: abs}
	}

	tests := []struct {
		name      string
		candidate *altsource.Version
		current   *altsource.Version
		want      bool
	}{
		{name: "Higher version", candidate: v("1.1", "", ""), current: v("1.0", "", ""), want: true},
		{name: "Lower version", candidate: v("1.0", "", ""), current: v("1.1", "", ""), want: false},
		{name: "Equal version", candidate: v("1.0", "", ""), current: v("1.0", "", ""), want: false},
		{name: "Build tiebreak", candidate: v("1.0", "43", ""), current: v("1.0", "42", ""), want: true},
		{name: "Absolute version wins", candidate: v("1.0", "", "2.0"), current: v("1.5", "", "1.9"), want: true},
		{name: "Nil current", candidate: v("1.0", "", ""), current: nil, want: true},
		{name: "Nil candidate", candidate: nil, current: v("1.0", "", ""), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newer(tt.candidate, tt.current))
		})
	}
}
