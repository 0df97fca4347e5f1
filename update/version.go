package update

import (
	"strings"

	"github.com/coreos/go-semver/semver"

	"github.com/altsrc-dev/altsrc/altsource"
)

// parseVersion coerces the free-form version strings found in release tags
// into strict semver: leading "v" stripped, missing components zero padded.
func parseVersion(raw string) (*semver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "v")

	base, suffix := trimmed, ""
	if i := strings.IndexAny(base, "-+"); i >= 0 {
		base, suffix = base[:i], base[i:]
	}
	parts := strings.Split(base, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return semver.NewVersion(strings.Join(parts, ".") + suffix)
}

// CompareVersions orders two version strings, falling back to a plain string
// comparison when either side does not parse.
func CompareVersions(a, b string) int {
	av, aerr := parseVersion(a)
	bv, berr := parseVersion(b)
	if aerr != nil || berr != nil {
		return strings.Compare(a, b)
	}
	return av.Compare(*bv)
}

// newer reports whether candidate is a strictly newer build than current.
// Absolute versions win when both sides carry one, then the version strings,
// then the build version as a tiebreak.
func newer(candidate, current *altsource.Version) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}
	if candidate.AbsoluteVersion != "" && current.AbsoluteVersion != "" {
		return CompareVersions(candidate.AbsoluteVersion, current.AbsoluteVersion) > 0
	}
	switch CompareVersions(candidate.Version, current.Version) {
	case 1:
		return true
	case -1:
		return false
	}
	if candidate.BuildVersion != "" && current.BuildVersion != "" {
		return CompareVersions(candidate.BuildVersion, current.BuildVersion) > 0
	}
	return false
}
