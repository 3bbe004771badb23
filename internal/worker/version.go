package worker

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a major.minor language version.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1 as v is less than, equal to or greater than o.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		if v.Major < o.Major {
			return -1
		}

		return 1
	}

	if v.Minor != o.Minor {
		if v.Minor < o.Minor {
			return -1
		}

		return 1
	}

	return 0
}

// ParseVersion parses "4" or "4.0" into a Version.
func ParseVersion(s string) (Version, error) {
	major, minor, found := strings.Cut(strings.TrimSpace(s), ".")

	maj, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}

	v := Version{Major: maj}
	if found {
		min, err := strconv.Atoi(minor)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}

		v.Minor = min
	}

	return v, nil
}

// VersionRange is an inclusive [Min, Max] range of supported language
// versions. A zero Max means "no upper bound".
type VersionRange struct {
	Min Version
	Max Version
	// open marks a range with no upper bound ("3.0+").
	open bool
}

func (r VersionRange) String() string {
	if r.open {
		return r.Min.String() + "+"
	}

	return r.Min.String() + "-" + r.Max.String()
}

// Contains reports whether v falls inside the range.
func (r VersionRange) Contains(v Version) bool {
	if v.Compare(r.Min) < 0 {
		return false
	}

	return r.open || v.Compare(r.Max) <= 0
}

// ParseRange parses "3.0-4.0", "3.0+" or a single version "4.0" (which
// denotes the exact-version range).
func ParseRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)

	if after, found := strings.CutSuffix(s, "+"); found {
		min, err := ParseVersion(after)
		if err != nil {
			return VersionRange{}, err
		}

		return VersionRange{Min: min, open: true}, nil
	}

	if lo, hi, found := strings.Cut(s, "-"); found {
		min, err := ParseVersion(lo)
		if err != nil {
			return VersionRange{}, err
		}

		max, err := ParseVersion(hi)
		if err != nil {
			return VersionRange{}, err
		}

		if max.Compare(min) < 0 {
			return VersionRange{}, fmt.Errorf("invalid range %q: upper bound below lower", s)
		}

		return VersionRange{Min: min, Max: max}, nil
	}

	exact, err := ParseVersion(s)
	if err != nil {
		return VersionRange{}, err
	}

	return VersionRange{Min: exact, Max: exact}, nil
}
