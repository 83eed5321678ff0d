package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// toolVersion is a parsed major.minor.patch tool version.
type toolVersion [3]int

func parseToolVersion(s string) (toolVersion, error) {
	var v toolVersion
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) != 3 {
		return v, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid version %q: bad component %q", s, part)
		}
		v[i] = n
	}
	return v, nil
}

func (v toolVersion) compare(o toolVersion) int {
	for i := range v {
		switch {
		case v[i] < o[i]:
			return -1
		case v[i] > o[i]:
			return 1
		}
	}
	return 0
}

// versionOps is ordered so two-character operators are tried first.
var versionOps = []struct {
	prefix string
	match  func(v, c toolVersion) bool
}{
	{">=", func(v, c toolVersion) bool { return v.compare(c) >= 0 }},
	{"<=", func(v, c toolVersion) bool { return v.compare(c) <= 0 }},
	{">", func(v, c toolVersion) bool { return v.compare(c) > 0 }},
	{"<", func(v, c toolVersion) bool { return v.compare(c) < 0 }},
	{"^", func(v, c toolVersion) bool { return v[0] == c[0] && v.compare(c) >= 0 }},
	{"~", func(v, c toolVersion) bool { return v[0] == c[0] && v[1] == c[1] && v.compare(c) >= 0 }},
	{"=", func(v, c toolVersion) bool { return v.compare(c) == 0 }},
}

// matchVersion reports whether version satisfies constraint. A constraint
// without an operator is an exact match; an empty constraint matches anything.
func matchVersion(version, constraint string) (bool, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return true, nil
	}

	v, err := parseToolVersion(version)
	if err != nil {
		return false, err
	}

	for _, op := range versionOps {
		if rest, ok := strings.CutPrefix(constraint, op.prefix); ok {
			c, err := parseToolVersion(rest)
			if err != nil {
				return false, fmt.Errorf("invalid constraint %q: %w", constraint, err)
			}
			return op.match(v, c), nil
		}
	}

	c, err := parseToolVersion(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}
	return v.compare(c) == 0, nil
}
