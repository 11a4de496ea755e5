package config

import (
	"fmt"
	"strconv"
	"strings"
)

// PostgresVersion is a server version. The zero value means "not set".
type PostgresVersion struct {
	Major int
	Minor int
}

// DefaultPostgresVersion is assumed when no version is configured.
var DefaultPostgresVersion = PostgresVersion{Major: 12}

// ParsePostgresVersion parses "14" or "14.2".
func ParsePostgresVersion(s string) (PostgresVersion, error) {
	s = strings.TrimSpace(s)
	majorPart, minorPart, hasMinor := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorPart)
	if err != nil || major <= 0 {
		return PostgresVersion{}, fmt.Errorf("invalid PostgreSQL version %q", s)
	}
	v := PostgresVersion{Major: major}
	if hasMinor {
		minor, err := strconv.Atoi(minorPart)
		if err != nil || minor < 0 {
			return PostgresVersion{}, fmt.Errorf("invalid PostgreSQL version %q", s)
		}
		v.Minor = minor
	}
	return v, nil
}

// VersionFromNum converts a server_version_num value: 140002 is 14.2 and,
// before version 10, 90605 is 9.6.
func VersionFromNum(n int) (PostgresVersion, error) {
	switch {
	case n >= 100000:
		return PostgresVersion{Major: n / 10000, Minor: n % 10000}, nil
	case n >= 80000:
		return PostgresVersion{Major: n / 10000, Minor: n / 100 % 100}, nil
	default:
		return PostgresVersion{}, fmt.Errorf("unsupported server_version_num %d", n)
	}
}

// IsZero reports whether v is unset.
func (v PostgresVersion) IsZero() bool { return v == PostgresVersion{} }

// AtLeast reports whether v is major.minor or later.
func (v PostgresVersion) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v PostgresVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
