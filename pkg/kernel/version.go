// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package kernel provides the kernel version value type and its packed encoding.
package kernel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var uname = unix.Uname

// Version represents a parsed kernel version
type Version struct {
	Major int
	Minor int
	Patch int
	Raw   string // Original version string, empty when unpacked from a version code
}

// Unpack decodes a version code packed as major<<16 | minor<<8 | patch.
// Each component is a single byte; the top byte of packed is ignored.
func Unpack(packed uint32) Version {
	return Version{
		Major: int((packed >> 16) & 0xff),
		Minor: int((packed >> 8) & 0xff),
		Patch: int(packed & 0xff),
	}
}

// Pack encodes v as a version code. Components above 255 are truncated to their low byte.
func (v Version) Pack() uint32 {
	return uint32(v.Major&0xff)<<16 | uint32(v.Minor&0xff)<<8 | uint32(v.Patch&0xff)
}

// GetCurrentVersion returns the running kernel version. It reads
// sys/kernel/osrelease below procPath (default /proc) and falls back to uname(2).
func GetCurrentVersion(procPath ...string) (*Version, error) {
	root := "/proc"
	switch len(procPath) {
	case 0:
	case 1:
		root = procPath[0]
	default:
		return nil, fmt.Errorf("expected at most one proc path, got %d", len(procPath))
	}

	data, err := os.ReadFile(filepath.Join(root, "sys", "kernel", "osrelease"))
	if err == nil {
		return ParseVersion(strings.TrimSpace(string(data)))
	}

	var uts unix.Utsname
	if unameErr := uname(&uts); unameErr != nil {
		return nil, fmt.Errorf("failed to read kernel release: %w", errors.Join(err, unameErr))
	}
	return ParseVersion(unix.ByteSliceToString(uts.Release[:]))
}

// ParseVersion parses a kernel version string (e.g., "5.15.0-generic" or "5.15.0")
func ParseVersion(version string) (*Version, error) {
	v := &Version{Raw: version}

	// Remove any suffix (e.g., "-generic")
	if idx := strings.Index(version, "-"); idx != -1 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid kernel version format: %s", version)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %s", parts[0])
	}
	v.Major = major

	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid minor version: %s", parts[1])
	}
	v.Minor = minor

	// Patch might carry extra info ("0rc1"); keep the leading digits
	if len(parts) >= 3 {
		v.Patch = leadingInt(parts[2])
	}

	return v, nil
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// IsAtLeast returns true if v >= major.minor.patch
func (v *Version) IsAtLeast(major, minor, patch int) bool {
	return v.Compare(&Version{Major: major, Minor: minor, Patch: patch}) >= 0
}

// String returns the version as a string
func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1 if v < other, 0 if v == other, 1 if v > other
func (v *Version) Compare(other *Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Patch - other.Patch)
	}
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}
