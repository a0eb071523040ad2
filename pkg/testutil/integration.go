// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package testutil provides utilities for testing, with a focus on integration test helpers.
package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"testing"

	"github.com/antimetal/procstat/pkg/kernel"
)

// RequireLinux skips the test if not running on Linux.
func RequireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("Test requires Linux")
	}
}

// RequireLinuxFilesystem verifies that essential Linux filesystems are available.
// This checks for /proc and /sys which are required for most system-level operations.
func RequireLinuxFilesystem(t *testing.T) {
	t.Helper()
	RequireLinux(t)

	// Check /proc filesystem
	if _, err := os.Stat("/proc/self"); err != nil {
		t.Skipf("Test requires /proc filesystem: %v", err)
	}

	// Check /sys filesystem
	if _, err := os.Stat("/sys/kernel"); err != nil {
		t.Skipf("Test requires /sys filesystem: %v", err)
	}
}

// RequireKernelVersion checks if the kernel version meets the minimum requirement.
// The test is skipped if the kernel version is lower than required.
func RequireKernelVersion(t *testing.T, major, minor, patch int) {
	t.Helper()
	RequireLinux(t)

	current, err := kernel.GetCurrentVersion()
	if err != nil {
		t.Skipf("Failed to get kernel version: %v", err)
	}

	if !current.IsAtLeast(major, minor, patch) {
		t.Skipf("Test requires kernel %d.%d.%d or higher, current is %s",
			major, minor, patch, current)
	}
}

// RequireCommand skips the test when name is not on PATH. Integration tests use
// procps-ng tools such as free and uptime as oracles.
func RequireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("Test requires %s on PATH: %v", name, err)
	}
}

// RequireRoot checks if the test is running as root.
// Some operations require root privileges.
func RequireRoot(t *testing.T) {
	t.Helper()
	RequireLinux(t)

	if os.Geteuid() != 0 {
		t.Skip("Test requires root privileges")
	}
}
