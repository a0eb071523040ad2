// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs

import (
	"fmt"
	"path/filepath"

	"github.com/antimetal/procstat/pkg/config/environment"
)

// Config holds the host paths the source reads from.
type Config struct {
	ProcPath string // Path to /proc (useful for containers)
	SysPath  string // Path to /sys, used to tell disks from partitions
	EtcPath  string // Path to /etc, source of passwd and group
	RunPath  string // Path to /run, holds utmp; its parent is passed to gopsutil as HOST_VAR
}

// DefaultConfig returns the standard host paths.
func DefaultConfig() Config {
	return Config{
		ProcPath: "/proc",
		SysPath:  "/sys",
		EtcPath:  "/etc",
		RunPath:  "/run",
	}
}

// ConfigFromEnvironment returns the host paths from HOST_PROC, HOST_SYS, HOST_ETC and HOST_RUN.
func ConfigFromEnvironment() Config {
	paths := environment.GetHostPaths()
	return Config{
		ProcPath: paths.Proc,
		SysPath:  paths.Sys,
		EtcPath:  paths.Etc,
		RunPath:  paths.Run,
	}
}

// ApplyDefaults fills in zero values with defaults
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.ProcPath == "" {
		c.ProcPath = defaults.ProcPath
	}
	if c.SysPath == "" {
		c.SysPath = defaults.SysPath
	}
	if c.EtcPath == "" {
		c.EtcPath = defaults.EtcPath
	}
	if c.RunPath == "" {
		c.RunPath = defaults.RunPath
	}
}

// Validate ensures that all configured paths are absolute.
func (c *Config) Validate() error {
	for _, p := range []struct{ name, path string }{
		{"ProcPath", c.ProcPath},
		{"SysPath", c.SysPath},
		{"EtcPath", c.EtcPath},
		{"RunPath", c.RunPath},
	} {
		if p.path == "" {
			return fmt.Errorf("%s is required but not provided", p.name)
		}
		if !filepath.IsAbs(p.path) {
			return fmt.Errorf("%s must be an absolute path, got: %q", p.name, p.path)
		}
	}
	return nil
}
