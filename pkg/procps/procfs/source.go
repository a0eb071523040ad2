// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package procfs implements procps.Source in Go on top of the /proc filesystem.
//
// It keeps the same process-wide state the procps library keeps: a memory counter
// block that Meminfo refreshes in place and user and group name caches that grow for
// the life of the process. Read failures never surface as errors; they are logged and
// leave the previous values behind.
package procfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/cpu"
	"github.com/antimetal/procstat/pkg/kernel"
	"github.com/antimetal/procstat/pkg/proc"
	"github.com/antimetal/procstat/pkg/procps"
)

// Compile-time interface check
var _ procps.Source = (*Source)(nil)

// Source reads statistics from a proc root. It is not safe for concurrent use.
type Source struct {
	config Config
	logger logr.Logger
	now    func() time.Time

	mem procps.MemCounters

	versionCode  uint32
	versionKnown bool

	users  map[uint32]string
	groups map[uint32]string
}

// New returns a source reading from the paths in config.
func New(logger logr.Logger, config Config) (*Source, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Source{
		config: config,
		logger: logger.WithName("procfs"),
		now:    time.Now,
		users:  make(map[uint32]string),
		groups: make(map[uint32]string),
	}, nil
}

func (s *Source) procFile(name ...string) string {
	return filepath.Join(append([]string{s.config.ProcPath}, name...)...)
}

// Meminfo refreshes the memory counter block from /proc/meminfo.
//
// cached includes reclaimable slab, used is total minus free, cached and buffers
// (total minus free when that goes negative) and available falls back to free on
// kernels without MemAvailable.
func (s *Source) Meminfo() {
	path := s.procFile("meminfo")
	values, err := readKeyValues(path, ":")
	if err != nil {
		s.logger.Error(err, "Failed to refresh memory counters", "path", path)
		return
	}

	kb := func(key string) uint64 {
		return values[key]
	}

	m := procps.MemCounters{
		MainTotal:   kb("MemTotal"),
		MainFree:    kb("MemFree"),
		MainBuffers: kb("Buffers"),
		MainCached:  kb("Cached") + kb("SReclaimable"),
		SwapTotal:   kb("SwapTotal"),
		SwapFree:    kb("SwapFree"),
	}

	if shmem, ok := values["Shmem"]; ok {
		m.MainShared = shmem
	} else {
		m.MainShared = kb("MemShared")
	}

	if avail, ok := values["MemAvailable"]; ok {
		m.MainAvailable = min(avail, m.MainTotal)
	} else {
		m.MainAvailable = m.MainFree
	}

	used := int64(m.MainTotal) - int64(m.MainFree) - int64(m.MainCached) - int64(m.MainBuffers)
	if used < 0 {
		used = int64(m.MainTotal) - int64(m.MainFree)
	}
	m.MainUsed = uint64(max(used, 0))

	if m.SwapTotal >= m.SwapFree {
		m.SwapUsed = m.SwapTotal - m.SwapFree
	}

	s.mem = m
	s.logger.V(1).Info("Refreshed memory counters", "total", m.MainTotal, "free", m.MainFree)
}

// MemCounters returns the counter block as last refreshed.
func (s *Source) MemCounters() procps.MemCounters {
	return s.mem
}

// Loadavg reads the three load averages from /proc/loadavg.
// Format: 0.00 0.01 0.05 1/234 5678
func (s *Source) Loadavg(av1, av5, av15 *float64) {
	path := s.procFile("loadavg")
	fields, err := readFields(path)
	if err == nil && len(fields) < 3 {
		err = fmt.Errorf("expected 3 load averages in %s, got %d", path, len(fields))
	}
	if err != nil {
		s.logger.Error(err, "Failed to read load averages", "path", path)
		return
	}

	for i, dst := range []*float64{av1, av5, av15} {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			s.logger.V(2).Info("Failed to parse load average", "value", fields[i], "error", err)
			continue
		}
		*dst = v
	}
}

// LinuxVersion returns the packed version of the running kernel. The version is
// determined once per source.
func (s *Source) LinuxVersion() uint32 {
	if s.versionKnown {
		return s.versionCode
	}

	v, err := kernel.GetCurrentVersion(s.config.ProcPath)
	if err != nil {
		s.logger.Error(err, "Failed to determine kernel version")
		return 0
	}
	s.versionCode = v.Pack()
	s.versionKnown = true
	return s.versionCode
}

// Uptime reads seconds since boot and cumulative idle seconds from /proc/uptime.
func (s *Source) Uptime(uptime, idle *float64) {
	path := s.procFile("uptime")
	fields, err := readFields(path)
	if err == nil && len(fields) < 2 {
		err = fmt.Errorf("expected 2 fields in %s, got %d", path, len(fields))
	}
	if err != nil {
		s.logger.Error(err, "Failed to read uptime", "path", path)
		return
	}

	if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
		*uptime = v
	}
	if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
		*idle = v
	}
}

// Btime returns the boot time recorded in /proc/stat.
func (s *Source) Btime() uint64 {
	bt, err := proc.BootTime(s.config.ProcPath)
	if err != nil {
		s.logger.Error(err, "Failed to read boot time")
		return 0
	}
	return uint64(bt.Unix())
}

// CPUInfo returns the tick rate, the number of online CPUs and the page size. The CPU
// count comes from sysfs, or from the cpuN lines of /proc/stat when sysfs is missing.
func (s *Source) CPUInfo() procps.CPUCounters {
	var c procps.CPUCounters

	if hz, err := proc.UserHZ(s.config.ProcPath); err == nil {
		c.Hertz = uint64(hz)
	}
	if ps, err := proc.PageSize(s.config.ProcPath); err == nil {
		c.PageBytes = ps
	}

	n, err := cpu.OnlineCount(s.config.SysPath)
	if err == nil {
		c.NumCPUs = int64(n)
		return c
	}
	s.logger.V(2).Info("Online CPU list unavailable", "error", err)

	path := s.procFile("stat")
	file, err := os.Open(path)
	if err != nil {
		s.logger.Error(err, "Failed to count CPUs", "path", path)
		return c
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name, _, _ := strings.Cut(scanner.Text(), " ")
		if len(name) > 3 && strings.HasPrefix(name, "cpu") {
			if _, err := strconv.Atoi(name[3:]); err == nil {
				c.NumCPUs++
			}
		}
	}
	return c
}

// readFields returns the whitespace separated fields of a single-line file.
func readFields(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.Fields(string(data)), nil
}

// readKeyValues parses "Key<sep> value [unit]" lines into a map. Lines whose value
// does not parse are skipped.
func readKeyValues(path, sep string) (map[string]uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]uint64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		var key, rest string
		if sep == "" {
			key, rest, _ = strings.Cut(line, " ")
		} else {
			var found bool
			if key, rest, found = strings.Cut(line, sep); !found {
				continue
			}
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		values[strings.TrimSpace(key)] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return values, nil
}
