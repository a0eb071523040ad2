// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package cpu reads the kernel's CPU list files.
package cpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseList expands a kernel CPU list such as "0,2-4,7" into CPU ids. An empty list
// yields an empty slice.
func ParseList(list string) ([]int, error) {
	cpus := []int{}
	for _, part := range strings.Split(strings.TrimSpace(list), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || first < 0 {
			return nil, fmt.Errorf("invalid CPU number in %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || last < first {
				return nil, fmt.Errorf("invalid CPU range %q", part)
			}
		}
		for id := first; id <= last; id++ {
			cpus = append(cpus, id)
		}
	}
	return cpus, nil
}

// OnlineCount returns the number of CPUs in <sysPath>/devices/system/cpu/online.
func OnlineCount(sysPath string) (int, error) {
	path := filepath.Join(sysPath, "devices", "system", "cpu", "online")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	cpus, err := ParseList(string(data))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return len(cpus), nil
}
