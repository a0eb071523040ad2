// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package proc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultProcPath = "/proc"

	// Fallbacks when the auxiliary vector cannot be read
	defaultUserHZ   = 100
	defaultPageSize = 4096

	// Auxiliary vector keys, see getauxval(3)
	atPageSize = 6
	atClockTck = 17
)

var (
	bootTimeOnce sync.Once
	bootTime     time.Time
	bootTimeErr  error

	auxvOnce sync.Once
	auxv     map[uint64]uint64
	auxvErr  error
)

func procRoot(procPath []string) (string, bool, error) {
	switch len(procPath) {
	case 0:
		return defaultProcPath, true, nil
	case 1:
		return procPath[0], procPath[0] == defaultProcPath, nil
	default:
		return "", false, fmt.Errorf("expected at most one proc path, got %d", len(procPath))
	}
}

// BootTime returns the system boot time from the btime line of /proc/stat.
// The result for the default path is read once and cached.
func BootTime(procPath ...string) (time.Time, error) {
	root, isDefault, err := procRoot(procPath)
	if err != nil {
		return time.Time{}, err
	}
	if !isDefault {
		return readBootTime(root)
	}
	bootTimeOnce.Do(func() {
		bootTime, bootTimeErr = readBootTime(root)
	})
	return bootTime, bootTimeErr
}

func readBootTime(root string) (time.Time, error) {
	path := filepath.Join(root, "stat")
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || fields[0] != "btime" {
			continue
		}
		secs, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse btime %q: %w", fields[1], err)
		}
		return time.Unix(secs, 0), nil
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("error reading %s: %w", path, err)
	}
	return time.Time{}, fmt.Errorf("btime not found in %s", path)
}

// UserHZ returns the kernel clock tick rate (USER_HZ) used by /proc tick counters.
// It falls back to 100 when the auxiliary vector is unavailable.
func UserHZ(procPath ...string) (int64, error) {
	return auxValue(atClockTck, defaultUserHZ, procPath)
}

// PageSize returns the system page size in bytes.
// It falls back to 4096 when the auxiliary vector is unavailable.
func PageSize(procPath ...string) (int64, error) {
	return auxValue(atPageSize, defaultPageSize, procPath)
}

func auxValue(key uint64, fallback int64, procPath []string) (int64, error) {
	root, isDefault, err := procRoot(procPath)
	if err != nil {
		return 0, err
	}

	var vec map[uint64]uint64
	if isDefault {
		auxvOnce.Do(func() {
			auxv, auxvErr = readAuxv(root)
		})
		vec, err = auxv, auxvErr
	} else {
		vec, err = readAuxv(root)
	}
	if err != nil {
		return fallback, nil
	}
	if v, ok := vec[key]; ok && v > 0 {
		return int64(v), nil
	}
	return fallback, nil
}

// readAuxv parses self/auxv, a sequence of native-endian (key, value) words.
func readAuxv(root string) (map[uint64]uint64, error) {
	data, err := os.ReadFile(filepath.Join(root, "self", "auxv"))
	if err != nil {
		return nil, err
	}

	vec := make(map[uint64]uint64)
	switch {
	case strconv.IntSize == 64 && len(data)%16 == 0:
		for i := 0; i+16 <= len(data); i += 16 {
			k := binary.NativeEndian.Uint64(data[i:])
			if k == 0 {
				break
			}
			vec[k] = binary.NativeEndian.Uint64(data[i+8:])
		}
	case strconv.IntSize == 32 && len(data)%8 == 0:
		for i := 0; i+8 <= len(data); i += 8 {
			k := uint64(binary.NativeEndian.Uint32(data[i:]))
			if k == 0 {
				break
			}
			vec[k] = uint64(binary.NativeEndian.Uint32(data[i+4:]))
		}
	default:
		return nil, fmt.Errorf("unexpected auxv size %d", len(data))
	}
	return vec, nil
}
