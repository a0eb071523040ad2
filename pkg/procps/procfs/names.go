// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// User returns the login name for uid. Results, including misses, are cached for the
// life of the source.
func (s *Source) User(uid uint32) string {
	if name, ok := s.users[uid]; ok {
		return name
	}
	name := s.lookupID(filepath.Join(s.config.EtcPath, "passwd"), uid)
	s.users[uid] = name
	return name
}

// Group returns the group name for gid, cached like User.
func (s *Source) Group(gid uint32) string {
	if name, ok := s.groups[gid]; ok {
		return name
	}
	name := s.lookupID(filepath.Join(s.config.EtcPath, "group"), gid)
	s.groups[gid] = name
	return name
}

// lookupID scans a passwd(5) or group(5) style file for the entry whose third field is
// id and returns its first field.
func (s *Source) lookupID(path string, id uint32) string {
	file, err := os.Open(path)
	if err != nil {
		s.logger.V(2).Info("Name database unavailable", "path", path, "error", err)
		return ""
	}
	defer file.Close()

	want := strconv.FormatUint(uint64(id), 10)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.SplitN(line, ":", 4)
		if len(fields) < 3 || fields[2] != want {
			continue
		}
		return fields[0]
	}
	return ""
}

// Wchan returns the kernel function pid is sleeping in, with the leading '.' of
// function descriptors and one sys_, do_ or run of '_' prefixes removed. A running
// process, a missing process or a kernel hiding the symbol all yield "".
func (s *Source) Wchan(pid int32) string {
	if pid <= 0 {
		return ""
	}

	data, err := os.ReadFile(s.procFile(strconv.Itoa(int(pid)), "wchan"))
	if err != nil {
		s.logger.V(2).Info("Failed to read wchan", "pid", pid, "error", err)
		return ""
	}
	return normalizeWchan(strings.TrimSpace(string(data)))
}

func normalizeWchan(sym string) string {
	if sym == "" || sym == "0" {
		return ""
	}

	sym = strings.TrimPrefix(sym, ".")
	switch {
	case strings.HasPrefix(sym, "sys_"):
		sym = sym[len("sys_"):]
	case strings.HasPrefix(sym, "do_"):
		sym = sym[len("do_"):]
	case strings.HasPrefix(sym, "_"):
		sym = strings.TrimLeft(sym, "_")
	}
	return sym
}
