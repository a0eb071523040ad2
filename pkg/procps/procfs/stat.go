// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/antimetal/procstat/pkg/procps"
)

// cpuFields are the columns of the aggregate cpu line in /proc/stat, in order.
// Older kernels stop early: iowait arrived in 2.5.41, irq and softirq in 2.6.0-test4,
// steal in 2.6.11.
var cpuFields = []string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal"}

// Stat fills the aggregate counters.
//
// Slot 0 of each pair carries the /proc/stat layout: the cpu line, the page and swap
// lines of 2.4 kernels, intr and ctxt. Slot 1 carries the /proc/vmstat layout used for
// paging and swapping since 2.6. Slots whose counter was not found are set to nil.
func (s *Source) Stat(out *procps.StatOut) {
	statLayout := make(map[string]uint64)
	vmstatLayout := make(map[string]uint64)
	scalars := make(map[string]uint64)

	if err := s.readStat(statLayout, scalars); err != nil {
		s.logger.Error(err, "Failed to read kernel statistics")
	}

	vmstatPath := s.procFile("vmstat")
	if values, err := readKeyValues(vmstatPath, ""); err != nil {
		s.logger.V(2).Info("No vmstat counters", "path", vmstatPath, "error", err)
	} else {
		for _, key := range []string{"pgpgin", "pgpgout", "pswpin", "pswpout"} {
			if v, ok := values[key]; ok {
				vmstatLayout[key] = v
			}
		}
	}

	pairs := []struct {
		key  string
		pair *procps.Pair[uint64]
	}{
		{"user", &out.User},
		{"nice", &out.Nice},
		{"system", &out.System},
		{"idle", &out.Idle},
		{"iowait", &out.IOWait},
		{"irq", &out.IRQ},
		{"softirq", &out.SoftIRQ},
		{"steal", &out.Steal},
		{"pgpgin", &out.PageIn},
		{"pgpgout", &out.PageOut},
		{"pswpin", &out.SwapIn},
		{"pswpout", &out.SwapOut},
		{"intr", &out.Interrupts},
		{"ctxt", &out.ContextSwitches},
	}
	for _, p := range pairs {
		setSlot(&p.pair[0], statLayout, p.key)
		setSlot(&p.pair[1], vmstatLayout, p.key)
	}

	setSlot(&out.Running, scalars, "procs_running")
	setSlot(&out.Blocked, scalars, "procs_blocked")
	setSlot(&out.Btime, scalars, "btime")
	setSlot(&out.Processes, scalars, "processes")

	s.logger.V(1).Info("Collected kernel statistics",
		"statCounters", len(statLayout), "vmstatCounters", len(vmstatLayout))
}

// setSlot stores values[key] through *slot, or nils the slot when the key is absent.
func setSlot(slot **uint64, values map[string]uint64, key string) {
	v, ok := values[key]
	if !ok || *slot == nil {
		*slot = nil
		return
	}
	**slot = v
}

// readStat parses /proc/stat.
//
// Relevant lines:
//
//	cpu  user nice system idle [iowait [irq softirq [steal ...]]]
//	page pgpgin pgpgout        (2.4 only)
//	swap pswpin pswpout        (2.4 only)
//	intr total individual...
//	ctxt total
//	btime seconds
//	processes total
//	procs_running n
//	procs_blocked n
func (s *Source) readStat(layout, scalars map[string]uint64) error {
	file, err := os.Open(s.procFile("stat"))
	if err != nil {
		return err
	}
	defer file.Close()

	parse := func(field string) (uint64, bool) {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			s.logger.V(2).Info("Failed to parse stat value", "value", field, "error", err)
			return 0, false
		}
		return v, true
	}

	// intr lines list every interrupt source and can be long
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		switch parts[0] {
		case "cpu":
			for i, name := range cpuFields {
				if i+1 >= len(parts) {
					break
				}
				if v, ok := parse(parts[i+1]); ok {
					layout[name] = v
				}
			}
		case "page", "swap":
			if len(parts) < 3 {
				continue
			}
			in, out := "pgpgin", "pgpgout"
			if parts[0] == "swap" {
				in, out = "pswpin", "pswpout"
			}
			if v, ok := parse(parts[1]); ok {
				layout[in] = v
			}
			if v, ok := parse(parts[2]); ok {
				layout[out] = v
			}
		case "intr", "ctxt":
			if v, ok := parse(parts[1]); ok {
				layout[parts[0]] = v
			}
		case "btime", "processes", "procs_running", "procs_blocked":
			if v, ok := parse(parts[1]); ok {
				scalars[parts[0]] = v
			}
		}
	}
	return scanner.Err()
}
