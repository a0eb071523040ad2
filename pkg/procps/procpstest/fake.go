// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package procpstest provides an in-memory procps.Source for tests.
package procpstest

import (
	"github.com/antimetal/procstat/pkg/procps"
)

var _ procps.Source = (*Fake)(nil)

// Slot describes what a Fake writes into one slot of a two-slot output buffer.
// A nil Slot nulls the slot.
type Slot *uint64

// Value returns a live slot holding v.
func Value(v uint64) Slot { return &v }

// Stat describes the slots a Fake writes for Source.Stat. Missing map entries null
// both slots of a pair and the scalar.
type Stat struct {
	Pairs   map[string][2]Slot
	Scalars map[string]Slot
}

// Fake is a scripted Source. Counters records how often each method was called.
type Fake struct {
	Mem      procps.MemCounters
	Load     [3]float64
	Version  uint32
	Up, Idle float64
	Boot     uint64
	CPU      procps.CPUCounters

	Disks      []procps.DiskRecord
	Partitions []procps.PartitionRecord
	// DiskCount and PartitionTotal override the counts reported by Diskstats and
	// PartitionCount when non-nil.
	DiskCount      *int32
	PartitionTotal *int32

	StatSlots Stat

	Users   map[uint32]string
	Groups  map[uint32]string
	Wchans  map[int32]string
	Machine string
	Human   string

	Calls map[string]int

	// LastDisks and LastPartitions are the allocations handed out by Diskstats.
	LastDisks      *procps.Allocation[procps.DiskRecord]
	LastPartitions *procps.Allocation[procps.PartitionRecord]
}

func (f *Fake) called(name string) {
	if f.Calls == nil {
		f.Calls = make(map[string]int)
	}
	f.Calls[name]++
}

func (f *Fake) Meminfo() { f.called("Meminfo") }

func (f *Fake) MemCounters() procps.MemCounters {
	f.called("MemCounters")
	return f.Mem
}

func (f *Fake) Loadavg(av1, av5, av15 *float64) {
	f.called("Loadavg")
	*av1, *av5, *av15 = f.Load[0], f.Load[1], f.Load[2]
}

func (f *Fake) LinuxVersion() uint32 {
	f.called("LinuxVersion")
	return f.Version
}

func (f *Fake) Uptime(uptime, idle *float64) {
	f.called("Uptime")
	*uptime, *idle = f.Up, f.Idle
}

func (f *Fake) Btime() uint64 {
	f.called("Btime")
	return f.Boot
}

func (f *Fake) Diskstats() (*procps.Allocation[procps.DiskRecord], *procps.Allocation[procps.PartitionRecord], int32) {
	f.called("Diskstats")
	disks := append([]procps.DiskRecord(nil), f.Disks...)
	partitions := append([]procps.PartitionRecord(nil), f.Partitions...)
	f.LastDisks = procps.AllocationOf(disks)
	f.LastPartitions = procps.AllocationOf(partitions)

	n := int32(len(disks))
	if f.DiskCount != nil {
		n = *f.DiskCount
	}
	return f.LastDisks, f.LastPartitions, n
}

func (f *Fake) PartitionCount(disks *procps.Allocation[procps.DiskRecord], n int32) int32 {
	f.called("PartitionCount")
	if f.PartitionTotal != nil {
		return *f.PartitionTotal
	}
	view, err := disks.Borrow(int(n))
	if err != nil {
		return 0
	}
	var total int32
	for _, d := range view {
		total += int32(d.Partitions)
	}
	return total
}

func (f *Fake) Stat(out *procps.StatOut) {
	f.called("Stat")
	pairs := map[string]*procps.Pair[uint64]{
		"user": &out.User, "nice": &out.Nice, "system": &out.System, "idle": &out.Idle,
		"iowait": &out.IOWait, "irq": &out.IRQ, "softirq": &out.SoftIRQ, "steal": &out.Steal,
		"pgpgin": &out.PageIn, "pgpgout": &out.PageOut, "pswpin": &out.SwapIn, "pswpout": &out.SwapOut,
		"intr": &out.Interrupts, "ctxt": &out.ContextSwitches,
	}
	for name, pair := range pairs {
		slots := f.StatSlots.Pairs[name]
		for i := range pair {
			if slots[i] == nil || pair[i] == nil {
				pair[i] = nil
				continue
			}
			*pair[i] = *slots[i]
		}
	}

	scalars := map[string]**uint64{
		"procs_running": &out.Running, "procs_blocked": &out.Blocked,
		"btime": &out.Btime, "processes": &out.Processes,
	}
	for name, slot := range scalars {
		v := f.StatSlots.Scalars[name]
		if v == nil || *slot == nil {
			*slot = nil
			continue
		}
		**slot = *v
	}
}

func (f *Fake) CPUInfo() procps.CPUCounters {
	f.called("CPUInfo")
	return f.CPU
}

func (f *Fake) User(uid uint32) string {
	f.called("User")
	return f.Users[uid]
}

func (f *Fake) Group(gid uint32) string {
	f.called("Group")
	return f.Groups[gid]
}

func (f *Fake) Wchan(pid int32) string {
	f.called("Wchan")
	return f.Wchans[pid]
}

func (f *Fake) SprintUptime(humanReadable bool) string {
	f.called("SprintUptime")
	if humanReadable {
		return f.Human
	}
	return f.Machine
}

// Disk returns a disk record named name.
func Disk(name string, partitions uint32) procps.DiskRecord {
	var d procps.DiskRecord
	procps.PutString(d.DiskName[:], name)
	d.Partitions = partitions
	return d
}

// Partition returns a partition record named name belonging to disk parent.
func Partition(name string, parent uint32) procps.PartitionRecord {
	var p procps.PartitionRecord
	procps.PutString(p.PartitionName[:], name)
	p.ParentDisk = parent
	return p
}
