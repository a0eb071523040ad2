// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package procps describes the raw statistics source the typed accessors are built on
// and holds the marshalling layer that turns its output into owned Go values.
//
// A Source follows the calling conventions of the procps system statistics library:
// results come back through output parameters, disk tables come back as library
// allocated arrays that must be adopted exactly once, and counters the running kernel
// does not provide are signalled by null slots rather than by an error.
//
// Sources keep process-wide mutable state (the memory counter block, the user and group
// name caches) and are not safe for concurrent use. Every call into a Source must go
// through a Session, which serializes whole accessor invocations.
package procps

// NameLen is the size of the embedded name buffer of disk and partition records.
const NameLen = 35

// MemCounters is the process-wide memory counter block refreshed by Source.Meminfo.
// All values are in kilobytes.
type MemCounters struct {
	MainTotal     uint64
	MainUsed      uint64
	MainFree      uint64
	MainShared    uint64
	MainBuffers   uint64
	MainCached    uint64
	MainAvailable uint64
	SwapTotal     uint64
	SwapUsed      uint64
	SwapFree      uint64
}

// CPUCounters is the block refreshed by Source.CPUInfo.
type CPUCounters struct {
	Hertz     uint64
	NumCPUs   int64
	PageBytes int64
}

// DiskRecord mirrors struct disk_stat.
type DiskRecord struct {
	ReadsSectors         uint64
	WrittenSectors       uint64
	DiskName             [NameLen]byte
	InprogressIO         uint32
	MergedReads          uint32
	MergedWrites         uint32
	MilliReading         uint32
	MilliSpentIO         uint32
	MilliWriting         uint32
	Partitions           uint32
	Reads                uint32
	WeightedMilliSpentIO uint32
	Writes               uint32
}

// PartitionRecord mirrors struct partition_stat. ParentDisk is an index into the disk
// table returned by the same Diskstats call.
type PartitionRecord struct {
	PartitionName   [NameLen]byte
	ReadsSectors    uint64
	ParentDisk      uint32
	Reads           uint32
	Writes          uint32
	RequestedWrites uint64
}

// Pair is a two-slot output buffer for a counter that historically lived in one of two
// places. A Source fills whichever slots its layout provides and sets the others to nil.
type Pair[T Counter] [2]*T

// Counter is the set of integer types a Pair can carry.
type Counter interface {
	~uint32 | ~uint64
}

// StatOut holds the eighteen output locations of Source.Stat.
type StatOut struct {
	User    Pair[uint64]
	Nice    Pair[uint64]
	System  Pair[uint64]
	Idle    Pair[uint64]
	IOWait  Pair[uint64] // not separated out until 2.5.41
	IRQ     Pair[uint64] // not separated out until 2.6.0-test4
	SoftIRQ Pair[uint64] // not separated out until 2.6.0-test4
	Steal   Pair[uint64] // not separated out until 2.6.11

	PageIn  Pair[uint64]
	PageOut Pair[uint64]
	SwapIn  Pair[uint64]
	SwapOut Pair[uint64]

	Interrupts      Pair[uint64]
	ContextSwitches Pair[uint64]

	Running   *uint64
	Blocked   *uint64
	Btime     *uint64
	Processes *uint64
}

// Source is the raw statistics source. Its methods are direct, infallible calls: a
// source that cannot read the kernel interfaces leaves zero or stale values behind.
type Source interface {
	// Meminfo refreshes the memory counter block.
	Meminfo()
	// MemCounters returns the memory counter block as last refreshed.
	MemCounters() MemCounters
	// Loadavg stores the 1, 5 and 15 minute load averages.
	Loadavg(av1, av5, av15 *float64)
	// LinuxVersion returns the running kernel version packed as major<<16|minor<<8|patch.
	LinuxVersion() uint32
	// Uptime stores the seconds since boot and the cumulative idle seconds.
	Uptime(uptime, idle *float64)
	// Btime returns the boot time in seconds since the epoch.
	Btime() uint64
	// Diskstats allocates the disk and partition tables and returns them with the disk
	// count. Ownership of both tables passes to the caller.
	Diskstats() (disks *Allocation[DiskRecord], partitions *Allocation[PartitionRecord], n int32)
	// PartitionCount returns the number of partitions belonging to the first n disks.
	PartitionCount(disks *Allocation[DiskRecord], n int32) int32
	// Stat fills the aggregate counters. Slots the running kernel lacks are set to nil.
	Stat(out *StatOut)
	// CPUInfo refreshes and returns the CPU counter block.
	CPUInfo() CPUCounters
	// User resolves a user id through the process-wide name cache.
	User(uid uint32) string
	// Group resolves a group id through the process-wide name cache.
	Group(gid uint32) string
	// Wchan returns the kernel symbol pid is blocked in, or an empty string.
	Wchan(pid int32) string
	// SprintUptime formats the uptime line, narrative when humanReadable is set.
	SprintUptime(humanReadable bool) string
}
