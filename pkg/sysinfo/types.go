// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package sysinfo

import (
	"time"

	"github.com/antimetal/procstat/pkg/procps"
)

// MemInfo is a memory snapshot in kilobytes.
type MemInfo struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Free      uint64 `json:"free"`
	Shared    uint64 `json:"shared"`
	Buffers   uint64 `json:"buffers"`
	Cached    uint64 `json:"cached"`
	Available uint64 `json:"available"`
	SwapTotal uint64 `json:"swap_total"`
	SwapUsed  uint64 `json:"swap_used"`
	SwapFree  uint64 `json:"swap_free"`
}

// LoadAvg holds the 1, 5 and 15 minute load averages.
type LoadAvg struct {
	Av1  float64 `json:"av1"`
	Av5  float64 `json:"av5"`
	Av15 float64 `json:"av15"`
}

// KernelVersion is the running kernel release.
type KernelVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Uptime is the time since boot. Idle carries the same value as Active, see GetUptime.
type Uptime struct {
	Active time.Duration `json:"active"`
	Idle   time.Duration `json:"idle"`
}

// Disk is one whole-disk row of the disk statistics.
type Disk struct {
	Name                 string `json:"name"`
	Reads                uint32 `json:"reads"`
	MergedReads          uint32 `json:"merged_reads"`
	ReadsSectors         uint64 `json:"reads_sectors"`
	MilliReading         uint32 `json:"milli_reading"`
	Writes               uint32 `json:"writes"`
	MergedWrites         uint32 `json:"merged_writes"`
	WrittenSectors       uint64 `json:"written_sectors"`
	MilliWriting         uint32 `json:"milli_writing"`
	InprogressIO         uint32 `json:"inprogress_io"`
	MilliSpentIO         uint32 `json:"milli_spent_io"`
	WeightedMilliSpentIO uint32 `json:"weighted_milli_spent_io"`
	Partitions           uint32 `json:"partitions"`
}

// Partition is one partition row. ParentDiskIndex indexes DiskStat.Disks.
type Partition struct {
	Name            string `json:"name"`
	ParentDiskIndex uint32 `json:"parent_disk_index"`
	Reads           uint32 `json:"reads"`
	ReadsSectors    uint64 `json:"reads_sectors"`
	Writes          uint32 `json:"writes"`
	RequestedWrites uint64 `json:"requested_writes"`
}

// DiskStat is an owned copy of the disk and partition tables.
type DiskStat struct {
	Disks      []Disk      `json:"disks"`
	Partitions []Partition `json:"partitions"`
}

// CPU holds the aggregate cpu counters in clock ticks. Nil means the running kernel
// does not report the counter.
type CPU struct {
	User    *uint64 `json:"user"`
	Nice    *uint64 `json:"nice"`
	System  *uint64 `json:"system"`
	Idle    *uint64 `json:"idle"`
	IOWait  *uint64 `json:"iowait"`
	IRQ     *uint64 `json:"irq"`
	SoftIRQ *uint64 `json:"softirq"`
	Steal   *uint64 `json:"steal"`
}

// Page holds pages paged in and out since boot.
type Page struct {
	In  *uint64 `json:"in"`
	Out *uint64 `json:"out"`
}

// Swap holds pages swapped in and out since boot.
type Swap struct {
	In  *uint64 `json:"in"`
	Out *uint64 `json:"out"`
}

// Stat is the aggregate kernel statistics snapshot.
type Stat struct {
	CPU              CPU     `json:"cpu"`
	Page             Page    `json:"page"`
	Swap             Swap    `json:"swap"`
	Interrupts       *uint64 `json:"interrupts"`
	ContextSwitches  *uint64 `json:"context_switches"`
	Btime            *uint64 `json:"btime"`
	Processes        *uint64 `json:"processes"`
	RunningProcesses *uint64 `json:"running_processes"`
	BlockedProcesses *uint64 `json:"blocked_processes"`
}

// CPUInfo describes the processor configuration.
type CPUInfo struct {
	Hertz     uint64 `json:"hz"`
	CPUs      int64  `json:"cpus"`
	PageBytes int64  `json:"page_bytes"`
}

func newDisk(name string, r *procps.DiskRecord) Disk {
	return Disk{
		Name:                 name,
		Reads:                r.Reads,
		MergedReads:          r.MergedReads,
		ReadsSectors:         r.ReadsSectors,
		MilliReading:         r.MilliReading,
		Writes:               r.Writes,
		MergedWrites:         r.MergedWrites,
		WrittenSectors:       r.WrittenSectors,
		MilliWriting:         r.MilliWriting,
		InprogressIO:         r.InprogressIO,
		MilliSpentIO:         r.MilliSpentIO,
		WeightedMilliSpentIO: r.WeightedMilliSpentIO,
		Partitions:           r.Partitions,
	}
}

func newPartition(name string, r *procps.PartitionRecord) Partition {
	return Partition{
		Name:            name,
		ParentDiskIndex: r.ParentDisk,
		Reads:           r.Reads,
		ReadsSectors:    r.ReadsSectors,
		Writes:          r.Writes,
		RequestedWrites: r.RequestedWrites,
	}
}
