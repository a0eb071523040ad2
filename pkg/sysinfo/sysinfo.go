// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package sysinfo exposes typed snapshots of system statistics: memory, load, kernel
// version, uptime, boot time, disk and partition counters, the aggregate stat counters
// and the CPU configuration.
//
// Every call holds the session for its whole duration, so concurrent callers never
// observe each other's partially written counters.
package sysinfo

import (
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/kernel"
	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/host"
)

// Reader produces snapshots from a session.
type Reader struct {
	session *procps.Session
	logger  logr.Logger
}

// NewReader returns a Reader using session.
func NewReader(session *procps.Session, logger logr.Logger) *Reader {
	return &Reader{session: session, logger: logger.WithName("sysinfo")}
}

func defaultReader() *Reader {
	s := host.Session()
	return NewReader(s, s.Logger())
}

// GetMemInfo refreshes and returns the memory counters.
func GetMemInfo() MemInfo { return defaultReader().GetMemInfo() }

// GetLoadAvg returns the load averages.
func GetLoadAvg() LoadAvg { return defaultReader().GetLoadAvg() }

// GetKernelInfo returns the running kernel version.
func GetKernelInfo() KernelVersion { return defaultReader().GetKernelInfo() }

// GetUptime returns the time since boot.
func GetUptime() Uptime { return defaultReader().GetUptime() }

// GetBootTime returns the boot time in seconds since the epoch.
func GetBootTime() uint64 { return defaultReader().GetBootTime() }

// GetDiskStat returns the disk and partition tables.
func GetDiskStat() (DiskStat, error) { return defaultReader().GetDiskStat() }

// GetStat returns the aggregate kernel counters.
func GetStat() Stat { return defaultReader().GetStat() }

// GetCPUInfo returns the processor configuration.
func GetCPUInfo() CPUInfo { return defaultReader().GetCPUInfo() }

// GetMemInfo refreshes the counter block and copies it out under the same lock.
func (r *Reader) GetMemInfo() MemInfo {
	var m procps.MemCounters
	r.session.Do(func(src procps.Source) {
		src.Meminfo()
		m = src.MemCounters()
	})
	return MemInfo{
		Total:     m.MainTotal,
		Used:      m.MainUsed,
		Free:      m.MainFree,
		Shared:    m.MainShared,
		Buffers:   m.MainBuffers,
		Cached:    m.MainCached,
		Available: m.MainAvailable,
		SwapTotal: m.SwapTotal,
		SwapUsed:  m.SwapUsed,
		SwapFree:  m.SwapFree,
	}
}

func (r *Reader) GetLoadAvg() LoadAvg {
	var l LoadAvg
	r.session.Do(func(src procps.Source) {
		src.Loadavg(&l.Av1, &l.Av5, &l.Av15)
	})
	return l
}

func (r *Reader) GetKernelInfo() KernelVersion {
	var code uint32
	r.session.Do(func(src procps.Source) {
		code = src.LinuxVersion()
	})
	v := kernel.Unpack(code)
	return KernelVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

// GetUptime returns the seconds since boot. Idle is reported as the active time rather
// than the cumulative idle time; callers that relied on that value keep getting it.
func (r *Reader) GetUptime() Uptime {
	var active, idle float64
	r.session.Do(func(src procps.Source) {
		src.Uptime(&active, &idle)
	})
	r.logger.V(2).Info("Uptime idle reported as active time", "active", active, "idle", idle)

	d := secondsToDuration(active)
	return Uptime{Active: d, Idle: d}
}

func (r *Reader) GetBootTime() uint64 {
	var btime uint64
	r.session.Do(func(src procps.Source) {
		btime = src.Btime()
	})
	return btime
}

// GetDiskStat adopts exactly as many records as the source reports and decodes their
// names. Both tables are released whatever the outcome.
func (r *Reader) GetDiskStat() (DiskStat, error) {
	var (
		stat DiskStat
		err  error
	)
	r.session.Do(func(src procps.Source) {
		stat, err = r.diskStat(src)
	})
	if err != nil {
		r.logger.Error(err, "Failed to read disk statistics")
		return DiskStat{}, err
	}
	r.logger.V(1).Info("Collected disk statistics", "disks", len(stat.Disks), "partitions", len(stat.Partitions))
	return stat, nil
}

func (r *Reader) diskStat(src procps.Source) (DiskStat, error) {
	diskAlloc, partAlloc, n := src.Diskstats()
	defer diskAlloc.Release()
	defer partAlloc.Release()

	if n < 0 {
		return DiskStat{}, fmt.Errorf("negative disk count %d", n)
	}
	pn := src.PartitionCount(diskAlloc, n)
	if pn < 0 {
		return DiskStat{}, fmt.Errorf("negative partition count %d", pn)
	}

	diskRecords, err := diskAlloc.Adopt(int(n))
	if err != nil {
		return DiskStat{}, fmt.Errorf("adopting %d disk records: %w", n, err)
	}
	partRecords, err := partAlloc.Adopt(int(pn))
	if err != nil {
		return DiskStat{}, fmt.Errorf("adopting %d partition records: %w", pn, err)
	}

	stat := DiskStat{
		Disks:      make([]Disk, len(diskRecords)),
		Partitions: make([]Partition, len(partRecords)),
	}
	for i := range diskRecords {
		name, err := procps.DecodeName("disk_name", i, diskRecords[i].DiskName[:])
		if err != nil {
			return DiskStat{}, err
		}
		stat.Disks[i] = newDisk(name, &diskRecords[i])
	}
	for i := range partRecords {
		name, err := procps.DecodeName("partition_name", i, partRecords[i].PartitionName[:])
		if err != nil {
			return DiskStat{}, err
		}
		stat.Partitions[i] = newPartition(name, &partRecords[i])
	}
	return stat, nil
}

// GetStat passes two-slot scratch for every counter and decodes what the source
// filled in.
func (r *Reader) GetStat() Stat {
	var (
		pairs   [14][2]uint64
		scalars [4]uint64
	)
	out := procps.StatOut{
		User:            procps.NewPair(&pairs[0]),
		Nice:            procps.NewPair(&pairs[1]),
		System:          procps.NewPair(&pairs[2]),
		Idle:            procps.NewPair(&pairs[3]),
		IOWait:          procps.NewPair(&pairs[4]),
		IRQ:             procps.NewPair(&pairs[5]),
		SoftIRQ:         procps.NewPair(&pairs[6]),
		Steal:           procps.NewPair(&pairs[7]),
		PageIn:          procps.NewPair(&pairs[8]),
		PageOut:         procps.NewPair(&pairs[9]),
		SwapIn:          procps.NewPair(&pairs[10]),
		SwapOut:         procps.NewPair(&pairs[11]),
		Interrupts:      procps.NewPair(&pairs[12]),
		ContextSwitches: procps.NewPair(&pairs[13]),
		Running:         &scalars[0],
		Blocked:         &scalars[1],
		Btime:           &scalars[2],
		Processes:       &scalars[3],
	}

	var stat Stat
	r.session.Do(func(src procps.Source) {
		src.Stat(&out)
		stat = Stat{
			CPU: CPU{
				User:    procps.DecodePair(out.User),
				Nice:    procps.DecodePair(out.Nice),
				System:  procps.DecodePair(out.System),
				Idle:    procps.DecodePair(out.Idle),
				IOWait:  procps.DecodePair(out.IOWait),
				IRQ:     procps.DecodePair(out.IRQ),
				SoftIRQ: procps.DecodePair(out.SoftIRQ),
				Steal:   procps.DecodePair(out.Steal),
			},
			Page: Page{
				In:  procps.DecodePair(out.PageIn),
				Out: procps.DecodePair(out.PageOut),
			},
			Swap: Swap{
				In:  procps.DecodePair(out.SwapIn),
				Out: procps.DecodePair(out.SwapOut),
			},
			Interrupts:       procps.DecodePair(out.Interrupts),
			ContextSwitches:  procps.DecodePair(out.ContextSwitches),
			Btime:            procps.DecodeScalar(out.Btime),
			Processes:        procps.DecodeScalar(out.Processes),
			RunningProcesses: procps.DecodeScalar(out.Running),
			BlockedProcesses: procps.DecodeScalar(out.Blocked),
		}
	})
	return stat
}

func (r *Reader) GetCPUInfo() CPUInfo {
	var c procps.CPUCounters
	r.session.Do(func(src procps.Source) {
		c = src.CPUInfo()
	})
	return CPUInfo{Hertz: c.Hertz, CPUs: c.NumCPUs, PageBytes: c.PageBytes}
}

func secondsToDuration(secs float64) time.Duration {
	if secs <= 0 || math.IsNaN(secs) {
		return 0
	}
	if secs >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs * float64(time.Second))
}
