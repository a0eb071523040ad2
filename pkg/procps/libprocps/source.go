// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux && cgo && libprocps

// Package libprocps implements procps.Source on top of the system libprocps.
//
// The library keeps its counters in process-wide globals and caches, so a Source
// must only be used through a procps.Session. Build with -tags libprocps and the
// libprocps development headers installed.
package libprocps

// #cgo LDFLAGS: -lprocps
//
// #include <stdlib.h>
// #include <proc/sysinfo.h>
// #include <proc/version.h>
// #include <proc/pwcache.h>
// #include <proc/wchan.h>
// #include <proc/whattime.h>
import "C"

import (
	"strconv"
	"unsafe"

	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/kernel"
	"github.com/antimetal/procstat/pkg/procps"
)

// The Go records must have exactly the size of the C structs they are copied from.
// Either array length goes negative and fails to compile when they drift apart.
var (
	_ [unsafe.Sizeof(procps.DiskRecord{}) - uintptr(C.sizeof_struct_disk_stat)]byte
	_ [uintptr(C.sizeof_struct_disk_stat) - unsafe.Sizeof(procps.DiskRecord{})]byte
	_ [unsafe.Sizeof(procps.PartitionRecord{}) - uintptr(C.sizeof_struct_partition_stat)]byte
	_ [uintptr(C.sizeof_struct_partition_stat) - unsafe.Sizeof(procps.PartitionRecord{})]byte
)

// Kernel releases that split the cpu line into more columns.
var (
	iowaitSince = kernel.Version{Major: 2, Minor: 5, Patch: 41}
	irqSince    = kernel.Version{Major: 2, Minor: 6, Patch: 0}
	stealSince  = kernel.Version{Major: 2, Minor: 6, Patch: 11}
)

var _ procps.Source = (*Source)(nil)

// Source is the libprocps backed procps.Source.
type Source struct {
	logger logr.Logger
}

// New returns a Source. There is only one set of library globals per process, so
// every Source shares them.
func New(logger logr.Logger) *Source {
	return &Source{logger: logger.WithName("libprocps")}
}

func (s *Source) Meminfo() {
	C.meminfo()
}

func (s *Source) MemCounters() procps.MemCounters {
	return procps.MemCounters{
		MainTotal:     uint64(C.kb_main_total),
		MainUsed:      uint64(C.kb_main_used),
		MainFree:      uint64(C.kb_main_free),
		MainShared:    uint64(C.kb_main_shared),
		MainBuffers:   uint64(C.kb_main_buffers),
		MainCached:    uint64(C.kb_main_cached),
		MainAvailable: uint64(C.kb_main_available),
		SwapTotal:     uint64(C.kb_swap_total),
		SwapUsed:      uint64(C.kb_swap_used),
		SwapFree:      uint64(C.kb_swap_free),
	}
}

func (s *Source) Loadavg(av1, av5, av15 *float64) {
	var a1, a5, a15 C.double
	C.loadavg(&a1, &a5, &a15)
	*av1, *av5, *av15 = float64(a1), float64(a5), float64(a15)
}

func (s *Source) LinuxVersion() uint32 {
	return uint32(C.procps_linux_version())
}

func (s *Source) Uptime(uptime, idle *float64) {
	var up, id C.double
	C.uptime(&up, &id)
	*uptime, *idle = float64(up), float64(id)
}

func (s *Source) Btime() uint64 {
	return uint64(C.getbtime())
}

// Diskstats hands out the arrays allocated by getdiskstat. The library does not
// report the partition table length, only getpartitions_num can derive it.
func (s *Source) Diskstats() (*procps.Allocation[procps.DiskRecord], *procps.Allocation[procps.PartitionRecord], int32) {
	var disks *C.struct_disk_stat
	var partitions *C.struct_partition_stat
	n := C.getdiskstat(&disks, &partitions)

	diskAlloc := procps.NewAllocation(
		(*procps.DiskRecord)(unsafe.Pointer(disks)),
		int(n),
		func() { C.free(unsafe.Pointer(disks)) },
	)
	partAlloc := procps.NewAllocation(
		(*procps.PartitionRecord)(unsafe.Pointer(partitions)),
		-1,
		func() { C.free(unsafe.Pointer(partitions)) },
	)
	return diskAlloc, partAlloc, int32(n)
}

func (s *Source) PartitionCount(disks *procps.Allocation[procps.DiskRecord], n int32) int32 {
	view, err := disks.Borrow(int(n))
	if err != nil {
		s.logger.Error(err, "Cannot count partitions")
		return 0
	}
	if len(view) == 0 {
		return 0
	}
	return int32(C.getpartitions_num((*C.struct_disk_stat)(unsafe.Pointer(&view[0])), C.int(n)))
}

// Stat calls getstat with C-owned scratch and copies the results into slot 0 of each
// pair. Slot 1 is never filled: libprocps folds the vmstat fallback into the page and
// swap outputs itself. CPU columns the running kernel does not have are nulled.
func (s *Source) Stat(out *procps.StatOut) {
	var (
		user, nice, system, idle, iowait, irq, softirq, steal C.jiff
		pin, pout, sin, sout                                  C.ulong
		intr, ctxt, running, blocked, btime, processes        C.uint
	)
	C.getstat(&user, &nice, &system, &idle, &iowait, &irq, &softirq, &steal,
		&pin, &pout, &sin, &sout,
		&intr, &ctxt, &running, &blocked, &btime, &processes)

	v := kernel.Unpack(s.LinuxVersion())
	put := func(p *procps.Pair[uint64], value uint64, supported bool) {
		p[1] = nil
		if !supported || p[0] == nil {
			p[0] = nil
			return
		}
		*p[0] = value
	}

	put(&out.User, uint64(user), true)
	put(&out.Nice, uint64(nice), true)
	put(&out.System, uint64(system), true)
	put(&out.Idle, uint64(idle), true)
	put(&out.IOWait, uint64(iowait), v.Compare(&iowaitSince) >= 0)
	put(&out.IRQ, uint64(irq), v.Compare(&irqSince) >= 0)
	put(&out.SoftIRQ, uint64(softirq), v.Compare(&irqSince) >= 0)
	put(&out.Steal, uint64(steal), v.Compare(&stealSince) >= 0)

	put(&out.PageIn, uint64(pin), true)
	put(&out.PageOut, uint64(pout), true)
	put(&out.SwapIn, uint64(sin), true)
	put(&out.SwapOut, uint64(sout), true)
	put(&out.Interrupts, uint64(intr), true)
	put(&out.ContextSwitches, uint64(ctxt), true)

	scalar := func(p *uint64, value C.uint) {
		if p != nil {
			*p = uint64(value)
		}
	}
	scalar(out.Running, running)
	scalar(out.Blocked, blocked)
	scalar(out.Btime, btime)
	scalar(out.Processes, processes)
}

func (s *Source) CPUInfo() procps.CPUCounters {
	C.cpuinfo()
	return procps.CPUCounters{
		Hertz:     uint64(C.Hertz),
		NumCPUs:   int64(C.smp_num_cpus),
		PageBytes: int64(C.page_bytes),
	}
}

// User resolves uid through the library name cache. The library answers a miss with
// the decimal id; that is reported as no name.
func (s *Source) User(uid uint32) string {
	return nameOrEmpty(C.GoString(C.pwcache_get_user(C.uid_t(uid))), uid)
}

// Group resolves gid like User.
func (s *Source) Group(gid uint32) string {
	return nameOrEmpty(C.GoString(C.pwcache_get_group(C.gid_t(gid))), gid)
}

func nameOrEmpty(name string, id uint32) string {
	if name == strconv.FormatUint(uint64(id), 10) {
		return ""
	}
	return name
}

func (s *Source) Wchan(pid int32) string {
	if pid <= 0 {
		return ""
	}
	switch sym := C.GoString(C.lookup_wchan(C.int(pid))); sym {
	case "", "0", "-", "*":
		return ""
	default:
		return sym
	}
}

func (s *Source) SprintUptime(humanReadable bool) string {
	var flag C.int
	if humanReadable {
		flag = 1
	}
	return C.GoString(C.sprint_uptime(flag))
}
