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

	"github.com/antimetal/procstat/pkg/procps"
)

const (
	// diskstatsFieldCount is the minimum field count of a full /proc/diskstats line
	diskstatsFieldCount = 14

	// legacyPartitionFieldCount is the short partition line of 2.6 kernels before 2.6.25
	legacyPartitionFieldCount = 7
)

// Diskstats parses /proc/diskstats into a disk table and a partition table.
//
// Each partition is attributed to the closest preceding disk, which /proc/diskstats
// guarantees by listing a disk before its partitions. Partitions with no preceding
// disk are dropped.
//
// Reference: https://www.kernel.org/doc/Documentation/iostats.txt
func (s *Source) Diskstats() (*procps.Allocation[procps.DiskRecord], *procps.Allocation[procps.PartitionRecord], int32) {
	path := s.procFile("diskstats")
	file, err := os.Open(path)
	if err != nil {
		s.logger.Error(err, "Failed to read disk statistics", "path", path)
		return procps.AllocationOf[procps.DiskRecord](nil), procps.AllocationOf[procps.PartitionRecord](nil), 0
	}
	defer file.Close()

	var (
		disks      []procps.DiskRecord
		partitions []procps.PartitionRecord
	)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < legacyPartitionFieldCount {
			s.logger.V(2).Info("Skipping short diskstats line", "line", line)
			continue
		}

		values, ok := parseCounters(fields[3:])
		if !ok {
			s.logger.V(2).Info("Failed to parse diskstats line", "line", line)
			continue
		}
		device := fields[2]

		if len(fields) >= diskstatsFieldCount && s.isDisk(device) {
			disks = append(disks, diskRecord(device, values))
			continue
		}

		if len(disks) == 0 {
			s.logger.V(2).Info("Dropping partition without a preceding disk", "device", device)
			continue
		}
		parent := len(disks) - 1
		disks[parent].Partitions++

		p := procps.PartitionRecord{ParentDisk: uint32(parent)}
		procps.PutString(p.PartitionName[:], device)
		if len(fields) >= diskstatsFieldCount {
			p.Reads = uint32(values[0])
			p.ReadsSectors = values[2]
			p.Writes = uint32(values[4])
			p.RequestedWrites = values[6]
		} else {
			p.Reads = uint32(values[0])
			p.ReadsSectors = values[1]
			p.Writes = uint32(values[2])
			p.RequestedWrites = values[3]
		}
		partitions = append(partitions, p)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error(err, "Error reading disk statistics", "path", path)
	}

	s.logger.V(1).Info("Collected disk statistics", "disks", len(disks), "partitions", len(partitions))
	return procps.AllocationOf(disks), procps.AllocationOf(partitions), int32(len(disks))
}

// PartitionCount sums the partition counts of the first n disks.
func (s *Source) PartitionCount(disks *procps.Allocation[procps.DiskRecord], n int32) int32 {
	view, err := disks.Borrow(int(n))
	if err != nil {
		s.logger.Error(err, "Failed to count partitions", "disks", n)
		return 0
	}

	var total int32
	for i := range view {
		total += int32(view[i].Partitions)
	}
	return total
}

func diskRecord(device string, v []uint64) procps.DiskRecord {
	d := procps.DiskRecord{
		Reads:                uint32(v[0]),
		MergedReads:          uint32(v[1]),
		ReadsSectors:         v[2],
		MilliReading:         uint32(v[3]),
		Writes:               uint32(v[4]),
		MergedWrites:         uint32(v[5]),
		WrittenSectors:       v[6],
		MilliWriting:         uint32(v[7]),
		InprogressIO:         uint32(v[8]),
		MilliSpentIO:         uint32(v[9]),
		WeightedMilliSpentIO: uint32(v[10]),
	}
	procps.PutString(d.DiskName[:], device)
	return d
}

func parseCounters(fields []string) ([]uint64, bool) {
	values := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// isDisk reports whether device is a whole disk. sysfs lists every disk under
// /sys/block, with '/' in device names written as '!'. Without a usable sysfs the
// device name decides.
func (s *Source) isDisk(device string) bool {
	block := filepath.Join(s.config.SysPath, "block")
	if _, err := os.Stat(block); err != nil {
		return !isPartition(device)
	}
	_, err := os.Stat(filepath.Join(block, strings.ReplaceAll(device, "/", "!")))
	return err == nil
}

// isPartition checks if a device name represents a partition
//
// Partitions are identified by:
// - Standard devices: end with a digit (e.g., sda1, vdb2)
// - NVMe devices: contain 'pN' suffix (e.g., nvme0n1p1)
// - MMC devices: contain 'pN' suffix (e.g., mmcblk0p1)
//
// Special cases:
// - loop devices (loop0, loop1) are whole devices, not partitions
// - device mapper devices (dm-0, dm-1) are whole devices, not partitions
func isPartition(device string) bool {
	if device == "" {
		return false
	}

	if strings.HasPrefix(device, "loop") || strings.HasPrefix(device, "dm-") ||
		strings.HasPrefix(device, "ram") || strings.HasPrefix(device, "zram") {
		return false
	}

	// NVMe and MMC devices use 'p' before partition number
	if strings.Contains(device, "nvme") || strings.Contains(device, "mmcblk") {
		idx := strings.LastIndex(device, "p")
		if idx > 0 && idx < len(device)-1 {
			for _, ch := range device[idx+1:] {
				if ch < '0' || ch > '9' {
					return false
				}
			}
			return true
		}
		return false
	}

	lastChar := device[len(device)-1]
	return lastChar >= '0' && lastChar <= '9'
}
