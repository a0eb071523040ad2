// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build integration && linux && cgo && libprocps

package libprocps_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/libprocps"
	"github.com/antimetal/procstat/pkg/procps/procfs"
	"github.com/antimetal/procstat/pkg/testutil"
)

// Both sources read the same kernel interfaces and should agree on slow-moving values.
func TestAgreesWithProcfs(t *testing.T) {
	testutil.RequireLinuxFilesystem(t)

	native := libprocps.New(logr.Discard())
	pure, err := procfs.New(logr.Discard(), procfs.DefaultConfig())
	require.NoError(t, err)

	native.Meminfo()
	pure.Meminfo()
	assert.Equal(t, native.MemCounters().MainTotal, pure.MemCounters().MainTotal)
	assert.Equal(t, native.MemCounters().SwapTotal, pure.MemCounters().SwapTotal)

	assert.Equal(t, native.LinuxVersion(), pure.LinuxVersion())
	assert.InDelta(t, float64(native.Btime()), float64(pure.Btime()), 1)
	assert.Equal(t, native.CPUInfo().PageBytes, pure.CPUInfo().PageBytes)
	assert.Equal(t, native.User(0), pure.User(0))
}

func TestDiskstatsAdoption(t *testing.T) {
	testutil.RequireLinuxFilesystem(t)

	src := libprocps.New(logr.Discard())
	disks, partitions, n := src.Diskstats()
	pn := src.PartitionCount(disks, n)

	records, err := disks.Adopt(int(n))
	require.NoError(t, err)
	parts, err := partitions.Adopt(int(pn))
	require.NoError(t, err)

	for i := range records {
		_, err := procps.DecodeName("disk_name", i, records[i].DiskName[:])
		assert.NoError(t, err)
	}
	for _, p := range parts {
		assert.Less(t, int(p.ParentDisk), len(records))
	}

	_, err = disks.Adopt(int(n))
	assert.ErrorIs(t, err, procps.ErrAlreadyAdopted)
}
