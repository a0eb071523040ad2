// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build integration

package whattime_test

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/procstat/pkg/testutil"
	"github.com/antimetal/procstat/pkg/whattime"
)

func TestUptimeStringMatchesUptimeCommand(t *testing.T) {
	testutil.RequireLinuxFilesystem(t)
	testutil.RequireCommand(t, "uptime")

	out, err := exec.Command("uptime", "-p").Output()
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(out)), whattime.UptimeString(true))

	line := whattime.UptimeString(false)
	assert.Contains(t, line, " up ")
	assert.Contains(t, line, "load average: ")
}
