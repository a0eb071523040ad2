// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs

import (
	"context"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/common"
	"github.com/shirou/gopsutil/v3/host"
)

// countUsers returns the number of login sessions with a user name recorded in
// <runPath>/utmp.
//
// gopsutil looks for the file at HOST_VAR/run/utmp, so the parent of runPath is
// handed over as HOST_VAR.
func countUsers(ctx context.Context, runPath string) (int, error) {
	ctx = context.WithValue(ctx, common.EnvKey, common.EnvMap{
		common.HostVarEnvKey: filepath.Dir(runPath),
	})

	sessions, err := host.UsersWithContext(ctx)
	if err != nil {
		return 0, err
	}

	users := 0
	for _, u := range sessions {
		if u.User != "" {
			users++
		}
	}
	return users, nil
}
