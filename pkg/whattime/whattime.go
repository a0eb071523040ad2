// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package whattime formats the uptime line printed by uptime(1).
package whattime

import (
	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/host"
)

// UptimeString returns the uptime line from the default session. The machine form is
// " 14:25:12 up 8 days,  4:32,  2 users,  load average: 0.52, 0.47, 0.45"; with
// humanReadable it is the narrative "up 1 week, 1 day, 4 hours, 32 minutes".
func UptimeString(humanReadable bool) string {
	return UptimeStringIn(host.Session(), humanReadable)
}

// UptimeStringIn formats the uptime line using session.
func UptimeStringIn(session *procps.Session, humanReadable bool) string {
	var line string
	session.Do(func(src procps.Source) {
		line = src.SprintUptime(humanReadable)
	})
	return line
}
