// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs

import (
	"context"
	"fmt"
	"strings"
)

// SprintUptime formats the uptime line.
//
// Machine form, as printed by uptime(1):
//
//	" 14:25:12 up 8 days,  4:32,  2 users,  load average: 0.52, 0.47, 0.45"
//
// Narrative form, as printed by uptime -p:
//
//	"up 1 week, 1 day, 4 hours, 32 minutes"
func (s *Source) SprintUptime(humanReadable bool) string {
	var upSecs, idleSecs float64
	s.Uptime(&upSecs, &idleSecs)

	if humanReadable {
		return formatUptimeHuman(int(upSecs))
	}

	users, err := countUsers(context.Background(), s.config.RunPath)
	if err != nil {
		s.logger.V(2).Info("Failed to count logged in users", "runPath", s.config.RunPath, "error", err)
	}

	var av1, av5, av15 float64
	s.Loadavg(&av1, &av5, &av15)

	now := s.now()
	return formatUptimeMachine(now.Hour(), now.Minute(), now.Second(), int(upSecs), users, [3]float64{av1, av5, av15})
}

func formatUptimeMachine(hour, minute, second, upSecs, users int, load [3]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, " %02d:%02d:%02d up ", hour, minute, second)

	if days := upSecs / (60 * 60 * 24); days > 0 {
		fmt.Fprintf(&b, "%d %s, ", days, plural(days, "day", "days"))
	}

	upMinutes := upSecs / 60
	upHours := (upMinutes / 60) % 24
	upMinutes %= 60
	if upHours > 0 {
		fmt.Fprintf(&b, "%2d:%02d, ", upHours, upMinutes)
	} else {
		fmt.Fprintf(&b, "%d min, ", upMinutes)
	}

	fmt.Fprintf(&b, "%2d %s, ", users, plural(users, "user", "users"))
	fmt.Fprintf(&b, " load average: %.2f, %.2f, %.2f", load[0], load[1], load[2])
	return b.String()
}

func formatUptimeHuman(upSecs int) string {
	units := []struct {
		n           int
		one, plural string
	}{
		{upSecs / (60 * 60 * 24 * 365 * 10), "decade", "decades"},
		{(upSecs / (60 * 60 * 24 * 365)) % 10, "year", "years"},
		{(upSecs / (60 * 60 * 24 * 7)) % 52, "week", "weeks"},
		{(upSecs / (60 * 60 * 24)) % 7, "day", "days"},
		{(upSecs / (60 * 60)) % 24, "hour", "hours"},
	}

	parts := make([]string, 0, len(units)+1)
	for _, u := range units {
		if u.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", u.n, pluralGT1(u.n, u.one, u.plural)))
		}
	}
	if minutes := (upSecs / 60) % 60; minutes > 0 || upSecs < 60 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, pluralGT1(minutes, "minute", "minutes")))
	}
	return "up " + strings.Join(parts, ", ")
}

// plural picks the singular form only for exactly one, as uptime does for days and users.
func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// pluralGT1 picks the plural form only above one, so zero minutes reads "0 minute".
func pluralGT1(n int, one, many string) string {
	if n > 1 {
		return many
	}
	return one
}
