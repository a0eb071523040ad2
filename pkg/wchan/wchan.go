// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package wchan reports the kernel function a process is blocked in.
package wchan

import (
	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/host"
)

// Lookup returns the wait channel of pid from the default session. It is empty for a
// running process, a process that does not exist, or when the kernel hides symbols.
func Lookup(pid int32) string {
	return LookupIn(host.Session(), pid)
}

// LookupIn returns the wait channel of pid using session.
func LookupIn(session *procps.Session, pid int32) string {
	var sym string
	session.Do(func(src procps.Source) {
		sym = src.Wchan(pid)
	})
	return sym
}
