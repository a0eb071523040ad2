// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package proc reads the handful of host constants the statistics sources need from a
// proc root: the boot time, the USER_HZ tick rate and the page size.
//
// Each function takes an optional proc root, /proc by default, so a containerized
// process can point it at the host's proc mount:
//
//	bt, err := proc.BootTime("/host/proc")
//
// Values read from the default root are read once and cached for the life of the
// process.
package proc
