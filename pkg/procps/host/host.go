// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package host owns the process-wide default procps.Session.
//
// The statistics libraries keep global state, so one Session per process serializes
// every access. The source behind it is libprocps when built with the libprocps tag
// and the pure Go procfs reader otherwise.
package host

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/procps"
)

var (
	once    sync.Once
	session *procps.Session
	logger  = logr.Discard()
	mu      sync.Mutex
)

// SetLogger sets the logger used by the default session. It only has an effect before
// the first call to Session.
func SetLogger(l logr.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Session returns the default session, creating it on first use.
func Session() *procps.Session {
	once.Do(func() {
		mu.Lock()
		l := logger
		mu.Unlock()
		session = procps.NewSession(newSource(l), l)
	})
	return session
}

// Backend names the source compiled into the default session.
func Backend() string {
	return backend
}
