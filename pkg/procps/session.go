// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procps

import (
	"sync"

	"github.com/go-logr/logr"
)

// Session is the single serialization point in front of a Source. Accessors run their
// whole invocation, including adoption and decoding, inside Do.
type Session struct {
	mu     sync.Mutex
	src    Source
	logger logr.Logger
}

// NewSession wraps src. The source must not be used outside the session afterwards.
func NewSession(src Source, logger logr.Logger) *Session {
	return &Session{src: src, logger: logger}
}

// Do runs fn with exclusive access to the source.
func (s *Session) Do(fn func(Source)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.src)
}

// Logger returns the session logger.
func (s *Session) Logger() logr.Logger {
	return s.logger
}
