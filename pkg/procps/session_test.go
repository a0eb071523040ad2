// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procps_test

import (
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/procpstest"
)

func TestSessionDo(t *testing.T) {
	fake := &procpstest.Fake{Boot: 1700000000}
	s := procps.NewSession(fake, logr.Discard())

	var boot uint64
	s.Do(func(src procps.Source) {
		boot = src.Btime()
	})
	assert.Equal(t, uint64(1700000000), boot)
	assert.Equal(t, 1, fake.Calls["Btime"])
}

func TestSessionSerializesCallers(t *testing.T) {
	fake := &procpstest.Fake{}
	s := procps.NewSession(fake, logr.Discard())

	const workers = 16
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func(src procps.Source) {
				// Guarded by the session only.
				inside++
				maxSeen = max(maxSeen, inside)
				src.Meminfo()
				inside--
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, workers, fake.Calls["Meminfo"])
}
