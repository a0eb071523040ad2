// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIsShared(t *testing.T) {
	s1 := Session()
	require.NotNil(t, s1)
	assert.Same(t, s1, Session())
}

func TestBackend(t *testing.T) {
	assert.Contains(t, []string{"procfs", "libprocps"}, Backend())
}
