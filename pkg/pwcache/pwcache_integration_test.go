// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build integration

package pwcache_test

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/procstat/pkg/pwcache"
	"github.com/antimetal/procstat/pkg/testutil"
)

func TestGetUserMatchesNSS(t *testing.T) {
	testutil.RequireLinux(t)

	current, err := user.Current()
	require.NoError(t, err)
	uid, err := strconv.ParseUint(current.Uid, 10, 32)
	require.NoError(t, err)

	assert.Equal(t, current.Username, pwcache.GetUser(uint32(uid)))
	assert.Equal(t, "root", pwcache.GetUser(0))
	assert.Equal(t, "root", pwcache.GetGroup(0))
}
