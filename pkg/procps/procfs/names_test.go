// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAndGroup(t *testing.T) {
	f := newFixture(t)
	f.write("etc/passwd", `# comment
root:x:0:0:root:/root:/bin/bash
daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin
alice:x:1000:1000:Alice,,,:/home/alice:/bin/zsh
`)
	f.write("etc/group", "root:x:0:\nwheel:x:10:alice\nalice:x:1000:\n")
	s := f.source()

	assert.Equal(t, "root", s.User(0))
	assert.Equal(t, "alice", s.User(1000))
	assert.Equal(t, "", s.User(4242))
	assert.Equal(t, "wheel", s.Group(10))
	assert.Equal(t, "", s.Group(99))

	// Entries, misses included, stay cached for the life of the source
	f.write("etc/passwd", "bob:x:1000:1000::/home/bob:/bin/sh\nnew:x:4242:4242::/:/bin/sh\n")
	assert.Equal(t, "alice", s.User(1000))
	assert.Equal(t, "", s.User(4242))
	assert.Equal(t, "root", s.User(0))

	// Uncached ids still consult the current database
	f.write("etc/passwd", "carol:x:1:1::/:/bin/sh\n")
	assert.Equal(t, "carol", s.User(1))
}

func TestUserWithoutDatabase(t *testing.T) {
	s := newFixture(t).source()
	assert.Equal(t, "", s.User(0))
	assert.Equal(t, "", s.Group(0))
	assert.Len(t, s.users, 1)
}

func TestWchan(t *testing.T) {
	f := newFixture(t)
	f.write("proc/100/wchan", "do_select")
	f.write("proc/200/wchan", "0")
	f.write("proc/300/wchan", "")
	s := f.source()

	assert.Equal(t, "select", s.Wchan(100))
	assert.Equal(t, "", s.Wchan(200))
	assert.Equal(t, "", s.Wchan(300))
	assert.Equal(t, "", s.Wchan(404), "missing process")
	assert.Equal(t, "", s.Wchan(0))
	assert.Equal(t, "", s.Wchan(-1))
}

func TestNormalizeWchan(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ep_poll", "ep_poll"},
		{"do_wait", "wait"},
		{"sys_pause", "pause"},
		{"__skb_wait_for_more_packets", "skb_wait_for_more_packets"},
		{".sys_nanosleep", "nanosleep"},
		{"do_sys_poll", "sys_poll"},
		{"0", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeWchan(tt.in))
		})
	}
}
