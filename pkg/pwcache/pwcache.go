// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package pwcache resolves user and group ids to names through the process-wide name
// cache. Lookups are cached for the life of the process, misses included, and unknown
// ids resolve to the empty string.
package pwcache

import (
	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/host"
)

// Resolver looks names up through a session.
type Resolver struct {
	session *procps.Session
}

// NewResolver returns a Resolver using session.
func NewResolver(session *procps.Session) *Resolver {
	return &Resolver{session: session}
}

// GetUser returns the login name of uid from the default session.
func GetUser(uid uint32) string {
	return NewResolver(host.Session()).GetUser(uid)
}

// GetGroup returns the name of gid from the default session.
func GetGroup(gid uint32) string {
	return NewResolver(host.Session()).GetGroup(gid)
}

func (r *Resolver) GetUser(uid uint32) string {
	var name string
	r.session.Do(func(src procps.Source) {
		name = src.User(uid)
	})
	return name
}

func (r *Resolver) GetGroup(gid uint32) string {
	var name string
	r.session.Do(func(src procps.Source) {
		name = src.Group(gid)
	})
	return name
}
