// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux && cgo && libprocps

package host

import (
	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/libprocps"
)

const backend = "libprocps"

func newSource(logger logr.Logger) procps.Source {
	return libprocps.New(logger)
}
