// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !(linux && cgo && libprocps)

package host

import (
	"github.com/go-logr/logr"

	"github.com/antimetal/procstat/pkg/procps"
	"github.com/antimetal/procstat/pkg/procps/procfs"
)

const backend = "procfs"

func newSource(logger logr.Logger) procps.Source {
	src, err := procfs.New(logger, procfs.ConfigFromEnvironment())
	if err != nil {
		// Host paths from the environment were unusable
		logger.Error(err, "Falling back to the default host paths")
		src, _ = procfs.New(logger, procfs.DefaultConfig())
	}
	return src
}
