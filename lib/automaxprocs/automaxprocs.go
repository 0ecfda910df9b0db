// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package automaxprocs fits GOMAXPROCS to the container CPU quota.
package automaxprocs

import (
	"go.uber.org/automaxprocs/maxprocs"
)

// Adjust sets GOMAXPROCS from the CPU quota unless the GOMAXPROCS
// environment variable is set, reporting what it did through logf. The
// returned function restores the previous value.
func Adjust(logf func(string, ...interface{})) (func(), error) {
	return maxprocs.Set(maxprocs.Logger(logf))
}
