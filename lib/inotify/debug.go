// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package inotify is the kernel queue backend: one inotify descriptor,
// one watch per directory, events pulled by blocking reads.
package inotify

import (
	"github.com/hidra-tools/getevents/lib/logger"
)

// Name is the backend name used for selection and in diagnostics.
const Name = "inotify"

var (
	l = logger.DefaultLogger.NewFacility("inotify", "Kernel queue backend")
)
