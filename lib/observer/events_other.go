// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !linux
// +build !linux

package observer

import (
	"errors"
	"syscall"

	"github.com/syncthing/notify"

	"github.com/hidra-tools/getevents/lib/watch"
)

const eventMask = notify.All

func convert(ei notify.EventInfo) watch.RawEvent {
	return watch.RawEvent{
		Handle: watch.NoHandle,
		Path:   ei.Path(),
		Flags:  genericFlags(ei.Event()),
	}
}

func reachedMaxUserWatches(err error) bool {
	return errors.Is(err, syscall.EMFILE)
}
