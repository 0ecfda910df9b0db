// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux
// +build linux

package observer

import (
	"errors"

	"github.com/syncthing/notify"
	"golang.org/x/sys/unix"

	"github.com/hidra-tools/getevents/lib/watch"
)

const eventMask = notify.InModify | notify.InAttrib | notify.InCloseWrite |
	notify.InMovedFrom | notify.InMovedTo | notify.InCreate | notify.InDelete |
	notify.InDeleteSelf | notify.InMoveSelf

// convert keeps the full inotify mask, including IN_ISDIR.
func convert(ei notify.EventInfo) watch.RawEvent {
	ev := watch.RawEvent{Handle: watch.NoHandle, Path: ei.Path()}
	if sys, ok := ei.Sys().(*unix.InotifyEvent); ok && sys != nil {
		ev.Flags = watch.Flags(sys.Mask)
	} else {
		ev.Flags = watch.Flags(ei.Event()) & watch.AllEvents
		if ev.Flags == 0 {
			ev.Flags = genericFlags(ei.Event())
		}
	}
	return ev
}

func reachedMaxUserWatches(err error) bool {
	return errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENOSPC)
}
