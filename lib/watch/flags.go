// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"strings"
)

// Flags is the set of event types carried by a raw event. The bit values
// are those of the Linux inotify ABI so that the kernel queue adapter can
// pass masks through unchanged; other backends translate into them.
type Flags uint32

const (
	Accessed      Flags = 0x00000001 // IN_ACCESS
	Modified      Flags = 0x00000002 // IN_MODIFY
	Attrib        Flags = 0x00000004 // IN_ATTRIB
	ClosedWrite   Flags = 0x00000008 // IN_CLOSE_WRITE
	ClosedNoWrite Flags = 0x00000010 // IN_CLOSE_NOWRITE
	Opened        Flags = 0x00000020 // IN_OPEN
	MovedFrom     Flags = 0x00000040 // IN_MOVED_FROM
	MovedTo       Flags = 0x00000080 // IN_MOVED_TO
	Created       Flags = 0x00000100 // IN_CREATE
	Deleted       Flags = 0x00000200 // IN_DELETE
	DeletedSelf   Flags = 0x00000400 // IN_DELETE_SELF
	MovedSelf     Flags = 0x00000800 // IN_MOVE_SELF
	Unmounted     Flags = 0x00002000 // IN_UNMOUNT
	QueueOverflow Flags = 0x00004000 // IN_Q_OVERFLOW
	Ignored       Flags = 0x00008000 // IN_IGNORED
	IsDir         Flags = 0x40000000 // IN_ISDIR
	AllEvents     Flags = 0x00000fff // IN_ALL_EVENTS
)

const descriptionSep = "|"

var flagNames = []struct {
	flag Flags
	name string
}{
	{Accessed, "IN_ACCESS"},
	{Modified, "IN_MODIFY"},
	{Attrib, "IN_ATTRIB"},
	{ClosedWrite, "IN_CLOSE_WRITE"},
	{ClosedNoWrite, "IN_CLOSE_NOWRITE"},
	{Opened, "IN_OPEN"},
	{MovedFrom, "IN_MOVED_FROM"},
	{MovedTo, "IN_MOVED_TO"},
	{Created, "IN_CREATE"},
	{Deleted, "IN_DELETE"},
	{DeletedSelf, "IN_DELETE_SELF"},
	{MovedSelf, "IN_MOVE_SELF"},
	{Unmounted, "IN_UNMOUNT"},
	{QueueOverflow, "IN_Q_OVERFLOW"},
	{Ignored, "IN_IGNORED"},
	{IsDir, "IN_ISDIR"},
}

// Has reports whether every flag in other is set.
func (f Flags) Has(other Flags) bool {
	return other != 0 && f&other == other
}

// Names returns the names of the set flags in ascending bit order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// String returns the event description, the flag names joined by "|".
func (f Flags) String() string {
	return strings.Join(f.Names(), descriptionSep)
}

// IsDirCreate reports whether the flags describe a directory being created
// inside a watched directory.
func (f Flags) IsDirCreate() bool {
	return f.Has(Created | IsDir)
}
