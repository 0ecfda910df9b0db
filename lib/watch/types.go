// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package watch maintains the set of watched directories for a tree and
// turns raw backend notifications into event records.
//
// Two kinds of backend are supported. Handle based backends (inotify)
// implement Watcher: every directory is registered individually and events
// refer to the registration handle, so the package keeps a Registry and
// extends it as directories appear. Recursive backends deliver full paths
// and cover new subdirectories on their own.
package watch

import (
	"context"
	"path/filepath"
	"time"
)

// Handle identifies a single registration with a handle based backend.
// The kernel may hand out a released handle again.
type Handle int32

// NoHandle is carried by raw events that are not tied to a registration,
// such as queue overflows and events from recursive backends.
const NoHandle Handle = -1

// RawEvent is a notification as delivered by a backend.
type RawEvent struct {
	Handle Handle
	// Path is set by recursive backends and is the full path of the entry.
	Path  string
	Flags Flags
	// Name is the child entry name for events scoped to a watched directory.
	Name string
}

// Record is the normalized form of an event handed to a Sink.
type Record struct {
	Time        time.Time
	Description string
	Path        string
	Name        string
}

// FullPath returns the path the record refers to, including the child
// name when present.
func (r Record) FullPath() string {
	if r.Name == "" {
		return r.Path
	}
	return filepath.Join(r.Path, r.Name)
}

// Sink accepts event records. Emit is never called concurrently by the
// dispatcher.
type Sink interface {
	Emit(Record)
}

// Backend is an event source. Open acquires the backend resources, Serve
// delivers batches of raw events to fn until ctx is cancelled and Close
// releases everything Open acquired. Serve may call fn from a goroutine of
// its own but must not return before the last call has completed.
type Backend interface {
	Name() string
	Open(root string) error
	Serve(ctx context.Context, fn func([]RawEvent)) error
	Close() error
}

// Watcher is implemented by handle based backends that need every
// directory registered individually.
type Watcher interface {
	AddWatch(path string) (Handle, error)
}
