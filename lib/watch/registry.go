// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"fmt"
	"sort"
)

// Registry associates backend handles with the directories they watch.
// Each handle maps to exactly one path and each path to at most one handle.
// Watches are never removed on the backend; an entry is only dropped once
// the backend itself reports the watch gone.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	watcher  Watcher
	byHandle map[Handle]string
	byPath   map[string]Handle
}

func NewRegistry(watcher Watcher) *Registry {
	return &Registry{
		watcher:  watcher,
		byHandle: make(map[Handle]string),
		byPath:   make(map[string]Handle),
	}
}

// Register starts watching path and records the handle. Registering a path
// that is already watched returns the existing handle.
func (r *Registry) Register(path string) (Handle, error) {
	if h, ok := r.byPath[path]; ok {
		l.Debugf("Registry: %s already watched as %d", path, h)
		return h, nil
	}

	h, err := r.watcher.AddWatch(path)
	if err != nil {
		metricRegistrationsFailed.WithLabelValues(registrationReason(err)).Inc()
		return NoHandle, fmt.Errorf("watch %s: %w", path, err)
	}

	// The kernel returns the same handle for the same inode, so a directory
	// reached under a new name replaces its old entry.
	if old, ok := r.byHandle[h]; ok && old != path {
		l.Debugf("Registry: handle %d moves from %s to %s", h, old, path)
		delete(r.byPath, old)
	}
	r.byHandle[h] = path
	r.byPath[path] = h
	metricRegistrations.Inc()
	metricWatchesActive.Set(float64(len(r.byHandle)))
	l.Debugf("Registry: watching %s as %d (%d active)", path, h, len(r.byHandle))
	return h, nil
}

// Resolve returns the path watched by h.
func (r *Registry) Resolve(h Handle) (string, error) {
	path, ok := r.byHandle[h]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return path, nil
}

// Lookup returns the handle watching path, if any.
func (r *Registry) Lookup(path string) (Handle, bool) {
	h, ok := r.byPath[path]
	return h, ok
}

// Forget drops the entry for a handle the backend has released.
func (r *Registry) Forget(h Handle) {
	path, ok := r.byHandle[h]
	if !ok {
		return
	}
	delete(r.byHandle, h)
	if r.byPath[path] == h {
		delete(r.byPath, path)
	}
	metricWatchesActive.Set(float64(len(r.byHandle)))
	l.Debugf("Registry: released %d for %s (%d active)", h, path, len(r.byHandle))
}

// Len returns the number of active registrations.
func (r *Registry) Len() int {
	return len(r.byHandle)
}

// Paths returns the watched paths in sorted order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.byPath))
	for path := range r.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
