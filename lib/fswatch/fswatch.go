// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fswatch is a portable backend on top of fsnotify. fsnotify only
// watches single directories, so the backend adds every directory below
// the root itself and follows new ones as their creation is seen. Events
// carry full paths.
package fswatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hidra-tools/getevents/lib/watch"
)

// Name is the backend name used for selection and in diagnostics.
const Name = "fsnotify"

// Events are buffered by fsnotify between reads.
var bufferSize uint = 500

type Backend struct {
	w         *fsnotify.Watcher
	dirs      map[string]struct{}
	closeOnce sync.Once
}

var _ watch.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{dirs: make(map[string]struct{})}
}

func (*Backend) Name() string {
	return Name
}

// Open adds a watch for root and every directory below it.
func (b *Backend) Open(root string) error {
	w, err := fsnotify.NewBufferedWatcher(bufferSize)
	if err != nil {
		return err
	}
	b.w = w

	dirs, err := watch.InitialScan(root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := b.add(dir); err != nil {
			if dir == root {
				return err
			}
			l.Warnln("Not watching directory:", err)
		}
	}
	l.Debugf("Watching %d directories below %s", len(b.dirs), root)
	return nil
}

func (b *Backend) add(dir string) error {
	if _, ok := b.dirs[dir]; ok {
		return nil
	}
	if err := b.w.Add(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("watch %s: %w: %w", dir, watch.ErrPathNotFound, err)
		}
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	b.dirs[dir] = struct{}{}
	return nil
}

// Serve reads events until ctx is cancelled. fn is called from the
// calling goroutine.
func (b *Backend) Serve(ctx context.Context, fn func([]watch.RawEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-b.w.Events:
			if !ok {
				return nil
			}
			raw := convert(ev)
			fn([]watch.RawEvent{raw})
			if raw.Flags.IsDirCreate() {
				b.follow(ev.Name)
			}
			if raw.Flags.Has(watch.Deleted) || raw.Flags.Has(watch.MovedFrom) {
				delete(b.dirs, ev.Name)
			}

		case err, ok := <-b.w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				fn([]watch.RawEvent{{Handle: watch.NoHandle, Flags: watch.QueueOverflow}})
				continue
			}
			l.Warnln("fsnotify:", err)
		}
	}
}

// follow adds a newly created directory and whatever was created inside
// it before the watch was in place.
func (b *Backend) follow(dir string) {
	dirs, err := watch.InitialScan(dir)
	if err != nil {
		l.Debugln("Not following new directory:", err)
		return
	}
	for _, d := range dirs {
		if err := b.add(d); err != nil {
			l.Warnln("Not watching new directory:", err)
		}
	}
}

func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.w != nil {
			err = b.w.Close()
		}
	})
	return err
}

func convert(ev fsnotify.Event) watch.RawEvent {
	raw := watch.RawEvent{Handle: watch.NoHandle, Path: ev.Name}
	if ev.Has(fsnotify.Create) {
		raw.Flags |= watch.Created
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			raw.Flags |= watch.IsDir
		}
	}
	if ev.Has(fsnotify.Write) {
		raw.Flags |= watch.Modified
	}
	if ev.Has(fsnotify.Remove) {
		raw.Flags |= watch.Deleted
	}
	if ev.Has(fsnotify.Rename) {
		raw.Flags |= watch.MovedFrom
	}
	if ev.Has(fsnotify.Chmod) {
		raw.Flags |= watch.Attrib
	}
	return raw
}
