// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package observer is the recursive backend. The notify library watches
// the whole tree, follows new directories by itself and pushes events with
// full paths from its own goroutine.
package observer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/syncthing/notify"

	"github.com/hidra-tools/getevents/lib/watch"
)

// Name is the backend name used for selection and in diagnostics.
const Name = "watchdog"

// Notify does not block on sending to channel, so the channel must be buffered.
// Not meant to be changed, but must be changeable for tests
var backendBuffer = 500

type Observer struct {
	ch       chan notify.EventInfo
	stopOnce sync.Once
}

var _ watch.Backend = (*Observer)(nil)

func New() *Observer {
	return &Observer{}
}

func (*Observer) Name() string {
	return Name
}

// Open starts the recursive watch on root. Events are buffered until
// Serve is called.
func (o *Observer) Open(root string) error {
	ch := make(chan notify.EventInfo, backendBuffer)
	if err := notify.Watch(filepath.Join(root, "..."), ch, eventMask); err != nil {
		notify.Stop(ch)
		if reachedMaxUserWatches(err) {
			return fmt.Errorf("%w: %w", watch.ErrWatchLimitExceeded, err)
		}
		return err
	}
	o.ch = ch
	l.Debugf("Watching %s recursively", root)
	return nil
}

// Serve hands every event to fn from a delivery goroutine until ctx is
// cancelled, then stops the watch and waits for the goroutine to exit.
func (o *Observer) Serve(ctx context.Context, fn func([]watch.RawEvent)) error {
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.deliver(quit, fn)
	}()

	<-ctx.Done()
	o.stop()
	close(quit)
	wg.Wait()
	l.Debugln("Observer delivery stopped")
	return nil
}

func (o *Observer) deliver(quit <-chan struct{}, fn func([]watch.RawEvent)) {
	full := false
	for {
		// A full channel means notify has been dropping events.
		if len(o.ch) == cap(o.ch) {
			if !full {
				full = true
				fn([]watch.RawEvent{{Handle: watch.NoHandle, Flags: watch.QueueOverflow}})
			}
		} else {
			full = false
		}

		select {
		case ev := <-o.ch:
			fn([]watch.RawEvent{convert(ev)})
		case <-quit:
			return
		}
	}
}

func (o *Observer) stop() {
	o.stopOnce.Do(func() {
		if o.ch != nil {
			notify.Stop(o.ch)
		}
	})
}

// Close stops the watch if Serve has not done so already.
func (o *Observer) Close() error {
	o.stop()
	return nil
}

// genericFlags translates the platform independent notify events. Renames
// carry no direction.
func genericFlags(e notify.Event) watch.Flags {
	var f watch.Flags
	if e&notify.Create != 0 {
		f |= watch.Created
	}
	if e&notify.Remove != 0 {
		f |= watch.Deleted
	}
	if e&notify.Write != 0 {
		f |= watch.Modified
	}
	if e&notify.Rename != 0 {
		f |= watch.MovedFrom
	}
	return f
}
