// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a handle based backend driven by the test. Batches sent on
// events are dispatched on the Serve goroutine, like the inotify adapter.
type fakeBackend struct {
	mut     sync.Mutex
	next    Handle
	handles map[string]Handle
	fail    map[string]error
	added   []string
	openErr error
	opened  bool
	closes  int

	events  chan []RawEvent
	serving chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		next:    1,
		handles: make(map[string]Handle),
		fail:    make(map[string]error),
		events:  make(chan []RawEvent),
		serving: make(chan struct{}),
	}
}

func (*fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(string) error {
	b.mut.Lock()
	defer b.mut.Unlock()
	if b.openErr != nil {
		return b.openErr
	}
	b.opened = true
	return nil
}

// AddWatch hands out one handle per existing directory, like the kernel
// does per inode.
func (b *fakeBackend) AddWatch(path string) (Handle, error) {
	b.mut.Lock()
	defer b.mut.Unlock()
	if err, ok := b.fail[path]; ok {
		return NoHandle, err
	}
	if _, err := os.Stat(path); err != nil {
		return NoHandle, ErrPathNotFound
	}
	b.added = append(b.added, path)
	if h, ok := b.handles[path]; ok {
		return h, nil
	}
	h := b.next
	b.next++
	b.handles[path] = h
	return h, nil
}

func (b *fakeBackend) Serve(ctx context.Context, fn func([]RawEvent)) error {
	close(b.serving)
	for {
		select {
		case batch := <-b.events:
			fn(batch)
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *fakeBackend) Close() error {
	b.mut.Lock()
	b.closes++
	b.mut.Unlock()
	return nil
}

func (b *fakeBackend) closeCount() int {
	b.mut.Lock()
	defer b.mut.Unlock()
	return b.closes
}

func (b *fakeBackend) addCount(path string) int {
	b.mut.Lock()
	defer b.mut.Unlock()
	n := 0
	for _, p := range b.added {
		if p == path {
			n++
		}
	}
	return n
}

// recursiveBackend delivers full paths from a goroutine of its own and has
// no registrations, like the observer adapter.
type recursiveBackend struct {
	events chan RawEvent
	closes int
}

func (*recursiveBackend) Name() string { return "recursive" }

func (*recursiveBackend) Open(string) error { return nil }

func (b *recursiveBackend) Close() error {
	b.closes++
	return nil
}

func (b *recursiveBackend) Serve(ctx context.Context, fn func([]RawEvent)) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-b.events:
				fn([]RawEvent{ev})
			case <-ctx.Done():
				return
			}
		}
	}()
	<-ctx.Done()
	wg.Wait()
	return nil
}

type recordingSink struct {
	mut     sync.Mutex
	records []Record
	emitted chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{emitted: make(chan struct{}, 100)}
}

func (s *recordingSink) Emit(r Record) {
	s.mut.Lock()
	s.records = append(s.records, r)
	s.mut.Unlock()
	s.emitted <- struct{}{}
}

func (s *recordingSink) Records() []Record {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]Record(nil), s.records...)
}

func (s *recordingSink) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.emitted:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for record %d of %d", i+1, n)
		}
	}
}
