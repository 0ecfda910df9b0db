// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux
// +build linux

package inotify

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hidra-tools/getevents/lib/eventlog"
	"github.com/hidra-tools/getevents/lib/watch"
)

const eventTimeout = 5 * time.Second

func encodeEvent(wd int32, mask uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		// Names are NUL terminated and padded to a multiple of 16.
		nameLen = (len(name)/16 + 1) * 16
	}
	buf := make([]byte, unix.SizeofInotifyEvent+nameLen)
	binary.NativeEndian.PutUint32(buf[0:], uint32(wd))
	binary.NativeEndian.PutUint32(buf[4:], mask)
	binary.NativeEndian.PutUint32(buf[8:], 0)
	binary.NativeEndian.PutUint32(buf[12:], uint32(nameLen))
	copy(buf[unix.SizeofInotifyEvent:], name)
	return buf
}

func TestParseEvents(t *testing.T) {
	var buf []byte
	buf = append(buf, encodeEvent(1, unix.IN_CREATE|unix.IN_ISDIR, "sub")...)
	buf = append(buf, encodeEvent(2, unix.IN_DELETE_SELF, "")...)
	buf = append(buf, encodeEvent(-1, unix.IN_Q_OVERFLOW, "")...)
	buf = append(buf, encodeEvent(1, unix.IN_CLOSE_WRITE, "a_rather_long_file_name.txt")...)

	events, err := parseEvents(buf)
	require.NoError(t, err)
	assert.Equal(t, []watch.RawEvent{
		{Handle: 1, Flags: watch.Created | watch.IsDir, Name: "sub"},
		{Handle: 2, Flags: watch.DeletedSelf},
		{Handle: watch.NoHandle, Flags: watch.QueueOverflow},
		{Handle: 1, Flags: watch.ClosedWrite, Name: "a_rather_long_file_name.txt"},
	}, events)
}

func TestParseEventsShortRead(t *testing.T) {
	buf := encodeEvent(1, unix.IN_CREATE, "file")
	_, err := parseEvents(buf[:len(buf)-4])
	assert.ErrorIs(t, err, errShortRead)
}

func TestParseBatchKeepsCompleteEvents(t *testing.T) {
	buf := encodeEvent(1, unix.IN_CREATE, "first")
	tail := encodeEvent(1, unix.IN_DELETE, "second")
	buf = append(buf, tail[:len(tail)-4]...)

	events := parseBatch(buf)
	assert.Equal(t, []watch.RawEvent{{Handle: 1, Flags: watch.Created, Name: "first"}}, events)
}

func TestFlagValuesMatchKernel(t *testing.T) {
	pairs := map[watch.Flags]uint32{
		watch.Accessed:      unix.IN_ACCESS,
		watch.Modified:      unix.IN_MODIFY,
		watch.Attrib:        unix.IN_ATTRIB,
		watch.ClosedWrite:   unix.IN_CLOSE_WRITE,
		watch.ClosedNoWrite: unix.IN_CLOSE_NOWRITE,
		watch.Opened:        unix.IN_OPEN,
		watch.MovedFrom:     unix.IN_MOVED_FROM,
		watch.MovedTo:       unix.IN_MOVED_TO,
		watch.Created:       unix.IN_CREATE,
		watch.Deleted:       unix.IN_DELETE,
		watch.DeletedSelf:   unix.IN_DELETE_SELF,
		watch.MovedSelf:     unix.IN_MOVE_SELF,
		watch.Unmounted:     unix.IN_UNMOUNT,
		watch.QueueOverflow: unix.IN_Q_OVERFLOW,
		watch.Ignored:       unix.IN_IGNORED,
		watch.IsDir:         unix.IN_ISDIR,
		watch.AllEvents:     unix.IN_ALL_EVENTS,
	}
	for flag, kernel := range pairs {
		assert.Equal(t, kernel, uint32(flag), flag.String())
	}
}

func openQueue(t *testing.T) *Queue {
	t.Helper()
	q := New()
	require.NoError(t, q.Open(""))
	t.Cleanup(func() { q.Close() })
	return q
}

func TestAddWatch(t *testing.T) {
	q := openQueue(t)
	dir := t.TempDir()

	h1, err := q.AddWatch(dir)
	require.NoError(t, err)
	h2, err := q.AddWatch(dir)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "the kernel hands out one watch per inode")

	_, err = q.AddWatch(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, watch.ErrPathNotFound)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestReadEvents(t *testing.T) {
	q := openQueue(t)
	dir := t.TempDir()
	h, err := q.AddWatch(dir)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	events, err := q.ReadEvents()
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, watch.RawEvent{Handle: h, Flags: watch.Created | watch.IsDir, Name: "sub"}, events[0])
}

func TestWakeupInterruptsRead(t *testing.T) {
	q := openQueue(t)
	_, err := q.AddWatch(t.TempDir())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := q.ReadEvents()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Wakeup())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, watch.ErrCancelled)
	case <-time.After(eventTimeout):
		t.Fatal("blocked read was not interrupted")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	q := openQueue(t)
	_, err := q.AddWatch(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Serve(ctx, func([]watch.RawEvent) {}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(eventTimeout):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestCloseTwice(t *testing.T) {
	q := New()
	require.NoError(t, q.Open(""))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	require.NoError(t, q.Wakeup())
}

func TestCloseUnopened(t *testing.T) {
	assert.NoError(t, New().Close())
}

type run struct {
	rec    *eventlog.Recorder
	d      *watch.Dispatcher
	cancel context.CancelFunc
	done   chan error
}

// startRun runs a dispatcher over a real inotify queue and waits until the
// initial watch set is in place.
func startRun(t *testing.T, root string) *run {
	t.Helper()
	r := &run{rec: eventlog.NewRecorder(), done: make(chan error, 1)}
	r.d = watch.NewDispatcher(New(), r.rec)

	var ctx context.Context
	ctx, r.cancel = context.WithCancel(context.Background())
	go func() { r.done <- r.d.Run(ctx, root) }()

	deadline := time.Now().Add(eventTimeout)
	for r.d.State() != watch.StateRunning {
		if time.Now().After(deadline) {
			t.Fatal("dispatcher never started running")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(func() {
		r.cancel()
		select {
		case err := <-r.done:
			if err != nil {
				t.Errorf("dispatcher: %v", err)
			}
		case <-time.After(eventTimeout):
			t.Error("dispatcher did not stop")
		}
	})
	return r
}

func (r *run) waitFor(t *testing.T, description, path string) []watch.Record {
	t.Helper()
	recs, ok := r.rec.WaitFor(func(rec watch.Record) bool {
		return rec.Description == description && rec.FullPath() == path
	}, eventTimeout)
	if !ok {
		t.Fatalf("no %s event for %s; got %v", description, path, recs)
	}
	return recs
}

func TestFileLifecycle(t *testing.T) {
	root := t.TempDir()
	r := startRun(t, root)
	file := filepath.Join(root, "x.txt")

	require.NoError(t, os.WriteFile(file, nil, 0o644))
	r.waitFor(t, "IN_CLOSE_WRITE", file)
	require.NoError(t, os.WriteFile(file, []byte("data"), 0o644))
	r.waitFor(t, "IN_MODIFY", file)
	require.NoError(t, os.Remove(file))
	recs := r.waitFor(t, "IN_DELETE", file)

	var order []string
	for _, rec := range recs {
		if rec.FullPath() != file {
			continue
		}
		switch rec.Description {
		case "IN_CREATE", "IN_MODIFY", "IN_DELETE":
			if len(order) == 0 || order[len(order)-1] != rec.Description {
				order = append(order, rec.Description)
			}
		}
	}
	assert.Equal(t, []string{"IN_CREATE", "IN_MODIFY", "IN_DELETE"}, order)
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	require.NoError(t, os.Mkdir(a, 0o755))
	r := startRun(t, root)

	b := filepath.Join(a, "b")
	require.NoError(t, os.Mkdir(b, 0o755))
	r.waitFor(t, "IN_CREATE|IN_ISDIR", b)

	// The watch on b is installed while the create event is dispatched,
	// before any later event is read. Wait until it is observable from
	// here before touching the directory.
	file := filepath.Join(b, "c.txt")
	deadline := time.Now().Add(eventTimeout)
	for {
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		if _, ok := r.rec.WaitFor(func(rec watch.Record) bool {
			return rec.Description == "IN_CREATE" && rec.FullPath() == file
		}, 200*time.Millisecond); ok {
			break
		}
		require.NoError(t, os.Remove(file))
		if time.Now().After(deadline) {
			t.Fatal("no event from the new directory")
		}
	}
}

func TestNestedCreateIsCovered(t *testing.T) {
	root := t.TempDir()
	r := startRun(t, root)

	// Parent directory events always precede events from inside it, and
	// subdirectories that appear before their parent is watched are
	// picked up when the parent is registered.
	deep := filepath.Join(root, "x", "y", "z")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	r.waitFor(t, "IN_CREATE|IN_ISDIR", filepath.Join(root, "x"))

	file := filepath.Join(deep, "f.txt")
	deadline := time.Now().Add(eventTimeout)
	for {
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		if _, ok := r.rec.WaitFor(func(rec watch.Record) bool {
			return rec.Description == "IN_CREATE" && rec.FullPath() == file
		}, 200*time.Millisecond); ok {
			break
		}
		require.NoError(t, os.Remove(file))
		if time.Now().After(deadline) {
			t.Fatal("no event from the nested directory")
		}
	}
}

func TestDeletedDirectoryReleasesWatch(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	r := startRun(t, root)

	require.NoError(t, os.Remove(sub))
	r.waitFor(t, "IN_IGNORED", sub)
	r.waitFor(t, "IN_DELETE|IN_ISDIR", sub)
}

func TestSymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(target, "sub"), 0o755))
	root := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(target, root))

	r := startRun(t, root)
	reg := r.d.Registry()
	_, ok := reg.Lookup(root)
	assert.True(t, ok, "root not watched")
	_, ok = reg.Lookup(filepath.Join(root, "sub"))
	assert.True(t, ok, "subdirectory not watched")

	file := filepath.Join(root, "sub", "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	r.waitFor(t, "IN_CREATE", file)
}

func TestMissingRootFailsInit(t *testing.T) {
	d := watch.NewDispatcher(New(), eventlog.NewRecorder())
	err := d.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, watch.ErrBackendInit))
}
