// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux
// +build linux

package inotify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/hidra-tools/getevents/lib/watch"
)

// Supported is true where the backend is implemented.
const Supported = true

// The kernel never splits an event across reads; the buffer must hold at
// least one event with the longest possible name.
const readBufferSize = 64 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)

const maxUserWatchesPath = "/proc/sys/fs/inotify/max_user_watches"

var errShortRead = errors.New("inotify: short read")

// Queue wraps an inotify descriptor. Serve and ReadEvents must only be
// called from one goroutine; Wakeup may be called from any.
type Queue struct {
	fd  int
	buf []byte

	// wake is a pipe whose read end is polled together with fd, so that
	// a blocked read can be interrupted.
	mut  sync.Mutex
	wake [2]int
}

var (
	_ watch.Backend = (*Queue)(nil)
	_ watch.Watcher = (*Queue)(nil)
)

func New() *Queue {
	return &Queue{fd: -1, wake: [2]int{-1, -1}}
}

func (*Queue) Name() string {
	return Name
}

// Open creates the inotify descriptor. The root is registered by the
// dispatcher like every other directory.
func (q *Queue) Open(string) error {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return os.NewSyscallError("inotify_init1", err)
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return os.NewSyscallError("pipe2", err)
	}

	q.mut.Lock()
	q.fd = fd
	q.wake = p
	q.mut.Unlock()
	q.buf = make([]byte, readBufferSize)
	l.Debugf("Opened inotify descriptor %d", fd)
	return nil
}

// AddWatch starts watching path for all events. Adding a directory that
// is already watched returns its existing handle.
func (q *Queue) AddWatch(path string) (watch.Handle, error) {
	wd, err := unix.InotifyAddWatch(q.fd, path, unix.IN_ALL_EVENTS)
	if err != nil {
		return watch.NoHandle, translateAddError(err)
	}
	l.Debugf("Added watch %d for %s", wd, path)
	return watch.Handle(wd), nil
}

func translateAddError(err error) error {
	sysErr := os.NewSyscallError("inotify_add_watch", err)
	switch {
	case errors.Is(err, unix.ENOSPC), errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENOMEM):
		if limit := maxUserWatches(); limit != "" {
			return fmt.Errorf("%w (max_user_watches is %s): %w", watch.ErrWatchLimitExceeded, limit, sysErr)
		}
		return fmt.Errorf("%w: %w", watch.ErrWatchLimitExceeded, sysErr)
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENOTDIR), errors.Is(err, unix.EACCES):
		return fmt.Errorf("%w: %w", watch.ErrPathNotFound, sysErr)
	default:
		return sysErr
	}
}

func maxUserWatches() string {
	bs, err := os.ReadFile(maxUserWatchesPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bs))
}

// ReadEvents blocks until events are available and returns them. It
// returns watch.ErrCancelled once Wakeup has been called.
func (q *Queue) ReadEvents() ([]watch.RawEvent, error) {
	for {
		n, err := unix.Read(q.fd, q.buf)
		switch {
		case err == nil && n > 0:
			return parseBatch(q.buf[:n]), nil
		case err == nil:
			return nil, os.NewSyscallError("read", unix.EIO)
		case err == unix.EINTR:
			continue
		case err != unix.EAGAIN:
			return nil, os.NewSyscallError("read", err)
		}

		if err := q.wait(); err != nil {
			return nil, err
		}
	}
}

// wait polls the descriptor and the wake pipe. A pending wakeup wins over
// pending events.
func (q *Queue) wait() error {
	fds := []unix.PollFd{
		{Fd: int32(q.fd), Events: unix.POLLIN},
		{Fd: int32(q.wake[0]), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}
		if fds[1].Revents != 0 {
			return watch.ErrCancelled
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return os.NewSyscallError("poll", unix.EBADF)
		}
		return nil
	}
}

// Wakeup makes a blocked or future ReadEvents return watch.ErrCancelled.
func (q *Queue) Wakeup() error {
	q.mut.Lock()
	defer q.mut.Unlock()
	if q.wake[1] < 0 {
		return nil
	}
	if _, err := unix.Write(q.wake[1], []byte{0}); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("write", err)
	}
	return nil
}

// Serve reads events and hands them to fn on the calling goroutine until
// ctx is cancelled.
func (q *Queue) Serve(ctx context.Context, fn func([]watch.RawEvent)) error {
	stop := context.AfterFunc(ctx, func() {
		if err := q.Wakeup(); err != nil {
			l.Warnln("Waking up inotify reader:", err)
		}
	})
	defer stop()

	for ctx.Err() == nil {
		events, err := q.ReadEvents()
		if errors.Is(err, watch.ErrCancelled) {
			break
		}
		if err != nil {
			return err
		}
		fn(events)
	}
	l.Debugln("Inotify reader stopped")
	return nil
}

// Close releases the descriptor, which also drops every watch.
func (q *Queue) Close() error {
	q.mut.Lock()
	defer q.mut.Unlock()

	var err error
	if q.fd >= 0 {
		err = unix.Close(q.fd)
		l.Debugf("Closed inotify descriptor %d", q.fd)
		q.fd = -1
	}
	for i, fd := range q.wake {
		if fd >= 0 {
			unix.Close(fd)
			q.wake[i] = -1
		}
	}
	if err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

// parseBatch returns the events that decode cleanly. Undecodable trailing
// data is logged and dropped, it does not end the session.
func parseBatch(buf []byte) []watch.RawEvent {
	events, err := parseEvents(buf)
	if err != nil {
		l.Warnf("Discarding inotify data after %d events in a %d byte read: %v", len(events), len(buf), err)
	}
	return events
}

// parseEvents decodes a buffer filled by read(2).
func parseEvents(buf []byte) ([]watch.RawEvent, error) {
	var events []watch.RawEvent
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		start := offset + unix.SizeofInotifyEvent
		end := start + int(raw.Len)
		if end > len(buf) {
			return events, errShortRead
		}

		var name string
		if raw.Len > 0 {
			name = string(bytes.TrimRight(buf[start:end], "\x00"))
		}
		events = append(events, watch.RawEvent{
			Handle: watch.Handle(raw.Wd),
			Flags:  watch.Flags(raw.Mask),
			Name:   name,
		})
		offset = end
	}
	if offset != len(buf) {
		return events, errShortRead
	}
	return events, nil
}
