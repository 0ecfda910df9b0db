// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !linux
// +build !linux

package inotify

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/hidra-tools/getevents/lib/watch"
)

// Supported is true where the backend is implemented.
const Supported = false

var errUnsupported = fmt.Errorf("inotify is not available on %s: %w", runtime.GOOS, errors.ErrUnsupported)

// Queue is a placeholder on platforms without inotify; Open always fails.
type Queue struct{}

var (
	_ watch.Backend = (*Queue)(nil)
	_ watch.Watcher = (*Queue)(nil)
)

func New() *Queue {
	return &Queue{}
}

func (*Queue) Name() string {
	return Name
}

func (*Queue) Open(string) error {
	return errUnsupported
}

func (*Queue) AddWatch(string) (watch.Handle, error) {
	return watch.NoHandle, errUnsupported
}

func (*Queue) Serve(context.Context, func([]watch.RawEvent)) error {
	return errUnsupported
}

func (*Queue) Close() error {
	return nil
}
