// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package eventlog renders event records as log lines.
package eventlog

import (
	"io"
	"strings"
	"sync"

	"github.com/hidra-tools/getevents/lib/watch"
)

// TimeFormat is the layout of the leading timestamp of every line.
const TimeFormat = "2006-01-02 15:04:05"

// Writer is a watch.Sink writing one line per record:
//
//	2026-10-18 12:00:00 - IN_CREATE|IN_ISDIR: /data/run/scan_001
type Writer struct {
	w   io.Writer
	mut sync.Mutex
}

var _ watch.Sink = (*Writer)(nil)

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (s *Writer) Emit(r watch.Record) {
	line := Format(r)
	s.mut.Lock()
	defer s.mut.Unlock()
	if _, err := io.WriteString(s.w, line); err != nil {
		l.Debugln("Writing event line:", err)
	}
}

// Format returns the log line for r, including the trailing newline.
func Format(r watch.Record) string {
	var b strings.Builder
	b.WriteString(r.Time.Format(TimeFormat))
	b.WriteString(" - ")
	b.WriteString(r.Description)
	b.WriteString(": ")
	b.WriteString(r.Path)
	if r.Name != "" {
		b.WriteString("/")
		b.WriteString(r.Name)
	}
	b.WriteString("\n")
	return b.String()
}
