// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package eventlog

import (
	"sync"
	"time"

	"github.com/hidra-tools/getevents/lib/watch"
)

// Recorder is a watch.Sink keeping every record in memory.
type Recorder struct {
	mut     sync.Mutex
	records []watch.Record
	changed chan struct{}
}

var _ watch.Sink = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) Emit(rec watch.Record) {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.records = append(r.records, rec)
	close(r.changed)
	r.changed = make(chan struct{})
}

// Records returns a copy of the records so far.
func (r *Recorder) Records() []watch.Record {
	r.mut.Lock()
	defer r.mut.Unlock()
	return append([]watch.Record(nil), r.records...)
}

// WaitFor blocks until a record satisfying match has been emitted or the
// timeout expires, and returns the records up to and including it.
func (r *Recorder) WaitFor(match func(watch.Record) bool, timeout time.Duration) ([]watch.Record, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mut.Lock()
		for i, rec := range r.records {
			if match(rec) {
				res := append([]watch.Record(nil), r.records[:i+1]...)
				r.mut.Unlock()
				return res, true
			}
		}
		changed := r.changed
		r.mut.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			return r.Records(), false
		}
	}
}
