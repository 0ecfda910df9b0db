// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type State int32

const (
	StateInit State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var errAlreadyRun = errors.New("dispatcher already ran")

// A Dispatcher runs one watch session: it builds the initial watch set,
// pulls events from the backend, keeps the registry in step with new
// directories and hands a record per event to the sink.
type Dispatcher struct {
	backend  Backend
	sink     Sink
	watcher  Watcher   // nil for recursive backends
	registry *Registry // nil for recursive backends
	now      func() time.Time

	// Held while dispatching. Push based backends call in from their own
	// goroutine.
	mut         sync.Mutex
	overflowLog *rate.Limiter
	overflows   int

	state atomic.Int32
	ran   atomic.Bool
}

func NewDispatcher(backend Backend, sink Sink) *Dispatcher {
	d := &Dispatcher{
		backend:     backend,
		sink:        sink,
		now:         time.Now,
		overflowLog: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	if w, ok := backend.(Watcher); ok {
		d.watcher = w
		d.registry = NewRegistry(w)
	}
	return d
}

// Registry returns the registry of a handle based backend, or nil.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

func (d *Dispatcher) setState(s State) {
	l.Debugf("Dispatcher: %v -> %v", d.State(), s)
	d.state.Store(int32(s))
}

// Run watches root until ctx is cancelled. Cancellation is a normal end
// and returns nil. Errors wrapping ErrBackendInit mean the session never
// started. A Dispatcher can only run once.
func (d *Dispatcher) Run(ctx context.Context, root string) error {
	if !d.ran.CompareAndSwap(false, true) {
		return errAlreadyRun
	}
	defer d.setState(StateStopped)

	var closeOnce sync.Once
	closeBackend := func() {
		closeOnce.Do(func() {
			if err := d.backend.Close(); err != nil {
				l.Warnf("Closing %s backend: %v", d.backend.Name(), err)
			}
		})
	}
	defer closeBackend()

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendInit, err)
	}
	if err := d.backend.Open(root); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackendInit, d.backend.Name(), err)
	}

	if d.registry != nil {
		dirs, err := InitialScan(root)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBackendInit, err)
		}
		n := RegisterAll(dirs, d.registry)
		if _, ok := d.registry.Lookup(root); !ok {
			return fmt.Errorf("%w: %s could not be watched", ErrBackendInit, root)
		}
		l.Infof("Watching %d directories below %s (%s)", n, root, d.backend.Name())
	} else {
		l.Infof("Watching %s recursively (%s)", root, d.backend.Name())
	}

	d.setState(StateRunning)
	err = d.backend.Serve(ctx, d.dispatch)
	d.setState(StateStopping)
	closeBackend()

	if err != nil && !errors.Is(err, ErrCancelled) {
		return fmt.Errorf("%s backend: %w", d.backend.Name(), err)
	}
	return nil
}

func (d *Dispatcher) dispatch(events []RawEvent) {
	d.mut.Lock()
	defer d.mut.Unlock()
	for _, ev := range events {
		d.dispatchOne(ev)
	}
}

func (d *Dispatcher) dispatchOne(ev RawEvent) {
	if ev.Flags.Has(QueueOverflow) {
		d.reportOverflow()
		return
	}

	path := ev.Path
	if d.registry != nil && ev.Handle != NoHandle {
		resolved, err := d.registry.Resolve(ev.Handle)
		if err != nil {
			metricUnknownHandles.Inc()
			l.Warnf("Watch registry out of sync with %s backend, dropping %v event for %q: %v", d.backend.Name(), ev.Flags, ev.Name, err)
			return
		}
		path = resolved
	}

	d.sink.Emit(Record{
		Time:        d.now(),
		Description: ev.Flags.String(),
		Path:        path,
		Name:        ev.Name,
	})
	metricEventsDispatched.WithLabelValues(d.backend.Name()).Inc()

	if d.registry == nil {
		return
	}
	// The new directory must be registered before the next event is looked
	// at, events for its children may follow immediately.
	if ev.Flags.IsDirCreate() && ev.Name != "" {
		_ = HandleNewDirectory(path, ev.Name, d.registry)
	}
	if ev.Flags.Has(Ignored) {
		d.registry.Forget(ev.Handle)
	}
}

func (d *Dispatcher) reportOverflow() {
	d.overflows++
	metricOverflows.WithLabelValues(d.backend.Name()).Inc()
	if !d.overflowLog.Allow() {
		return
	}
	l.Warnf("The %s event queue overflowed and events were lost (%d overflows so far)", d.backend.Name(), d.overflows)
}
