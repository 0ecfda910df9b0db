// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command getevents prints a line for every filesystem event below a
// directory tree until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/thejerf/suture/v4"

	"github.com/hidra-tools/getevents/lib/automaxprocs"
	"github.com/hidra-tools/getevents/lib/eventlog"
	"github.com/hidra-tools/getevents/lib/fswatch"
	"github.com/hidra-tools/getevents/lib/inotify"
	"github.com/hidra-tools/getevents/lib/logger"
	"github.com/hidra-tools/getevents/lib/observer"
	"github.com/hidra-tools/getevents/lib/svcutil"
	"github.com/hidra-tools/getevents/lib/watch"
)

// Version is set at link time.
var Version = "unknown-dev"

const libAuto = "auto"

var l = logger.DefaultLogger.NewFacility("main", "Main program")

type cli struct {
	Dir     string           `help:"Directory tree to watch" default:"./"`
	Lib     string           `help:"Event backend to use (${enum})" enum:"auto,watchdog,inotify,fsnotify" default:"auto" env:"GETEVENTS_LIB"`
	Debug   bool             `help:"Enable debug output for all facilities" env:"GETEVENTS_DEBUG"`
	Version kong.VersionFlag `help:"Show version and exit"`
}

func main() {
	var params cli
	kong.Parse(&params,
		kong.Description("Print filesystem events below a directory tree."),
		kong.Vars{"version": Version},
	)

	countWarnings(logger.DefaultLogger)
	if params.Debug {
		for name := range logger.DefaultLogger.Facilities() {
			logger.DefaultLogger.SetDebug(name, true)
		}
	}
	if _, err := automaxprocs.Adjust(l.Debugf); err != nil {
		l.Debugln("Setting GOMAXPROCS:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, params, os.Stdout)
	stop()
	if summary, serr := watch.Summary(); serr == nil && len(summary) > 0 {
		l.Infoln("Session metrics:", strings.Join(summary, " "))
	}
	if err != nil {
		l.Warnln("Exiting:", err)
	}
	os.Exit(svcutil.StatusOf(err).AsInt())
}

// run watches params.Dir under a supervisor until ctx is cancelled, writing
// event lines to out. A session that fails to start ends the supervisor
// with a fatal error.
func run(ctx context.Context, params cli, out io.Writer) error {
	backend, err := selectBackend(params.Lib, runtime.GOOS)
	if err != nil {
		return svcutil.AsFatalErr(err, svcutil.ExitError)
	}

	l.Infoln("watching directory", params.Dir)
	d := watch.NewDispatcher(backend, eventlog.NewWriter(out))
	svc := svcutil.AsService(func(ctx context.Context) error {
		// A dispatcher runs once, so any failure ends the process.
		if err := d.Run(ctx, params.Dir); err != nil {
			return svcutil.AsFatalErr(err, svcutil.ExitError)
		}
		return svcutil.NoRestartErr(nil)
	}, "getevents")

	sup := suture.New("getevents", svcutil.SpecWithDebugLogger(l))
	sup.Add(svc)
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Debugln("Supervisor:", err)
	}
	return svc.Error()
}

// selectBackend returns the backend for lib. The automatic choice is the
// kernel queue on Linux and the recursive observer elsewhere.
func selectBackend(lib, goos string) (watch.Backend, error) {
	if lib == libAuto {
		lib = observer.Name
		if goos == "linux" && inotify.Supported {
			lib = inotify.Name
		}
	}
	switch lib {
	case inotify.Name:
		if !inotify.Supported {
			return nil, fmt.Errorf("%w: %s is not available on %s", watch.ErrBackendInit, inotify.Name, goos)
		}
		return inotify.New(), nil
	case observer.Name:
		return observer.New(), nil
	case fswatch.Name:
		return fswatch.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", lib)
	}
}
