// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestAPI(t *testing.T) {
	l := newLogger(&bytes.Buffer{})

	debug := 0
	l.AddHandler(LevelDebug, checkFunc(t, LevelDebug, &debug))
	info := 0
	l.AddHandler(LevelInfo, checkFunc(t, LevelInfo, &info))
	warn := 0
	l.AddHandler(LevelWarn, checkFunc(t, LevelWarn, &warn))

	l.Debugf("test %d", 0)
	l.Debugln("test", 0)
	l.Infof("test %d", 1)
	l.Infoln("test", 1)
	l.Warnf("test %d", 2)
	l.Warnln("test", 2)

	if debug != 6 {
		t.Errorf("Debug handler called %d != 6 times", debug)
	}
	if info != 4 {
		t.Errorf("Info handler called %d != 4 times", info)
	}
	if warn != 2 {
		t.Errorf("Warn handler called %d != 2 times", warn)
	}
}

func checkFunc(t *testing.T, expectl LogLevel, counter *int) func(LogLevel, string) {
	return func(l LogLevel, msg string) {
		*counter++
		if l < expectl {
			t.Errorf("Incorrect message level %d < %d", l, expectl)
		}
	}
}

func TestFacilityDebugging(t *testing.T) {
	out := new(bytes.Buffer)
	l := newLogger(out)

	msgs := 0
	l.AddHandler(LevelDebug, func(l LogLevel, msg string) {
		msgs++
		if strings.Contains(msg, "f1") {
			t.Fatal("Should not get message for facility f1")
		}
	})

	f0 := l.NewFacility("f0", "foo#0")
	f1 := l.NewFacility("f1", "foo#1")

	l.SetDebug("f0", true)
	l.SetDebug("f1", false)

	f0.Debugln("Debug line from f0")
	f1.Debugln("Debug line from f1")

	if msgs != 1 {
		t.Fatalf("Incorrect number of messages, %d != 1", msgs)
	}
	if !strings.Contains(out.String(), "DEBUG: Debug line from f0") {
		t.Fatalf("missing debug line in output %q", out.String())
	}
	if got := l.Facilities(); got["f0"] != "foo#0" || got["f1"] != "foo#1" {
		t.Fatalf("unexpected facilities %v", got)
	}
}

func TestTraceEnv(t *testing.T) {
	t.Setenv(TraceEnv, "watch,inotify")
	l := newLogger(new(bytes.Buffer))

	l.NewFacility("watch", "")
	l.NewFacility("observer", "")

	if !l.ShouldDebug("watch") {
		t.Error("watch facility should be traced")
	}
	if l.ShouldDebug("observer") {
		t.Error("observer facility should not be traced")
	}

	t.Setenv(TraceEnv, "all")
	l = newLogger(new(bytes.Buffer))
	l.NewFacility("observer", "")
	if !l.ShouldDebug("observer") {
		t.Error("all should trace every facility")
	}
}

func TestLevelPrefix(t *testing.T) {
	out := new(bytes.Buffer)
	l := newLogger(out)
	l.SetFlags(0)

	l.Infoln("watching directory", "/tmp")
	l.Warnf("skipping %s", "/tmp/x")

	want := "INFO: watching directory /tmp\nWARNING: skipping /tmp/x\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}
