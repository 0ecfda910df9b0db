// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package automaxprocs

import (
	"fmt"
	"runtime"
	"strings"
	"testing"
)

func TestAdjustHonorsEnvironment(t *testing.T) {
	t.Setenv("GOMAXPROCS", "3")
	before := runtime.GOMAXPROCS(0)

	var lines []string
	undo, err := Adjust(func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})
	if err != nil {
		t.Fatal(err)
	}
	defer undo()

	if after := runtime.GOMAXPROCS(0); after != before {
		t.Errorf("GOMAXPROCS changed from %d to %d", before, after)
	}
	if !strings.Contains(strings.Join(lines, "\n"), "GOMAXPROCS") {
		t.Errorf("nothing logged: %q", lines)
	}
}
