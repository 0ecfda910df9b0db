// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hidra-tools/getevents/lib/logger"
)

var metricWarnings = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "getevents",
	Subsystem: "log",
	Name:      "warnings_total",
	Help:      "Total number of warnings logged",
})

// countWarnings makes every warning logged through lg show up in the
// shutdown summary.
func countWarnings(lg logger.Logger) {
	lg.AddHandler(logger.LevelWarn, func(logger.LogLevel, string) {
		metricWarnings.Inc()
	})
}
