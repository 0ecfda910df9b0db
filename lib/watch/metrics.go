// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package watch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "getevents"

var (
	metricEventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: "watch",
		Name:      "events_total",
		Help:      "Total number of event records emitted",
	}, []string{"backend"})
	metricWatchesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricNamespace,
		Subsystem: "watch",
		Name:      "watches_active",
		Help:      "Number of directories currently registered with the backend",
	})
	metricRegistrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: "watch",
		Name:      "registrations_total",
		Help:      "Total number of successful watch registrations",
	})
	metricRegistrationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: "watch",
		Name:      "registrations_failed_total",
		Help:      "Total number of watch registrations the backend rejected",
	}, []string{"reason"})
	metricUnknownHandles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: "watch",
		Name:      "unknown_handles_total",
		Help:      "Total number of events for handles missing from the registry",
	})
	metricOverflows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: "watch",
		Name:      "overflows_total",
		Help:      "Total number of backend queue overflows, each meaning lost events",
	}, []string{"backend"})
)

// Summary returns every getevents metric in the default registry as
// "name=value" pairs without the namespace, summed over labels and sorted
// by name.
func Summary() ([]string, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	var res []string
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, metricNamespace+"_") {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		res = append(res, strings.TrimPrefix(name, metricNamespace+"_")+"="+formatValue(total))
	}
	sort.Strings(res)
	return res, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
