// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("graphd.dispatch")

// Outcome label values.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
)

// =============================================================================
// Prometheus Metrics for Command Dispatch
// =============================================================================

var (
	// commandsTotal counts executed commands.
	// Labels: command (command.Kind), outcome (ok, rejected)
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphd",
		Subsystem: "dispatch",
		Name:      "commands_total",
		Help:      "Total graph commands executed by kind and outcome",
	}, []string{"command", "outcome"})

	// commandDuration measures time spent executing a command, including
	// the wait for the graph lock.
	// Labels: command
	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphd",
		Subsystem: "dispatch",
		Name:      "command_duration_seconds",
		Help:      "Graph command latency in seconds, lock wait included",
		Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"command"})

	// unparsedTotal counts lines the grammar rejected.
	unparsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphd",
		Subsystem: "dispatch",
		Name:      "unparsed_lines_total",
		Help:      "Total input lines that matched no command",
	})
)

// recordCommand records one executed command.
//
// Inputs:
//
//	kind - The command.Kind value.
//	outcome - "ok" or "rejected".
//	durationSec - Duration in seconds.
func recordCommand(kind, outcome string, durationSec float64) {
	commandsTotal.WithLabelValues(kind, outcome).Inc()
	commandDuration.WithLabelValues(kind).Observe(durationSec)
}
