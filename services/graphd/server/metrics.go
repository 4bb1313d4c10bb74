// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transport label values.
const (
	transportTCP       = "tcp"
	transportWebsocket = "websocket"
)

// =============================================================================
// Prometheus Metrics for Sessions
// =============================================================================

var (
	// sessionsActive tracks sessions currently running.
	// Labels: transport (tcp, websocket)
	sessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "graphd",
		Subsystem: "server",
		Name:      "sessions_active",
		Help:      "Number of sessions currently running",
	}, []string{"transport"})

	// sessionsTotal counts finished sessions.
	// Labels: transport, outcome (ok, idle_timeout, error)
	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphd",
		Subsystem: "server",
		Name:      "sessions_total",
		Help:      "Total finished sessions by transport and outcome",
	}, []string{"transport", "outcome"})

	// sessionDuration measures how long sessions last.
	// Labels: transport
	sessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphd",
		Subsystem: "server",
		Name:      "session_duration_seconds",
		Help:      "Session lifetime in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
	}, []string{"transport"})

	// acceptErrors counts failed Accept calls that were retried.
	acceptErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graphd",
		Subsystem: "server",
		Name:      "accept_errors_total",
		Help:      "Total listener accept errors that were retried",
	})

	// sessionsRejected counts sessions refused because max_sessions was
	// reached.
	// Labels: transport
	sessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphd",
		Subsystem: "server",
		Name:      "sessions_rejected_total",
		Help:      "Total sessions refused at the session limit",
	}, []string{"transport"})
)
