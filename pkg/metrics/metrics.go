// Copyright 2025 Certen Protocol
//
// Package metrics defines the platform's Prometheus instrumentation. The
// teacher's go.mod already carries github.com/prometheus/client_golang as
// a dependency without exercising it anywhere; this package is where that
// dependency earns its place, covering deploy outcomes, task transitions,
// nonce rejections, and the privileged key-retrieval gate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeployOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapp",
		Subsystem: "deploy",
		Name:      "outcomes_total",
		Help:      "Count of deployment attempts by terminal outcome.",
	}, []string{"outcome"})

	TaskTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapp",
		Subsystem: "task",
		Name:      "transitions_total",
		Help:      "Count of task state transitions by target state.",
	}, []string{"status"})

	NonceRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapp",
		Subsystem: "nonce",
		Name:      "rejections_total",
		Help:      "Count of nonce verification failures by reason.",
	}, []string{"reason"})

	PrivilegedKeyGateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tapp",
		Subsystem: "key_broker",
		Name:      "privileged_gate_total",
		Help:      "Count of privileged key retrieval attempts by gate and outcome.",
	}, []string{"gate", "outcome"})

	DeployDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tapp",
		Subsystem: "deploy",
		Name:      "duration_seconds",
		Help:      "Wall-clock time from task creation to terminal state.",
		Buckets:   prometheus.DefBuckets,
	})
)
