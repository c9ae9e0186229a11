// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the scms service.
//
// # Description
//
// Metrics include:
//   - Action counters and latency histograms (by category and status)
//   - Store reload counters and record gauges (by category)
//   - HTTP request counters, latency and in-flight gauge
//   - Running daemon gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "scms"

// Action status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

// Reload result label values.
const (
	ReloadOK      = "ok"
	ReloadInvalid = "invalid"
	ReloadError   = "error"
)

// Metrics holds all Prometheus metrics of the service.
//
// # Fields
//
//   - ActionsTotal: Actions by category and status (success, failure, error).
//     failure means the task ran and returned a non-zero code; error means
//     the task could not run.
//   - ActionDurationSeconds: Task wall time by category.
//   - ReloadsTotal: Store loads by category and result (ok, invalid, error).
//   - Records: Records in the current document by category.
//   - HTTPRequestsTotal: Requests by method, route and status code.
//   - HTTPRequestDurationSeconds: Request latency by method and route.
//   - InFlightRequests: Requests currently holding a worker slot.
type Metrics struct {
	ActionsTotal               *prometheus.CounterVec
	ActionDurationSeconds      *prometheus.HistogramVec
	ReloadsTotal               *prometheus.CounterVec
	Records                    *prometheus.GaugeVec
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	InFlightRequests           prometheus.Gauge

	factory promauto.Factory
}

// NewMetrics creates and registers all metrics with reg.
//
// # Inputs
//
//   - reg: Registerer to use. prometheus.DefaultRegisterer in production,
//     a fresh prometheus.NewRegistry() in tests.
//
// # Limitations
//
//   - Panics if called twice with the same registerer (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		factory: factory,

		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "actions_total",
				Help:      "Total actions executed by category and status",
			},
			[]string{"category", "status"},
		),

		ActionDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "action_duration_seconds",
				Help:      "Action execution time in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"category"},
		),

		ReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reloads_total",
				Help:      "Total store loads by category and result",
			},
			[]string{"category", "result"},
		),

		Records: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "records",
				Help:      "Records in the current store document",
			},
			[]string{"category"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),

		HTTPRequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		InFlightRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Requests currently holding a worker slot",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordAction records one executed action.
//
// # Inputs
//
//   - category: The record category.
//   - seconds: Task wall time.
//   - failed: The task returned a non-zero code.
//   - err: The task could not run.
func (m *Metrics) RecordAction(category datatypes.Category, seconds float64, failed bool, err error) {
	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusError
	case failed:
		status = StatusFailure
	}
	m.ActionsTotal.WithLabelValues(string(category), status).Inc()
	if err == nil {
		m.ActionDurationSeconds.WithLabelValues(string(category)).Observe(seconds)
	}
}

// ObserveLoad records a store load. records is -1 when no document was
// installed.
func (m *Metrics) ObserveLoad(category datatypes.Category, records int, err error) {
	result := ReloadOK
	switch {
	case records < 0:
		result = ReloadError
	case err != nil:
		result = ReloadInvalid
	}
	m.ReloadsTotal.WithLabelValues(string(category), result).Inc()
	if records >= 0 {
		m.Records.WithLabelValues(string(category)).Set(float64(records))
	}
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, route string, code int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(seconds)
}

// DaemonCounter reports the number of running daemons.
type DaemonCounter interface {
	Running() int
}

// RegisterDaemons exposes counter as the scms_daemons_running gauge.
func (m *Metrics) RegisterDaemons(counter DaemonCounter) {
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "daemons_running",
			Help:      "Detached daemons launched and not yet exited",
		},
		func() float64 { return float64(counter.Running()) },
	)
}
