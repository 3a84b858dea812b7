// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware carries the cross-cutting gin handlers for the
// quality gate service: request logging and Prometheus instrumentation.
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "eightd"
const gateSubsystem = "qualitygate"

// GateMetrics holds the Prometheus metrics for the quality gate service.
type GateMetrics struct {
	// RequestsTotal counts HTTP requests by route, method and status.
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures handler latency by route.
	RequestDurationSeconds *prometheus.HistogramVec

	// ValidationsTotal counts section validations by decision.
	// Labels: step_code, decision (pass, fail)
	ValidationsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *GateMetrics

// InitMetrics registers the metrics on the default registry. Call once at
// startup; a second call panics on duplicate registration.
func InitMetrics() *GateMetrics {
	DefaultMetrics = &GateMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gateSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gateSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Handler latency by route",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"route"},
		),
		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gateSubsystem,
				Name:      "validations_total",
				Help:      "Section validations by step code and decision",
			},
			[]string{"step_code", "decision"},
		),
	}
	return DefaultMetrics
}

// RequestLogger logs one line per request with the propagated request id.
// Clients send X-Request-ID; absent ids get a fresh UUID so every log line
// stays correlatable.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"request_id", requestID,
		)
	}
}

// Metrics records the request counter and latency histogram. Routes are
// labelled by the gin route template, not the raw path, to keep the
// cardinality bounded.
func Metrics(m *GateMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(route, c.Request.Method,
			strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDurationSeconds.WithLabelValues(route).
			Observe(time.Since(start).Seconds())
	}
}
