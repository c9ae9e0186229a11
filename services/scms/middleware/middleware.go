// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides the gin middleware of the scms API.
//
// # Request Flow
//
//	Request
//	   │
//	   ▼
//	RequestID ──► sets X-Request-ID, stores it in the context
//	   │
//	   ▼
//	Logger ─────► one slog line per request
//	   │
//	   ▼
//	Metrics ────► request counter and latency by route
//	   │
//	   ▼
//	Limit ──────► waits for one of the configured worker slots
//	   │
//	   ▼
//	Handler
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// =============================================================================
// Context Keys
// =============================================================================

// HeaderRequestID carries the request id in requests and responses.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "scms_request_id"

// =============================================================================
// Context Helpers
// =============================================================================

// GetRequestID returns the id assigned by RequestID, or "" outside it.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// =============================================================================
// Middleware
// =============================================================================

// RequestID assigns every request an id.
//
// An incoming X-Request-ID header is kept; otherwise a UUID is generated.
// The id is echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger logs each completed request.
//
// 5xx responses log at error level, 4xx at warn and the rest at info.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "http"))

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// RequestRecorder receives request metrics. *observability.Metrics
// implements it.
type RequestRecorder interface {
	RecordRequest(method, route string, code int, seconds float64)
}

// Metrics records request count and latency labelled by the matched route
// template, so ids do not create new series. Unmatched requests use the
// route "unmatched".
func Metrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// Limit bounds the number of requests handled at once to workers.
//
// # Description
//
// Requests beyond the bound wait for a slot. A request whose client goes
// away while waiting is aborted with 503. inFlight, when non-nil, tracks
// the slots in use.
//
// # Inputs
//
//   - workers: Maximum concurrent requests. Values below 1 are treated as 1.
//   - inFlight: Optional gauge.
func Limit(workers int, inFlight prometheus.Gauge) gin.HandlerFunc {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))

	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
				Error: "request cancelled while waiting for a worker",
				Code:  datatypes.CodeInternal,
			})
			return
		}
		defer sem.Release(1)

		if inFlight != nil {
			inFlight.Inc()
			defer inFlight.Dec()
		}
		c.Next()
	}
}
