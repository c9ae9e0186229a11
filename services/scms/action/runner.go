// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package action executes category tasks against stored records.
//
// # Description
//
// A Runner resolves a record by id, calls a Task with it, and turns the
// raw ProcessResult into a datatypes.ActionResult:
//
//   - Error is true only when the task reported a return code above zero.
//   - Stdout and Stderr are split on newlines, trimmed, with empty lines
//     dropped.
//   - A missing return code becomes 0.
//
// Every result is appended to the per-record History and counted in
// metrics. Task errors propagate unchanged and are not recorded.
package action

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// ProcessResult is the raw outcome of a task.
type ProcessResult struct {
	Stdout string
	Stderr string

	// ReturnCode is nil when the task has no exit status (detached
	// daemons, file writes).
	ReturnCode *int
}

// Task performs the category-specific side effect for one record.
type Task[T any] interface {
	Execute(ctx context.Context, id string, record T, args any) (ProcessResult, error)
}

// TaskFunc adapts a function to Task.
type TaskFunc[T any] func(ctx context.Context, id string, record T, args any) (ProcessResult, error)

// Execute calls f.
func (f TaskFunc[T]) Execute(ctx context.Context, id string, record T, args any) (ProcessResult, error) {
	return f(ctx, id, record, args)
}

// Getter resolves records by id. *store.Store[T] implements it.
type Getter[T any] interface {
	Get(id string) (T, error)
}

// Recorder receives action metrics. *observability.Metrics implements it.
type Recorder interface {
	RecordAction(category datatypes.Category, seconds float64, failed bool, err error)
}

// RunnerConfig holds the optional collaborators of a Runner.
type RunnerConfig struct {
	// History stores results. Default: NewHistory(DefaultHistorySize).
	History *History

	// Metrics receives one observation per Run. Optional.
	Metrics Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Runner executes tasks for one category.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent runs against the same record are not
// serialized.
type Runner[T any] struct {
	category datatypes.Category
	records  Getter[T]
	history  *History
	metrics  Recorder
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

// NewRunner creates a Runner resolving records through records.
func NewRunner[T any](category datatypes.Category, records Getter[T], cfg RunnerConfig) *Runner[T] {
	if cfg.History == nil {
		cfg.History = NewHistory(DefaultHistorySize)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner[T]{
		category: category,
		records:  records,
		history:  cfg.History,
		metrics:  cfg.Metrics,
		logger: cfg.Logger.With(
			slog.String("component", "action"),
			slog.String("category", string(category)),
		),
		now:    cfg.Now,
		tracer: otel.Tracer("github.com/AleutianAI/scms/services/scms/action"),
	}
}

// Category returns the runner's category.
func (r *Runner[T]) Category() datatypes.Category { return r.category }

// History returns the result history.
func (r *Runner[T]) History() *History { return r.history }

// Run executes task against the record id.
//
// # Inputs
//
//   - ctx: Passed to the task. Cancellation is up to the task.
//   - id: Record id.
//   - task: The side effect to perform.
//   - args: Task-specific payload (new content, new value), may be nil.
//
// # Outputs
//
//   - datatypes.ActionResult: The normalized result.
//   - error: Errors from resolving the record or from the task itself.
func (r *Runner[T]) Run(ctx context.Context, id string, task Task[T], args any) (datatypes.ActionResult, error) {
	record, err := r.records.Get(id)
	if err != nil {
		return datatypes.ActionResult{}, err
	}

	ctx, span := r.tracer.Start(ctx, "action."+string(r.category),
		trace.WithAttributes(
			attribute.String("scms.category", string(r.category)),
			attribute.String("scms.record", id),
		))
	defer span.End()

	start := r.now()
	raw, err := task.Execute(ctx, id, record, args)
	end := r.now()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.record(end.Sub(start), false, err)
		r.logger.Warn("action failed to run", slog.String("id", id), slog.String("error", err.Error()))
		return datatypes.ActionResult{}, err
	}

	result := Normalize(raw, start, end)
	span.SetAttributes(
		attribute.Int("scms.returncode", result.ReturnCode),
		attribute.Bool("scms.error", result.Error),
	)
	if result.Error {
		span.SetStatus(codes.Error, "non-zero return code")
	}

	r.history.Append(id, result)
	r.record(result.Duration(), result.Error, nil)
	r.logger.Info("action executed",
		slog.String("id", id),
		slog.Int("returncode", result.ReturnCode),
		slog.Bool("error", result.Error),
		slog.Duration("duration", result.Duration()))
	return result, nil
}

func (r *Runner[T]) record(d time.Duration, failed bool, err error) {
	if r.metrics != nil {
		r.metrics.RecordAction(r.category, d.Seconds(), failed, err)
	}
}

// Normalize converts a raw task result into an ActionResult.
func Normalize(raw ProcessResult, start, end time.Time) datatypes.ActionResult {
	result := datatypes.ActionResult{
		Stdout: Lines(raw.Stdout),
		Stderr: Lines(raw.Stderr),
		Start:  start,
		End:    end,
	}
	if raw.ReturnCode != nil {
		result.ReturnCode = *raw.ReturnCode
		result.Error = *raw.ReturnCode > 0
	}
	return result
}

// Lines splits s on newlines, trims each line and drops empty ones.
// The result is never nil.
func Lines(s string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
