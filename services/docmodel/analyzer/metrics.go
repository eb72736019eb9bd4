// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for documentation analysis operations.
var (
	tracer = otel.Tracer("aleutian.docmodel")
	meter  = otel.Meter("aleutian.docmodel")
)

// Metrics for analysis runs.
var (
	runLatency    metric.Float64Histogram
	runTotal      metric.Int64Counter
	declsAnalyzed metric.Int64Histogram
	declsDropped  metric.Int64Counter
	importEdges   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"docmodel_run_duration_seconds",
			metric.WithDescription("Duration of documentation analysis runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"docmodel_run_total",
			metric.WithDescription("Total number of documentation analysis runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		declsAnalyzed, err = meter.Int64Histogram(
			"docmodel_decls_documented",
			metric.WithDescription("Number of declarations documented per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		declsDropped, err = meter.Int64Counter(
			"docmodel_decls_dropped_total",
			metric.WithDescription("Total declarations dropped due to analysis failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		importEdges, err = meter.Int64Histogram(
			"docmodel_import_edges",
			metric.WithDescription("Number of direct import edges per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRunMetrics records metrics for one analysis run.
func recordRunMetrics(ctx context.Context, duration time.Duration, report *Report) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", report.Success()))

	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
	declsAnalyzed.Record(ctx, int64(report.Stats.DeclsDocumented))
	importEdges.Record(ctx, int64(report.Stats.ImportEdges))
}

// recordDeclDropMetric records one dropped declaration, labeled by cause.
func recordDeclDropMetric(ctx context.Context, cause string) {
	if err := initMetrics(); err != nil {
		return
	}

	declsDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("cause", cause)),
	)
}

// startRunSpan creates a span for an analysis run.
func startRunSpan(ctx context.Context, snapshotID string, moduleCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pipeline.Run",
		trace.WithAttributes(
			attribute.String("docmodel.snapshot_id", snapshotID),
			attribute.Int("docmodel.modules_loaded", moduleCount),
		),
	)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, report *Report) {
	span.SetAttributes(
		attribute.Int("docmodel.decls_documented", report.Stats.DeclsDocumented),
		attribute.Int("docmodel.decls_failed", report.Stats.DeclsFailed),
		attribute.Int("docmodel.import_edges", report.Stats.ImportEdges),
		attribute.Bool("docmodel.incomplete", report.Incomplete),
	)
}

// recordRunError marks a run span as failed.
func recordRunError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
