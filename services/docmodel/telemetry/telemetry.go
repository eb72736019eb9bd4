// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for the
// documentation pipeline. Init installs global providers; the analysis
// packages pick them up through otel.Tracer/otel.Meter.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Telemetry setup errors.
var (
	// ErrNilContext is returned when Init is called without a context.
	ErrNilContext = errors.New("context must not be nil")

	// ErrUnknownExporter is returned for an unrecognized exporter name.
	ErrUnknownExporter = errors.New("unknown exporter")
)

// Config controls which exporters the pipeline reports through.
type Config struct {
	// ServiceName identifies this binary in traces and metrics.
	ServiceName string `json:"service_name"`

	// ServiceVersion is this binary's version string.
	ServiceVersion string `json:"service_version"`

	// Environment names the deployment environment.
	Environment string `json:"environment"`

	// TraceExporter is "stdout" or "none".
	TraceExporter string `json:"trace_exporter"`

	// MetricExporter is "prometheus", "stdout", or "none".
	MetricExporter string `json:"metric_exporter"`
}

// DefaultConfig returns defaults for local use: both exporters off unless
// OTEL_TRACES_EXPORTER / OTEL_METRICS_EXPORTER say otherwise, environment
// from ALEUTIAN_ENV.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "docmodel",
		ServiceVersion: "1.0.0",
		Environment:    getEnvOr("ALEUTIAN_ENV", "development"),
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", "none"),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", "none"),
	}
}

// shutdownGroup collects per-provider cleanup functions and runs them in
// registration order, keeping every error.
type shutdownGroup struct {
	funcs []func(context.Context) error
}

func (g *shutdownGroup) add(fn func(context.Context) error) {
	g.funcs = append(g.funcs, fn)
}

func (g *shutdownGroup) run(ctx context.Context) error {
	var errs []error
	for _, fn := range g.funcs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Init installs the global TracerProvider and MeterProvider per cfg. A
// selection of "none" leaves the corresponding otel default (a no-op) in
// place, so instrumented code needs no exporter awareness.
//
// The returned shutdown function must be called on exit to flush both
// providers.
//
// Thread Safety: call once at startup.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	group := &shutdownGroup{}
	identity := serviceResource(cfg)

	if cfg.TraceExporter != "none" {
		tp, err := newTraceProvider(cfg.TraceExporter, identity)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		group.add(tp.Shutdown)
	}

	if cfg.MetricExporter != "none" {
		mp, err := newMeterProvider(cfg.MetricExporter, identity)
		if err != nil {
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		group.add(mp.Shutdown)
	}

	return group.run, nil
}

// serviceResource builds the resource attributes attached to every span
// and metric.
func serviceResource(cfg Config) *resource.Resource {
	return resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)
}

func newTraceProvider(kind string, identity *resource.Resource) (*trace.TracerProvider, error) {
	if kind != "stdout" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, kind)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(identity),
		trace.WithSampler(trace.AlwaysSample()),
	), nil
}

func newMeterProvider(kind string, identity *resource.Resource) (*metric.MeterProvider, error) {
	var reader metric.Reader
	switch kind {
	case "prometheus":
		// Registers with the default prometheus registry; promhttp.Handler()
		// then serves our metrics.
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		publishMetricsHandler(promhttp.Handler())
		reader = exporter

	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, kind)
	}

	return metric.NewMeterProvider(
		metric.WithResource(identity),
		metric.WithReader(reader),
	), nil
}

var (
	metricsHandlerMu sync.RWMutex
	metricsHandler   http.Handler
)

func publishMetricsHandler(h http.Handler) {
	metricsHandlerMu.Lock()
	defer metricsHandlerMu.Unlock()
	metricsHandler = h
}

// MetricsHandler returns the HTTP handler for the /metrics endpoint, or
// nil when the prometheus exporter is not enabled.
//
// Thread Safety: safe for concurrent use.
func MetricsHandler() http.Handler {
	metricsHandlerMu.RLock()
	defer metricsHandlerMu.RUnlock()
	return metricsHandler
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
