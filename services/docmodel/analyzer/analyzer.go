// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer implements the documentation analysis pipeline: module
// relevance selection, per-declaration analysis under a bounded computation
// budget with isolated failure handling, module member aggregation with
// source-order sorting, and import adjacency matrix construction.
package analyzer

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/env"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// DeclAnalyzer converts one declaration into a documentation record.
//
// Contract:
//
//	A nil record with a nil error means the declaration is not documentable
//	and is skipped silently. A non-nil error (including budget exhaustion
//	surfaced as ErrBudgetExhausted) drops the declaration with a warning;
//	the run continues. Panics are recovered by the pipeline and treated as
//	errors.
//
// Implementations must be safe for concurrent use: the parallel runner
// invokes Analyze from many goroutines. Each invocation receives a fresh
// AnalysisContext and must report its work through actx.Budget.Step.
type DeclAnalyzer interface {
	Analyze(ctx context.Context, decl string, info env.ConstantInfo, actx *AnalysisContext) (*model.DocRecord, error)
}

// AnalyzerFunc adapts a function to the DeclAnalyzer interface.
type AnalyzerFunc func(ctx context.Context, decl string, info env.ConstantInfo, actx *AnalysisContext) (*model.DocRecord, error)

// Analyze implements DeclAnalyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, decl string, info env.ConstantInfo, actx *AnalysisContext) (*model.DocRecord, error) {
	return f(ctx, decl, info, actx)
}

// DocCache is an optional cache of analyzed documentation records, keyed by
// declaration name and content hash. A hit bypasses the analyzer entirely.
type DocCache interface {
	Get(ctx context.Context, decl, hash string) (*model.DocRecord, bool, error)
	Put(ctx context.Context, decl, hash string, rec *model.DocRecord) error
}

// Scope selects which loaded modules are analyzed in full.
type Scope struct {
	// All requests analysis of every loaded module.
	All bool

	// Modules is the requested module-name list for a scoped run. Names
	// are matched by exact equality against the loaded-module set; no
	// transitive import closure is applied. Names that match nothing are
	// silently dropped.
	Modules []string
}

// ScopeAll returns a scope covering the whole project.
func ScopeAll() Scope { return Scope{All: true} }

// ScopeModules returns a scope restricted to the named modules.
func ScopeModules(names ...string) Scope { return Scope{Modules: names} }

// Options configures Pipeline behavior.
type Options struct {
	// BudgetLimit is the per-declaration step budget.
	// Default: DefaultBudgetLimit. <= 0 disables the ceiling.
	BudgetLimit int64

	// WorkerCount is the number of parallel analysis workers used by
	// RunParallel. Default: runtime.NumCPU().
	WorkerCount int

	// Logger receives the diagnostic warning stream: one record per
	// dropped declaration, naming the declaration and the failure cause.
	// Default: slog.Default().
	Logger *slog.Logger

	// Cache is an optional doc-record cache. May be nil.
	Cache DocCache

	// AnalyzerOptions is copied into every AnalysisContext.
	AnalyzerOptions map[string]string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		BudgetLimit: DefaultBudgetLimit,
		WorkerCount: runtime.NumCPU(),
	}
}

// Option is a functional option for configuring Pipeline.
type Option func(*Options)

// WithBudgetLimit sets the per-declaration step budget.
func WithBudgetLimit(limit int64) Option {
	return func(o *Options) {
		o.BudgetLimit = limit
	}
}

// WithWorkerCount sets the number of parallel analysis workers.
func WithWorkerCount(n int) Option {
	return func(o *Options) {
		o.WorkerCount = n
	}
}

// WithLogger sets the warning-stream logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithCache sets the doc-record cache.
func WithCache(c DocCache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}

// WithAnalyzerOptions sets the option map copied into every
// AnalysisContext.
func WithAnalyzerOptions(opts map[string]string) Option {
	return func(o *Options) {
		o.AnalyzerOptions = opts
	}
}

// Pipeline runs the documentation analysis over an environment snapshot.
//
// The pipeline is stateless across runs and can be reused; each Run call
// operates on its own accumulator state.
//
// Thread Safety: safe for concurrent use.
type Pipeline struct {
	analyzer DeclAnalyzer
	options  Options
}

// New creates a Pipeline around the given declaration analyzer.
//
// Example:
//
//	p := analyzer.New(myAnalyzer,
//	    analyzer.WithWorkerCount(8),
//	    analyzer.WithBudgetLimit(400_000),
//	)
func New(a DeclAnalyzer, opts ...Option) *Pipeline {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.WorkerCount <= 0 {
		options.WorkerCount = runtime.NumCPU()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Pipeline{analyzer: a, options: options}
}

// runState holds the mutable accumulator of a single run.
type runState struct {
	environment env.Environment
	relevant    map[string]struct{}
	moduleInfo  map[string]*model.Module
	report      *Report
	startTime   time.Time
}

// Run executes the pipeline sequentially over the environment.
//
// Description:
//
//	Selects the relevant modules, seeds each with its module-level doc
//	comments, analyzes every constant in the environment's table under a
//	bounded budget, sorts each module's members by source position, builds
//	the import adjacency matrix over the full loaded-module list, and
//	assembles the immutable Result.
//
//	The run is resilient: a failing declaration is dropped with a warning
//	and the run continues. Only an environment contract violation (an
//	unresolvable owning module or module index) aborts the run.
//
// Inputs:
//
//	ctx - Context for cancellation. Cancellation yields a partial Result
//	      with Report.Incomplete set, not an error.
//	environment - Read-only environment snapshot. Must not be nil.
//	scope - Module selection for this run.
//
// Outputs:
//
//	*model.Result - The assembled result. Nil only when error is non-nil.
//	*Report - Per-run diagnostics (dropped declarations, stats).
//	error - Non-nil only for fatal misconfiguration or contract violations.
func (p *Pipeline) Run(ctx context.Context, environment env.Environment, scope Scope) (*model.Result, *Report, error) {
	state, ctx, span, err := p.beginRun(ctx, environment, scope)
	if err != nil {
		return nil, nil, err
	}
	defer span.End()

	var fatal error
	processed := 0
	environment.ForEachConstant(func(name string, info env.ConstantInfo) bool {
		if processed%64 == 0 && ctx.Err() != nil {
			state.report.Incomplete = true
			return false
		}
		processed++
		if err := p.processConstant(ctx, state, name, info); err != nil {
			fatal = err
			return false
		}
		return true
	})
	if fatal != nil {
		recordRunError(span, fatal)
		return nil, nil, fatal
	}

	matrix, err := p.buildImportMatrix(ctx, environment)
	if err != nil {
		recordRunError(span, err)
		return nil, nil, err
	}
	state.report.Stats.ImportEdges = matrix.EdgeCount()

	return p.finishRun(ctx, state, matrix, span)
}

// beginRun validates inputs and prepares the run accumulator.
func (p *Pipeline) beginRun(ctx context.Context, environment env.Environment, scope Scope) (*runState, context.Context, trace.Span, error) {
	if environment == nil {
		return nil, ctx, nil, ErrNilEnvironment
	}
	if p.analyzer == nil {
		return nil, ctx, nil, ErrNilAnalyzer
	}

	loaded := environment.LoadedModules()
	ctx, span := startRunSpan(ctx, environment.SnapshotID(), len(loaded))

	state := &runState{
		environment: environment,
		relevant:    relevantModules(loaded, scope),
		report:      &Report{},
		startTime:   time.Now(),
	}
	state.report.Stats.ModulesLoaded = len(loaded)
	state.report.Stats.ModulesRelevant = len(state.relevant)
	state.moduleInfo = p.seedModules(environment, state.relevant)

	span.SetAttributes(
		attribute.Int("docmodel.modules_relevant", len(state.relevant)),
		attribute.Bool("docmodel.scope_all", scope.All),
	)
	return state, ctx, span, nil
}

// relevantModules computes the set of module names to analyze.
//
// Mode A (scope.All): every loaded module. Mode B: the intersection of the
// loaded-module set with the requested name list, by exact name equality.
// Requested names that match no loaded module are dropped without error.
func relevantModules(loaded []string, scope Scope) map[string]struct{} {
	relevant := make(map[string]struct{})
	if scope.All {
		for _, name := range loaded {
			relevant[name] = struct{}{}
		}
		return relevant
	}
	loadedSet := make(map[string]struct{}, len(loaded))
	for _, name := range loaded {
		loadedSet[name] = struct{}{}
	}
	for _, name := range scope.Modules {
		if _, ok := loadedSet[name]; ok {
			relevant[name] = struct{}{}
		}
	}
	return relevant
}

// seedModules creates one Module per relevant module, seeded with its
// module-level doc comments, before any declaration analysis begins.
func (p *Pipeline) seedModules(environment env.Environment, relevant map[string]struct{}) map[string]*model.Module {
	moduleInfo := make(map[string]*model.Module, len(relevant))
	for name := range relevant {
		docs := environment.ModuleDocComments(name)
		members := make([]model.ModuleDoc, 0, len(docs))
		for _, d := range docs {
			members = append(members, model.ModuleDoc{Text: d.Text, Range: d.Range})
		}
		moduleInfo[name] = model.NewModule(name, members...)
	}
	return moduleInfo
}

// finishRun freezes every module (the single authoritative ordering point)
// and assembles the immutable Result.
func (p *Pipeline) finishRun(ctx context.Context, state *runState, matrix *model.Matrix, span trace.Span) (*model.Result, *Report, error) {
	for _, mod := range state.moduleInfo {
		mod.Freeze()
	}

	loaded := state.environment.LoadedModules()
	names := make([]string, len(loaded))
	copy(names, loaded)
	name2Idx := make(map[string]int, len(names))
	for i, name := range names {
		name2Idx[name] = i
	}

	result := &model.Result{
		Name2ModIdx: name2Idx,
		ModuleNames: names,
		ModuleInfo:  state.moduleInfo,
		ImportAdj:   matrix,
	}

	duration := time.Since(state.startTime)
	state.report.Stats.DurationMilli = duration.Milliseconds()
	state.report.Stats.DurationMicro = duration.Microseconds()

	setRunSpanResult(span, state.report)
	recordRunMetrics(ctx, duration, state.report)

	p.options.Logger.Info("analysis run complete",
		slog.String("snapshot_id", state.environment.SnapshotID()),
		slog.Int("modules_relevant", state.report.Stats.ModulesRelevant),
		slog.Int("decls_documented", state.report.Stats.DeclsDocumented),
		slog.Int("decls_failed", state.report.Stats.DeclsFailed),
		slog.Bool("incomplete", state.report.Incomplete),
	)

	return result, state.report, nil
}
