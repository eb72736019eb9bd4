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
	"log/slog"
	"runtime"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/env"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// cacheOutcome describes how the doc cache participated in one analysis.
type cacheOutcome struct {
	checked bool
	hit     bool
}

// processConstant handles one entry of the environment's constant table:
// ownership resolution, scope filtering, analysis, and member aggregation.
//
// A non-nil return is fatal to the run (environment contract violation or
// aggregation into a frozen module). Analysis failures are absorbed into
// the report and logged; they never propagate.
func (p *Pipeline) processConstant(ctx context.Context, state *runState, name string, info env.ConstantInfo) error {
	state.report.Stats.ConstantsSeen++

	owner, ok := state.environment.OwningModule(name)
	if !ok {
		// The environment handed us a declaration it cannot place.
		return &EnvContractError{Op: "OwningModule", Subject: name}
	}
	module, relevant := state.moduleInfo[owner]
	if !relevant {
		state.report.Stats.ConstantsOutOfScope++
		return nil
	}

	record, cache, err := p.analyzeOne(ctx, state.environment.SnapshotID(), name, info)
	if cache.checked {
		if cache.hit {
			state.report.Stats.CacheHits++
		} else {
			state.report.Stats.CacheMisses++
		}
	}
	if err != nil {
		p.reportDeclFailure(ctx, state.report, name, owner, err)
		return nil
	}
	if record == nil {
		state.report.Stats.DeclsNonDocumentable++
		return nil
	}

	if err := module.Append(model.DeclarationDoc{Record: *record}); err != nil {
		return err
	}
	state.report.Stats.DeclsDocumented++
	return nil
}

// reportDeclFailure records one dropped declaration on the report and emits
// the warning line naming the declaration and the failure cause.
func (p *Pipeline) reportDeclFailure(ctx context.Context, report *Report, decl, owner string, err error) {
	report.DeclErrors = append(report.DeclErrors, DeclError{Decl: decl, Module: owner, Err: err})
	report.Stats.DeclsFailed++
	p.options.Logger.Warn("dropping declaration after analysis failure",
		slog.String("decl", decl),
		slog.String("module", owner),
		slog.String("cause", err.Error()),
	)
	recordDeclDropMetric(ctx, failureCause(err))
}

// analyzeOne runs the declaration analyzer once, inside a fresh analysis
// context with its own budget, with panic recovery. A recovered panic is
// converted into an error carrying the goroutine stack, so a crashing
// analyzer drops only its own declaration.
//
// Thread Safety: safe for concurrent use; touches no per-run accumulator
// state.
func (p *Pipeline) analyzeOne(ctx context.Context, snapshotID, name string, info env.ConstantInfo) (record *model.DocRecord, cache cacheOutcome, err error) {
	if p.options.Cache != nil && info.Hash != "" {
		cache.checked = true
		cached, hit, cacheErr := p.options.Cache.Get(ctx, name, info.Hash)
		if cacheErr != nil {
			p.options.Logger.Warn("doc cache lookup failed",
				slog.String("decl", name),
				slog.String("error", cacheErr.Error()),
			)
		} else if hit {
			cache.hit = true
			return cached, cache, nil
		}
	}

	actx := &AnalysisContext{
		Budget:     NewBudget(p.options.BudgetLimit),
		SnapshotID: snapshotID,
		Logger:     p.options.Logger.With(slog.String("decl", name)),
		Options:    cloneOptions(p.options.AnalyzerOptions),
	}

	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 8192)
			stack = stack[:runtime.Stack(stack, false)]
			record = nil
			err = &panicError{value: r, stack: stack}
		}
	}()

	record, err = p.analyzer.Analyze(ctx, name, info, actx)
	if err != nil {
		return nil, cache, err
	}
	if record != nil && p.options.Cache != nil && info.Hash != "" {
		if cacheErr := p.options.Cache.Put(ctx, name, info.Hash, record); cacheErr != nil {
			p.options.Logger.Warn("doc cache store failed",
				slog.String("decl", name),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return record, cache, nil
}

// cloneOptions copies the analyzer option map so each invocation gets a
// private, mutation-safe view.
func cloneOptions(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
