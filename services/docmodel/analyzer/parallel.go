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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianDocs/services/docmodel/env"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
)

// declJob is one unit of parallel analysis work: a declaration whose owning
// module is already resolved and in scope.
type declJob struct {
	name   string
	info   env.ConstantInfo
	owner  string
	module *model.Module
}

// declOutcome is the result of one analyzed declaration, fed back to the
// single collector goroutine that owns the report.
type declOutcome struct {
	decl  string
	owner string
	doc   bool
	cache cacheOutcome
	err   error
}

// RunParallel executes the pipeline with a bounded worker pool.
//
// Description:
//
//	Semantically identical to Run: same scope selection, same per-item
//	budget and failure isolation, same final Result. Declarations are
//	analyzed by up to WorkerCount goroutines; the import matrix is built
//	concurrently with the analysis phase since it touches only module
//	import lists. Traversal order of the constant table is already
//	unspecified, so parallel completion order changes nothing observable:
//	member ordering comes from the final per-module position sort.
//
//	Ownership resolution stays sequential. It is cheap, and it is the one
//	step that can fail the run, so it happens before any worker starts.
//
// Thread Safety: safe for concurrent use.
func (p *Pipeline) RunParallel(ctx context.Context, environment env.Environment, scope Scope) (*model.Result, *Report, error) {
	state, ctx, span, err := p.beginRun(ctx, environment, scope)
	if err != nil {
		return nil, nil, err
	}
	defer span.End()

	jobs, err := p.collectJobs(ctx, state)
	if err != nil {
		recordRunError(span, err)
		return nil, nil, err
	}

	var matrix *model.Matrix
	matrixDone := make(chan error, 1)
	go func() {
		var buildErr error
		matrix, buildErr = p.buildImportMatrix(ctx, environment)
		matrixDone <- buildErr
	}()

	if err := p.analyzeJobs(ctx, state, jobs); err != nil {
		recordRunError(span, err)
		return nil, nil, err
	}

	if err := <-matrixDone; err != nil {
		recordRunError(span, err)
		return nil, nil, err
	}
	state.report.Stats.ImportEdges = matrix.EdgeCount()

	return p.finishRun(ctx, state, matrix, span)
}

// collectJobs walks the constant table once, resolving ownership and scope
// for every declaration. Contract violations abort here, before any
// analysis work is spent.
func (p *Pipeline) collectJobs(ctx context.Context, state *runState) ([]declJob, error) {
	var jobs []declJob
	var fatal error
	state.environment.ForEachConstant(func(name string, info env.ConstantInfo) bool {
		if state.report.Stats.ConstantsSeen%64 == 0 && ctx.Err() != nil {
			state.report.Incomplete = true
			return false
		}
		state.report.Stats.ConstantsSeen++

		owner, ok := state.environment.OwningModule(name)
		if !ok {
			fatal = &EnvContractError{Op: "OwningModule", Subject: name}
			return false
		}
		module, relevant := state.moduleInfo[owner]
		if !relevant {
			state.report.Stats.ConstantsOutOfScope++
			return true
		}
		jobs = append(jobs, declJob{name: name, info: info, owner: owner, module: module})
		return true
	})
	return jobs, fatal
}

// analyzeJobs fans the job list out to the worker pool. Workers append
// successful records straight onto the owning module (Module serializes
// its own appends); everything that touches the report flows through the
// collector goroutine.
func (p *Pipeline) analyzeJobs(ctx context.Context, state *runState, jobs []declJob) error {
	outcomes := make(chan declOutcome, p.options.WorkerCount)

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for outcome := range outcomes {
			if outcome.cache.checked {
				if outcome.cache.hit {
					state.report.Stats.CacheHits++
				} else {
					state.report.Stats.CacheMisses++
				}
			}
			switch {
			case outcome.err != nil:
				p.reportDeclFailure(ctx, state.report, outcome.decl, outcome.owner, outcome.err)
			case outcome.doc:
				state.report.Stats.DeclsDocumented++
			default:
				state.report.Stats.DeclsNonDocumentable++
			}
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.options.WorkerCount)
	for _, job := range jobs {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			record, cache, err := p.analyzeOne(groupCtx, state.environment.SnapshotID(), job.name, job.info)
			outcome := declOutcome{decl: job.name, owner: job.owner, cache: cache, err: err}
			if err == nil && record != nil {
				if appendErr := job.module.Append(model.DeclarationDoc{Record: *record}); appendErr != nil {
					return appendErr
				}
				outcome.doc = true
			}
			outcomes <- outcome
			return nil
		})
	}

	err := group.Wait()
	close(outcomes)
	<-collectorDone

	if err != nil {
		if ctx.Err() != nil {
			state.report.Incomplete = true
			return nil
		}
		return err
	}
	return nil
}
