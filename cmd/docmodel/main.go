// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// docmodel extracts a documentation model from a compiler environment dump:
// per-module doc records, module-level doc comments, and the import
// adjacency matrix, assembled into one JSON result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianDocs/pkg/logging"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/analyzer"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/cache"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/config"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/env"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/hierarchy"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/model"
	badgerstore "github.com/AleutianAI/AleutianDocs/services/docmodel/storage/badger"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/telemetry"
	"github.com/AleutianAI/AleutianDocs/services/docmodel/watch"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docmodel",
		Short: "Documentation model extraction for elaborated projects",
		Long: `docmodel analyzes a compiler environment dump and produces the
documentation model consumed by rendering and navigation tooling: one record
per documented declaration, module doc comments, and the module import graph.`,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [environment dump]",
		Short: "Run documentation analysis over an environment dump",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCommand,
	}

	watchCmd = &cobra.Command{
		Use:   "watch [environment dump]",
		Short: "Analyze, then re-analyze changed modules as source files change",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchCommand,
	}

	configPath   string
	outputPath   string
	scopeModules []string
	logLevel     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the result JSON to this file (default stdout)")
	analyzeCmd.Flags().StringSliceVar(&scopeModules, "module", nil, "restrict analysis to these modules (repeatable); default is all modules")
	watchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write each result JSON to this file")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the wired-up pieces shared by analyze and watch.
type app struct {
	cfg      config.Config
	logger   *logging.Logger
	pipeline *analyzer.Pipeline
	store    *badgerstore.DocStore
	shutdown func(context.Context) error
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Observability.LogLevel),
		Service: "docmodel",
	})

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "docmodel",
		ServiceVersion: "1.0.0",
		Environment:    "cli",
		TraceExporter:  cfg.Observability.TracesExporter,
		MetricExporter: cfg.Observability.MetricsExporter,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if handler := telemetry.MetricsHandler(); handler != nil {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			if err := http.ListenAndServe(cfg.Observability.PrometheusAddr, mux); err != nil {
				logger.Warn("metrics endpoint stopped", "error", err.Error())
			}
		}()
	}

	a := &app{cfg: cfg, logger: logger, shutdown: shutdown}

	opts := []analyzer.Option{
		analyzer.WithBudgetLimit(cfg.Analysis.BudgetLimit),
		analyzer.WithLogger(logger.Slog()),
	}
	if cfg.Analysis.WorkerCount > 0 {
		opts = append(opts, analyzer.WithWorkerCount(cfg.Analysis.WorkerCount))
	}
	if cfg.Cache.Enabled {
		cacheOpts := []cache.Option{cache.WithMemorySize(cfg.Cache.MemorySize)}
		if cfg.Cache.StorePath != "" {
			store, err := badgerstore.Open(badgerstore.DefaultConfig(cfg.Cache.StorePath))
			if err != nil {
				return nil, fmt.Errorf("open doc store: %w", err)
			}
			a.store = store
			cacheOpts = append(cacheOpts, cache.WithStore(store))
		}
		docCache, err := cache.New(cacheOpts...)
		if err != nil {
			return nil, fmt.Errorf("create doc cache: %w", err)
		}
		opts = append(opts, analyzer.WithCache(docCache))
	}

	a.pipeline = analyzer.New(analyzer.NewDocstringAnalyzer(), opts...)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing doc store failed", "error", err.Error())
		}
	}
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err.Error())
	}
	a.logger.Close()
}

func (a *app) run(ctx context.Context, environment env.Environment, scope analyzer.Scope) (*model.Result, *analyzer.Report, error) {
	if a.cfg.Analysis.Parallel {
		return a.pipeline.RunParallel(ctx, environment, scope)
	}
	return a.pipeline.Run(ctx, environment, scope)
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	snapshot, err := env.LoadSnapshotFile(args[0])
	if err != nil {
		return err
	}

	scope := analyzer.ScopeAll()
	if len(scopeModules) > 0 {
		scope = analyzer.ScopeModules(scopeModules...)
	}

	result, report, err := a.run(ctx, snapshot, scope)
	if err != nil {
		return err
	}
	for _, declErr := range report.DeclErrors {
		a.logger.Warn("declaration dropped", "decl", declErr.Decl, "module", declErr.Module, "cause", declErr.Err.Error())
	}
	a.logger.Info("analysis finished",
		"modules", report.Stats.ModulesRelevant,
		"documented", report.Stats.DeclsDocumented,
		"failed", report.Stats.DeclsFailed,
		"duration_ms", report.Stats.DurationMilli,
	)

	return writeResult(result, snapshot)
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	dumpPath := args[0]
	snapshot, err := env.LoadSnapshotFile(dumpPath)
	if err != nil {
		return err
	}

	result, _, err := a.run(ctx, snapshot, analyzer.ScopeAll())
	if err != nil {
		return err
	}
	if err := writeResult(result, snapshot); err != nil {
		return err
	}

	roots := watchRoots(snapshot)
	if len(roots) == 0 {
		return fmt.Errorf("environment dump carries no source files to watch")
	}

	reanalyze := func(ctx context.Context, modules []string) {
		// The dump is the compiler's output, so pick up its latest state
		// before re-running the changed modules.
		fresh, err := env.LoadSnapshotFile(dumpPath)
		if err != nil {
			a.logger.Error("reloading environment dump failed", "error", err.Error())
			return
		}
		result, report, err := a.run(ctx, fresh, analyzer.ScopeModules(modules...))
		if err != nil {
			a.logger.Error("re-analysis failed", "error", err.Error())
			return
		}
		a.logger.Info("re-analysis finished",
			"modules", report.Stats.ModulesRelevant,
			"documented", report.Stats.DeclsDocumented,
		)
		if err := writeResult(result, fresh); err != nil {
			a.logger.Error("writing result failed", "error", err.Error())
		}
	}

	watcher, err := watch.NewSourceWatcher(roots, snapshotResolver{snapshot}, reanalyze, &watch.Options{
		Debounce: a.cfg.Watch.Debounce,
		Logger:   a.logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("create source watcher: %w", err)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	a.logger.Info("watching for source changes", "roots", len(roots))
	<-ctx.Done()
	return nil
}

// snapshotResolver adapts a Snapshot's source-file mapping to the watcher.
type snapshotResolver struct {
	snapshot *env.Snapshot
}

func (r snapshotResolver) ModuleForSourceFile(path string) (string, bool) {
	for _, name := range r.snapshot.LoadedModules() {
		if src, ok := r.snapshot.ModuleSourceFile(name); ok && src == path {
			return name, true
		}
	}
	return "", false
}

// watchRoots collects the distinct parent directories of all module source
// files.
func watchRoots(snapshot *env.Snapshot) []string {
	seen := make(map[string]struct{})
	var roots []string
	for _, name := range snapshot.LoadedModules() {
		src, ok := snapshot.ModuleSourceFile(name)
		if !ok {
			continue
		}
		dir := filepath.Dir(src)
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		roots = append(roots, dir)
	}
	return roots
}

// resultJSON is the serialized form of an analysis result.
type resultJSON struct {
	ModuleNames []string              `json:"module_names"`
	Name2ModIdx map[string]int        `json:"name2_mod_idx"`
	Modules     map[string]moduleJSON `json:"modules"`
	ImportAdj   [][]bool              `json:"import_adj"`
	Hierarchy   []string              `json:"hierarchy"`
}

type moduleJSON struct {
	Name    string       `json:"name"`
	Members []memberJSON `json:"members"`
}

type memberJSON struct {
	Kind   string           `json:"kind"`
	Name   string           `json:"name,omitempty"`
	Doc    string           `json:"doc"`
	Record *model.DocRecord `json:"record,omitempty"`
}

func writeResult(result *model.Result, environment env.Environment) error {
	rows, err := adjacencyRows(result.ImportAdj, result.ModuleNames, environment)
	if err != nil {
		return err
	}
	out := resultJSON{
		ModuleNames: result.ModuleNames,
		Name2ModIdx: result.Name2ModIdx,
		Modules:     make(map[string]moduleJSON, len(result.ModuleInfo)),
		ImportAdj:   rows,
	}

	tree := hierarchy.FromModuleNames(result.ModuleNames)
	tree.Root().Walk(func(n *hierarchy.Node) {
		if n.IsModule {
			out.Hierarchy = append(out.Hierarchy, n.FullName)
		}
	})

	for name, mod := range result.ModuleInfo {
		mj := moduleJSON{Name: name}
		for _, member := range mod.Members() {
			entry := memberJSON{Doc: member.DocString()}
			if memberName, ok := member.MemberName(); ok {
				entry.Kind = "declaration"
				entry.Name = memberName
				if decl, isDecl := member.(model.DeclarationDoc); isDecl {
					rec := decl.Record
					entry.Record = &rec
				}
			} else {
				entry.Kind = "moduledoc"
			}
			mj.Members = append(mj.Members, entry)
		}
		out.Modules[name] = mj
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

// adjacencyRows serializes the import matrix in module_names order, so a
// JSON consumer can index rows positionally against that list. The matrix
// itself lives in the environment's index space, which can legitimately
// differ from load order, so every cell is re-addressed through
// Environment.ModuleIndex here.
func adjacencyRows(m *model.Matrix, names []string, environment env.Environment) ([][]bool, error) {
	indices := make([]int, len(names))
	for i, name := range names {
		idx, ok := environment.ModuleIndex(name)
		if !ok {
			return nil, fmt.Errorf("module %s has no environment index", name)
		}
		indices[i] = idx
	}
	rows := make([][]bool, len(names))
	for i := range names {
		rows[i] = make([]bool, len(names))
		for j := range names {
			rows[i][j] = m.At(indices[i], indices[j])
		}
	}
	return rows, nil
}
