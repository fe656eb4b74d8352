package main

import (
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/vango-dev/pagefiles/internal/config"
	"github.com/vango-dev/pagefiles/internal/dev"
	"github.com/vango-dev/pagefiles/internal/metrics"
	"github.com/vango-dev/pagefiles/internal/registry"
	"github.com/vango-dev/pagefiles/internal/sandbox"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
	"github.com/vango-dev/pagefiles/pkg/router"
)

// engine is the pipeline wired from a project configuration.
type engine struct {
	config     *config.Config
	matcher    *pagefile.Matcher
	extractor  *sandbox.Extractor
	generator  *router.Generator
	controller *dev.Controller
}

func newEngine(cfg *config.Config, strict bool, m *metrics.Metrics) (*engine, error) {
	logger := slog.Default()

	matcher, err := pagefile.NewMatcher(cfg.Dir(), cfg.Pages, cfg.Layouts)
	if err != nil {
		return nil, err
	}

	extractor := newExtractor(cfg, m)

	generator := router.NewGenerator(router.GeneratorOptions{
		ModuleID:   cfg.ModuleID,
		ImportMode: importModeFunc(cfg.ImportMode),
		BaseDir:    filepath.Dir(cfg.OutputPath()),
	})

	reg := registry.New(registry.Options{
		Extractor: extractor,
		CacheSize: cfg.Sandbox.CacheSize,
		Logger:    logger,
		Metrics:   m,
	})

	controller := dev.NewController(dev.ControllerOptions{
		Root:      cfg.Dir(),
		Registry:  reg,
		Matcher:   matcher,
		Generator: generator,
		Strict:    strict,
		Ignore:    cfg.Dev.Ignore,
		Logger:    logger,
		Metrics:   m,
	})

	return &engine{
		config:     cfg,
		matcher:    matcher,
		extractor:  extractor,
		generator:  generator,
		controller: controller,
	}, nil
}

func newExtractor(cfg *config.Config, m *metrics.Metrics) *sandbox.Extractor {
	concurrency := cfg.Sandbox.Concurrency
	if concurrency == 0 {
		concurrency = runtime.NumCPU()
	}
	return sandbox.New(sandbox.Options{
		Runtime: &sandbox.NodeRuntime{
			Binary: cfg.Sandbox.Node,
			Dir:    cfg.Dir(),
		},
		Timeout:     cfg.SandboxTimeout(),
		Concurrency: concurrency,
		Logger:      slog.Default(),
		Metrics:     m,
	})
}

// importModeFunc maps the importMode setting to a generator option.
func importModeFunc(mode string) router.ImportModeFunc {
	switch mode {
	case config.ImportModeSync:
		return router.FixedImportMode(router.ImportSync)
	case config.ImportModeAsync:
		return router.FixedImportMode(router.ImportAsync)
	default:
		return router.DefaultImportMode
	}
}
