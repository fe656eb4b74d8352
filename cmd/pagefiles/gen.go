package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pagefiles/internal/config"
	"github.com/vango-dev/pagefiles/internal/dev"
	pferrors "github.com/vango-dev/pagefiles/internal/errors"
)

func genCmd() *cobra.Command {
	var (
		output   string
		manifest string
		lenient  bool
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate the routes module",
		Long: `Extract every pagefile and write the routes module.

gen is strict by default: any extraction, validation or layout error
aborts the run and nothing is written. With --lenient, broken pagefiles
are reported and left out instead.

The output is deterministic - running it multiple times produces identical
output unless the pagefiles change.

Examples:
  pagefiles gen
  pagefiles gen --output src/routes.gen.js
  pagefiles gen --manifest routes.json --lenient`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), output, manifest, lenient)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default from config)")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Also write a JSON manifest to this file")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "Skip broken pagefiles instead of failing")

	return cmd
}

func runGen(ctx context.Context, output, manifest string, lenient bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output = output
	}
	if manifest != "" {
		cfg.Manifest = manifest
	}

	strict := cfg.Strict(true)
	if lenient {
		strict = false
	}

	eng, err := newEngine(cfg, strict, nil)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	info("Scanning %s...", cfg.Dir())
	if err := eng.controller.Load(ctx); err != nil {
		return err
	}

	for _, d := range eng.controller.Diagnostics() {
		warn("%s: %s", d.SourceFile(), d.Error())
	}

	gen, ok := eng.controller.Current()
	if !ok {
		errorMsg("No routes were generated")
		return pferrors.Newf(pferrors.CodeUnknown, pferrors.CategoryInternal, "route tree not generated")
	}
	info("Found %d pagefiles", len(gen.Pagefiles))

	if err := dev.WriteGeneration(cfg, gen); err != nil {
		return err
	}

	success("Generated %s", cfg.OutputPath())
	if path := cfg.ManifestPath(); path != "" {
		success("Generated %s", path)
	}
	return nil
}
