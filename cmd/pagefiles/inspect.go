package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pagefiles/internal/config"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

func inspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print what pagefiles extracts from a file",
		Long: `Extract a single file in the sandbox and print its record and
validation result.

Examples:
  pagefiles inspect src/Home.page.tsx
  pagefiles inspect src/App.layout.tsx --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// inspection is the JSON form of an inspect run.
type inspection struct {
	Record  pagefile.Record `json:"record"`
	Kind    string          `json:"kind"`
	Name    string          `json:"name,omitempty"`
	Valid   bool            `json:"valid"`
	Reasons []string        `json:"reasons,omitempty"`
}

func runInspect(ctx context.Context, file string, asJSON bool) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	matcher, err := pagefile.NewMatcher(cfg.Dir(), cfg.Pages, cfg.Layouts)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := newExtractor(cfg, nil).Extract(ctx, abs)
	if err != nil {
		return err
	}

	result := inspection{
		Record:  rec,
		Kind:    "page",
		Reasons: pagefile.Validate(rec),
	}
	if matcher.IsLayout(abs) {
		result.Kind = "layout"
	}
	result.Valid = len(result.Reasons) == 0
	result.Name = pagefile.ResolvedName(rec)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !matcher.Matches(abs) {
		warn("%s does not match any page or layout glob", file)
	}

	meta, err := json.MarshalIndent(rec.Meta, "  ", "  ")
	if err != nil {
		return err
	}

	fmt.Println()
	info("File:     %s", rec.FilePath)
	info("Kind:     %s", result.Kind)
	info("Name:     %s", result.Name)
	info("Exports:  %v", rec.Exports)
	info("Meta:     %s", meta)
	fmt.Println()

	if result.Valid {
		success("Valid pagefile")
		return nil
	}
	for _, reason := range result.Reasons {
		errorMsg("%s", reason)
	}
	return fmt.Errorf("%s is not a valid pagefile", file)
}
