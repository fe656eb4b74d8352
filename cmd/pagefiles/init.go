package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pagefiles/internal/templates"
)

func initCmd() *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a pagefiles project",
		Long: `Create pagefiles.json and example pagefiles.

Existing files are left untouched.

Templates:
  ` + strings.Join(templates.List(), ", ") + `

Examples:
  pagefiles init
  pagefiles init web --template nested`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, template)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Template to use")

	return cmd
}

func runInit(dir, name string) error {
	tmpl, err := templates.Get(name)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return err
	}

	skipped, err := tmpl.Create(abs, templates.Config{ProjectName: filepath.Base(abs)})
	if err != nil {
		return err
	}

	for _, path := range skipped {
		warn("Skipped %s (already exists)", path)
	}
	success("Created %s project in %s", tmpl.Name, abs)
	fmt.Println()
	info("Next: pagefiles gen")
	return nil
}
