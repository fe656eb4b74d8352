// Package templates provides project scaffolding for pagefiles init.
//
// # Available Templates
//
//   - minimal: a root layout and a home page
//   - nested: nested layouts, index routes and a standalone page
//
// # Usage
//
//	tmpl, err := templates.Get("nested")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	skipped, err := tmpl.Create(projectDir, templates.Config{ProjectName: "app"})
//
// # Template Variables
//
// Templates use [[ ]] delimiters so JSX braces stay literal:
//
//	[[.ProjectName]]  - Name of the project
//	[[.ModuleID]]     - Virtual module id of the routes
//	[[.Output]]       - Routes module path
package templates
