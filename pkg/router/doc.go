// Package router turns extracted pagefile records into a nested route tree
// and serializes it as a JavaScript routes module.
//
// The pipeline has three stages:
//   - Validation narrows raw records into pagefiles (see package pagefile)
//   - Layout resolution assigns every pagefile its parent layout
//   - Assembly nests pagefiles under their layouts and orders siblings
//
// # Layout Resolution
//
// A pagefile's parent is chosen by the first rule that applies:
//
//	layout: null        → root level
//	layout: "AppLayout" → the layout whose resolved name is AppLayout
//	path: "/teams/new"  → the layout with the longest matching path prefix
//	(no path)           → root level
//
// A layout never resolves to itself by path, only to a strict ancestor.
//
// # Index Routes
//
// A page whose path equals its parent layout's path becomes that layout's
// index route:
//
//	App.layout.tsx   path: "/"        → { path: "/", children: [...] }
//	Home.page.tsx    path: "/"        →   { index: true }
//	About.page.tsx   path: "/about"   →   { path: "/about" }
//
// # Usage
//
//	res, err := router.Build(records, matcher.IsLayout)
//	if err != nil {
//	    // structural error: duplicate layout, missing layout, cycle
//	}
//
//	gen := router.NewGenerator(router.GeneratorOptions{})
//	code, err := gen.Generate(res.Routes)
package router
