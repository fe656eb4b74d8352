// Package sandbox extracts pagefile metadata by running each file in a
// separate, killable process.
//
// Extraction works in two steps:
//
//  1. Bundle: esbuild compiles a small entry script that imports the target
//     file. Every import made by the target is replaced with an inert proxy
//     module, so stylesheets, images and unrelated libraries are never
//     resolved or executed.
//  2. Run: the bundle runs under Node.js in its own process group. It
//     evaluates Meta, inspects the default export, and writes exactly one
//     JSON message to file descriptor 3 before exiting.
//
// The child's stdout is discarded so console output in user code cannot
// corrupt the response. On timeout the whole process group is killed.
//
// # Usage
//
//	ex := sandbox.New(sandbox.Options{Timeout: 5 * time.Second})
//	rec, err := ex.Extract(ctx, "/app/src/Home.page.tsx")
package sandbox
