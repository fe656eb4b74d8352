// Package dev keeps the route table in sync with the file system.
//
// This package implements:
//   - the Controller, the single owner of the pagefile registry
//   - file watching with debounced add/change/remove events
//   - a WebSocket reload hub with an error overlay client
//   - the development HTTP server
//
// # Architecture
//
//	Watcher -> Controller.Enqueue -> Controller.Run
//	                                   |  registry mutation (one event at a time)
//	                                   |  router.Build on a snapshot
//	                                   |  Generator.Generate
//	                                   v
//	                     OnRoutesGenerated (only when output changed)
//	                                   |
//	                     WriteGeneration, ReloadServer.NotifyRoutes
//
// # Error Policy
//
// A strict Controller returns the first extraction, validation or
// resolution error and leaves the last generation untouched. A lenient
// Controller logs per-file errors and leaves those files out, while
// structural errors (missing or duplicate layouts, cycles) skip the pass.
// Either way the current errors are published through OnDiagnostics.
//
// # Usage
//
//	ctrl := dev.NewController(dev.ControllerOptions{
//	    Root:      cfg.Dir(),
//	    Registry:  reg,
//	    Matcher:   matcher,
//	    Generator: gen,
//	})
//
//	srv := dev.NewServer(dev.ServerOptions{
//	    Config:     cfg,
//	    Controller: ctrl,
//	    Watcher:    dev.NewWatcher(dev.WatcherConfig{Root: cfg.Dir(), Matcher: matcher}),
//	})
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Reload Protocol
//
// Clients connect to /ws. Messages are JSON-encoded:
//
//	{"type": "routes", "seq": 3, "hash": "..."} // routes changed
//	{"type": "error", "errors": [...]}           // current errors
//	{"type": "clear"}                            // no errors
package dev
