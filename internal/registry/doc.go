// Package registry holds the extracted record of every known pagefile.
//
// The registry is the single mutable source of truth. File events add,
// update or remove records; every algorithmic pass works on a Snapshot,
// which never shares memory with the live map.
//
// # Failure Handling
//
// When extraction fails the stale record for that path is removed before
// the error is returned. A failed file therefore disappears from the route
// tree instead of being served with outdated metadata.
//
// # Content Cache
//
// Results are cached by path and xxhash of the file contents. A change
// event that leaves the bytes untouched (an editor touching mtime, a save
// without edits) reuses the cached record without starting a sandbox.
//
// # Usage
//
//	reg := registry.New(registry.Options{Extractor: sandbox.New(sandbox.Options{})})
//
//	errs := reg.AddAll(ctx, paths)
//	err := reg.AddOrUpdate(ctx, "/app/src/Home.page.tsx")
//	reg.Remove("/app/src/Old.page.tsx")
//
//	records := reg.Snapshot()
package registry
