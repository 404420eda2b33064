// Package registry owns the mapping from opaque handles to live engine
// objects.
//
// A Registry is confined to the command server's worker goroutine: every
// engine object it holds has single-goroutine affinity, and confining the
// registry to that goroutine is what makes the affinity requirement
// satisfiable without locking the objects themselves. Nothing in this
// package is safe for concurrent use, and nothing needs to be.
//
// Handles are partitioned by kind. IDs are allocated monotonically and never
// reused, so a handle freed in the past stays recognizably dead instead of
// aliasing a newer object.
package registry
