// Package mocks provides in-memory implementations of the store
// interfaces for unit tests. They honor the same contracts as the real
// implementations (conditional writes, not-found sentinels) but hold
// everything in maps guarded by a mutex, and report a nil DB so
// RunInTransaction executes directly.
package mocks
