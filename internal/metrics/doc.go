// Package metrics defines the Prometheus instrumentation for the
// enrichment worker and an optional HTTP listener that exposes it.
//
// All collectors are package-level and registered via promauto, so any
// package can record without plumbing a registry around. The listener
// is opt-in: it only starts when a metrics port is configured, and the
// worker runs identically without it.
package metrics
