// Package batch schedules enrichment work against the library service.
//
// The scheduler repeatedly fetches the first page of scenes matching
// the selection filter, bulk-claims the page, and fans the scenes out
// over a bounded worker pool. Because an enriched scene stops matching
// the filter and a failed scene gains an error tag, the first page is
// always fresh work and the loop terminates when the page comes back
// empty. A configurable delay separates consecutive batches, and
// optional resource limits can defer a batch while the host is busy.
package batch
