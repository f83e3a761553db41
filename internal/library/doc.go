/*
Package library is a typed client for the remote media-library service.

The service speaks GraphQL over HTTP. This client exposes exactly the
operations the enrichment worker needs — an eligible-scenes page query,
a count query, bulk tag add/remove, fingerprint replacement, and cover
submission — each with typed request and response structs instead of
free-form payload maps.

The selection predicate is fixed: scenes whose perceptual hash is still
null and which carry none of the workflow tags (claim marker, processing
error, cover error), sorted by creation time descending.

A Client is constructed once at process start and passed into every
component that talks to the service; there is no package-level handle.
*/
package library
