/*
Package workers sizes the two bounded worker pools used by the enrichment
worker: the scene pool (one full pipeline per worker) and the per-sprite
frame-extraction pool nested inside it.

Counts are derived from runtime.GOMAXPROCS(0) so container CPU limits are
respected, and can be pinned with the ENRICHER_WORKERS environment
variable. Because both pools fan out to external ffmpeg processes, the
configured worker counts from the config file act as hard caps on top of
the CPU-derived values.
*/
package workers
