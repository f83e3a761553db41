/*
Package logging provides leveled, printf-style logging for the enrichment
worker.

Log level is controlled by environment variables:

	DEBUG=true        enable debug output
	LOG_LEVEL=warn    set an explicit minimum level

Besides the usual Debug/Info/Warn/Error helpers there are three
worker-specific entry points:

  - Progress: always-visible batch and per-scene milestones
  - Verbose: extra per-scene detail, gated by the --verbose flag via
    SetVerbose rather than the environment
  - DryRun: "[DRY RUN] Would ..." narration emitted in place of every
    state-mutating action when dry-run mode is active

All functions are safe for concurrent use.
*/
package logging
