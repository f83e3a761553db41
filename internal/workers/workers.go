package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns a worker count derived from the CPUs actually available
// to the process. GOMAXPROCS respects container CPU limits (Go 1.19+),
// unlike runtime.NumCPU which reports the host.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for tasks that mostly wait on I/O or subprocesses
//
// The limit parameter caps the worker count; use 0 for no limit.
//
// Can be overridden with the ENRICHER_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("ENRICHER_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	count := int(float64(available) * multiplier)

	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}

	return count
}

// ForScenes returns the worker count for scene pipelines. A scene worker
// spends most of its time blocked on ffmpeg and the hash tool, so it gets
// the I/O multiplier.
func ForScenes(limit int) int {
	return Count(2.0, limit)
}

// ForFrames returns the worker count for the frame-extraction pool nested
// inside a single sprite generation. Each extraction is its own ffmpeg
// process, so this is capped tightly to avoid multiplying against the
// scene pool.
func ForFrames(limit int) int {
	return Count(1.0, limit)
}
