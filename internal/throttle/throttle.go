// Package throttle gates batch starts on host resource headroom.
//
// Before each batch the scheduler asks whether CPU load, free memory
// and free disk are within the configured limits. A zero threshold
// disables that check, and probe errors fail open: a broken probe must
// not stall enrichment.
package throttle

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"media-enricher/internal/logging"
)

// Limits holds the resource thresholds. Zero disables a check.
type Limits struct {
	// MaxCPUPercent blocks batches while total CPU usage is above it.
	MaxCPUPercent float64
	// MinFreeMem blocks batches while available memory is below it, in bytes.
	MinFreeMem int64
	// MinFreeDisk blocks batches while free space on Path is below it, in bytes.
	MinFreeDisk int64
	// Path is the filesystem checked for MinFreeDisk, typically the
	// artifact output directory.
	Path string
}

// Enabled reports whether any check is active.
func (l Limits) Enabled() bool {
	return l.MaxCPUPercent > 0 || l.MinFreeMem > 0 || l.MinFreeDisk > 0
}

// Check returns nil when a batch may start, or an error naming the
// exhausted resource.
func (l Limits) Check() error {
	if l.MaxCPUPercent > 0 {
		percents, err := cpu.Percent(time.Second, false)
		if err != nil {
			logging.Warn("CPU probe failed, skipping check: %v", err)
		} else if len(percents) > 0 && percents[0] > l.MaxCPUPercent {
			return fmt.Errorf("CPU usage %.1f%% above limit %.1f%%", percents[0], l.MaxCPUPercent)
		}
	}

	if l.MinFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			logging.Warn("Memory probe failed, skipping check: %v", err)
		} else if int64(vm.Available) < l.MinFreeMem {
			return fmt.Errorf("available memory %d bytes below limit %d", vm.Available, l.MinFreeMem)
		}
	}

	if l.MinFreeDisk > 0 {
		path := l.Path
		if path == "" {
			path = "."
		}
		du, err := disk.Usage(path)
		if err != nil {
			logging.Warn("Disk probe failed, skipping check: %v", err)
		} else if int64(du.Free) < l.MinFreeDisk {
			return fmt.Errorf("free disk %d bytes on %s below limit %d", du.Free, path, l.MinFreeDisk)
		}
	}

	return nil
}
