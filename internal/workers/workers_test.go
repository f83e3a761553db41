package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	originalEnv := os.Getenv("ENRICHER_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("ENRICHER_WORKERS", originalEnv)
		} else {
			os.Unsetenv("ENRICHER_WORKERS")
		}
	}()

	os.Unsetenv("ENRICHER_WORKERS")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound (1.0x)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "subprocess-bound (2.0x)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "very low multiplier floors at 1",
			multiplier: 0.01,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	originalEnv := os.Getenv("ENRICHER_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("ENRICHER_WORKERS", originalEnv)
		} else {
			os.Unsetenv("ENRICHER_WORKERS")
		}
	}()

	os.Setenv("ENRICHER_WORKERS", "7")
	if got := Count(1.0, 0); got != 7 {
		t.Errorf("Count with override = %d, want 7", got)
	}
	if got := Count(1.0, 3); got != 3 {
		t.Errorf("Count with override above limit = %d, want 3", got)
	}

	os.Setenv("ENRICHER_WORKERS", "not-a-number")
	if got := Count(1.0, 0); got < 1 {
		t.Errorf("Count with invalid override = %d, want >= 1", got)
	}
}

func TestForScenesAndForFrames(t *testing.T) {
	originalEnv := os.Getenv("ENRICHER_WORKERS")
	defer func() {
		if originalEnv != "" {
			os.Setenv("ENRICHER_WORKERS", originalEnv)
		} else {
			os.Unsetenv("ENRICHER_WORKERS")
		}
	}()
	os.Unsetenv("ENRICHER_WORKERS")

	if got := ForScenes(4); got < 1 || got > 4 {
		t.Errorf("ForScenes(4) = %d, want within [1,4]", got)
	}
	if got := ForFrames(4); got < 1 || got > 4 {
		t.Errorf("ForFrames(4) = %d, want within [1,4]", got)
	}
}
