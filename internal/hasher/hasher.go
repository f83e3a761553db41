// Package hasher invokes the external perceptual-hash tool and extracts
// its result.
package hasher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Hasher wraps the external videohash binary. The tool is invoked as
// `<bin> -json <path>` and must print a single JSON object on stdout.
type Hasher struct {
	Bin string
}

type toolOutput struct {
	PHash string `json:"phash"`
}

// PHash computes the perceptual hash for a local video file. Any
// subprocess failure, malformed output, or missing phash field is an
// error.
func (h Hasher) PHash(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, h.Bin, "-json", path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("hash tool error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	var out toolOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return "", fmt.Errorf("hash tool produced invalid JSON: %w", err)
	}
	if out.PHash == "" {
		return "", fmt.Errorf("hash tool output has no phash field: %s", strings.TrimSpace(stdout.String()))
	}

	return out.PHash, nil
}
