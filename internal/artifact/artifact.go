package artifact

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"media-enricher/internal/logging"
)

const (
	keyLength   = 12
	keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Scratch directory name prefixes, swept on startup and namespaced per
// naming key while a generator runs.
const (
	SpriteScratchPrefix  = "screenshots_"
	PreviewScratchPrefix = "preview_temp_"
	CoverScratchPrefix   = "cover_temp_"
)

// FallbackKey returns a random 12-character lowercase alphanumeric token
// used to name artifacts for items without a stable fingerprint. The key
// is not persisted anywhere, so an item that keeps hashing to nothing
// gets a fresh key every run and its previous artifacts are orphaned.
func FallbackKey() string {
	b := make([]byte, keyLength)
	for i := range b {
		b[i] = keyAlphabet[rand.IntN(len(keyAlphabet))]
	}
	return string(b)
}

// SafeKey returns hash if it is usable as a filesystem naming key, and a
// fallback token otherwise. Colons, slashes and backslashes disqualify a
// hash because the key is embedded verbatim in artifact filenames.
func SafeKey(hash string) string {
	if hash == "" || strings.ContainsAny(hash, `:/\`) {
		return FallbackKey()
	}
	return hash
}

// Exists reports whether the destination artifact is already present.
// Generators must consult this immediately before starting and never
// again once generation is underway.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ScratchDir creates and returns a scratch directory for one generator
// run, namespaced by prefix and naming key so concurrent runs never
// collide.
func ScratchDir(root, prefix, key string) (string, error) {
	dir := filepath.Join(root, prefix+key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating scratch dir %s: %w", dir, err)
	}
	return dir, nil
}

// CleanStale removes scratch directories left behind by a previous
// crashed run. Only directories whose names carry a known scratch prefix
// are touched.
func CleanStale(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		logging.Warn("cannot scan %s for stale scratch dirs: %v", root, err)
		return
	}

	prefixes := []string{SpriteScratchPrefix, PreviewScratchPrefix, CoverScratchPrefix}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				path := filepath.Join(root, name)
				if err := os.RemoveAll(path); err != nil {
					logging.Warn("failed to remove stale scratch dir %s: %v", path, err)
				} else {
					logging.Verbose("Removed leftover scratch dir: %s", path)
				}
				break
			}
		}
	}
}
