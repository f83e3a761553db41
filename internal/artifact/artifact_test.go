package artifact

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9]{12}$`)

func TestFallbackKeyShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := FallbackKey()
		if !keyPattern.MatchString(key) {
			t.Fatalf("FallbackKey() = %q, want 12 lowercase alphanumerics", key)
		}
	}
}

func TestFallbackKeyIndependence(t *testing.T) {
	const n = 64
	keys := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() { keys <- FallbackKey() }()
	}

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		k := <-keys
		if seen[k] {
			t.Fatalf("duplicate fallback key %q across concurrent calls", k)
		}
		seen[k] = true
	}
}

func TestSafeKey(t *testing.T) {
	tests := []struct {
		name     string
		hash     string
		fallback bool
	}{
		{"stable hash", "a1b2c3d4e5f6a7b8", false},
		{"empty hash", "", true},
		{"colon", "ab:cd", true},
		{"forward slash", "ab/cd", true},
		{"backslash", `ab\cd`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeKey(tt.hash)
			if tt.fallback {
				if got == tt.hash {
					t.Errorf("SafeKey(%q) returned the unsafe hash unchanged", tt.hash)
				}
				if !keyPattern.MatchString(got) {
					t.Errorf("SafeKey(%q) = %q, want fallback token", tt.hash, got)
				}
			} else if got != tt.hash {
				t.Errorf("SafeKey(%q) = %q, want hash unchanged", tt.hash, got)
			}
		})
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "sprite.jpg")
	if err := os.WriteFile(present, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(present) {
		t.Error("Exists() = false for present file")
	}
	if Exists(filepath.Join(dir, "absent.jpg")) {
		t.Error("Exists() = true for absent file")
	}
}

func TestScratchDir(t *testing.T) {
	root := t.TempDir()

	dir, err := ScratchDir(root, SpriteScratchPrefix, "abc123def456")
	if err != nil {
		t.Fatalf("ScratchDir() error = %v", err)
	}
	if filepath.Base(dir) != "screenshots_abc123def456" {
		t.Errorf("ScratchDir() = %q, want prefix+key name", dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("scratch dir not created: %v", err)
	}

	// Creating it again is fine.
	if _, err := ScratchDir(root, SpriteScratchPrefix, "abc123def456"); err != nil {
		t.Errorf("ScratchDir() second call error = %v", err)
	}
}

func TestCleanStale(t *testing.T) {
	root := t.TempDir()

	stale := []string{"screenshots_aaa", "preview_temp_bbb", "cover_temp_ccc"}
	keep := []string{"generated", "screenshotsarchive_x"}
	for _, name := range append(append([]string{}, stale...), keep...) {
		if err := os.Mkdir(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// A regular file with a scratch prefix must be left alone.
	if err := os.WriteFile(filepath.Join(root, "screenshots_file"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	CleanStale(root)

	for _, name := range stale {
		if Exists(filepath.Join(root, name)) {
			t.Errorf("stale dir %s not removed", name)
		}
	}
	for _, name := range keep {
		if !Exists(filepath.Join(root, name)) {
			t.Errorf("unrelated dir %s was removed", name)
		}
	}
	if !Exists(filepath.Join(root, "screenshots_file")) {
		t.Error("regular file with scratch prefix was removed")
	}
}
