package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()

	dir := t.TempDir()
	if yaml != "" {
		err := os.WriteFile(filepath.Join(dir, "enricher.yaml"), []byte(yaml), 0644)
		require.NoError(t, err)
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFrom(t, "")

	assert.Equal(t, "127.0.0.1", cfg.LibraryHost)
	assert.Equal(t, 9999, cfg.LibraryPort)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 4, cfg.SpriteWorkers)
	assert.Equal(t, 5*time.Second, cfg.BatchDelay)
	assert.Equal(t, 15, cfg.PreviewClips)
	assert.Equal(t, 1.0, cfg.PreviewClipLength)
	assert.Equal(t, 15.0, cfg.PreviewSkipSeconds)
	assert.False(t, cfg.PreviewAudio)
	assert.True(t, cfg.GenerateSprite)
	assert.True(t, cfg.GeneratePreview)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "error_log.txt", cfg.FailureLog)
	assert.Empty(t, cfg.Translations)
}

func TestLoadFromFile(t *testing.T) {
	cfg := loadFrom(t, `
LIBRARY_HOST: 192.168.1.71
BATCH_SIZE: 10
BATCH_DELAY: 30s
THROTTLE_FREEDISK: 200MB
CLAIM_TAG: "15015"
HASH_ERROR_TAG: "15018"
COVER_ERROR_TAG: "15019"
SPRITE_DIR: /stash/generated/vtt
PREVIEW_DIR: /stash/generated/screenshots
TRANSLATIONS:
  - orig: /data/
    local: /mnt/datadrive/
  - orig: /data2/
    local: /mnt/datadrive2/
`)

	assert.Equal(t, "192.168.1.71", cfg.LibraryHost)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.BatchDelay)
	assert.Equal(t, int64(200<<20), cfg.ThrottleFreeDisk)
	require.Len(t, cfg.Translations, 2)
	assert.Equal(t, "/data/", cfg.Translations[0].Orig)
	assert.Equal(t, "/mnt/datadrive/", cfg.Translations[0].Local)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "http://192.168.1.71:9999/graphql", cfg.LibraryURL())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEDIA_ENRICHER_BATCH_SIZE", "3")
	t.Setenv("MEDIA_ENRICHER_DRY_RUN", "true")

	cfg := loadFrom(t, "")

	assert.Equal(t, 3, cfg.BatchSize)
	assert.True(t, cfg.DryRun)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LibraryHost:       "localhost",
			LibraryPort:       9999,
			BatchSize:         25,
			MaxWorkers:        4,
			SpriteWorkers:     4,
			PreviewClips:      15,
			PreviewClipLength: 1,
			ClaimTag:          "1",
			HashErrorTag:      "2",
			CoverErrorTag:     "3",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing host", func(c *Config) { c.LibraryHost = "" }, true},
		{"bad port", func(c *Config) { c.LibraryPort = 99999 }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"zero workers", func(c *Config) { c.MaxWorkers = 0 }, true},
		{"missing tags", func(c *Config) { c.ClaimTag = "" }, true},
		{"sprite enabled without dir", func(c *Config) { c.GenerateSprite = true }, true},
		{"sprite enabled with dir", func(c *Config) {
			c.GenerateSprite = true
			c.SpriteDir = "/tmp/vtt"
		}, false},
		{"negative skip", func(c *Config) { c.PreviewSkipSeconds = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
