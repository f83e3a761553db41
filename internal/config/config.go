package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"media-enricher/internal/throttle"
)

// Translation is one ordered path-rewrite rule. The library service
// reports paths under Orig; the same file is reachable locally under
// Local.
type Translation struct {
	Orig  string `mapstructure:"orig"`
	Local string `mapstructure:"local"`
}

// Config holds every recognized option for the enrichment worker.
type Config struct {
	LibraryHost   string `mapstructure:"LIBRARY_HOST"`
	LibraryPort   int    `mapstructure:"LIBRARY_PORT"`
	LibraryAPIKey string `mapstructure:"LIBRARY_API_KEY"`

	HashTool string `mapstructure:"HASH_TOOL"`
	FFmpeg   string `mapstructure:"FFMPEG"`
	FFprobe  string `mapstructure:"FFPROBE"`

	SpriteDir  string `mapstructure:"SPRITE_DIR"`
	PreviewDir string `mapstructure:"PREVIEW_DIR"`
	ScratchDir string `mapstructure:"SCRATCH_DIR"`

	GenerateSprite  bool `mapstructure:"GENERATE_SPRITE"`
	GeneratePreview bool `mapstructure:"GENERATE_PREVIEW"`

	PreviewClips       int     `mapstructure:"PREVIEW_CLIPS"`
	PreviewClipLength  float64 `mapstructure:"PREVIEW_CLIP_LENGTH"`
	PreviewSkipSeconds float64 `mapstructure:"PREVIEW_SKIP_SECONDS"`
	PreviewAudio       bool    `mapstructure:"PREVIEW_AUDIO"`

	BatchSize     int           `mapstructure:"BATCH_SIZE"`
	MaxWorkers    int           `mapstructure:"MAX_WORKERS"`
	SpriteWorkers int           `mapstructure:"SPRITE_WORKERS"`
	BatchDelay    time.Duration `mapstructure:"BATCH_DELAY"`

	DryRun  bool `mapstructure:"DRY_RUN"`
	Verbose bool `mapstructure:"VERBOSE"`
	Once    bool `mapstructure:"ONCE"`

	MetricsPort string `mapstructure:"METRICS_PORT"`

	// Workflow tag IDs on the library service.
	ClaimTag      string `mapstructure:"CLAIM_TAG"`
	HashErrorTag  string `mapstructure:"HASH_ERROR_TAG"`
	CoverErrorTag string `mapstructure:"COVER_ERROR_TAG"`

	// Resource thresholds checked before each batch. Zero disables a check.
	ThrottleCPU      float64 `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64   `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64   `mapstructure:"THROTTLE_FREEDISK"`

	FailureLog string `mapstructure:"FAILURE_LOG"`

	Translations []Translation `mapstructure:"TRANSLATIONS"`
}

// LibraryURL returns the GraphQL endpoint derived from host and port.
func (c *Config) LibraryURL() string {
	return fmt.Sprintf("http://%s:%d/graphql", c.LibraryHost, c.LibraryPort)
}

// ThrottleLimits converts the throttle settings into checkable limits.
// Disk headroom is checked where the scratch directory lives.
func (c *Config) ThrottleLimits() throttle.Limits {
	return throttle.Limits{
		MaxCPUPercent: c.ThrottleCPU,
		MinFreeMem:    c.ThrottleFreeMem,
		MinFreeDisk:   c.ThrottleFreeDisk,
		Path:          c.ScratchDir,
	}
}

// Validate rejects configurations the worker cannot run with.
func (c *Config) Validate() error {
	if c.LibraryHost == "" {
		return fmt.Errorf("LIBRARY_HOST must be set")
	}
	if c.LibraryPort <= 0 || c.LibraryPort > 65535 {
		return fmt.Errorf("LIBRARY_PORT %d out of range", c.LibraryPort)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.MaxWorkers)
	}
	if c.SpriteWorkers <= 0 {
		return fmt.Errorf("SPRITE_WORKERS must be positive, got %d", c.SpriteWorkers)
	}
	if c.ClaimTag == "" || c.HashErrorTag == "" || c.CoverErrorTag == "" {
		return fmt.Errorf("CLAIM_TAG, HASH_ERROR_TAG and COVER_ERROR_TAG must all be set")
	}
	if c.GenerateSprite && c.SpriteDir == "" {
		return fmt.Errorf("SPRITE_DIR must be set when GENERATE_SPRITE is enabled")
	}
	if c.GeneratePreview && c.PreviewDir == "" {
		return fmt.Errorf("PREVIEW_DIR must be set when GENERATE_PREVIEW is enabled")
	}
	if c.PreviewClips <= 0 || c.PreviewClipLength <= 0 {
		return fmt.Errorf("preview clip count and length must be positive")
	}
	if c.PreviewSkipSeconds < 0 {
		return fmt.Errorf("PREVIEW_SKIP_SECONDS must not be negative")
	}
	return nil
}

// stringToDurationHookFunc parses Go duration strings like "5s".
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc parses human-readable sizes like "200MB".
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(data.(string))); err != nil {
			// Not a size string, let other parsers handle it.
			return data, nil
		}
		return int64(size.Bytes()), nil
	}
}

// Load reads enricher.yaml (current dir or /etc/media-enricher/), applies
// MEDIA_ENRICHER_* environment overrides and fills in defaults.
func Load() (*Config, error) {
	vp := viper.New()

	vp.SetDefault("LIBRARY_HOST", "127.0.0.1")
	vp.SetDefault("LIBRARY_PORT", 9999)
	vp.SetDefault("LIBRARY_API_KEY", "")
	vp.SetDefault("HASH_TOOL", "./bin/videohashes")
	vp.SetDefault("FFMPEG", "ffmpeg")
	vp.SetDefault("FFPROBE", "ffprobe")
	vp.SetDefault("SPRITE_DIR", "")
	vp.SetDefault("PREVIEW_DIR", "")
	vp.SetDefault("SCRATCH_DIR", ".")
	vp.SetDefault("GENERATE_SPRITE", true)
	vp.SetDefault("GENERATE_PREVIEW", true)
	vp.SetDefault("PREVIEW_CLIPS", 15)
	vp.SetDefault("PREVIEW_CLIP_LENGTH", 1.0)
	vp.SetDefault("PREVIEW_SKIP_SECONDS", 15.0)
	vp.SetDefault("PREVIEW_AUDIO", false)
	vp.SetDefault("BATCH_SIZE", 25)
	vp.SetDefault("MAX_WORKERS", 4)
	vp.SetDefault("SPRITE_WORKERS", 4)
	vp.SetDefault("BATCH_DELAY", "5s")
	vp.SetDefault("DRY_RUN", false)
	vp.SetDefault("VERBOSE", false)
	vp.SetDefault("ONCE", false)
	vp.SetDefault("METRICS_PORT", "")
	vp.SetDefault("CLAIM_TAG", "")
	vp.SetDefault("HASH_ERROR_TAG", "")
	vp.SetDefault("COVER_ERROR_TAG", "")
	vp.SetDefault("THROTTLE_CPU", 0.0)
	vp.SetDefault("THROTTLE_FREEMEM", "0B")
	vp.SetDefault("THROTTLE_FREEDISK", "0B")
	vp.SetDefault("FAILURE_LOG", "error_log.txt")

	vp.SetConfigName("enricher")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/media-enricher/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("MEDIA_ENRICHER")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
