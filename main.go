package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"media-enricher/internal/batch"
	"media-enricher/internal/config"
	"media-enricher/internal/ffmpeg"
	"media-enricher/internal/hasher"
	"media-enricher/internal/library"
	"media-enricher/internal/logging"
	"media-enricher/internal/metrics"
	"media-enricher/internal/pathmap"
	"media-enricher/internal/preview"
	"media-enricher/internal/scene"
	"media-enricher/internal/sprite"
	"media-enricher/internal/workers"
)

func main() {
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Flags override the config file and environment.
	once := flag.Bool("once", cfg.Once, "process a single batch and exit")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "log what would be done without doing it")
	verbose := flag.Bool("verbose", cfg.Verbose, "enable per-step progress output")
	genSprite := flag.Bool("generate-sprite", cfg.GenerateSprite, "generate sprite sheets and cue files")
	genPreview := flag.Bool("generate-preview", cfg.GeneratePreview, "generate preview videos")
	batchSize := flag.Int("batch-size", cfg.BatchSize, "scenes fetched per batch")
	maxWorkers := flag.Int("max-workers", cfg.MaxWorkers, "concurrent scenes per batch")
	flag.Parse()

	cfg.Once = *once
	cfg.DryRun = *dryRun
	cfg.Verbose = *verbose
	cfg.GenerateSprite = *genSprite
	cfg.GeneratePreview = *genPreview
	cfg.BatchSize = *batchSize
	cfg.MaxWorkers = *maxWorkers

	if err := cfg.Validate(); err != nil {
		logging.Fatal("Configuration error: %v", err)
	}
	logging.SetVerbose(cfg.Verbose)
	if cfg.DryRun {
		logging.Info("Dry-run mode: no artifacts will be written and no scenes will be modified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsPort != "" {
		go metrics.Serve(cfg.MetricsPort)
	}

	client := library.New(library.Options{
		URL:    cfg.LibraryURL(),
		APIKey: cfg.LibraryAPIKey,
		ExcludeTags: []string{
			cfg.ClaimTag, cfg.HashErrorTag, cfg.CoverErrorTag,
		},
	})

	tools := ffmpeg.Tools{FFmpeg: cfg.FFmpeg, FFprobe: cfg.FFprobe}
	rules := make([]pathmap.Rule, len(cfg.Translations))
	for i, tr := range cfg.Translations {
		rules[i] = pathmap.Rule{Orig: tr.Orig, Local: tr.Local}
	}

	processor := &scene.Processor{
		Library: client,
		Hasher:  hasher.Hasher{Bin: cfg.HashTool},
		Tools:   tools,
		Paths:   pathmap.New(rules),
		Sprites: &sprite.Generator{
			Tools:       tools,
			ScratchRoot: cfg.ScratchDir,
			Workers:     workers.ForFrames(cfg.SpriteWorkers),
			Geometry:    sprite.DefaultGeometry(),
		},
		Previews: &preview.Generator{
			Tools:        tools,
			ScratchRoot:  cfg.ScratchDir,
			NumClips:     cfg.PreviewClips,
			ClipLength:   cfg.PreviewClipLength,
			SkipSeconds:  cfg.PreviewSkipSeconds,
			IncludeAudio: cfg.PreviewAudio,
		},
		FailLog:         scene.NewFailLog(cfg.FailureLog),
		ClaimTag:        cfg.ClaimTag,
		HashErrorTag:    cfg.HashErrorTag,
		CoverErrorTag:   cfg.CoverErrorTag,
		SpriteDir:       cfg.SpriteDir,
		PreviewDir:      cfg.PreviewDir,
		ScratchRoot:     cfg.ScratchDir,
		GenerateSprite:  cfg.GenerateSprite,
		GeneratePreview: cfg.GeneratePreview,
		DryRun:          cfg.DryRun,
	}

	scheduler := &batch.Scheduler{
		Queue:     client,
		Processor: processor,
		Limits:    cfg.ThrottleLimits(),
		ClaimTag:  cfg.ClaimTag,
		BatchSize: cfg.BatchSize,
		Workers:   workers.ForScenes(cfg.MaxWorkers),
		Delay:     cfg.BatchDelay,
		Once:      cfg.Once,
		DryRun:    cfg.DryRun,

		ScratchRoot: cfg.ScratchDir,
	}

	if total, err := client.TotalCount(ctx); err != nil {
		logging.Warn("Could not query eligible scene count: %v", err)
	} else {
		logging.Info("%d scenes currently eligible for enrichment", total)
	}

	logging.Info("Enrichment worker started in %v", time.Since(startTime).Round(time.Millisecond))
	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal("Scheduler error: %v", err)
	}
	if ctx.Err() != nil {
		logging.Info("Shutdown signal received, exiting")
	}
}
