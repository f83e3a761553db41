package scene

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"media-enricher/internal/artifact"
	"media-enricher/internal/ffmpeg"
	"media-enricher/internal/library"
	"media-enricher/internal/logging"
	"media-enricher/internal/metrics"
	"media-enricher/internal/pathmap"
)

// Cover frames are grabbed from this offset, falling back to an earlier
// one for videos too short for the first.
const (
	coverOffset         = "00:00:30"
	coverFallbackOffset = "00:00:05"
)

// Library is the slice of the library client the processor mutates
// scenes through.
type Library interface {
	AddTag(ctx context.Context, sceneIDs []string, tagID string) error
	RemoveTag(ctx context.Context, sceneIDs []string, tagID string) error
	SetFingerprints(ctx context.Context, fileID string, fps []library.Fingerprint) error
	SetCover(ctx context.Context, sceneID, dataURI string) error
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Fingerprinter computes a perceptual hash for a local video file.
type Fingerprinter interface {
	PHash(ctx context.Context, path string) (string, error)
}

// SpriteGenerator builds a sprite sheet and its cue file.
type SpriteGenerator interface {
	Generate(ctx context.Context, videoPath, spritePath, vttPath, key string) error
}

// PreviewGenerator builds a preview video.
type PreviewGenerator interface {
	Generate(ctx context.Context, videoPath, outputPath, key string) error
}

// Processor runs the full enrichment pipeline for one scene: perceptual
// hash, cover image, sprite sheet, preview video.
type Processor struct {
	Library  Library
	Hasher   Fingerprinter
	Tools    ffmpeg.Tools
	Paths    *pathmap.Translator
	Sprites  SpriteGenerator
	Previews PreviewGenerator
	FailLog  *FailLog

	ClaimTag      string
	HashErrorTag  string
	CoverErrorTag string

	SpriteDir   string
	PreviewDir  string
	ScratchRoot string

	GenerateSprite  bool
	GeneratePreview bool
	DryRun          bool
}

// errorTag maps a failed step to the workflow tag that marks it.
func (p *Processor) errorTag(step Step) string {
	if step == StepCover {
		return p.CoverErrorTag
	}
	return p.HashErrorTag
}

// claim tags the scene as in-progress. The scheduler claims whole
// batches up front; this re-claim is idempotent and covers scenes the
// bulk claim missed.
func (p *Processor) claim(ctx context.Context, sceneID string) error {
	if p.DryRun {
		logging.DryRun("claim scene %s", sceneID)
		return nil
	}
	return p.Library.AddTag(ctx, []string{sceneID}, p.ClaimTag)
}

// release removes the claim tag once the scene is fully enriched.
func (p *Processor) release(ctx context.Context, sceneID string) {
	if p.DryRun {
		logging.DryRun("release scene %s", sceneID)
		return
	}
	if err := p.Library.RemoveTag(ctx, []string{sceneID}, p.ClaimTag); err != nil {
		logging.Error("Failed to release scene %s: %v", sceneID, err)
	}
}

// fail marks the scene with the step's error tag, drops the claim so
// the scene is visible as errored rather than stuck, and records the
// cause in the failure log. Tag errors are logged, never escalated.
func (p *Processor) fail(ctx context.Context, sceneID string, step Step, cause error) {
	metrics.StepFailures.WithLabelValues(string(step)).Inc()
	logging.Error("Scene %s %s failed: %v", sceneID, step, cause)

	if p.DryRun {
		logging.DryRun("tag scene %s with the %s error tag", sceneID, step)
		return
	}
	if err := p.Library.AddTag(ctx, []string{sceneID}, p.errorTag(step)); err != nil {
		logging.Error("Failed to tag scene %s after %s failure: %v", sceneID, step, err)
	}
	if err := p.Library.RemoveTag(ctx, []string{sceneID}, p.ClaimTag); err != nil {
		logging.Error("Failed to unclaim scene %s after %s failure: %v", sceneID, step, err)
	}
	if err := p.FailLog.Record(sceneID, fmt.Sprintf("%s: %v", step, cause)); err != nil {
		logging.Warn("Failed to write failure log for scene %s: %v", sceneID, err)
	}
}

// Process enriches one scene. Only the scene's first file is
// considered. A hashing failure aborts the scene; a cover failure is
// tagged but hashing has already succeeded, so sprite and preview
// generation still run. The claim tag is removed only when every step
// succeeded.
func (p *Processor) Process(ctx context.Context, sc library.Scene, index, total int) error {
	logging.Progress("Processing scene %s (%d of %d)", sc.ID, index, total)
	metrics.ScenesInFlight.Inc()
	defer metrics.ScenesInFlight.Dec()

	if len(sc.Files) == 0 {
		err := fmt.Errorf("scene has no files")
		p.fail(ctx, sc.ID, StepHashing, err)
		metrics.ScenesProcessed.WithLabelValues("failed").Inc()
		return stepErr(StepHashing, err)
	}

	file := sc.Files[0]
	localPath := p.Paths.Translate(file.Path)
	key := artifact.SafeKey(sc.StableHash("oshash"))
	logging.Verbose("Scene %s: path %s, naming key %s", sc.ID, localPath, key)

	if !artifact.Exists(localPath) {
		err := fmt.Errorf("file not found: %s", localPath)
		p.fail(ctx, sc.ID, StepHashing, err)
		metrics.ScenesProcessed.WithLabelValues("failed").Inc()
		return stepErr(StepHashing, err)
	}

	if err := p.claim(ctx, sc.ID); err != nil {
		logging.Warn("Failed to claim scene %s: %v", sc.ID, err)
	}

	if err := p.hashStep(ctx, sc.ID, file, localPath); err != nil {
		p.fail(ctx, sc.ID, StepHashing, err)
		metrics.ScenesProcessed.WithLabelValues("failed").Inc()
		return stepErr(StepHashing, err)
	}

	// fail runs at most once per scene; a cover failure already tagged
	// and unclaimed the scene, so later failures only log and count.
	failed := false
	failOnce := func(step Step, err error) {
		if failed {
			metrics.StepFailures.WithLabelValues(string(step)).Inc()
			logging.Error("Scene %s %s failed: %v", sc.ID, step, err)
			return
		}
		failed = true
		p.fail(ctx, sc.ID, step, err)
	}

	if err := p.coverStep(ctx, sc, localPath, key); err != nil {
		failOnce(StepCover, err)
	}

	if p.GenerateSprite {
		if err := p.spriteStep(ctx, sc.ID, localPath, key); err != nil {
			failOnce(StepSprite, err)
			metrics.ScenesProcessed.WithLabelValues("failed").Inc()
			return stepErr(StepSprite, err)
		}
	}

	if p.GeneratePreview {
		if err := p.previewStep(ctx, sc.ID, localPath, key); err != nil {
			failOnce(StepPreview, err)
			metrics.ScenesProcessed.WithLabelValues("failed").Inc()
			return stepErr(StepPreview, err)
		}
	}

	if failed {
		metrics.ScenesProcessed.WithLabelValues("failed").Inc()
		return stepErr(StepCover, fmt.Errorf("scene finished with a cover failure"))
	}

	p.release(ctx, sc.ID)
	metrics.ScenesProcessed.WithLabelValues("enriched").Inc()
	logging.Progress("Scene %s enriched", sc.ID)
	return nil
}

// hashStep computes the perceptual hash and stores it on the scene's
// file record.
func (p *Processor) hashStep(ctx context.Context, sceneID string, file library.File, localPath string) error {
	if p.DryRun {
		logging.DryRun("compute perceptual hash for %s", localPath)
		return nil
	}

	start := time.Now()
	phash, err := p.Hasher.PHash(ctx, localPath)
	if err != nil {
		return err
	}
	metrics.ArtifactDuration.WithLabelValues("phash").Observe(time.Since(start).Seconds())
	logging.Verbose("Scene %s: phash %s", sceneID, phash)

	return p.Library.SetFingerprints(ctx, file.ID, []library.Fingerprint{
		{Type: "phash", Value: phash},
	})
}

// isPlaceholder reports whether the fetched cover is the service's
// default SVG placeholder rather than a real frame grab.
func isPlaceholder(img []byte) bool {
	head := img
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// coverStep replaces a placeholder cover with a frame grabbed from the
// video. A scene that already has a real cover is left alone.
func (p *Processor) coverStep(ctx context.Context, sc library.Scene, localPath, key string) error {
	if sc.Paths.Screenshot == "" {
		logging.Verbose("Scene %s: no screenshot URL, skipping cover check", sc.ID)
		return nil
	}

	img, err := p.Library.FetchImage(ctx, sc.Paths.Screenshot)
	if err != nil {
		return fmt.Errorf("fetching current cover: %w", err)
	}
	if !isPlaceholder(img) {
		logging.Verbose("Scene %s: cover already set", sc.ID)
		return nil
	}

	if p.DryRun {
		logging.DryRun("generate a cover image for %s", localPath)
		return nil
	}

	start := time.Now()
	scratch, err := artifact.ScratchDir(p.ScratchRoot, artifact.CoverScratchPrefix, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Warn("failed to remove cover scratch dir %s: %v", scratch, err)
		}
	}()

	frame := filepath.Join(scratch, "cover.jpg")
	if err := p.Tools.ExtractCoverFrame(ctx, localPath, coverOffset, frame); err != nil || !artifact.Exists(frame) {
		// Short videos have no frame at the primary offset.
		logging.Verbose("Scene %s: no frame at %s, retrying at %s", sc.ID, coverOffset, coverFallbackOffset)
		if err := p.Tools.ExtractCoverFrame(ctx, localPath, coverFallbackOffset, frame); err != nil {
			return fmt.Errorf("extracting cover frame: %w", err)
		}
		if !artifact.Exists(frame) {
			return fmt.Errorf("no cover frame produced at %s or %s", coverOffset, coverFallbackOffset)
		}
	}

	data, err := os.ReadFile(frame)
	if err != nil {
		return fmt.Errorf("reading cover frame: %w", err)
	}
	dataURI := "data:image/jpg;base64," + base64.StdEncoding.EncodeToString(data)

	if err := p.Library.SetCover(ctx, sc.ID, dataURI); err != nil {
		return fmt.Errorf("storing cover: %w", err)
	}
	metrics.ArtifactDuration.WithLabelValues("cover").Observe(time.Since(start).Seconds())
	logging.Verbose("Scene %s: cover updated", sc.ID)
	return nil
}

// SpritePath returns where the sprite sheet for a naming key lives.
func SpritePath(dir, key string) string {
	return filepath.Join(dir, key+"_sprite.jpg")
}

// VTTPath returns where the sprite cue file for a naming key lives.
func VTTPath(dir, key string) string {
	return filepath.Join(dir, key+"_thumbs.vtt")
}

// PreviewPath returns where the preview video for a naming key lives.
func PreviewPath(dir, key string) string {
	return filepath.Join(dir, key+".mp4")
}

// spriteStep generates the sprite sheet and cue file unless they
// already exist from a previous run.
func (p *Processor) spriteStep(ctx context.Context, sceneID, localPath, key string) error {
	spritePath := SpritePath(p.SpriteDir, key)
	if artifact.Exists(spritePath) {
		logging.Verbose("Scene %s: sprite %s already exists, skipping", sceneID, spritePath)
		return nil
	}
	if p.DryRun {
		logging.DryRun("generate sprite sheet %s", spritePath)
		return nil
	}

	start := time.Now()
	if err := p.Sprites.Generate(ctx, localPath, spritePath, VTTPath(p.SpriteDir, key), key); err != nil {
		return err
	}
	metrics.ArtifactDuration.WithLabelValues("sprite").Observe(time.Since(start).Seconds())
	return nil
}

// previewStep generates the preview video unless it already exists.
func (p *Processor) previewStep(ctx context.Context, sceneID, localPath, key string) error {
	previewPath := PreviewPath(p.PreviewDir, key)
	if artifact.Exists(previewPath) {
		logging.Verbose("Scene %s: preview %s already exists, skipping", sceneID, previewPath)
		return nil
	}
	if p.DryRun {
		logging.DryRun("generate preview video %s", previewPath)
		return nil
	}

	start := time.Now()
	if err := p.Previews.Generate(ctx, localPath, previewPath, key); err != nil {
		return err
	}
	metrics.ArtifactDuration.WithLabelValues("preview").Observe(time.Since(start).Seconds())
	return nil
}
