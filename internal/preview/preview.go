// Package preview builds short preview videos by sampling clips at
// evenly-spaced offsets and joining them in chronological order.
package preview

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"media-enricher/internal/artifact"
	"media-enricher/internal/ffmpeg"
	"media-enricher/internal/logging"
)

// Generator samples and concatenates preview clips.
type Generator struct {
	Tools       ffmpeg.Tools
	ScratchRoot string
	// NumClips evenly-spaced clips of ClipLength seconds each, sampled
	// after an initial SkipSeconds window.
	NumClips     int
	ClipLength   float64
	SkipSeconds  float64
	IncludeAudio bool
}

// StartTimes computes the sample offsets for a video of the given
// duration. It fails when the requested clips cannot fit in the portion
// of the video after the skip window.
func StartTimes(duration float64, numClips int, clipLength, skipSeconds float64) ([]float64, error) {
	if numClips <= 0 {
		return nil, fmt.Errorf("clip count must be positive, got %d", numClips)
	}
	if float64(numClips)*clipLength > duration-skipSeconds {
		return nil, fmt.Errorf("%d clips of %vs exceed the %vs of video after the %vs skip window",
			numClips, clipLength, duration-skipSeconds, skipSeconds)
	}

	interval := (duration - skipSeconds - clipLength) / float64(numClips+1)
	times := make([]float64, 0, numClips)
	for i := 1; i <= numClips; i++ {
		times = append(times, skipSeconds+interval*float64(i))
	}
	return times, nil
}

func clipPath(scratch string, i int) string {
	return filepath.Join(scratch, fmt.Sprintf("clip_%03d.mp4", i))
}

// Generate builds the preview at outputPath. Intermediate clips and the
// concat manifest live in a key-namespaced scratch directory that is
// removed on exit, success or failure.
func (gen *Generator) Generate(ctx context.Context, videoPath, outputPath, key string) error {
	duration, err := gen.Tools.Duration(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probing %s: %w", videoPath, err)
	}

	starts, err := StartTimes(duration, gen.NumClips, gen.ClipLength, gen.SkipSeconds)
	if err != nil {
		return err
	}

	scratch, err := artifact.ScratchDir(gen.ScratchRoot, artifact.PreviewScratchPrefix, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Warn("failed to remove preview scratch dir %s: %v", scratch, err)
		}
	}()

	// Clips are named by sequence index so sort order equals time order.
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := gen.Tools.TranscodeClip(ctx, videoPath, start, gen.ClipLength, gen.IncludeAudio, clipPath(scratch, i)); err != nil {
			return fmt.Errorf("extracting clip %d at %vs: %w", i, start, err)
		}
		logging.Verbose("Extracted preview clip %d of %d", i+1, len(starts))
	}

	manifest, err := gen.writeManifest(scratch, len(starts))
	if err != nil {
		return err
	}

	if err := gen.Tools.ConcatClips(ctx, manifest, gen.IncludeAudio, outputPath); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("concatenating %d clips: %w", len(starts), err)
	}
	return nil
}

// writeManifest emits the concat-demuxer file list in index order.
func (gen *Generator) writeManifest(scratch string, n int) (string, error) {
	path := filepath.Join(scratch, "clips.txt")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating concat manifest: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close concat manifest %s: %v", path, err)
		}
	}()

	w := bufio.NewWriter(f)
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(w, "file '%s'\n", clipPath(scratch, i)); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return path, nil
}
