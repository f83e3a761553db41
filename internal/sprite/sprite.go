package sprite

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"media-enricher/internal/artifact"
	"media-enricher/internal/ffmpeg"
	"media-enricher/internal/logging"
)

// Geometry describes the sprite grid: TotalShots tiles of
// TileWidth x TileHeight pixels laid out over Columns x Rows.
type Geometry struct {
	TotalShots int
	TileWidth  int
	TileHeight int
	Columns    int
	Rows       int
}

// DefaultGeometry is the 9x9 grid of 160x90 tiles used for scrubber
// thumbnails.
func DefaultGeometry() Geometry {
	return Geometry{
		TotalShots: 81,
		TileWidth:  160,
		TileHeight: 90,
		Columns:    9,
		Rows:       9,
	}
}

// Validate rejects grids whose tile count does not fill the grid.
func (g Geometry) Validate() error {
	if g.TotalShots <= 0 || g.TileWidth <= 0 || g.TileHeight <= 0 || g.Columns <= 0 || g.Rows <= 0 {
		return fmt.Errorf("sprite geometry values must be positive: %+v", g)
	}
	if g.TotalShots != g.Columns*g.Rows {
		return fmt.Errorf("sprite geometry: %d shots do not fill a %dx%d grid", g.TotalShots, g.Columns, g.Rows)
	}
	return nil
}

// TileRect returns the pixel offset of tile i in raster order.
func (g Geometry) TileRect(i int) (x, y int) {
	return (i % g.Columns) * g.TileWidth, (i / g.Columns) * g.TileHeight
}

// formatTimestamp renders seconds as HH:MM:SS.mmm for cue ranges.
func formatTimestamp(seconds float64) string {
	whole := int(seconds)
	millis := int((seconds - float64(whole)) * 1000)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, millis)
}

// Generator builds sprite mosaics and their companion cue sheets.
type Generator struct {
	Tools       ffmpeg.Tools
	ScratchRoot string
	// Workers bounds the frame-extraction pool inside one generation.
	Workers  int
	Geometry Geometry
}

type frameResult struct {
	index int
	err   error
}

// Generate samples evenly-spaced frames from the video, writes the cue
// sheet in raster order, and composes the frames into a single mosaic at
// spritePath. No partial artifacts survive a failure.
func (gen *Generator) Generate(ctx context.Context, videoPath, spritePath, vttPath, key string) error {
	geo := gen.Geometry
	if geo == (Geometry{}) {
		geo = DefaultGeometry()
	}
	if err := geo.Validate(); err != nil {
		return err
	}

	duration, err := gen.Tools.Duration(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probing %s: %w", videoPath, err)
	}

	scratch, err := artifact.ScratchDir(gen.ScratchRoot, artifact.SpriteScratchPrefix, key)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Warn("failed to remove sprite scratch dir %s: %v", scratch, err)
		}
	}()

	interval := duration / float64(geo.TotalShots)

	if err := gen.extractFrames(ctx, videoPath, spritePath, vttPath, scratch, geo, interval); err != nil {
		// Drop the half-written cue sheet so a retry starts clean.
		_ = os.Remove(vttPath)
		return err
	}

	if err := gen.compose(scratch, spritePath, geo); err != nil {
		_ = os.Remove(vttPath)
		_ = os.Remove(spritePath)
		return err
	}

	return nil
}

func framePath(scratch string, i int) string {
	return filepath.Join(scratch, fmt.Sprintf("frame_%03d.jpg", i))
}

// extractFrames fans extraction out to a bounded pool and writes cue
// entries strictly in raster index order, buffering results that finish
// out of order.
func (gen *Generator) extractFrames(ctx context.Context, videoPath, spritePath, vttPath, scratch string, geo Geometry, interval float64) error {
	numWorkers := gen.Workers
	if numWorkers < 1 {
		numWorkers = 4
	}

	vtt, err := os.Create(vttPath)
	if err != nil {
		return fmt.Errorf("creating cue sheet %s: %w", vttPath, err)
	}
	defer func() {
		if err := vtt.Close(); err != nil {
			logging.Warn("failed to close cue sheet %s: %v", vttPath, err)
		}
	}()

	w := bufio.NewWriter(vtt)
	if _, err := w.WriteString("WEBVTT\n\n"); err != nil {
		return err
	}

	jobs := make(chan int, geo.TotalShots)
	results := make(chan frameResult, geo.TotalShots)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					results <- frameResult{index: idx, err: ctx.Err()}
					continue
				default:
				}
				err := gen.extractAndResize(ctx, videoPath, framePath(scratch, idx), float64(idx)*interval, geo)
				results <- frameResult{index: idx, err: err}
			}
		}()
	}

	for i := 0; i < geo.TotalShots; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	spriteName := filepath.Base(spritePath)
	done := make(map[int]bool, geo.TotalShots)
	next := 0
	var firstErr error

	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("extracting frame %d: %w", res.index, res.err)
		}
		done[res.index] = true

		// Flush every cue whose predecessors have all completed.
		for firstErr == nil && next < geo.TotalShots && done[next] {
			start := float64(next) * interval
			end := start + interval
			x, y := geo.TileRect(next)
			_, err := fmt.Fprintf(w, "%s --> %s\n%s#xywh=%d,%d,%d,%d\n\n",
				formatTimestamp(start), formatTimestamp(end),
				spriteName, x, y, geo.TileWidth, geo.TileHeight)
			if err != nil {
				firstErr = fmt.Errorf("writing cue sheet: %w", err)
			}
			next++
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return w.Flush()
}

// extractAndResize grabs one frame and scales it to tile size with
// Lanczos resampling.
func (gen *Generator) extractAndResize(ctx context.Context, videoPath, dst string, at float64, geo Geometry) error {
	if err := gen.Tools.ExtractFrame(ctx, videoPath, at, dst); err != nil {
		return err
	}

	img, err := imaging.Open(dst)
	if err != nil {
		return fmt.Errorf("decoding frame %s: %w", dst, err)
	}
	tile := imaging.Resize(img, geo.TileWidth, geo.TileHeight, imaging.Lanczos)
	if err := imaging.Save(tile, dst); err != nil {
		return fmt.Errorf("saving tile %s: %w", dst, err)
	}
	return nil
}

// compose pastes the extracted tiles into the mosaic in ascending index
// order regardless of extraction completion order.
func (gen *Generator) compose(scratch, spritePath string, geo Geometry) error {
	available := 0
	for i := 0; i < geo.TotalShots; i++ {
		if artifact.Exists(framePath(scratch, i)) {
			available++
		}
	}
	if available == 0 {
		return fmt.Errorf("no frames extracted, refusing to write an empty sprite")
	}

	canvas := imaging.New(geo.TileWidth*geo.Columns, geo.TileHeight*geo.Rows, color.NRGBA{A: 255})

	for i := 0; i < geo.TotalShots; i++ {
		tile, err := imaging.Open(framePath(scratch, i))
		if err != nil {
			return fmt.Errorf("opening tile %d: %w", i, err)
		}
		x, y := geo.TileRect(i)
		canvas = imaging.Paste(canvas, tile, image.Pt(x, y))
	}

	if err := imaging.Save(canvas, spritePath); err != nil {
		return fmt.Errorf("saving sprite %s: %w", spritePath, err)
	}
	return nil
}
