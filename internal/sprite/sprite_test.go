package sprite

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"media-enricher/internal/ffmpeg"
)

func TestDefaultGeometry(t *testing.T) {
	geo := DefaultGeometry()
	if err := geo.Validate(); err != nil {
		t.Fatalf("DefaultGeometry().Validate() = %v", err)
	}
	if geo.TotalShots != 81 || geo.Columns != 9 || geo.Rows != 9 {
		t.Errorf("unexpected default geometry: %+v", geo)
	}
	if geo.TileWidth*geo.Columns != 1440 || geo.TileHeight*geo.Rows != 810 {
		t.Errorf("default sprite dimensions = %dx%d, want 1440x810",
			geo.TileWidth*geo.Columns, geo.TileHeight*geo.Rows)
	}
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name    string
		geo     Geometry
		wantErr bool
	}{
		{"default", DefaultGeometry(), false},
		{"2x2", Geometry{TotalShots: 4, TileWidth: 16, TileHeight: 9, Columns: 2, Rows: 2}, false},
		{"shots do not fill grid", Geometry{TotalShots: 80, TileWidth: 160, TileHeight: 90, Columns: 9, Rows: 9}, true},
		{"zero width", Geometry{TotalShots: 4, TileHeight: 9, Columns: 2, Rows: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geo.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTileRect(t *testing.T) {
	geo := DefaultGeometry()
	tests := []struct {
		index int
		x, y  int
	}{
		{0, 0, 0},
		{1, 160, 0},
		{8, 1280, 0},
		{9, 0, 90},
		{80, 1280, 720},
	}
	for _, tt := range tests {
		x, y := geo.TileRect(tt.index)
		if x != tt.x || y != tt.y {
			t.Errorf("TileRect(%d) = (%d,%d), want (%d,%d)", tt.index, x, y, tt.x, tt.y)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.000"},
		{1.5, "00:00:01.500"},
		{59.25, "00:00:59.250"},
		{300, "00:05:00.000"},
		{3661.75, "01:01:01.750"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

// stubTools fakes ffprobe (fixed duration) and ffmpeg (copies a canned
// image to the requested output path).
func stubTools(t *testing.T, duration string, frameSrc string) ffmpeg.Tools {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub tools not supported on windows")
	}
	dir := t.TempDir()

	ffprobe := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffprobe, []byte("#!/bin/sh\necho "+duration+"\n"), 0755); err != nil {
		t.Fatal(err)
	}

	script := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-y" ]; then out="$a"; fi
  prev="$a"
done
cp ` + frameSrc + ` "$out"
`
	ffmpegBin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(ffmpegBin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	return ffmpeg.Tools{FFmpeg: ffmpegBin, FFprobe: ffprobe}
}

func writeFrameSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "frame.jpg")
	img := imaging.New(320, 180, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	if err := imaging.Save(img, src); err != nil {
		t.Fatal(err)
	}
	return src
}

func parseTimestamp(t *testing.T, s string) float64 {
	t.Helper()
	var h, m, sec, ms int
	if _, err := fmt.Sscanf(s, "%02d:%02d:%02d.%03d", &h, &m, &sec, &ms); err != nil {
		t.Fatalf("unparseable timestamp %q: %v", s, err)
	}
	return float64(h*3600+m*60+sec) + float64(ms)/1000
}

func TestGenerate(t *testing.T) {
	tools := stubTools(t, "300.0", writeFrameSource(t))
	scratch := t.TempDir()
	out := t.TempDir()

	gen := &Generator{
		Tools:       tools,
		ScratchRoot: scratch,
		Workers:     4,
	}

	spritePath := filepath.Join(out, "abc_sprite.jpg")
	vttPath := filepath.Join(out, "abc_thumbs.vtt")

	if err := gen.Generate(context.Background(), "/videos/a.mp4", spritePath, vttPath, "abc"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Sprite must be exactly grid-sized.
	img, err := imaging.Open(spritePath)
	if err != nil {
		t.Fatalf("opening sprite: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 1440 || bounds.Dy() != 810 {
		t.Errorf("sprite dimensions = %dx%d, want 1440x810", bounds.Dx(), bounds.Dy())
	}

	// Cue sheet: 81 contiguous entries covering [0, 300).
	raw, err := os.ReadFile(vttPath)
	if err != nil {
		t.Fatalf("reading cue sheet: %v", err)
	}
	content := string(raw)
	if !strings.HasPrefix(content, "WEBVTT\n\n") {
		t.Error("cue sheet missing WEBVTT header")
	}

	blocks := strings.Split(strings.TrimSpace(strings.TrimPrefix(content, "WEBVTT\n\n")), "\n\n")
	if len(blocks) != 81 {
		t.Fatalf("cue sheet has %d entries, want 81", len(blocks))
	}

	prevEnd := 0.0
	for i, block := range blocks {
		lines := strings.Split(block, "\n")
		if len(lines) != 2 {
			t.Fatalf("entry %d has %d lines: %q", i, len(lines), block)
		}
		parts := strings.Split(lines[0], " --> ")
		if len(parts) != 2 {
			t.Fatalf("entry %d has malformed range %q", i, lines[0])
		}
		start := parseTimestamp(t, parts[0])
		end := parseTimestamp(t, parts[1])

		if math.Abs(start-prevEnd) > 0.002 {
			t.Errorf("entry %d starts at %v, want contiguous with previous end %v", i, start, prevEnd)
		}
		prevEnd = end

		geo := DefaultGeometry()
		x, y := geo.TileRect(i)
		wantLoc := fmt.Sprintf("abc_sprite.jpg#xywh=%d,%d,160,90", x, y)
		if lines[1] != wantLoc {
			t.Errorf("entry %d location = %q, want %q", i, lines[1], wantLoc)
		}
	}
	if math.Abs(prevEnd-300.0) > 0.1 {
		t.Errorf("last entry ends at %v, want 300", prevEnd)
	}

	// Scratch directory must be gone.
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root not cleaned, contains %d entries", len(entries))
	}
}

func TestGenerateDurationFailure(t *testing.T) {
	tools := stubTools(t, "not-a-number", writeFrameSource(t))
	out := t.TempDir()

	gen := &Generator{Tools: tools, ScratchRoot: t.TempDir(), Workers: 2}

	spritePath := filepath.Join(out, "x_sprite.jpg")
	vttPath := filepath.Join(out, "x_thumbs.vtt")

	err := gen.Generate(context.Background(), "/videos/a.mp4", spritePath, vttPath, "x")
	if err == nil {
		t.Fatal("Generate() succeeded with unparseable duration")
	}

	// No partial artifacts.
	if _, err := os.Stat(spritePath); !os.IsNotExist(err) {
		t.Error("sprite written despite probe failure")
	}
	if _, err := os.Stat(vttPath); !os.IsNotExist(err) {
		t.Error("cue sheet written despite probe failure")
	}
}

func TestGenerateExtractionFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub tools not supported on windows")
	}
	dir := t.TempDir()

	ffprobe := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffprobe, []byte("#!/bin/sh\necho 300\n"), 0755); err != nil {
		t.Fatal(err)
	}
	// ffmpeg that exits cleanly but never writes output.
	ffmpegBin := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(ffmpegBin, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	gen := &Generator{
		Tools:       ffmpeg.Tools{FFmpeg: ffmpegBin, FFprobe: ffprobe},
		ScratchRoot: t.TempDir(),
		Workers:     2,
	}

	vttPath := filepath.Join(out, "y_thumbs.vtt")
	err := gen.Generate(context.Background(), "/videos/a.mp4", filepath.Join(out, "y_sprite.jpg"), vttPath, "y")
	if err == nil {
		t.Fatal("Generate() succeeded with failing extraction")
	}
	if _, statErr := os.Stat(vttPath); !os.IsNotExist(statErr) {
		t.Error("partial cue sheet left behind after extraction failure")
	}
}
