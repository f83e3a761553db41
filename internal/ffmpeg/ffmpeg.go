package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Tools holds the paths of the external transcoding and probing binaries.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// run executes a tool and returns an error carrying its stderr output.
func run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s error: %w - %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Duration probes the container duration of a video in seconds. A
// non-numeric or empty probe result is an error.
func (t Tools) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	raw := strings.TrimSpace(stdout.String())
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned non-numeric duration %q for %s", raw, path)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("ffprobe returned non-positive duration %v for %s", dur, path)
	}
	return dur, nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func frameArgs(src string, at float64, dst string) []string {
	return []string{
		"-ss", seconds(at),
		"-i", src,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		dst,
		"-loglevel", "error",
	}
}

// ExtractFrame writes the frame at the given offset to dst as a still
// image. The call fails if ffmpeg exits non-zero or produced no file.
func (t Tools) ExtractFrame(ctx context.Context, src string, at float64, dst string) error {
	if err := run(ctx, t.FFmpeg, frameArgs(src, at, dst)...); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("ffmpeg produced no frame at %s: %w", dst, err)
	}
	return nil
}

func coverArgs(src, offset, dst string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-ss", offset,
		"-vframes", "1",
		"-y",
		dst,
		"-nostdin",
	}
}

// ExtractCoverFrame grabs a single frame at an HH:MM:SS offset. Unlike
// ExtractFrame it does not treat a missing output file as an error; the
// caller decides whether to retry at an earlier offset.
func (t Tools) ExtractCoverFrame(ctx context.Context, src, offset, dst string) error {
	return run(ctx, t.FFmpeg, coverArgs(src, offset, dst)...)
}

func clipArgs(src string, start, length float64, audio bool, dst string) []string {
	args := []string{
		"-ss", seconds(start),
		"-i", src,
		"-t", seconds(length),
		"-s", "640x360",
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "slow",
		"-loglevel", "error",
	}
	if audio {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-an")
	}
	return append(args, "-y", dst)
}

// TranscodeClip extracts a fixed-resolution, constant-quality clip of
// the given length starting at start seconds.
func (t Tools) TranscodeClip(ctx context.Context, src string, start, length float64, audio bool, dst string) error {
	if err := run(ctx, t.FFmpeg, clipArgs(src, start, length, audio, dst)...); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("ffmpeg produced no clip at %s: %w", dst, err)
	}
	return nil
}

func concatArgs(manifest string, audio bool, dst string) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "slow",
		"-loglevel", "error",
	}
	if audio {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-an")
	}
	return append(args, "-y", dst)
}

// ConcatClips joins the clips listed in a concat-demuxer manifest into a
// single output, re-encoding with the same settings as the per-clip pass
// so boundaries stay consistent.
func (t Tools) ConcatClips(ctx context.Context, manifest string, audio bool, dst string) error {
	if err := run(ctx, t.FFmpeg, concatArgs(manifest, audio, dst)...); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("ffmpeg produced no output at %s: %w", dst, err)
	}
	return nil
}
