// Package ffmpeg wraps the ffmpeg binary for audio extraction, thumbnails and subtitle burn-in.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/layout"
)

// DefaultBinary is used when Config.Binary is empty.
const DefaultBinary = "ffmpeg"

// Config holds ffmpeg settings
type Config struct {
	Binary string
}

// Client runs ffmpeg.
type Client struct {
	binary string
	runner adapter.CommandRunner
}

// New creates a client. A nil runner executes the real binary.
func New(cfg Config, runner adapter.CommandRunner) *Client {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	if runner == nil {
		runner = adapter.ExecRunner{}
	}
	return &Client{binary: binary, runner: runner}
}

var baseArgs = []string{"-y", "-hide_banner", "-loglevel", "error"}

// ExtractAudio writes audio.wav (16-bit PCM, 44.1 kHz, stereo) into targetDir.
func (c *Client) ExtractAudio(ctx context.Context, videoPath, targetDir string) (string, error) {
	dest := filepath.Join(targetDir, layout.AudioFile)
	args := append(append([]string{}, baseArgs...),
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-ac", "2",
		dest,
	)
	if _, err := c.runner.Run(ctx, c.binary, args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	if !layout.Exists(dest) {
		return "", fmt.Errorf("ffmpeg extract audio: %s not written", dest)
	}
	return dest, nil
}

// ExtractFrame writes a single frame taken at offset, scaled to width x height.
func (c *Client) ExtractFrame(ctx context.Context, videoPath, outputPath string, offset time.Duration, width, height int) error {
	args := append(append([]string{}, baseArgs...),
		"-ss", formatOffset(offset),
		"-i", videoPath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		outputPath,
	)
	if _, err := c.runner.Run(ctx, c.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract frame: %w", err)
	}
	// seeking past the end exits cleanly without output
	if !layout.Exists(outputPath) {
		return fmt.Errorf("ffmpeg extract frame: no frame at %s", formatOffset(offset))
	}
	return nil
}

// BurnSubtitles renders subtitlePath into a re-encoded copy of videoPath.
func (c *Client) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("ffmpeg burn subtitles: %w", err)
	}
	args := append(append([]string{}, baseArgs...),
		"-i", videoPath,
		"-vf", assFilter(subtitlePath),
		"-c:v", "libx264",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	)
	if _, err := c.runner.Run(ctx, c.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg burn subtitles: %w", err)
	}
	return nil
}

// assFilter quotes path for the filtergraph parser.
func assFilter(path string) string {
	return "ass='" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
