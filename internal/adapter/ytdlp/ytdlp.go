// Package ytdlp downloads source videos with the yt-dlp command line tool.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/layout"
)

const (
	// DefaultBinary is used when Config.Binary is empty.
	DefaultBinary = "yt-dlp"
	// DefaultFormat caps downloads at 720p.
	DefaultFormat = "bv*[height<=720]+ba/b[height<=720]/b"

	titleFile = ".title"
)

// Config holds yt-dlp settings
type Config struct {
	Binary    string
	Format    string
	ExtraArgs []string // e.g. --cookies, --proxy
}

// Downloader runs yt-dlp.
type Downloader struct {
	cfg    Config
	runner adapter.CommandRunner
}

// New creates a downloader. A nil runner executes the real binary.
func New(cfg Config, runner adapter.CommandRunner) *Downloader {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if runner == nil {
		runner = adapter.ExecRunner{}
	}
	return &Downloader{cfg: cfg, runner: runner}
}

// Download writes video.mp4 and, when the source has one, a thumbnail into targetDir.
func (d *Downloader) Download(ctx context.Context, url, targetDir string) (adapter.DownloadResult, error) {
	var result adapter.DownloadResult

	titlePath := filepath.Join(targetDir, titleFile)
	defer os.Remove(titlePath)

	if _, err := d.runner.Run(ctx, d.cfg.Binary, d.buildArgs(url, targetDir)...); err != nil {
		return result, fmt.Errorf("yt-dlp download: %w", err)
	}

	result.VideoPath = filepath.Join(targetDir, layout.VideoFile)
	if !layout.Exists(result.VideoPath) {
		return result, fmt.Errorf("yt-dlp download: %s not written (audio-only source?)", result.VideoPath)
	}

	if thumb, ok := layout.Resolve(layout.KindThumbnail, targetDir); ok {
		result.ThumbnailPath = thumb
	}

	if data, err := os.ReadFile(titlePath); err == nil {
		result.Title = strings.TrimSpace(string(data))
	}

	return result, nil
}

func (d *Downloader) buildArgs(url, targetDir string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--newline",
		"-f", d.cfg.Format,
		"--merge-output-format", "mp4",
		"--remux-video", "mp4",
		"--write-thumbnail",
		"-o", filepath.Join(targetDir, "video.%(ext)s"),
		"-o", "thumbnail:" + filepath.Join(targetDir, "thumbnail.%(ext)s"),
		"--print-to-file", "after_move:title", filepath.Join(targetDir, titleFile),
	}
	args = append(args, d.cfg.ExtraArgs...)
	return append(args, "--", url)
}
