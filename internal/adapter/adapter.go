// Package adapter defines the external capabilities the pipeline drives. Each call either
// returns the path of a file it produced or an error.
package adapter

import (
	"context"
	"time"
)

// DownloadResult describes what a download produced.
type DownloadResult struct {
	VideoPath     string
	ThumbnailPath string // empty when the source offers none
	Title         string
}

// Downloader fetches the source video into targetDir.
type Downloader interface {
	Download(ctx context.Context, url, targetDir string) (DownloadResult, error)
}

// AudioExtractor writes the audio track of a video as WAV into targetDir.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, targetDir string) (string, error)
}

// FrameExtractor grabs one scaled frame at offset.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath, outputPath string, offset time.Duration, width, height int) error
}

// ImageConverter re-encodes an image as JPEG.
type ImageConverter interface {
	ConvertToJPEG(ctx context.Context, srcPath, dstPath string) error
}

// TranscribeResult lists the transcript files written.
type TranscribeResult struct {
	TranscriptPath string
	WordLevelPath  string // empty unless word-level output is enabled
}

// Transcriber turns audio into a timed transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, targetDir string) (TranscribeResult, error)
}

// Translator translates one piece of text. It never fails; on error the input comes back.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// SubtitleRenderer writes a styled subtitle track from a translated transcript.
type SubtitleRenderer interface {
	Render(ctx context.Context, translatedPath, outputPath string) error
}

// DocumentResult lists the documents written.
type DocumentResult struct {
	EnPath        string
	ZhPath        string
	BilingualPath string
}

// DocumentRenderer writes readable documents from a translated transcript.
type DocumentRenderer interface {
	Render(ctx context.Context, translatedPath, outputDir string) (DocumentResult, error)
}

// HardSubRenderer burns a subtitle track into a copy of the video.
type HardSubRenderer interface {
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error
}
