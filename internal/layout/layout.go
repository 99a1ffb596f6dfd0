// Package layout owns the on-disk shape of a job folder.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DirOriginal  = "original"
	DirSubtitles = "subtitles"
	DirDocs      = "docs"
	DirRendered  = "rendered"

	VideoFile        = "video.mp4"
	ThumbnailFile    = "thumbnail.jpg"
	AudioFile        = "audio.wav"
	InfoFile         = "info.json"
	TranscriptFile   = "en.json"
	TranslatedFile   = "zh.json"
	WordLevelFile    = "en_with_words.json"
	SubtitleFile     = "bilingual.ass"
	DocEnFile        = "en.md"
	DocZhFile        = "zh.md"
	DocBilingualFile = "bilingual.md"

	renderedSuffix = "_with_subtitles.mp4"
)

// Kind selects an artifact with more than one acceptable filename.
type Kind int

const (
	KindThumbnail Kind = iota
	KindSubtitle
)

// candidates are checked in order; the first existing file wins.
var candidates = map[Kind][]string{
	KindThumbnail: {ThumbnailFile, "thumbnail.webp", "thumbnail.webp.webp", "thumbnail.png"},
	KindSubtitle:  {SubtitleFile, "en.ass", "zh.ass"},
}

// Layout is the set of directories for one job.
type Layout struct {
	HashName  string
	Root      string
	Original  string
	Subtitles string
	Docs      string
	Rendered  string
}

// For returns the layout of hashName under base without touching the disk.
func For(base, hashName string) Layout {
	root := filepath.Join(base, hashName)
	return Layout{
		HashName:  hashName,
		Root:      root,
		Original:  filepath.Join(root, DirOriginal),
		Subtitles: filepath.Join(root, DirSubtitles),
		Docs:      filepath.Join(root, DirDocs),
		Rendered:  filepath.Join(root, DirRendered),
	}
}

// Ensure creates the job folder and its subdirectories. Calling it again is a no-op.
func Ensure(base, hashName string) (Layout, error) {
	l := For(base, hashName)
	for _, dir := range []string{l.Original, l.Subtitles, l.Docs, l.Rendered} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return l, nil
}

func (l Layout) VideoPath() string { return filepath.Join(l.Original, VideoFile) }
func (l Layout) ThumbnailPath() string { return filepath.Join(l.Original, ThumbnailFile) }
func (l Layout) AudioPath() string { return filepath.Join(l.Original, AudioFile) }
func (l Layout) InfoPath() string { return filepath.Join(l.Original, InfoFile) }
func (l Layout) TranscriptPath() string { return filepath.Join(l.Subtitles, TranscriptFile) }
func (l Layout) TranslatedPath() string { return filepath.Join(l.Subtitles, TranslatedFile) }
func (l Layout) WordLevelPath() string { return filepath.Join(l.Subtitles, WordLevelFile) }
func (l Layout) SubtitlePath() string { return filepath.Join(l.Subtitles, SubtitleFile) }
func (l Layout) DocEnPath() string { return filepath.Join(l.Docs, DocEnFile) }
func (l Layout) DocZhPath() string { return filepath.Join(l.Docs, DocZhFile) }
func (l Layout) DocBilingualPath() string { return filepath.Join(l.Docs, DocBilingualFile) }

// RenderedPath is the output of a hard-subtitle render.
func (l Layout) RenderedPath() string {
	return filepath.Join(l.Rendered, l.HashName+renderedSuffix)
}

// Resolve looks up kind in the directory that holds it.
func (l Layout) Resolve(kind Kind) (string, bool) {
	switch kind {
	case KindThumbnail:
		return Resolve(kind, l.Original)
	case KindSubtitle:
		return Resolve(kind, l.Subtitles)
	}
	return "", false
}

// Resolve returns the first candidate filename for kind that exists in dir.
func Resolve(kind Kind, dir string) (string, bool) {
	for _, name := range candidates[kind] {
		p := filepath.Join(dir, name)
		if Exists(p) {
			return p, true
		}
	}
	return "", false
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
