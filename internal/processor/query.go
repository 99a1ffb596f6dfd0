package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/identity"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/transcript"
)

// Artifact names one downloadable file of a job.
type Artifact string

const (
	ArtifactVideo        Artifact = "video"
	ArtifactThumbnail    Artifact = "thumbnail"
	ArtifactAudio        Artifact = "wav"
	ArtifactTranscript   Artifact = "en_json"
	ArtifactTranslation  Artifact = "zh_json"
	ArtifactWordLevel    Artifact = "word_json"
	ArtifactSubtitle     Artifact = "ass"
	ArtifactDocEn        Artifact = "en_md"
	ArtifactDocZh        Artifact = "zh_md"
	ArtifactDocBilingual Artifact = "bilingual_md"
	ArtifactRendered     Artifact = "rendered"
)

var artifacts = map[Artifact]bool{
	ArtifactVideo: true, ArtifactThumbnail: true, ArtifactAudio: true,
	ArtifactTranscript: true, ArtifactTranslation: true, ArtifactWordLevel: true,
	ArtifactSubtitle: true, ArtifactDocEn: true, ArtifactDocZh: true,
	ArtifactDocBilingual: true, ArtifactRendered: true,
}

// ParseArtifact validates an artifact name.
func ParseArtifact(name string) (Artifact, error) {
	a := Artifact(strings.ToLower(strings.TrimSpace(name)))
	if !artifacts[a] {
		return "", domain.NewValidationError("file_type", fmt.Sprintf("unknown file type %q (one of %s)", name, strings.Join(ArtifactNames(), ", ")))
	}
	return a, nil
}

// ArtifactNames lists the accepted artifact names in sorted order.
func ArtifactNames() []string {
	names := make([]string, 0, len(artifacts))
	for a := range artifacts {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// SubtitleLine is one timed line of the subtitles view.
type SubtitleLine struct {
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Text           string  `json:"text"`
	TranslatedText string  `json:"translated_text,omitempty"`
}

// SubtitleView is the language-aware subtitle listing of a job.
type SubtitleView struct {
	HashName  string         `json:"hash_name"`
	Language  string         `json:"language"`
	Bilingual bool           `json:"bilingual"`
	Subtitles []SubtitleLine `json:"subtitles"`
}

// GetByHash returns a job, repairing drifted path fields when the job is not busy.
func (p *Processor) GetByHash(ctx context.Context, hashName string) (*domain.Job, error) {
	if !identity.Valid(hashName) {
		return nil, domain.ErrJobNotFound
	}

	job, err := p.store.GetByHash(ctx, hashName)
	if err != nil {
		return nil, err
	}

	unlock, err := p.tryLock(hashName)
	if err != nil {
		// an active stage owns the row
		return job, nil
	}
	defer unlock()

	return p.reconcile(ctx, job), nil
}

// Page returns the offset and limit List actually uses: a negative offset becomes 0,
// limit defaults to 10 and is capped at 100.
func Page(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return offset, min(limit, maxListLimit)
}

// List returns jobs in insertion order, paged as Page describes.
func (p *Processor) List(ctx context.Context, offset, limit int) ([]domain.Job, error) {
	offset, limit = Page(offset, limit)
	return p.store.List(ctx, offset, limit)
}

// Delete removes a job's row and folder. It reports false when no such job exists and
// domain.ErrJobBusy when another operation still holds the job after Config.BusyWait.
func (p *Processor) Delete(ctx context.Context, hashName string) (bool, error) {
	if !identity.Valid(hashName) {
		return false, nil
	}

	unlock, err := p.lockWithin(ctx, hashName, p.cfg.BusyWait)
	if err != nil {
		return false, err
	}
	defer unlock()

	job, err := p.store.GetByHash(ctx, hashName)
	if errors.Is(err, domain.ErrJobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	folder := job.FolderPath
	trash := filepath.Join(p.baseOf(job), fmt.Sprintf(".trash-%s-%d", hashName, time.Now().UnixNano()))
	moved := false

	err = p.store.InTx(ctx, func(repo domain.JobRepository) error {
		if err := repo.Delete(ctx, hashName); err != nil {
			return err
		}
		if layout.DirExists(folder) {
			if err := os.Rename(folder, trash); err != nil {
				return fmt.Errorf("failed to move job folder: %w", err)
			}
			moved = true
		}
		return nil
	})
	if err != nil {
		if moved {
			if rerr := os.Rename(trash, folder); rerr != nil {
				p.logger.Error("Failed to restore job folder",
					slog.String("hash_name", hashName),
					slog.String("trash", trash),
					slog.Any("error", rerr),
				)
			}
		}
		return false, err
	}

	if moved {
		if err := os.RemoveAll(trash); err != nil {
			p.logger.Warn("Failed to purge deleted job folder",
				slog.String("trash", trash),
				slog.Any("error", err),
			)
		}
	}

	p.logger.Info("Job deleted", slog.String("hash_name", hashName))
	return true, nil
}

// Subtitles lists the translated transcript. Chinese sources list the text only; other
// sources list the text with its translation.
func (p *Processor) Subtitles(ctx context.Context, hashName string) (*SubtitleView, error) {
	job, err := p.GetByHash(ctx, hashName)
	if err != nil {
		return nil, err
	}
	if !layout.Exists(job.TranslatedJSONPath.String) {
		return nil, fmt.Errorf("translated transcript: %w", domain.ErrArtifactNotFound)
	}

	doc, err := transcript.Load(job.TranslatedJSONPath.String)
	if err != nil {
		return nil, err
	}

	lang := doc.Language
	if lang == "" {
		lang = "en"
	}

	view := &SubtitleView{
		HashName:  hashName,
		Language:  lang,
		Bilingual: !isChineseCode(lang),
		Subtitles: make([]SubtitleLine, 0, len(doc.Segments)),
	}
	for _, seg := range doc.Segments {
		line := SubtitleLine{Start: seg.Start, End: seg.End, Text: seg.Text}
		if view.Bilingual {
			line.TranslatedText = seg.TranslatedText
		}
		view.Subtitles = append(view.Subtitles, line)
	}

	return view, nil
}

func isChineseCode(lang string) bool {
	lang = strings.ToLower(lang)
	return lang == "zh" || strings.HasPrefix(lang, "zh-") || strings.HasPrefix(lang, "zh_")
}

// ArtifactPath returns the on-disk path of one artifact of a job.
func (p *Processor) ArtifactPath(ctx context.Context, hashName string, kind Artifact) (string, error) {
	job, err := p.GetByHash(ctx, hashName)
	if err != nil {
		return "", err
	}
	l := p.layoutOf(job)

	var path string
	switch kind {
	case ArtifactVideo:
		path = job.VideoPath.String
	case ArtifactThumbnail:
		path = job.ThumbnailPath.String
		if !layout.Exists(path) {
			path, _ = l.Resolve(layout.KindThumbnail)
		}
	case ArtifactAudio:
		path = job.AudioPath.String
	case ArtifactTranscript:
		path = job.TranscriptJSONPath.String
	case ArtifactTranslation:
		path = job.TranslatedJSONPath.String
	case ArtifactWordLevel:
		path = job.WordLevelJSONPath.String
	case ArtifactSubtitle:
		path = job.SubtitleASSPath.String
		if !layout.Exists(path) {
			path, _ = l.Resolve(layout.KindSubtitle)
		}
	case ArtifactDocEn:
		path = job.DocEnPath.String
	case ArtifactDocZh:
		path = job.DocZhPath.String
	case ArtifactDocBilingual:
		path = l.DocBilingualPath()
	case ArtifactRendered:
		path = l.RenderedPath()
	default:
		return "", domain.NewValidationError("file_type", fmt.Sprintf("unknown file type %q", kind))
	}

	if !layout.Exists(path) {
		return "", fmt.Errorf("%s: %w", kind, domain.ErrArtifactNotFound)
	}
	return path, nil
}
