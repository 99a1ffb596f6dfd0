package processor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/fileutil"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/transcript"
)

// run is the state carried through one pass over the stage table.
type run struct {
	job    *domain.Job
	layout layout.Layout
	logger *slog.Logger

	// thumbnail offered by the downloader, if any
	thumbnail string
}

type step struct {
	stage domain.Stage
	name  string
	exec  func(ctx context.Context, r *run) error
}

// commitFunc persists the job after a stage finished.
type commitFunc func(ctx context.Context, job *domain.Job) error

func (p *Processor) steps() []step {
	return []step{
		{stage: domain.StageDownloading, name: "download", exec: p.download},
		{stage: domain.StageDownloading, name: "thumbnail", exec: p.thumbnail},
		{stage: domain.StageConverting, name: "audio", exec: p.extractAudio},
		{stage: domain.StageTranscribing, name: "transcribe", exec: p.transcribe},
		{stage: domain.StageTranslating, name: "translate", exec: p.translate},
		{stage: domain.StageGeneratingSubtitle, name: "subtitle", exec: p.renderSubtitle},
		{stage: domain.StageGeneratingDocument, name: "documents", exec: p.renderDocuments},
	}
}

func (p *Processor) newRun(job *domain.Job, l layout.Layout) *run {
	return &run{
		job:    job,
		layout: l,
		logger: p.logger.With(slog.String("hash_name", job.HashName)),
	}
}

// runStages walks the stage table in order. A stage whose output already exists is
// adopted without calling its adapter. The first failing stage stops the pass.
func (p *Processor) runStages(ctx context.Context, r *run, commit commitFunc) error {
	for _, s := range p.steps() {
		if err := ctx.Err(); err != nil {
			return domain.NewStageError(s.stage, r.job.HashName, err)
		}

		started := time.Now()
		if err := s.exec(ctx, r); err != nil {
			r.logger.Error("Stage failed",
				slog.String("stage", s.stage.String()),
				slog.String("step", s.name),
				slog.Any("error", err),
			)
			return domain.NewStageError(s.stage, r.job.HashName, err)
		}

		r.job.Status = DeriveStatus(r.job).String()
		r.logger.Debug("Stage finished",
			slog.String("step", s.name),
			slog.String("status", r.job.Status),
			slog.Duration("duration", time.Since(started)),
		)

		if commit != nil {
			if err := commit(ctx, r.job); err != nil {
				return fmt.Errorf("failed to save job after %s: %w", s.name, err)
			}
		}
	}

	return nil
}

// settle makes sure the output of a stage sits at its fixed name.
func settle(produced, fixed string) error {
	if layout.Exists(fixed) {
		return nil
	}
	if produced != "" && produced != fixed && layout.Exists(produced) {
		if err := fileutil.MoveFile(produced, fixed); err != nil {
			return fmt.Errorf("failed to move %s: %w", produced, err)
		}
		return nil
	}
	return domain.ErrOutputMissing
}

func (p *Processor) download(ctx context.Context, r *run) error {
	l := r.layout
	video := l.VideoPath()

	if layout.Exists(video) {
		if !r.job.Title.Valid {
			if m, err := readManifest(l.InfoPath()); err == nil && m.Title != "" {
				r.job.Title = nullString(m.Title)
			}
		}
		r.job.VideoPath = domain.Path(video)
		return nil
	}

	if r.job.IsUpload() {
		return domain.ErrSourceUnavailable
	}

	res, err := p.adapters.Downloader.Download(ctx, r.job.SourceURL, l.Original)
	if err != nil {
		return err
	}
	if err := settle(res.VideoPath, video); err != nil {
		return err
	}

	r.thumbnail = res.ThumbnailPath
	if title := strings.TrimSpace(res.Title); title != "" {
		r.job.Title = nullString(title)
	}
	r.job.VideoPath = domain.Path(video)

	err = writeManifest(l.InfoPath(), manifest{
		SourceURL:    r.job.SourceURL,
		HashName:     r.job.HashName,
		Title:        r.job.Title.String,
		DownloadedAt: time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("Failed to write download manifest", slog.Any("error", err))
	}

	return nil
}

// thumbnail never fails the job: a source thumbnail is converted to JPEG, otherwise a
// frame is grabbed from the video, otherwise the job has no thumbnail.
func (p *Processor) thumbnail(ctx context.Context, r *run) error {
	l := r.layout
	jpg := l.ThumbnailPath()

	if layout.Exists(jpg) {
		r.job.ThumbnailPath = domain.Path(jpg)
		return nil
	}

	candidate := r.thumbnail
	if !layout.Exists(candidate) {
		candidate, _ = l.Resolve(layout.KindThumbnail)
	}

	if candidate != "" {
		err := p.adapters.Images.ConvertToJPEG(ctx, candidate, jpg)
		if err == nil && layout.Exists(jpg) {
			r.job.ThumbnailPath = domain.Path(jpg)
			return nil
		}
		r.logger.Warn("Thumbnail conversion failed",
			slog.String("source", candidate),
			slog.Any("error", err),
		)
	}

	err := p.adapters.Frames.ExtractFrame(ctx, r.job.VideoPath.String, jpg,
		p.cfg.ThumbnailOffset, p.cfg.ThumbnailWidth, p.cfg.ThumbnailHeight)
	if err == nil && layout.Exists(jpg) {
		r.job.ThumbnailPath = domain.Path(jpg)
		return nil
	}
	r.logger.Warn("Thumbnail frame extraction failed", slog.Any("error", err))

	r.job.ThumbnailPath = domain.Path(candidate)
	return nil
}

func (p *Processor) extractAudio(ctx context.Context, r *run) error {
	audio := r.layout.AudioPath()

	if !layout.Exists(audio) {
		produced, err := p.adapters.Audio.ExtractAudio(ctx, r.job.VideoPath.String, r.layout.Original)
		if err != nil {
			return err
		}
		if err := settle(produced, audio); err != nil {
			return err
		}
	}

	r.job.AudioPath = domain.Path(audio)
	return nil
}

func (p *Processor) transcribe(ctx context.Context, r *run) error {
	l := r.layout
	fixed := l.TranscriptPath()

	if !layout.Exists(fixed) {
		res, err := p.adapters.Transcriber.Transcribe(ctx, r.job.AudioPath.String, l.Subtitles)
		if err != nil {
			return err
		}
		if err := settle(res.TranscriptPath, fixed); err != nil {
			return err
		}
		if res.WordLevelPath != "" {
			if err := settle(res.WordLevelPath, l.WordLevelPath()); err != nil {
				r.logger.Warn("Word-level transcript missing", slog.Any("error", err))
			}
		}
	}

	r.job.TranscriptJSONPath = domain.Path(fixed)
	if layout.Exists(l.WordLevelPath()) {
		r.job.WordLevelJSONPath = domain.Path(l.WordLevelPath())
	} else {
		r.job.WordLevelJSONPath = sql.NullString{}
	}
	return nil
}

func (p *Processor) translate(ctx context.Context, r *run) error {
	fixed := r.layout.TranslatedPath()

	if !layout.Exists(fixed) {
		if err := p.translateTranscript(ctx, r, r.job.TranscriptJSONPath.String, fixed); err != nil {
			return err
		}
		if !layout.Exists(fixed) {
			return domain.ErrOutputMissing
		}
	}

	r.job.TranslatedJSONPath = domain.Path(fixed)
	return nil
}

// translateTranscript writes a copy of the transcript at src with translated_text filled in.
func (p *Processor) translateTranscript(ctx context.Context, r *run, src, dst string) error {
	doc, err := transcript.Load(src)
	if err != nil {
		return err
	}

	out := doc.WithoutWords()
	for i := range out.Segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Segments[i].TranslatedText = p.adapters.Translator.Translate(ctx, out.Segments[i].Text)
	}
	r.logger.Debug("Translated transcript", slog.Int("segments", len(out.Segments)))

	return out.Save(dst)
}

func (p *Processor) renderSubtitle(ctx context.Context, r *run) error {
	fixed := r.layout.SubtitlePath()

	if !layout.Exists(fixed) {
		if err := p.adapters.Subtitles.Render(ctx, r.job.TranslatedJSONPath.String, fixed); err != nil {
			return err
		}
		if !layout.Exists(fixed) {
			return domain.ErrOutputMissing
		}
	}

	r.job.SubtitleASSPath = domain.Path(fixed)
	return nil
}

func (p *Processor) renderDocuments(ctx context.Context, r *run) error {
	l := r.layout
	en, zh := l.DocEnPath(), l.DocZhPath()

	if !layout.Exists(en) || !layout.Exists(zh) {
		res, err := p.adapters.Documents.Render(ctx, r.job.TranslatedJSONPath.String, l.Docs)
		if err != nil {
			return err
		}
		if err := settle(res.EnPath, en); err != nil {
			return err
		}
		if err := settle(res.ZhPath, zh); err != nil {
			return err
		}
		if res.BilingualPath != "" {
			if err := settle(res.BilingualPath, l.DocBilingualPath()); err != nil {
				r.logger.Warn("Bilingual document missing", slog.Any("error", err))
			}
		}
	}

	r.job.DocEnPath = domain.Path(en)
	r.job.DocZhPath = domain.Path(zh)
	return nil
}

// manifest is written next to the downloaded video so a later pass can adopt the
// download with its title.
type manifest struct {
	SourceURL    string    `json:"source_url"`
	HashName     string    `json:"hash_name"`
	Title        string    `json:"title,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

func writeManifest(path string, m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data)
}

func readManifest(path string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
