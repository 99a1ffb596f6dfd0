// Package processor sequences the pipeline stages for a job and keeps the job row in step
// with the artifacts on disk.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/layout"
)

const (
	DefaultThumbnailOffset = 5 * time.Second
	DefaultThumbnailWidth  = 480
	DefaultThumbnailHeight = 270
	DefaultLockRetryDelay  = 200 * time.Millisecond
	DefaultBusyWait        = 2 * time.Second

	defaultListLimit = 10
	maxListLimit     = 100
)

// Config holds processor settings
type Config struct {
	BasePath        string
	ThumbnailOffset time.Duration
	ThumbnailWidth  int
	ThumbnailHeight int
	LockRetryDelay  time.Duration
	// BusyWait bounds how long Delete waits for a held lock before reporting busy.
	BusyWait time.Duration
}

// Adapters are the external capabilities the stages call.
type Adapters struct {
	Downloader  adapter.Downloader
	Audio       adapter.AudioExtractor
	Frames      adapter.FrameExtractor
	Images      adapter.ImageConverter
	Transcriber adapter.Transcriber
	Translator  adapter.Translator
	Subtitles   adapter.SubtitleRenderer
	Documents   adapter.DocumentRenderer
	HardSubs    adapter.HardSubRenderer
}

// Scheduler queues a job for background advancement.
type Scheduler interface {
	Schedule(ctx context.Context, hashName string) error
}

// Dependencies holds all dependencies needed by the processor
type Dependencies struct {
	Logger    *slog.Logger
	Store     domain.JobRepository
	Scheduler Scheduler
	Adapters  Adapters
}

// Processor is the only writer of job rows.
type Processor struct {
	cfg       Config
	logger    *slog.Logger
	store     domain.JobRepository
	scheduler Scheduler
	adapters  Adapters
}

// New creates a Processor.
func New(cfg Config, deps *Dependencies) (*Processor, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("processor: base path is required")
	}
	if deps.Store == nil {
		return nil, errors.New("processor: store is required")
	}
	if err := deps.Adapters.validate(); err != nil {
		return nil, err
	}

	if cfg.ThumbnailOffset <= 0 {
		cfg.ThumbnailOffset = DefaultThumbnailOffset
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = DefaultThumbnailWidth
	}
	if cfg.ThumbnailHeight <= 0 {
		cfg.ThumbnailHeight = DefaultThumbnailHeight
	}
	if cfg.LockRetryDelay <= 0 {
		cfg.LockRetryDelay = DefaultLockRetryDelay
	}
	if cfg.BusyWait <= 0 {
		cfg.BusyWait = DefaultBusyWait
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		cfg:       cfg,
		logger:    logger,
		store:     deps.Store,
		scheduler: deps.Scheduler,
		adapters:  deps.Adapters,
	}, nil
}

func (a Adapters) validate() error {
	required := []struct {
		name    string
		missing bool
	}{
		{"downloader", a.Downloader == nil},
		{"audio extractor", a.Audio == nil},
		{"frame extractor", a.Frames == nil},
		{"image converter", a.Images == nil},
		{"transcriber", a.Transcriber == nil},
		{"translator", a.Translator == nil},
		{"subtitle renderer", a.Subtitles == nil},
		{"document renderer", a.Documents == nil},
		{"hard-sub renderer", a.HardSubs == nil},
	}
	for _, r := range required {
		if r.missing {
			return fmt.Errorf("processor: %s is required", r.name)
		}
	}
	return nil
}

// SetScheduler wires the background harness after both sides exist.
func (p *Processor) SetScheduler(s Scheduler) {
	p.scheduler = s
}

// DeriveStatus infers the stage of a job from which of its recorded artifacts exist.
// The persisted status column is never consulted.
func DeriveStatus(job *domain.Job) domain.Stage {
	return domain.Presence{
		Video:      layout.Exists(job.VideoPath.String),
		Audio:      layout.Exists(job.AudioPath.String),
		Transcript: layout.Exists(job.TranscriptJSONPath.String),
		Translated: layout.Exists(job.TranslatedJSONPath.String),
		Subtitle:   layout.Exists(job.SubtitleASSPath.String),
		DocEn:      layout.Exists(job.DocEnPath.String),
		DocZh:      layout.Exists(job.DocZhPath.String),
	}.Stage()
}

// baseOf is the data directory a job's folder lives in.
func (p *Processor) baseOf(job *domain.Job) string {
	if job.FolderPath == "" {
		return p.cfg.BasePath
	}
	return filepath.Dir(job.FolderPath)
}

func (p *Processor) layoutOf(job *domain.Job) layout.Layout {
	return layout.For(p.baseOf(job), job.HashName)
}
