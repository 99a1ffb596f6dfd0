package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/fileutil"
	"github.com/almensu/yanghooAI/internal/identity"
	"github.com/almensu/yanghooAI/internal/layout"
)

// ErrNoScheduler is returned by Resume when no background harness is wired.
var ErrNoScheduler = errors.New("no scheduler configured")

// UploadRequest is a user-supplied video file.
type UploadRequest struct {
	Filename string
	Title    string
	Content  io.Reader
}

func (r UploadRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return domain.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(r.Filename) == "" {
		return domain.NewValidationError("video_file", "filename is required")
	}
	if r.Content == nil {
		return domain.NewValidationError("video_file", "content is required")
	}
	return nil
}

// SubmitUpload stores an uploaded video, records the job right away and hands the
// remaining stages to the scheduler. The returned job is at the converting stage.
func (p *Processor) SubmitUpload(ctx context.Context, req UploadRequest) (*domain.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hashName := identity.NewUploadHash()
	logger := p.logger.With(slog.String("hash_name", hashName))

	l, err := layout.Ensure(p.cfg.BasePath, hashName)
	if err != nil {
		return nil, err
	}

	n, err := fileutil.WriteStreamAtomic(l.VideoPath(), req.Content)
	if err != nil {
		p.teardown(l)
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if n == 0 {
		p.teardown(l)
		return nil, domain.NewValidationError("video_file", "must not be empty")
	}

	job := &domain.Job{
		SourceURL:  domain.UploadSourceURL(hashName),
		HashName:   hashName,
		Title:      sql.NullString{String: strings.TrimSpace(req.Title), Valid: true},
		FolderPath: l.Root,
		VideoPath:  domain.Path(l.VideoPath()),
	}
	job.Status = DeriveStatus(job).String()

	if err := p.store.Create(ctx, job); err != nil {
		p.teardown(l)
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	logger.Info("Upload stored",
		slog.String("filename", req.Filename),
		slog.Int64("bytes", n),
	)

	if p.scheduler == nil {
		logger.Warn("No scheduler configured, upload waits for resume")
	} else if err := p.scheduler.Schedule(ctx, hashName); err != nil {
		logger.Error("Failed to schedule upload", slog.Any("error", err))
	}

	return job, nil
}

// Advance runs the remaining stages of an existing job, saving the row after each one.
// A failure stops progress and leaves the folder and row as they are.
func (p *Processor) Advance(ctx context.Context, hashName string) error {
	if !identity.Valid(hashName) {
		return domain.NewValidationError("hash_name", "malformed")
	}
	logger := p.logger.With(slog.String("hash_name", hashName))

	unlock, err := p.lock(ctx, hashName)
	if err != nil {
		return err
	}
	defer unlock()

	job, err := p.store.GetByHash(ctx, hashName)
	if err != nil {
		return err
	}

	l, err := layout.Ensure(p.baseOf(job), hashName)
	if err != nil {
		return err
	}

	started := time.Now()
	logger.Info("Advancing job", slog.String("status", DeriveStatus(job).String()))

	err = p.runStages(ctx, p.newRun(job, l), func(ctx context.Context, job *domain.Job) error {
		return p.store.Update(ctx, job)
	})
	if err != nil {
		attrs := []any{slog.Any("error", err)}
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			attrs = append(attrs, slog.String("stage", stageErr.Stage.String()))
		}
		logger.Error("Job stopped", attrs...)
		return err
	}

	logger.Info("Job completed", slog.Duration("duration", time.Since(started)))
	return nil
}

// Resume schedules Advance for an existing job.
func (p *Processor) Resume(ctx context.Context, hashName string) error {
	if !identity.Valid(hashName) {
		return domain.NewValidationError("hash_name", "malformed")
	}
	if _, err := p.store.GetByHash(ctx, hashName); err != nil {
		return err
	}
	if p.scheduler == nil {
		return ErrNoScheduler
	}
	return p.scheduler.Schedule(ctx, hashName)
}
