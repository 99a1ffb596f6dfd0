package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/identity"
	"github.com/almensu/yanghooAI/internal/layout"
)

// BatchResult is the outcome of one URL in a batch.
type BatchResult struct {
	URL string
	Job *domain.Job
	Err error
}

// Submit processes url to completion and returns its job. A URL that resolves to an
// existing job returns that job without running any stage. On failure the job folder is
// removed and no row is written.
func (p *Processor) Submit(ctx context.Context, rawURL string) (*domain.Job, error) {
	hashName, err := identity.Derive(rawURL)
	if err != nil {
		return nil, err
	}
	sourceURL := strings.TrimSpace(rawURL)
	logger := p.logger.With(slog.String("hash_name", hashName))

	unlock, err := p.lock(ctx, hashName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := p.lookup(ctx, sourceURL, hashName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if layout.DirExists(existing.FolderPath) {
			logger.Info("Video already processed", slog.String("source_url", sourceURL))
			return p.reconcile(ctx, existing), nil
		}

		logger.Warn("Removing job whose folder is gone", slog.String("folder", existing.FolderPath))
		if err := p.store.Delete(ctx, existing.HashName); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
			return nil, fmt.Errorf("failed to remove orphaned job: %w", err)
		}
	}

	l, err := layout.Ensure(p.cfg.BasePath, hashName)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		SourceURL:  sourceURL,
		HashName:   hashName,
		FolderPath: l.Root,
	}

	started := time.Now()
	logger.Info("Processing video", slog.String("source_url", sourceURL))

	if err := p.runStages(ctx, p.newRun(job, l), nil); err != nil {
		p.teardown(l)
		return nil, err
	}

	job.Status = DeriveStatus(job).String()
	err = p.store.InTx(ctx, func(repo domain.JobRepository) error {
		return repo.Create(ctx, job)
	})
	if err != nil {
		p.teardown(l)
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	logger.Info("Video processed",
		slog.Int64("id", job.ID),
		slog.Duration("duration", time.Since(started)),
	)
	return job, nil
}

// SubmitBatch submits each URL in turn. One failure does not stop the rest.
func (p *Processor) SubmitBatch(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, 0, len(urls))
	for _, u := range urls {
		job, err := p.Submit(ctx, u)
		results = append(results, BatchResult{URL: u, Job: job, Err: err})
	}
	return results
}

// lookup finds a job by source URL, then by hash name. A miss is (nil, nil).
func (p *Processor) lookup(ctx context.Context, sourceURL, hashName string) (*domain.Job, error) {
	job, err := p.store.GetBySourceURL(ctx, sourceURL)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrJobNotFound) {
		return nil, err
	}

	job, err = p.store.GetByHash(ctx, hashName)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil, nil
	}
	return job, err
}

// reconcile brings the path fields of job back in line with the disk. Vanished paths are
// cleared; the thumbnail and subtitle are rediscovered among their candidate names. The
// row is written only if something changed, and a failed write is logged, not returned.
func (p *Processor) reconcile(ctx context.Context, job *domain.Job) *domain.Job {
	l := p.layoutOf(job)
	changed := false

	set := func(field *sql.NullString, value sql.NullString) {
		if *field != value {
			*field = value
			changed = true
		}
	}

	for _, field := range []*sql.NullString{
		&job.VideoPath,
		&job.AudioPath,
		&job.TranscriptJSONPath,
		&job.TranslatedJSONPath,
		&job.WordLevelJSONPath,
		&job.DocEnPath,
		&job.DocZhPath,
	} {
		if field.Valid && !layout.Exists(field.String) {
			set(field, sql.NullString{})
		}
	}

	if !layout.Exists(job.ThumbnailPath.String) {
		found, _ := l.Resolve(layout.KindThumbnail)
		set(&job.ThumbnailPath, domain.Path(found))
	}
	if job.SubtitleASSPath.Valid && !layout.Exists(job.SubtitleASSPath.String) {
		found, _ := l.Resolve(layout.KindSubtitle)
		set(&job.SubtitleASSPath, domain.Path(found))
	}

	if status := DeriveStatus(job).String(); job.Status != status {
		job.Status = status
		changed = true
	}

	if changed {
		if err := p.store.Update(ctx, job); err != nil {
			p.logger.Warn("Failed to save repaired job",
				slog.String("hash_name", job.HashName),
				slog.Any("error", err),
			)
		}
	}

	return job
}

func (p *Processor) teardown(l layout.Layout) {
	if err := os.RemoveAll(l.Root); err != nil {
		p.logger.Error("Failed to remove job folder",
			slog.String("folder", l.Root),
			slog.Any("error", err),
		)
	}
}
