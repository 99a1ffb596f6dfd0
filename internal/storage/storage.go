// Package storage persists jobs in the videos table through sqlx.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/shared/database"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const jobColumns = `
	id, source_url, hash_name, title, folder_path,
	video_path, thumbnail_path, audio_path,
	transcript_json_path, translated_json_path, word_level_json_path,
	subtitle_ass_path, doc_en_path, doc_zh_path,
	status, created_at`

// Storage implements domain.JobRepository. A Storage returned by InTx is bound to
// one transaction; otherwise it runs on the pool.
type Storage struct {
	db *sqlx.DB
	ex sqlx.ExtContext
}

var _ domain.JobRepository = (*Storage)(nil)

func NewStorage(client *database.Client) *Storage {
	return New(client.GetDB())
}

// New wraps an open sqlx pool.
func New(db *sqlx.DB) *Storage {
	return &Storage{db: db, ex: db}
}

// Migrate creates the schema for the pool's driver if it does not exist.
func (s *Storage) Migrate(ctx context.Context) error {
	name := fmt.Sprintf("schema/%s.sql", s.db.DriverName())
	ddl, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("no schema for driver %s: %w", s.db.DriverName(), err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Storage) GetByHash(ctx context.Context, hashName string) (*domain.Job, error) {
	return s.getOne(ctx, "hash_name", hashName)
}

func (s *Storage) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.Job, error) {
	return s.getOne(ctx, "source_url", sourceURL)
}

func (s *Storage) getOne(ctx context.Context, column, value string) (*domain.Job, error) {
	var job domain.Job
	query := s.ex.Rebind(`SELECT` + jobColumns + ` FROM videos WHERE ` + column + ` = ?`)

	err := sqlx.GetContext(ctx, s.ex, &job, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List returns jobs in insertion order.
func (s *Storage) List(ctx context.Context, offset, limit int) ([]domain.Job, error) {
	query := s.ex.Rebind(`SELECT` + jobColumns + ` FROM videos ORDER BY id ASC LIMIT ? OFFSET ?`)

	jobs := []domain.Job{}
	if err := sqlx.SelectContext(ctx, s.ex, &jobs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// Create inserts job and fills in its ID. CreatedAt defaults to now.
func (s *Storage) Create(ctx context.Context, job *domain.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := s.ex.Rebind(`
		INSERT INTO videos (
			source_url, hash_name, title, folder_path,
			video_path, thumbnail_path, audio_path,
			transcript_json_path, translated_json_path, word_level_json_path,
			subtitle_ass_path, doc_en_path, doc_zh_path,
			status, created_at
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?
		)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, s.ex, &job.ID, query,
		job.SourceURL,
		job.HashName,
		job.Title,
		job.FolderPath,
		job.VideoPath,
		job.ThumbnailPath,
		job.AudioPath,
		job.TranscriptJSONPath,
		job.TranslatedJSONPath,
		job.WordLevelJSONPath,
		job.SubtitleASSPath,
		job.DocEnPath,
		job.DocZhPath,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// Update writes every mutable column of the row identified by job.HashName.
func (s *Storage) Update(ctx context.Context, job *domain.Job) error {
	query := s.ex.Rebind(`
		UPDATE videos SET
			title = ?,
			folder_path = ?,
			video_path = ?,
			thumbnail_path = ?,
			audio_path = ?,
			transcript_json_path = ?,
			translated_json_path = ?,
			word_level_json_path = ?,
			subtitle_ass_path = ?,
			doc_en_path = ?,
			doc_zh_path = ?,
			status = ?
		WHERE hash_name = ?
	`)

	res, err := s.ex.ExecContext(ctx, query,
		job.Title,
		job.FolderPath,
		job.VideoPath,
		job.ThumbnailPath,
		job.AudioPath,
		job.TranscriptJSONPath,
		job.TranslatedJSONPath,
		job.WordLevelJSONPath,
		job.SubtitleASSPath,
		job.DocEnPath,
		job.DocZhPath,
		job.Status,
		job.HashName,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return expectOne(res)
}

func (s *Storage) Delete(ctx context.Context, hashName string) error {
	res, err := s.ex.ExecContext(ctx, s.ex.Rebind(`DELETE FROM videos WHERE hash_name = ?`), hashName)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return expectOne(res)
}

// InTx runs fn in a transaction. Calls nested in a transaction reuse it.
func (s *Storage) InTx(ctx context.Context, fn func(repo domain.JobRepository) error) error {
	if _, nested := s.ex.(*sqlx.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Storage{db: s.db, ex: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}
