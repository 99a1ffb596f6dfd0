package domain

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// UploadScheme prefixes the source URL of jobs created from uploaded files.
const UploadScheme = "local_upload://"

// Job is one processed source and the paths of the artifacts derived from it.
type Job struct {
	ID                 int64          `db:"id"`
	SourceURL          string         `db:"source_url"`
	HashName           string         `db:"hash_name"`
	Title              sql.NullString `db:"title"`
	FolderPath         string         `db:"folder_path"`
	VideoPath          sql.NullString `db:"video_path"`
	ThumbnailPath      sql.NullString `db:"thumbnail_path"`
	AudioPath          sql.NullString `db:"audio_path"`
	TranscriptJSONPath sql.NullString `db:"transcript_json_path"`
	TranslatedJSONPath sql.NullString `db:"translated_json_path"`
	WordLevelJSONPath  sql.NullString `db:"word_level_json_path"`
	SubtitleASSPath    sql.NullString `db:"subtitle_ass_path"`
	DocEnPath          sql.NullString `db:"doc_en_path"`
	DocZhPath          sql.NullString `db:"doc_zh_path"`
	Status             string         `db:"status"`
	CreatedAt          time.Time      `db:"created_at"`
}

// UploadSourceURL returns the sentinel source URL stored for an uploaded file.
func UploadSourceURL(hashName string) string {
	return UploadScheme + hashName
}

// IsUpload reports whether the job was created from an uploaded file.
func (j *Job) IsUpload() bool {
	return strings.HasPrefix(j.SourceURL, UploadScheme)
}

// Path wraps a file path for a nullable column.
func Path(p string) sql.NullString {
	return sql.NullString{String: p, Valid: p != ""}
}

// JobRepository persists jobs.
type JobRepository interface {
	GetByHash(ctx context.Context, hashName string) (*Job, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*Job, error)
	List(ctx context.Context, offset, limit int) ([]Job, error)
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	Delete(ctx context.Context, hashName string) error
	// InTx runs fn against a repository bound to one transaction.
	InTx(ctx context.Context, fn func(repo JobRepository) error) error
}
