package dto

import (
	"database/sql"
	"time"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/processor"
)

type ProcessVideoRequest struct {
	URL string `json:"url" binding:"required"`
}

type BatchProcessRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=50,dive,required"`
}

type BatchProcessResponse struct {
	Results   []BatchItemDTO `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

type BatchItemDTO struct {
	URL   string    `json:"url"`
	Video *VideoDTO `json:"video,omitempty"`
	Error string    `json:"error,omitempty"`
	Stage string    `json:"stage,omitempty"`
}

type ListVideosRequest struct {
	Offset int `form:"offset" binding:"min=0"`
	Limit  int `form:"limit" binding:"min=0"`
}

type ListVideosResponse struct {
	Videos []VideoDTO `json:"videos"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

type RenderResponse struct {
	HashName     string `json:"hash_name"`
	RenderedPath string `json:"rendered_path"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	Stage    string `json:"stage,omitempty"`
	HashName string `json:"hash_name,omitempty"`
	Field    string `json:"field,omitempty"`
}

type VideoDTO struct {
	ID                 int64   `json:"id"`
	SourceURL          string  `json:"source_url"`
	HashName           string  `json:"hash_name"`
	Title              *string `json:"title"`
	FolderPath         string  `json:"folder_path"`
	VideoPath          *string `json:"video_path"`
	ThumbnailPath      *string `json:"thumbnail_path"`
	AudioPath          *string `json:"audio_path"`
	TranscriptJSONPath *string `json:"transcript_json_path"`
	TranslatedJSONPath *string `json:"translated_json_path"`
	WordLevelJSONPath  *string `json:"word_level_json_path"`
	SubtitleASSPath    *string `json:"subtitle_ass_path"`
	DocEnPath          *string `json:"doc_en_path"`
	DocZhPath          *string `json:"doc_zh_path"`
	Status             string  `json:"status"`
	IsUpload           bool    `json:"is_upload"`
	CreatedAt          string  `json:"created_at"`
}

// NewVideoDTO converts a job row into its API shape. Null columns stay null and the
// status is inferred from the artifacts on disk, not read from the row.
func NewVideoDTO(job *domain.Job) VideoDTO {
	return VideoDTO{
		ID:                 job.ID,
		SourceURL:          job.SourceURL,
		HashName:           job.HashName,
		Title:              nullable(job.Title),
		FolderPath:         job.FolderPath,
		VideoPath:          nullable(job.VideoPath),
		ThumbnailPath:      nullable(job.ThumbnailPath),
		AudioPath:          nullable(job.AudioPath),
		TranscriptJSONPath: nullable(job.TranscriptJSONPath),
		TranslatedJSONPath: nullable(job.TranslatedJSONPath),
		WordLevelJSONPath:  nullable(job.WordLevelJSONPath),
		SubtitleASSPath:    nullable(job.SubtitleASSPath),
		DocEnPath:          nullable(job.DocEnPath),
		DocZhPath:          nullable(job.DocZhPath),
		Status:             processor.DeriveStatus(job).String(),
		IsUpload:           job.IsUpload(),
		CreatedAt:          job.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
