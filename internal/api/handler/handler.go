package handler

import (
	"context"
	"log/slog"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/processor"
)

// VideoService is the pipeline surface the HTTP layer drives.
type VideoService interface {
	Submit(ctx context.Context, rawURL string) (*domain.Job, error)
	SubmitBatch(ctx context.Context, urls []string) []processor.BatchResult
	SubmitUpload(ctx context.Context, req processor.UploadRequest) (*domain.Job, error)
	GetByHash(ctx context.Context, hashName string) (*domain.Job, error)
	List(ctx context.Context, offset, limit int) ([]domain.Job, error)
	Delete(ctx context.Context, hashName string) (bool, error)
	RenderHardSubtitles(ctx context.Context, hashName string) (string, error)
	Resume(ctx context.Context, hashName string) error
	Subtitles(ctx context.Context, hashName string) (*processor.SubtitleView, error)
	ArtifactPath(ctx context.Context, hashName string, kind processor.Artifact) (string, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	ServiceName string
	DBClient    HealthChecker
	Videos      VideoService
}

// VideoHandler handles video-related HTTP requests
type VideoHandler struct {
	logger *slog.Logger
	videos VideoService
}

// NewVideoHandler creates a new VideoHandler instance
func NewVideoHandler(deps *Dependencies) *VideoHandler {
	return &VideoHandler{
		logger: deps.Logger,
		videos: deps.Videos,
	}
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	service  string
	dbClient HealthChecker
}

func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{service: deps.ServiceName, dbClient: deps.DBClient}
}
