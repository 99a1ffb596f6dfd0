package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/almensu/yanghooAI/internal/api/dto"
	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/processor"
	workerdomain "github.com/almensu/yanghooAI/internal/worker/domain"
)

// statusFor maps a pipeline error onto an HTTP status and response body.
func statusFor(err error) (int, dto.ErrorResponse) {
	var (
		validationErr *domain.ValidationError
		stageErr      *domain.StageError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Field: validationErr.Field}
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrArtifactNotFound):
		return http.StatusNotFound, dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrJobBusy):
		return http.StatusConflict, dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, workerdomain.ErrQueueFull),
		errors.Is(err, workerdomain.ErrWorkerStopped),
		errors.Is(err, processor.ErrNoScheduler):
		return http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()}
	case errors.As(err, &stageErr):
		return http.StatusInternalServerError, dto.ErrorResponse{
			Error:    err.Error(),
			Stage:    stageErr.Stage.String(),
			HashName: stageErr.HashName,
		}
	default:
		return http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"}
	}
}

func (h *VideoHandler) respondError(c *gin.Context, msg string, err error) {
	status, body := statusFor(err)

	attrs := []any{
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, attrs...)
	} else {
		h.logger.Warn(msg, attrs...)
	}

	c.JSON(status, body)
}
