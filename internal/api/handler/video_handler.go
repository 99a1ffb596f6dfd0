package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/almensu/yanghooAI/internal/api/dto"
	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/processor"
)

// ProcessVideo handles POST /api/v1/videos
// Runs the whole pipeline for a URL before responding.
func (h *VideoHandler) ProcessVideo(c *gin.Context) {
	var req dto.ProcessVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Field: "url"})
		return
	}

	h.logger.Info("ProcessVideo called", slog.String("url", req.URL))

	job, err := h.videos.Submit(c.Request.Context(), req.URL)
	if err != nil {
		h.respondError(c, "Failed to process video", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewVideoDTO(job))
}

// BatchProcess handles POST /api/v1/videos/batch
// URLs run one after another; each result is reported on its own.
func (h *VideoHandler) BatchProcess(c *gin.Context) {
	var req dto.BatchProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body", Field: "urls"})
		return
	}

	h.logger.Info("BatchProcess called", slog.Int("count", len(req.URLs)))

	results := h.videos.SubmitBatch(c.Request.Context(), req.URLs)

	resp := dto.BatchProcessResponse{Results: make([]dto.BatchItemDTO, len(results))}
	for i, r := range results {
		item := dto.BatchItemDTO{URL: r.URL}
		if r.Err != nil {
			resp.Failed++
			item.Error = r.Err.Error()
			var stageErr *domain.StageError
			if errors.As(r.Err, &stageErr) {
				item.Stage = stageErr.Stage.String()
			}
		} else {
			resp.Succeeded++
			v := dto.NewVideoDTO(r.Job)
			item.Video = &v
		}
		resp.Results[i] = item
	}

	c.JSON(http.StatusOK, resp)
}

// UploadVideo handles POST /api/v1/videos/upload
// Stores the file and leaves the remaining stages to the background worker.
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("video_file")
	if err != nil {
		h.logger.Warn("Missing upload file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "video_file is required", Field: "video_file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, "Failed to open upload", err)
		return
	}
	defer file.Close()

	h.logger.Info("UploadVideo called",
		slog.String("filename", fileHeader.Filename),
		slog.Int64("size", fileHeader.Size),
	)

	job, err := h.videos.SubmitUpload(c.Request.Context(), processor.UploadRequest{
		Filename: fileHeader.Filename,
		Title:    c.PostForm("title"),
		Content:  file,
	})
	if err != nil {
		h.respondError(c, "Failed to store upload", err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewVideoDTO(job))
}

// GetVideo handles GET /api/v1/videos/:hash_name
func (h *VideoHandler) GetVideo(c *gin.Context) {
	job, err := h.videos.GetByHash(c.Request.Context(), c.Param("hash_name"))
	if err != nil {
		h.respondError(c, "Failed to get video", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewVideoDTO(job))
}

// ListVideos handles GET /api/v1/videos
// Lists videos in insertion order with offset pagination.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	var req dto.ListVideosRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	jobs, err := h.videos.List(c.Request.Context(), req.Offset, req.Limit)
	if err != nil {
		h.respondError(c, "Failed to list videos", err)
		return
	}

	videos := make([]dto.VideoDTO, len(jobs))
	for i := range jobs {
		videos[i] = dto.NewVideoDTO(&jobs[i])
	}

	offset, limit := processor.Page(req.Offset, req.Limit)
	c.JSON(http.StatusOK, dto.ListVideosResponse{
		Videos: videos,
		Offset: offset,
		Limit:  limit,
	})
}

// DeleteVideo handles DELETE /api/v1/videos/:hash_name
// Removes the row and the whole artifact folder.
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	hashName := c.Param("hash_name")

	deleted, err := h.videos.Delete(c.Request.Context(), hashName)
	if err != nil {
		h.respondError(c, "Failed to delete video", err)
		return
	}
	if !deleted {
		h.respondError(c, "Video not found", domain.ErrJobNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "video deleted",
		"hash_name": hashName,
	})
}

// RenderSubtitle handles POST /api/v1/videos/:hash_name/render-subtitle
// Burns the subtitle track into a copy of the video.
func (h *VideoHandler) RenderSubtitle(c *gin.Context) {
	hashName := c.Param("hash_name")

	output, err := h.videos.RenderHardSubtitles(c.Request.Context(), hashName)
	if err != nil {
		h.respondError(c, "Failed to render subtitles", err)
		return
	}

	c.JSON(http.StatusOK, dto.RenderResponse{HashName: hashName, RenderedPath: output})
}

// ResumeVideo handles POST /api/v1/videos/:hash_name/resume
func (h *VideoHandler) ResumeVideo(c *gin.Context) {
	hashName := c.Param("hash_name")

	if err := h.videos.Resume(c.Request.Context(), hashName); err != nil {
		h.respondError(c, "Failed to resume video", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "processing scheduled",
		"hash_name": hashName,
	})
}

// GetSubtitles handles GET /api/v1/videos/:hash_name/subtitles
func (h *VideoHandler) GetSubtitles(c *gin.Context) {
	view, err := h.videos.Subtitles(c.Request.Context(), c.Param("hash_name"))
	if err != nil {
		h.respondError(c, "Failed to load subtitles", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// DownloadFile handles GET /api/v1/videos/:hash_name/files/:file_type
func (h *VideoHandler) DownloadFile(c *gin.Context) {
	kind, err := processor.ParseArtifact(c.Param("file_type"))
	if err != nil {
		h.respondError(c, "Invalid file type", err)
		return
	}

	h.serveArtifact(c, kind, true)
}

// GetThumbnail handles GET /api/v1/videos/:hash_name/thumbnail
func (h *VideoHandler) GetThumbnail(c *gin.Context) {
	h.serveArtifact(c, processor.ArtifactThumbnail, false)
}

func (h *VideoHandler) serveArtifact(c *gin.Context, kind processor.Artifact, attachment bool) {
	path, err := h.videos.ArtifactPath(c.Request.Context(), c.Param("hash_name"), kind)
	if err != nil {
		h.respondError(c, "Failed to resolve file", err)
		return
	}

	if attachment {
		c.FileAttachment(path, filepath.Base(path))
		return
	}
	c.File(path)
}
