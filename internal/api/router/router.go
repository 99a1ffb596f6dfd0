package router

import (
	"github.com/gin-gonic/gin"

	"github.com/almensu/yanghooAI/internal/api/handler"
)

// maxUploadMemory bounds the part of a multipart upload kept in memory; the rest spills to disk.
const maxUploadMemory = 32 << 20

const healthPath = "/health"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadMemory

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET(healthPath, healthHandler.Health)

	videoHandler := handler.NewVideoHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		videos := v1.Group("/videos")
		{
			// POST /api/v1/videos - Process a URL synchronously
			videos.POST("", videoHandler.ProcessVideo)

			// POST /api/v1/videos/batch - Process several URLs in order
			videos.POST("/batch", videoHandler.BatchProcess)

			// POST /api/v1/videos/upload - Store a file and process it in the background
			videos.POST("/upload", videoHandler.UploadVideo)

			// GET /api/v1/videos - List videos
			videos.GET("", videoHandler.ListVideos)

			// GET /api/v1/videos/:hash_name - Get video details
			videos.GET("/:hash_name", videoHandler.GetVideo)

			// DELETE /api/v1/videos/:hash_name - Delete a video and its files
			videos.DELETE("/:hash_name", videoHandler.DeleteVideo)

			videos.POST("/:hash_name/render-subtitle", videoHandler.RenderSubtitle)
			videos.POST("/:hash_name/resume", videoHandler.ResumeVideo)
			videos.GET("/:hash_name/subtitles", videoHandler.GetSubtitles)
			videos.GET("/:hash_name/files/:file_type", videoHandler.DownloadFile)
			videos.GET("/:hash_name/thumbnail", videoHandler.GetThumbnail)
		}
	}

	return r
}
