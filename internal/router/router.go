package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/tugas-backend/internal/config"
	"github.com/stemsi/tugas-backend/internal/handler"
	"github.com/stemsi/tugas-backend/internal/middleware"
	"github.com/stemsi/tugas-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Assignment *handler.AssignmentHandler
	Submission *handler.SubmissionHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.Authenticator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.MaxMultipartMemory = 8 << 20

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Submission files are stored as-is; PDFs and DOCX are already compressed.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper: func(c *gin.Context) bool {
			return strings.HasSuffix(c.FullPath(), "/file")
		},
	}))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	uploadLimiter := middleware.NewRateLimiter(cfg.UploadRateLimit, time.Minute)

	// ─── 1. Assignment API (verified identity; roles checked by services) ─
	api := router.Group("/api/v1")
	api.Use(middleware.RequireIdentity(auth), middleware.NoStore())
	{
		api.GET("/assignments", handlers.Assignment.ListAssignments)
		api.POST("/assignments", handlers.Assignment.CreateAssignment)
		api.PUT("/assignments/upload", uploadLimiter.Middleware(), handlers.Submission.UploadSubmission)
		api.GET("/assignments/:id", handlers.Assignment.GetAssignment)
		api.PUT("/assignments/:id", handlers.Assignment.UpdateAssignment)
		api.DELETE("/assignments/:id", handlers.Assignment.DeleteAssignment)
		api.GET("/assignments/:id/progress", handlers.Assignment.GetSubmissionProgress)
		api.PUT("/assignments/:id/submissions/:student_id/grade", handlers.Assignment.GradeSubmission)
		api.GET("/assignments/:id/submissions/:student_id/file", handlers.Submission.DownloadSubmission)
	}

	// ─── 2. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireIdentity(auth))
	{
		ws.GET("/uploads/:upload_id/progress", handlers.WS.UploadProgressStream)
	}

	return router
}
