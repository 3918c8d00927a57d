// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/handlers"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/video"
)

// uploadOverhead covers multipart boundaries, the form fields and a thumbnail.
const uploadOverhead = video.MaxThumbnailSize + 1<<20

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	RateLimit      int // requests per hour per user

	// StorageDir, when set, is served read-only under /storage so the URLs
	// produced by local blob storage resolve.
	StorageDir string
}

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(middleware.CORS(opts.AllowedOrigins))

	if opts.StorageDir != "" {
		r.Static("/storage", opts.StorageDir)
	}

	rateLimiter := middleware.NewRateLimiter(opts.RateLimit)

	api := r.Group("/api")

	// --- Public Routes (no auth required) ---
	api.GET("/health", h.HealthCheck)
	api.GET("/docs", h.ServeSwaggerUI)
	api.GET("/docs/openapi.yaml", h.ServeOpenAPISpec)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/content-requests/invite/:token", h.GetContentRequestByInvite)

	// --- Bearer-protected routes ---
	protected := api.Group("")
	protected.Use(middleware.RequireAuth(h.Users, h.JWTSecret))
	protected.Use(rateLimiter.RateLimit())
	{
		protected.POST("/auth/logout", h.Logout)
		protected.POST("/auth/refresh", h.RefreshToken)
		protected.GET("/auth/user", h.CurrentUser)

		// Videos
		protected.GET("/videos", h.ListVideos)
		protected.POST("/videos", middleware.BodyLimit(video.MaxVideoSize+uploadOverhead), h.CreateVideo)
		protected.GET("/videos/:id", h.GetVideo)
		protected.PUT("/videos/:id", h.UpdateVideo)
		protected.DELETE("/videos/:id", h.DeleteVideo)
		protected.POST("/videos/:id/publish", h.PublishVideo)
		protected.POST("/videos/:id/archive", h.ArchiveVideo)
		protected.POST("/videos/:id/reprocess", h.ReprocessVideo)
		protected.POST("/videos/:id/increment-views", h.IncrementViews)
		protected.POST("/videos/:id/increment-downloads", h.IncrementDownloads)
		protected.POST("/videos/:id/increment-shares", h.IncrementShares)
		protected.PUT("/videos/:id/engagement", h.UpdateEngagement)
		protected.GET("/videos/:id/analytics", h.VideoAnalytics)
		protected.GET("/videos/:id/ai-suggestions", h.AISuggestions)
		protected.POST("/videos/:id/apply-ai-suggestion", h.ApplyAISuggestion)
		protected.GET("/videos/:id/transcript", h.VideoTranscript)
		protected.GET("/videos/:id/reviews", h.ListVideoReviews)
		protected.POST("/videos/:id/reviews", h.AddVideoReview)
		protected.GET("/videos/:id/comments", h.ListVideoComments)
		protected.POST("/videos/:id/comments", h.AddVideoComment)

		// Content requests
		protected.GET("/content-requests", h.ListContentRequests)
		protected.POST("/content-requests", h.CreateContentRequest)
		protected.GET("/content-requests/:id", h.GetContentRequest)
		protected.PUT("/content-requests/:id", h.UpdateContentRequest)
		protected.DELETE("/content-requests/:id", h.DeleteContentRequest)
		protected.POST("/content-requests/:id/pause", h.PauseContentRequest)
		protected.POST("/content-requests/:id/resume", h.ResumeContentRequest)
		protected.POST("/content-requests/:id/complete", h.CompleteContentRequest)
		protected.POST("/content-requests/:id/cancel", h.CancelContentRequest)
		protected.GET("/content-requests/:id/analytics", h.ContentRequestAnalytics)
		protected.GET("/content-requests/:id/comments", h.ListContentRequestComments)
		protected.POST("/content-requests/:id/comments", h.AddContentRequestComment)
		protected.POST("/content-requests/:id/submit-video", h.SubmitVideo)

		// Background jobs
		protected.GET("/jobs/:id", h.GetJob)

		// Webhook management
		protected.POST("/webhooks", h.CreateWebhook)
		protected.GET("/webhooks", h.ListWebhooks)
		protected.GET("/webhooks/deliveries", h.ListWebhookDeliveries) // must be before :id
		protected.PATCH("/webhooks/:id", h.UpdateWebhook)
		protected.DELETE("/webhooks/:id", h.DeleteWebhook)
	}

	return r
}
