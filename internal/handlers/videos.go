// videos.go exposes video upload, lifecycle, engagement, AI suggestions,
// reviews and comments.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/video"
)

// ListVideos returns the caller's videos, newest first.
// GET /api/videos?status=&recording_type=&search=&published=&content_request_id=&page=&per_page=
func (h *Handler) ListVideos(c *gin.Context) {
	var params models.VideoListParams
	if !h.bindQuery(c, &params) {
		return
	}
	params.Page, params.PerPage = models.NormalizePage(params.Page, params.PerPage)

	list, total, err := h.Videos.List(c.Request.Context(), middleware.GetUserID(c), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", models.Paginate(list, total, params.Page, params.PerPage))
}

// formFile opens an optional multipart file. A missing file is nil.
func formFile(c *gin.Context, name string) (*video.File, io.Closer) {
	fh, err := c.FormFile(name)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil
	}
	return &video.File{Name: fh.Filename, Size: fh.Size, Content: f}, f
}

// CreateVideo accepts a multipart upload and queues processing.
// POST /api/videos (multipart: video_file, thumbnail?, title, description?,
// content_request_id?, recording_type, duration)
//
// Form fields and files are validated together so one 422 lists every problem.
func (h *Handler) CreateVideo(c *gin.Context) {
	var form models.CreateVideoForm
	fields := make(apperr.Fields)
	if err := c.ShouldBind(&form); err != nil {
		addBindError(fields, err)
	}

	videoFile, vc := formFile(c, "video_file")
	if vc != nil {
		defer vc.Close()
	}
	thumbFile, tc := formFile(c, "thumbnail")
	if tc != nil {
		defer tc.Close()
	}
	video.ValidateFiles(fields, videoFile, thumbFile)
	if err := fields.Err(); err != nil {
		h.fail(c, err)
		return
	}

	v, err := h.Videos.Create(c.Request.Context(), middleware.GetUserID(c), video.CreateInput{
		CreateVideoForm: form,
		Video:           videoFile,
		Thumbnail:       thumbFile,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Video uploaded successfully", v)
}

// GetVideo returns a video with its uploader, request, reviews and suggestions.
// GET /api/videos/:id
func (h *Handler) GetVideo(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.Videos.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", v)
}

// UpdateVideo edits title, description or status.
// PUT /api/videos/:id
func (h *Handler) UpdateVideo(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateVideoRequest
	if !h.bindJSON(c, &req) {
		return
	}
	v, err := h.Videos.Update(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Video updated successfully", v)
}

// DeleteVideo removes a video and, best effort, its files.
// DELETE /api/videos/:id
func (h *Handler) DeleteVideo(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Videos.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Video deleted successfully", nil)
}

type videoFunc func(ctx context.Context, actorID, id int64) (*models.Video, error)

func (h *Handler) videoAction(c *gin.Context, op videoFunc, message string) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	v, err := op(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, message, v)
}

// PublishVideo marks a video ready and published.
// POST /api/videos/:id/publish
func (h *Handler) PublishVideo(c *gin.Context) {
	h.videoAction(c, h.Videos.Publish, "Video published successfully")
}

// ArchiveVideo hides a video.
// POST /api/videos/:id/archive
func (h *Handler) ArchiveVideo(c *gin.Context) {
	h.videoAction(c, h.Videos.Archive, "Video archived successfully")
}

// ReprocessVideo queues processing again for a video stuck in processing.
// POST /api/videos/:id/reprocess
func (h *Handler) ReprocessVideo(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	job, err := h.Videos.Reprocess(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusAccepted, "Processing queued", job)
}

type counterFunc func(ctx context.Context, id int64) (*models.Video, error)

// counter builds the increment endpoints. Counters are bumped for any
// authenticated caller, so a shared link can be tracked.
func (h *Handler) counter(c *gin.Context, op counterFunc) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	v, err := op(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{
		"views_count":     v.ViewsCount,
		"downloads_count": v.DownloadsCount,
		"shares_count":    v.SharesCount,
		"last_viewed_at":  v.LastViewedAt,
	})
}

// IncrementViews POST /api/videos/:id/increment-views
func (h *Handler) IncrementViews(c *gin.Context) { h.counter(c, h.Videos.IncrementViews) }

// IncrementDownloads POST /api/videos/:id/increment-downloads
func (h *Handler) IncrementDownloads(c *gin.Context) { h.counter(c, h.Videos.IncrementDownloads) }

// IncrementShares POST /api/videos/:id/increment-shares
func (h *Handler) IncrementShares(c *gin.Context) { h.counter(c, h.Videos.IncrementShares) }

// UpdateEngagement stores client-reported engagement and completion rates.
// PUT /api/videos/:id/engagement
func (h *Handler) UpdateEngagement(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.EngagementRequest
	if !h.bindJSON(c, &req) {
		return
	}
	v, err := h.Videos.UpdateEngagement(c.Request.Context(), middleware.GetUserID(c), id, *req.EngagementRate, *req.CompletionRate)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Engagement updated", v)
}

// VideoAnalytics returns the stored counters.
// GET /api/videos/:id/analytics
func (h *Handler) VideoAnalytics(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.Videos.Analytics(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", a)
}

// AISuggestions returns (generating on first call) the AI edit suggestions.
// GET /api/videos/:id/ai-suggestions
func (h *Handler) AISuggestions(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.Videos.AISuggestions(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", report)
}

// ApplyAISuggestion accepts or rejects one suggestion.
// POST /api/videos/:id/apply-ai-suggestion
func (h *Handler) ApplyAISuggestion(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.ApplySuggestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	desc, err := h.Videos.ApplySuggestion(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if req.Action == "reject" {
		respond(c, http.StatusOK, "Suggestion rejected", desc)
		return
	}
	respond(c, http.StatusAccepted, "AI edit queued", desc)
}

// ListVideoReviews GET /api/videos/:id/reviews
func (h *Handler) ListVideoReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.Videos.Reviews(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", reviews)
}

// AddVideoReview POST /api/videos/:id/reviews
func (h *Handler) AddVideoReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.CreateReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	review, err := h.Videos.AddReview(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Review added", review)
}

// ListVideoComments GET /api/videos/:id/comments
func (h *Handler) ListVideoComments(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	comments, err := h.Videos.Comments(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", comments)
}

// AddVideoComment POST /api/videos/:id/comments
func (h *Handler) AddVideoComment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.CreateCommentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	comment, err := h.Videos.AddComment(c.Request.Context(), middleware.GetUserID(c), id, req.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Comment added", comment)
}

// GetJob polls a background job.
// GET /api/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.Videos.Job(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", job)
}
