// content_requests.go exposes the content request lifecycle, the public invite
// lookup and the submission flow.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// ListContentRequests returns the caller's requests, newest first.
// GET /api/content-requests?status=&type=&search=&overdue=&page=&per_page=
func (h *Handler) ListContentRequests(c *gin.Context) {
	var params models.ContentRequestListParams
	if !h.bindQuery(c, &params) {
		return
	}
	params.Page, params.PerPage = models.NormalizePage(params.Page, params.PerPage)

	list, total, err := h.Requests.List(c.Request.Context(), middleware.GetUserID(c), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", models.Paginate(list, total, params.Page, params.PerPage))
}

// CreateContentRequest creates a request and invites everyone listed.
// POST /api/content-requests
func (h *Handler) CreateContentRequest(c *gin.Context) {
	var req models.CreateContentRequestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	r, err := h.Requests.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Content request created successfully", r)
}

// GetContentRequest returns one request with invitees, videos and reviews.
// GET /api/content-requests/:id
func (h *Handler) GetContentRequest(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.Requests.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", r)
}

// GetContentRequestByInvite is the public landing page lookup for invitees.
// GET /api/content-requests/invite/:token
func (h *Handler) GetContentRequestByInvite(c *gin.Context) {
	r, err := h.Requests.GetByInviteToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", r)
}

// UpdateContentRequest changes editable fields and, optionally, the status.
// PUT /api/content-requests/:id
func (h *Handler) UpdateContentRequest(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateContentRequestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	r, err := h.Requests.Update(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Content request updated successfully", r)
}

// DeleteContentRequest removes a request and its invitees.
// DELETE /api/content-requests/:id
func (h *Handler) DeleteContentRequest(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Requests.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Content request deleted successfully", nil)
}

type transitionFunc func(ctx context.Context, actorID, id int64) (*models.ContentRequest, error)

// transition builds the pause/resume/complete/cancel endpoints.
// POST /api/content-requests/:id/{pause,resume,complete,cancel}
func (h *Handler) transition(op transitionFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c, "id")
		if !ok {
			return
		}
		r, err := op(c.Request.Context(), middleware.GetUserID(c), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusOK, message, r)
	}
}

// PauseContentRequest stops accepting submissions for now.
func (h *Handler) PauseContentRequest(c *gin.Context) {
	h.transition(h.Requests.Pause, "Content request paused")(c)
}

// ResumeContentRequest reopens a paused request.
func (h *Handler) ResumeContentRequest(c *gin.Context) {
	h.transition(h.Requests.Resume, "Content request resumed")(c)
}

// CompleteContentRequest closes a request for good.
func (h *Handler) CompleteContentRequest(c *gin.Context) {
	h.transition(h.Requests.Complete, "Content request completed")(c)
}

// CancelContentRequest abandons a request.
func (h *Handler) CancelContentRequest(c *gin.Context) {
	h.transition(h.Requests.Cancel, "Content request cancelled")(c)
}

// ContentRequestAnalytics returns submission and engagement totals.
// GET /api/content-requests/:id/analytics
func (h *Handler) ContentRequestAnalytics(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.Requests.Analytics(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", a)
}

// SubmitVideo links one of the caller's videos to the request on behalf of
// the invitee identified by invitee_token.
// POST /api/content-requests/:id/submit-video
func (h *Handler) SubmitVideo(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.SubmitVideoRequest
	if !h.bindJSON(c, &req) {
		return
	}

	v, err := h.Requests.SubmitVideo(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Video submitted successfully", v)
}

// ListContentRequestComments returns the comments on a request.
// GET /api/content-requests/:id/comments
func (h *Handler) ListContentRequestComments(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	comments, err := h.Requests.Comments(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", comments)
}

// AddContentRequestComment attaches a comment to a request.
// POST /api/content-requests/:id/comments
func (h *Handler) AddContentRequestComment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.CreateCommentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	comment, err := h.Requests.AddComment(c.Request.Context(), middleware.GetUserID(c), id, req.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Comment added", comment)
}
