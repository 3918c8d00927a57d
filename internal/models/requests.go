package models

import "time"

// --- Request DTOs ---
//
// Go Pattern: `binding` tags are read by gin's validator (go-playground/validator).
// ShouldBindJSON decodes the body and runs these rules in one call. Rules that
// span fields (e.g. duration_min ≤ duration_max) live in the services.

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after a successful register, login or refresh.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// InviteeInput describes one person to invite.
type InviteeInput struct {
	Email string  `json:"email" binding:"required,email,max=255"`
	Name  string  `json:"name" binding:"required,max=255"`
	Role  *string `json:"role" binding:"omitempty,max=100"`
}

// CreateContentRequestRequest is the body for POST /content-requests.
type CreateContentRequestRequest struct {
	Title            string         `json:"title" binding:"required,max=255"`
	Description      string         `json:"description" binding:"required,max=2000"`
	Type             RequestType    `json:"type" binding:"required,oneof=video audio screen_recording testimonial expert_quote event_video training_content"`
	Deadline         *time.Time     `json:"deadline" binding:"omitempty,future"`
	Invitees         []InviteeInput `json:"invitees" binding:"required,min=1,dive"`
	Branding         *Branding      `json:"branding"`
	Requirements     *Requirements  `json:"requirements"`
	AIEditingEnabled *bool          `json:"ai_editing_enabled"`
	AutoPublish      *bool          `json:"auto_publish"`
	TotalBudget      *float64       `json:"total_budget" binding:"omitempty,gte=0"`
}

// UpdateContentRequestRequest is the body for PUT /content-requests/:id.
// Nil fields are left unchanged.
type UpdateContentRequestRequest struct {
	Title        *string        `json:"title" binding:"omitempty,min=1,max=255"`
	Description  *string        `json:"description" binding:"omitempty,max=2000"`
	Deadline     *time.Time     `json:"deadline" binding:"omitempty,future"`
	Status       *RequestStatus `json:"status" binding:"omitempty,oneof=active paused completed cancelled"`
	Branding     *Branding      `json:"branding"`
	Requirements *Requirements  `json:"requirements"`
}

// SubmitVideoRequest is the body for POST /content-requests/:id/submit-video.
type SubmitVideoRequest struct {
	VideoID      int64  `json:"video_id" binding:"required,min=1"`
	InviteeToken string `json:"invitee_token" binding:"required"`
}

// CreateVideoForm holds the non-file fields of POST /videos (multipart).
type CreateVideoForm struct {
	Title            string `form:"title" binding:"required,max=255"`
	Description      string `form:"description" binding:"max=1000"`
	ContentRequestID *int64 `form:"content_request_id" binding:"omitempty,min=1"`
	RecordingType    string `form:"recording_type" binding:"required,oneof=video screen audio"`
	Duration         int    `form:"duration" binding:"required,min=1"`
}

// UpdateVideoRequest is the body for PUT /videos/:id.
type UpdateVideoRequest struct {
	Title       *string      `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string      `json:"description" binding:"omitempty,max=1000"`
	Status      *VideoStatus `json:"status" binding:"omitempty,oneof=draft processing ready archived"`
}

// EngagementRequest is the body for PUT /videos/:id/engagement.
type EngagementRequest struct {
	EngagementRate *float64 `json:"engagement_rate" binding:"required,gte=0,lte=100"`
	CompletionRate *float64 `json:"completion_rate" binding:"required,gte=0,lte=100"`
}

// ApplySuggestionRequest is the body for POST /videos/:id/apply-ai-suggestion.
type ApplySuggestionRequest struct {
	SuggestionID int64  `json:"suggestion_id" binding:"required,min=1"`
	Action       string `json:"action" binding:"required,oneof=apply reject"`
}

// EditJobDescriptor is returned when a suggestion is applied or rejected.
type EditJobDescriptor struct {
	JobID               string     `json:"job_id,omitempty"`
	SuggestionID        int64      `json:"suggestion_id"`
	Action              string     `json:"action"`
	Status              JobStatus  `json:"status"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// CreateReviewRequest is the body for POST /videos/:id/reviews.
type CreateReviewRequest struct {
	Rating   int            `json:"rating" binding:"required,min=1,max=5"`
	Decision ReviewDecision `json:"decision" binding:"required,oneof=approved changes_requested rejected"`
	Feedback string         `json:"feedback" binding:"max=2000"`
}

// CreateCommentRequest is the body for the comment endpoints.
type CreateCommentRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}

// CreateWebhookRequest is the body for POST /webhooks.
type CreateWebhookRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1,dive,oneof=content_request.created video.submitted video.processed ai_edit.completed"`
}

// UpdateWebhookRequest is the body for PATCH /webhooks/:id.
type UpdateWebhookRequest struct {
	URL    *string  `json:"url" binding:"omitempty,url"`
	Events []string `json:"events" binding:"omitempty,min=1,dive,oneof=content_request.created video.submitted video.processed ai_edit.completed"`
	Active *bool    `json:"active"`
}
