package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// RequestType is the kind of content a request asks invitees for.
type RequestType string

const (
	RequestTypeVideo           RequestType = "video"
	RequestTypeAudio           RequestType = "audio"
	RequestTypeScreenRecording RequestType = "screen_recording"
	RequestTypeTestimonial     RequestType = "testimonial"
	RequestTypeExpertQuote     RequestType = "expert_quote"
	RequestTypeEventVideo      RequestType = "event_video"
	RequestTypeTrainingContent RequestType = "training_content"
)

// Display returns a human label, e.g. "Screen Recording".
func (t RequestType) Display() string {
	return titleize(string(t))
}

// RequestStatus is the lifecycle state of a content request.
type RequestStatus string

const (
	RequestStatusActive    RequestStatus = "active"
	RequestStatusPaused    RequestStatus = "paused"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// requestTransitions lists the legal targets for each status.
// completed and cancelled are terminal.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusActive: {RequestStatusPaused, RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusPaused: {RequestStatusActive, RequestStatusCompleted, RequestStatusCancelled},
}

// CanTransitionTo reports whether a request in status s may move to next.
// Staying in the same status is always allowed.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Display returns a human label for the status.
func (s RequestStatus) Display() string {
	return titleize(string(s))
}

// Branding carries the visual identity shown to invitees.
type Branding struct {
	LogoURL        string `json:"logo_url,omitempty" binding:"omitempty,url"`
	PrimaryColor   string `json:"primary_color,omitempty" binding:"omitempty,hexcolor,max=7"`
	SecondaryColor string `json:"secondary_color,omitempty" binding:"omitempty,hexcolor,max=7"`
}

func (b Branding) Value() (driver.Value, error) { return valueJSON(b) }
func (b *Branding) Scan(src any) error          { return scanJSON(src, b) }

// Requirements constrain what invitees should record.
type Requirements struct {
	DurationMin *int   `json:"duration_min,omitempty" binding:"omitempty,min=1"`
	DurationMax *int   `json:"duration_max,omitempty" binding:"omitempty,min=1"`
	Quality     string `json:"quality,omitempty" binding:"omitempty,oneof=720p 1080p 4k"`
	AspectRatio string `json:"aspect_ratio,omitempty" binding:"omitempty,oneof=16:9 9:16 1:1 4:3"`
}

func (r Requirements) Value() (driver.Value, error) { return valueJSON(r) }
func (r *Requirements) Scan(src any) error          { return scanJSON(src, r) }

// ContentRequest is a creator's ask for user-generated content.
type ContentRequest struct {
	ID                   int64         `json:"id" db:"id"`
	CreatorID            int64         `json:"creator_id" db:"creator_id"`
	Title                string        `json:"title" db:"title"`
	Description          string        `json:"description" db:"description"`
	Type                 RequestType   `json:"type" db:"type"`
	Deadline             *time.Time    `json:"deadline" db:"deadline"`
	Status               RequestStatus `json:"status" db:"status"`
	Branding             Branding      `json:"branding" db:"branding"`
	Requirements         Requirements  `json:"requirements" db:"requirements"`
	AIEditingEnabled     bool          `json:"ai_editing_enabled" db:"ai_editing_enabled"`
	AutoPublish          bool          `json:"auto_publish" db:"auto_publish"`
	InviteToken          string        `json:"invite_token" db:"invite_token"`
	CompletionPercentage float64       `json:"completion_percentage" db:"completion_percentage"`
	TotalBudget          *float64      `json:"total_budget" db:"total_budget"`
	UsedBudget           float64       `json:"used_budget" db:"used_budget"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`

	// Relations, loaded on demand by the store.
	Creator  *User     `json:"creator,omitempty" db:"-"`
	Invitees []Invitee `json:"invitees,omitempty" db:"-"`
	Videos   []Video   `json:"videos,omitempty" db:"-"`
	Reviews  []Review  `json:"reviews,omitempty" db:"-"`
}

// IsOverdue reports whether an active request has passed its deadline.
func (r *ContentRequest) IsOverdue(now time.Time) bool {
	return r.Deadline != nil && r.Status == RequestStatusActive && r.Deadline.Before(now)
}

// MarshalJSON adds the computed display fields.
func (r ContentRequest) MarshalJSON() ([]byte, error) {
	type alias ContentRequest
	return json.Marshal(struct {
		alias
		TypeDisplay   string `json:"type_display"`
		StatusDisplay string `json:"status_display"`
		IsOverdue     bool   `json:"is_overdue"`
	}{
		alias:         alias(r),
		TypeDisplay:   r.Type.Display(),
		StatusDisplay: r.Status.Display(),
		IsOverdue:     r.IsOverdue(time.Now()),
	})
}

// CompletionPercentage returns 100 × submitted / total rounded to two
// decimals, or 0 when there are no invitees.
func CompletionPercentage(submitted, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(submitted) / float64(total) * 100
	return float64(int64(pct*100+0.5)) / 100
}

// InviteeStatus tracks whether an invitee has submitted.
type InviteeStatus string

const (
	InviteeStatusPending   InviteeStatus = "pending"
	InviteeStatusSubmitted InviteeStatus = "submitted"
)

// Invitee is a person invited to respond to a content request.
type Invitee struct {
	ID               int64         `json:"id" db:"id"`
	ContentRequestID int64         `json:"content_request_id" db:"content_request_id"`
	Email            string        `json:"email" db:"email"`
	Name             string        `json:"name" db:"name"`
	Role             *string       `json:"role" db:"role"`
	Status           InviteeStatus `json:"status" db:"status"`
	InviteToken      string        `json:"invite_token,omitempty" db:"invite_token"`
	SubmittedVideoID *int64        `json:"submitted_video_id" db:"submitted_video_id"`
	SubmittedAt      *time.Time    `json:"submitted_at" db:"submitted_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// ContentRequestAnalytics summarizes progress on one request.
type ContentRequestAnalytics struct {
	TotalInvitees          int           `json:"total_invitees"`
	PendingInvitees        int           `json:"pending_invitees"`
	SubmittedInvitees      int           `json:"submitted_invitees"`
	SubmittedVideos        int           `json:"submitted_videos"`
	CompletionRate         float64       `json:"completion_rate"`
	TotalViews             int64         `json:"total_views"`
	TotalDuration          int64         `json:"total_duration"`
	FormattedTotalDuration string        `json:"formatted_total_duration"`
	AverageQualityScore    *float64      `json:"average_quality_score"`
	CreatedAt              time.Time     `json:"created_at"`
	Deadline               *time.Time    `json:"deadline"`
	Status                 RequestStatus `json:"status"`
	IsOverdue              bool          `json:"is_overdue"`
}

// ContentRequestListParams holds query parameters for listing requests.
// Go Pattern: `form` tags tell gin's ShouldBindQuery which query param maps
// to which field.
type ContentRequestListParams struct {
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Status  string `form:"status" binding:"omitempty,oneof=active paused completed cancelled"`
	Type    string `form:"type"`
	Search  string `form:"search"`
	Overdue bool   `form:"overdue"`
}

// titleize turns "screen_recording" into "Screen Recording".
func titleize(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Submission links an invitee's video to a content request.
type Submission struct {
	RequestID int64
	InviteeID int64
	VideoID   int64
}
