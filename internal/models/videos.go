package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// VideoStatus is the lifecycle state of a video.
type VideoStatus string

const (
	VideoStatusDraft      VideoStatus = "draft"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusArchived   VideoStatus = "archived"
	// VideoStatusSubmitted is only used for videos linked to a content request.
	VideoStatusSubmitted VideoStatus = "submitted"
)

// RecordingType is how a video was captured.
type RecordingType string

const (
	RecordingTypeVideo  RecordingType = "video"
	RecordingTypeScreen RecordingType = "screen"
	RecordingTypeAudio  RecordingType = "audio"
)

// Video is an uploaded recording and its engagement counters.
type Video struct {
	ID               int64         `json:"id" db:"id"`
	UserID           int64         `json:"user_id" db:"user_id"`
	ContentRequestID *int64        `json:"content_request_id" db:"content_request_id"`
	Title            string        `json:"title" db:"title"`
	Description      string        `json:"description" db:"description"`
	FilePath         string        `json:"file_path" db:"file_path"`
	ThumbnailPath    *string       `json:"thumbnail_path" db:"thumbnail_path"`
	RecordingType    RecordingType `json:"recording_type" db:"recording_type"`
	Duration         int           `json:"duration" db:"duration"`
	Status           VideoStatus   `json:"status" db:"status"`
	FileSize         int64         `json:"file_size" db:"file_size"`
	MimeType         string        `json:"mime_type" db:"mime_type"`
	QualityScore     *float64      `json:"quality_score" db:"quality_score"`
	ViewsCount       int64         `json:"views_count" db:"views_count"`
	DownloadsCount   int64         `json:"downloads_count" db:"downloads_count"`
	SharesCount      int64         `json:"shares_count" db:"shares_count"`
	EngagementRate   *float64      `json:"engagement_rate" db:"engagement_rate"`
	CompletionRate   *float64      `json:"completion_rate" db:"completion_rate"`
	LastViewedAt     *time.Time    `json:"last_viewed_at" db:"last_viewed_at"`
	Metadata         JSONMap       `json:"metadata" db:"metadata"`
	AIProcessed      bool          `json:"ai_processed" db:"ai_processed"`
	PublishedAt      *time.Time    `json:"published_at" db:"published_at"`
	ProcessingJobID  *string       `json:"processing_job_id" db:"processing_job_id"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`

	User           *User           `json:"user,omitempty" db:"-"`
	ContentRequest *ContentRequest `json:"content_request,omitempty" db:"-"`
	Reviews        []Review        `json:"reviews,omitempty" db:"-"`
	AISuggestions  []AISuggestion  `json:"ai_suggestions,omitempty" db:"-"`
}

// IsPublished is true only while the video is ready and has a publish time.
// Archiving keeps published_at but the video is no longer published.
func (v *Video) IsPublished() bool {
	return v.Status == VideoStatusReady && v.PublishedAt != nil
}

// MarshalJSON adds the computed display fields.
func (v Video) MarshalJSON() ([]byte, error) {
	type alias Video
	return json.Marshal(struct {
		alias
		IsPublished       bool   `json:"is_published"`
		StatusDisplay     string `json:"status_display"`
		FormattedDuration string `json:"formatted_duration"`
		FormattedFileSize string `json:"formatted_file_size"`
	}{
		alias:             alias(v),
		IsPublished:       v.IsPublished(),
		StatusDisplay:     titleize(string(v.Status)),
		FormattedDuration: FormatDuration(int64(v.Duration)),
		FormattedFileSize: FormatFileSize(v.FileSize),
	})
}

// FormatDuration renders seconds as "m:ss", or "h:mm:ss" past an hour.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatFileSize renders a byte count with a binary unit, e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// VideoCounter names an engagement counter column.
type VideoCounter string

const (
	CounterViews     VideoCounter = "views_count"
	CounterDownloads VideoCounter = "downloads_count"
	CounterShares    VideoCounter = "shares_count"
)

// VideoAnalytics reports the stored counters of a video verbatim.
type VideoAnalytics struct {
	Views          int64      `json:"views"`
	Downloads      int64      `json:"downloads"`
	Shares         int64      `json:"shares"`
	EngagementRate float64    `json:"engagement_rate"`
	CompletionRate float64    `json:"completion_rate"`
	LastViewedAt   *time.Time `json:"last_viewed_at"`
}

// VideoListParams holds query parameters for listing videos.
type VideoListParams struct {
	Page             int    `form:"page"`
	PerPage          int    `form:"per_page"`
	Status           string `form:"status" binding:"omitempty,oneof=draft processing ready archived submitted"`
	RecordingType    string `form:"recording_type" binding:"omitempty,oneof=video screen audio"`
	Search           string `form:"search"`
	Published        *bool  `form:"published"`
	ContentRequestID *int64 `form:"content_request_id"`
}

// ReviewDecision is the outcome a reviewer picks.
type ReviewDecision string

const (
	DecisionApproved         ReviewDecision = "approved"
	DecisionChangesRequested ReviewDecision = "changes_requested"
	DecisionRejected         ReviewDecision = "rejected"
)

// Review is a rating and decision left on a video.
type Review struct {
	ID         int64          `json:"id" db:"id"`
	VideoID    int64          `json:"video_id" db:"video_id"`
	ReviewerID int64          `json:"reviewer_id" db:"reviewer_id"`
	Rating     int            `json:"rating" db:"rating"`
	Decision   ReviewDecision `json:"decision" db:"decision"`
	Feedback   string         `json:"feedback" db:"feedback"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// SuggestionStatus tracks what the owner did with an AI suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApplied  SuggestionStatus = "applied"
	SuggestionRejected SuggestionStatus = "rejected"
)

// AISuggestion is one edit proposed for a time range of a video.
type AISuggestion struct {
	ID         int64            `json:"id" db:"id"`
	VideoID    int64            `json:"video_id" db:"video_id"`
	Type       string           `json:"type" db:"type"`
	StartTime  float64          `json:"start_time" db:"start_time"`
	EndTime    float64          `json:"end_time" db:"end_time"`
	Reason     string           `json:"reason" db:"reason"`
	Confidence float64          `json:"confidence" db:"confidence"`
	Text       *string          `json:"text,omitempty" db:"text"`
	Status     SuggestionStatus `json:"status" db:"status"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// AISuggestionReport is what GET /videos/:id/ai-suggestions returns.
type AISuggestionReport struct {
	VideoID         int64          `json:"video_id"`
	Suggestions     []AISuggestion `json:"suggestions"`
	OverallQuality  float64        `json:"overall_quality"`
	Recommendations []string       `json:"recommendations"`
}

// CommentableType names the entity a comment is attached to.
type CommentableType string

const (
	CommentableVideo          CommentableType = "video"
	CommentableContentRequest CommentableType = "content_request"
)

// Commentable identifies the target of a comment.
type Commentable struct {
	Type CommentableType
	ID   int64
}

// Comment is a free-text note on a video or a content request.
type Comment struct {
	ID              int64           `json:"id" db:"id"`
	CommentableType CommentableType `json:"commentable_type" db:"commentable_type"`
	CommentableID   int64           `json:"commentable_id" db:"commentable_id"`
	UserID          int64           `json:"user_id" db:"user_id"`
	Body            string          `json:"body" db:"body"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Target returns the comment's Commentable.
func (c *Comment) Target() Commentable {
	return Commentable{Type: c.CommentableType, ID: c.CommentableID}
}

// StorageCleanup records a blob that could not be deleted.
type StorageCleanup struct {
	ID        int64     `json:"id" db:"id"`
	Path      string    `json:"path" db:"path"`
	LastError string    `json:"last_error" db:"last_error"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
