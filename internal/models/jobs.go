package models

import (
	"strings"
	"time"
)

// JobType identifies what kind of work a background job does.
type JobType string

const (
	JobVideoProcessing JobType = "video_processing"
	JobAIEdit          JobType = "ai_edit"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	// JobRejected is only reported for declined AI suggestions; it is never stored.
	JobRejected JobStatus = "rejected"
)

// ProcessingJob is a persisted background job that clients can poll.
type ProcessingJob struct {
	ID                  string     `json:"id" db:"id"`
	Type                JobType    `json:"type" db:"type"`
	Status              JobStatus  `json:"status" db:"status"`
	Progress            int        `json:"progress" db:"progress"`
	UserID              int64      `json:"user_id" db:"user_id"`
	VideoID             *int64     `json:"video_id" db:"video_id"`
	Payload             JSONMap    `json:"payload" db:"payload"`
	Result              JSONMap    `json:"result" db:"result"`
	Error               string     `json:"error,omitempty" db:"error"`
	EstimatedCompletion *time.Time `json:"estimated_completion" db:"estimated_completion"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at" db:"completed_at"`
}

// Webhook event names.
const (
	EventContentRequestCreated = "content_request.created"
	EventVideoSubmitted        = "video.submitted"
	EventVideoProcessed        = "video.processed"
	EventAIEditCompleted       = "ai_edit.completed"
)

// WebhookEvents lists every event a webhook may subscribe to.
var WebhookEvents = []string{
	EventContentRequestCreated,
	EventVideoSubmitted,
	EventVideoProcessed,
	EventAIEditCompleted,
}

// Webhook is a user-registered endpoint notified of domain events.
type Webhook struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	URL       string    `json:"url" db:"url"`
	Events    []string  `json:"events" db:"-"` // scanned via pq.Array
	Secret    string    `json:"secret,omitempty" db:"secret"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Delivery statuses.
const (
	DeliveryPending = "pending"
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

// WebhookDelivery is one attempt log for an event sent to a webhook.
type WebhookDelivery struct {
	ID           int64      `json:"id" db:"id"`
	WebhookID    int64      `json:"webhook_id" db:"webhook_id"`
	Event        string     `json:"event" db:"event"`
	Payload      string     `json:"payload" db:"payload"`
	Status       string     `json:"status" db:"status"`
	Attempts     int        `json:"attempts" db:"attempts"`
	LastError    string     `json:"last_error,omitempty" db:"last_error"`
	ResponseCode int        `json:"response_code,omitempty" db:"response_code"`
	DeliveredAt  *time.Time `json:"delivered_at" db:"delivered_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// WebhookPayload is the JSON body POSTed to webhook URLs.
type WebhookPayload struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptSegment is one timed line of a transcript.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the generated transcript of a video.
type Transcript struct {
	VideoID  int64               `json:"video_id"`
	Language string              `json:"language"`
	Segments []TranscriptSegment `json:"segments"`
}

// Text joins all segment texts with spaces.
func (t *Transcript) Text() string {
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}
