// Package aiedit produces AI editing suggestions, edit jobs and transcripts
// for videos. The bundled implementations are deterministic mocks plus an
// OpenRouter-backed suggester; callers only see the interfaces.
package aiedit

import (
	"context"
	"math"
	"time"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// Suggestion types.
const (
	TypeTrim         = "trim"
	TypeEnhanceAudio = "enhance_audio"
	TypeAddSubtitle  = "add_subtitle"
)

// Report is the outcome of analysing one video.
type Report struct {
	Suggestions     []models.AISuggestion
	OverallQuality  float64 // 0.00 to 10.00
	Recommendations []string
}

// Plan describes an accepted edit before it is queued.
type Plan struct {
	Action              string
	Edits               models.JSONMap
	EstimatedCompletion time.Time
}

// Suggester analyses videos.
type Suggester interface {
	Suggest(ctx context.Context, v *models.Video) (*Report, error)
	// Apply turns a suggestion the owner accepted into an edit plan.
	Apply(ctx context.Context, v *models.Video, s *models.AISuggestion, action string) (*Plan, error)
	Transcribe(ctx context.Context, v *models.Video) (*models.Transcript, error)
}

// EditResult is what an Editor produced for a job.
type EditResult struct {
	ResultPath    string `json:"result_path"`
	ThumbnailPath string `json:"thumbnail_path"`
}

// Editor renders an applied suggestion. It runs inside the worker.
type Editor interface {
	Edit(ctx context.Context, jobID string, v *models.Video, edits models.JSONMap) (*EditResult, error)
}

// Mock is a deterministic Suggester and Editor. Time ranges scale with the
// video's duration so they always fall inside the clip.
type Mock struct {
	// Now is used for estimated completion times; defaults to time.Now.
	Now func() time.Time
}

// NewMock creates a Mock.
func NewMock() *Mock {
	return &Mock{Now: time.Now}
}

func (m *Mock) Suggest(ctx context.Context, v *models.Video) (*Report, error) {
	d := float64(v.Duration)
	if d < 1 {
		d = 1
	}
	subtitle := "Key point about our product"

	return &Report{
		Suggestions: []models.AISuggestion{
			{
				Type:       TypeTrim,
				StartTime:  round2(d * 0.17),
				EndTime:    round2(d * 0.29),
				Reason:     "Remove awkward pause",
				Confidence: 0.85,
			},
			{
				Type:       TypeEnhanceAudio,
				StartTime:  0,
				EndTime:    d,
				Reason:     "Audio quality could be improved",
				Confidence: 0.92,
			},
			{
				Type:       TypeAddSubtitle,
				StartTime:  round2(d * 0.42),
				EndTime:    round2(d * 0.61),
				Reason:     "Highlight the key message",
				Text:       &subtitle,
				Confidence: 0.78,
			},
		},
		OverallQuality: 7.5,
		Recommendations: []string{
			"Consider adding background music",
			"Increase lighting for better visibility",
			"Add call-to-action at the end",
		},
	}, nil
}

func (m *Mock) Apply(ctx context.Context, v *models.Video, s *models.AISuggestion, action string) (*Plan, error) {
	return &Plan{
		Action: action,
		Edits: models.JSONMap{
			"type":       s.Type,
			"start_time": s.StartTime,
			"end_time":   s.EndTime,
		},
		EstimatedCompletion: m.now().Add(5 * time.Minute),
	}, nil
}

func (m *Mock) Transcribe(ctx context.Context, v *models.Video) (*models.Transcript, error) {
	d := float64(v.Duration)
	if d < 1 {
		d = 1
	}
	lines := []string{
		"Welcome to our product demonstration",
		"Today we will show you the key features",
		"This is how you can get started",
		"Thank you for watching",
	}
	step := d / float64(len(lines))

	segments := make([]models.TranscriptSegment, len(lines))
	for i, text := range lines {
		segments[i] = models.TranscriptSegment{
			Start: round2(step * float64(i)),
			End:   round2(step * float64(i+1)),
			Text:  text,
		}
	}
	return &models.Transcript{VideoID: v.ID, Language: "en-US", Segments: segments}, nil
}

// Edit pretends to render and reports where the output would live.
func (m *Mock) Edit(ctx context.Context, jobID string, v *models.Video, edits models.JSONMap) (*EditResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &EditResult{
		ResultPath:    "processed/" + jobID + ".mp4",
		ThumbnailPath: "processed/" + jobID + "_thumb.jpg",
	}, nil
}

func (m *Mock) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
