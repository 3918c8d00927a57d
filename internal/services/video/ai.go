package video

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/worker"
)

// recommendationsKey is where the last AI recommendations live in metadata.
const recommendationsKey = "ai_recommendations"

// AISuggestions returns the stored suggestions for a video, analysing it
// first when none exist yet.
func (s *Service) AISuggestions(ctx context.Context, actorID, id int64) (*models.AISuggestionReport, error) {
	v, err := s.viewable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListSuggestions(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		report := &models.AISuggestionReport{
			VideoID:         v.ID,
			Suggestions:     existing,
			Recommendations: recommendations(v.Metadata),
		}
		if v.QualityScore != nil {
			report.OverallQuality = *v.QualityScore
		}
		return report, nil
	}

	analysis, err := s.suggester.Suggest(ctx, v)
	if err != nil {
		return nil, err
	}

	quality := analysis.OverallQuality
	v.QualityScore = &quality
	v.AIProcessed = true
	v.Metadata = v.Metadata.Clone()
	v.Metadata[recommendationsKey] = analysis.Recommendations

	suggestions := append([]models.AISuggestion(nil), analysis.Suggestions...)
	if err := s.store.SaveAIReport(ctx, v, suggestions); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"video_id": v.ID, "suggestions": len(suggestions)}).Info("🤖 AI suggestions generated")

	return &models.AISuggestionReport{
		VideoID:         v.ID,
		Suggestions:     suggestions,
		OverallQuality:  quality,
		Recommendations: nonNil(analysis.Recommendations),
	}, nil
}

// recommendations reads the stored list back. After a database round trip
// the value is []any rather than []string.
func recommendations(meta models.JSONMap) []string {
	out := []string{}
	switch list := meta[recommendationsKey].(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
	}
	return out
}

// ApplySuggestion accepts or declines a suggestion. Accepting queues an
// ai_edit job; declining only records the decision.
func (s *Service) ApplySuggestion(ctx context.Context, actorID, id int64, in models.ApplySuggestionRequest) (*models.EditJobDescriptor, error) {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.store.GetSuggestion(ctx, in.SuggestionID)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && suggestion.VideoID != v.ID) {
		return nil, apperr.Field("suggestion_id", "The selected suggestion id is invalid.")
	}
	if err != nil {
		return nil, err
	}

	desc := &models.EditJobDescriptor{SuggestionID: suggestion.ID, Action: in.Action}

	if in.Action == "reject" {
		if err := s.store.UpdateSuggestionStatus(ctx, suggestion.ID, models.SuggestionRejected); err != nil {
			return nil, err
		}
		desc.Status = models.JobRejected
		return desc, nil
	}

	plan, err := s.suggester.Apply(ctx, v, suggestion, in.Action)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSuggestionStatus(ctx, suggestion.ID, models.SuggestionApplied); err != nil {
		return nil, err
	}

	payload := worker.AIEditPayload{VideoID: v.ID, SuggestionID: suggestion.ID, Edits: plan.Edits}
	eta := plan.EstimatedCompletion
	rec, err := s.newJob(ctx, v, models.JobAIEdit, payload, &eta)
	if err != nil {
		return nil, err
	}
	s.submit(ctx, rec, payload)

	desc.JobID = rec.ID
	desc.Status = rec.Status
	desc.EstimatedCompletion = &eta
	return desc, nil
}

// Transcript generates the transcript of a video.
func (s *Service) Transcript(ctx context.Context, actorID, id int64) (*models.Transcript, error) {
	v, err := s.viewable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return s.suggester.Transcribe(ctx, v)
}

// Reviews lists the reviews left on a video.
func (s *Service) Reviews(ctx context.Context, actorID, id int64) ([]models.Review, error) {
	if _, err := s.viewable(ctx, actorID, id); err != nil {
		return nil, err
	}
	reviews, err := s.store.ListReviewsByVideo(ctx, id)
	return nonNil(reviews), err
}

// AddReview records a rating and decision. Only the creator of the request a
// video was submitted to may review it; owners may review their own uploads.
func (s *Service) AddReview(ctx context.Context, actorID, id int64, in models.CreateReviewRequest) (*models.Review, error) {
	if _, err := s.viewable(ctx, actorID, id); err != nil {
		return nil, err
	}
	r := &models.Review{
		VideoID:    id,
		ReviewerID: actorID,
		Rating:     in.Rating,
		Decision:   in.Decision,
		Feedback:   in.Feedback,
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Comments lists the comments on a video.
func (s *Service) Comments(ctx context.Context, actorID, id int64) ([]models.Comment, error) {
	if _, err := s.viewable(ctx, actorID, id); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, models.Commentable{Type: models.CommentableVideo, ID: id})
	return nonNil(comments), err
}

// AddComment attaches a comment to a video.
func (s *Service) AddComment(ctx context.Context, actorID, id int64, body string) (*models.Comment, error) {
	if _, err := s.viewable(ctx, actorID, id); err != nil {
		return nil, err
	}
	c := &models.Comment{
		CommentableType: models.CommentableVideo,
		CommentableID:   id,
		UserID:          actorID,
		Body:            body,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
