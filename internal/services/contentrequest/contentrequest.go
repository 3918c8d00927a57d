// Package contentrequest owns the content request lifecycle: creation with
// invitees, status transitions, analytics and the invitee submission flow.
//
// Every operation takes the acting user's id explicitly; the service never
// reads identity from ambient request state.
package contentrequest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/notify"
)

// TokenLength is the length of request and invitee tokens in hex characters.
const TokenLength = 32

// Store is the persistence the service needs.
type Store interface {
	CreateContentRequest(ctx context.Context, r *models.ContentRequest, invitees []models.Invitee) error
	GetContentRequest(ctx context.Context, id int64) (*models.ContentRequest, error)
	GetContentRequestByToken(ctx context.Context, token string) (*models.ContentRequest, error)
	ListContentRequests(ctx context.Context, creatorID int64, params models.ContentRequestListParams) ([]models.ContentRequest, int, error)
	UpdateContentRequest(ctx context.Context, r *models.ContentRequest) error
	DeleteContentRequest(ctx context.Context, id int64) error
	ListInvitees(ctx context.Context, requestID int64) ([]models.Invitee, error)
	GetInviteeByToken(ctx context.Context, requestID int64, token string) (*models.Invitee, error)
	SubmitVideo(ctx context.Context, s models.Submission) (float64, error)

	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	ListVideosByRequest(ctx context.Context, requestID int64) ([]models.Video, error)
	ListReviewsByRequest(ctx context.Context, requestID int64) ([]models.Review, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)

	CreateComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, target models.Commentable) ([]models.Comment, error)
}

// Dispatcher sends invitation and submission notices.
type Dispatcher interface {
	SendInvitations(ctx context.Context, r *models.ContentRequest, creator *models.User, invitees []models.Invitee) []notify.Receipt
	NotifySubmission(ctx context.Context, creator *models.User, r *models.ContentRequest, inv *models.Invitee, v *models.Video) (*notify.Receipt, error)
}

// EventNotifier fires webhook events.
type EventNotifier interface {
	NotifyEvent(ctx context.Context, userID int64, event string, data any)
}

// Service implements the content request operations.
type Service struct {
	store      Store
	dispatcher Dispatcher
	events     EventNotifier
	log        *logrus.Entry

	// Now is the clock used for deadline and overdue checks.
	Now func() time.Time
}

// New creates a Service. events may be nil.
func New(store Store, dispatcher Dispatcher, events EventNotifier) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		events:     events,
		log:        logger.WithComponent("content_requests"),
		Now:        time.Now,
	}
}

// GenerateToken returns 32 lowercase hex characters from crypto/rand.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create persists a request with one invitee per input entry, then sends
// invitations and fires content_request.created.
func (s *Service) Create(ctx context.Context, creatorID int64, in models.CreateContentRequestRequest) (*models.ContentRequest, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	tokens, err := uniqueTokens(len(in.Invitees) + 1)
	if err != nil {
		return nil, err
	}

	r := &models.ContentRequest{
		CreatorID:        creatorID,
		Title:            in.Title,
		Description:      in.Description,
		Type:             in.Type,
		Deadline:         in.Deadline,
		Status:           models.RequestStatusActive,
		AIEditingEnabled: true,
		InviteToken:      tokens[0],
		TotalBudget:      in.TotalBudget,
	}
	if in.Branding != nil {
		r.Branding = *in.Branding
	}
	if in.Requirements != nil {
		r.Requirements = *in.Requirements
	}
	if in.AIEditingEnabled != nil {
		r.AIEditingEnabled = *in.AIEditingEnabled
	}
	if in.AutoPublish != nil {
		r.AutoPublish = *in.AutoPublish
	}

	invitees := make([]models.Invitee, len(in.Invitees))
	for i, inv := range in.Invitees {
		invitees[i] = models.Invitee{
			Email:       strings.TrimSpace(inv.Email),
			Name:        inv.Name,
			Role:        inv.Role,
			Status:      models.InviteeStatusPending,
			InviteToken: tokens[i+1],
		}
	}

	if err := s.store.CreateContentRequest(ctx, r, invitees); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"request_id": r.ID, "token": logger.MaskToken(r.InviteToken)})
	log.Infof("📝 Content request created with %d invitees", len(r.Invitees))

	creator, err := s.store.GetUserByID(ctx, creatorID)
	if err != nil {
		log.WithError(err).Warn("⚠️  Could not load creator for invitations")
	}
	r.Creator = creator

	if s.dispatcher != nil {
		s.dispatcher.SendInvitations(ctx, r, creator, r.Invitees)
	}
	if s.events != nil {
		s.events.NotifyEvent(ctx, creatorID, models.EventContentRequestCreated, map[string]any{
			"content_request_id": r.ID,
			"title":              r.Title,
			"type":               r.Type,
			"invitees":           len(r.Invitees),
		})
	}
	return r, nil
}

func (s *Service) validateCreate(in models.CreateContentRequestRequest) error {
	fields := make(apperr.Fields)
	s.checkDeadline(fields, in.Deadline)
	checkRequirements(fields, in.Requirements)
	if in.TotalBudget != nil && *in.TotalBudget < 0 {
		fields.Add("total_budget", "The total budget must be at least 0.")
	}

	seen := make(map[string]int, len(in.Invitees))
	for i, inv := range in.Invitees {
		key := strings.ToLower(strings.TrimSpace(inv.Email))
		if _, dup := seen[key]; dup {
			fields.Add(fmt.Sprintf("invitees.%d.email", i), "The invitees email field has a duplicate value.")
			continue
		}
		seen[key] = i
	}
	return fields.Err()
}

func (s *Service) checkDeadline(fields apperr.Fields, deadline *time.Time) {
	if deadline != nil && !deadline.After(s.Now()) {
		fields.Add("deadline", "The deadline must be a date after now.")
	}
}

func checkRequirements(fields apperr.Fields, req *models.Requirements) {
	if req == nil || req.DurationMin == nil || req.DurationMax == nil {
		return
	}
	if *req.DurationMin > *req.DurationMax {
		fields.Add("requirements.duration_max", "The duration max must be greater than or equal to duration min.")
	}
}

// uniqueTokens generates n pairwise distinct tokens.
func uniqueTokens(n int) ([]string, error) {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		t, err := GenerateToken()
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// List returns a page of the creator's requests.
func (s *Service) List(ctx context.Context, creatorID int64, params models.ContentRequestListParams) ([]models.ContentRequest, int, error) {
	return s.store.ListContentRequests(ctx, creatorID, params)
}

// authorize loads a request and checks the actor created it.
func (s *Service) authorize(ctx context.Context, actorID, id int64) (*models.ContentRequest, error) {
	r, err := s.store.GetContentRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.CreatorID != actorID {
		return nil, apperr.Forbidden("You do not have access to this content request")
	}
	return r, nil
}

// Get returns a request with creator, invitees, videos (with uploaders) and
// reviews loaded. Only the creator may read it.
func (s *Service) Get(ctx context.Context, actorID, id int64) (*models.ContentRequest, error) {
	r, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadGraph(ctx, r); err != nil {
		return nil, err
	}
	reviews, err := s.store.ListReviewsByRequest(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Reviews = nonNil(reviews)
	return r, nil
}

// GetByInviteToken is the public lookup behind an invitation link. Invitee
// tokens are withheld so one invitee cannot submit on behalf of another.
func (s *Service) GetByInviteToken(ctx context.Context, token string) (*models.ContentRequest, error) {
	r, err := s.store.GetContentRequestByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.loadGraph(ctx, r); err != nil {
		return nil, err
	}
	for i := range r.Invitees {
		r.Invitees[i].InviteToken = ""
	}
	return r, nil
}

func (s *Service) loadGraph(ctx context.Context, r *models.ContentRequest) error {
	invitees, err := s.store.ListInvitees(ctx, r.ID)
	if err != nil {
		return err
	}
	videos, err := s.store.ListVideosByRequest(ctx, r.ID)
	if err != nil {
		return err
	}

	ids := []int64{r.CreatorID}
	for _, v := range videos {
		ids = append(ids, v.UserID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}

	r.Creator = users[r.CreatorID]
	for i := range videos {
		videos[i].User = users[videos[i].UserID]
	}
	r.Invitees = nonNil(invitees)
	r.Videos = nonNil(videos)
	return nil
}

// Update applies the non-nil fields of in. A status change must follow the
// transition table.
func (s *Service) Update(ctx context.Context, actorID, id int64, in models.UpdateContentRequestRequest) (*models.ContentRequest, error) {
	r, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	fields := make(apperr.Fields)
	s.checkDeadline(fields, in.Deadline)
	checkRequirements(fields, in.Requirements)
	if in.Status != nil && !r.Status.CanTransitionTo(*in.Status) {
		fields.Add("status", fmt.Sprintf("Cannot change status from %s to %s.", r.Status, *in.Status))
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.Deadline != nil {
		r.Deadline = in.Deadline
	}
	if in.Branding != nil {
		r.Branding = *in.Branding
	}
	if in.Requirements != nil {
		r.Requirements = *in.Requirements
	}
	if in.Status != nil {
		setStatus(r, *in.Status)
	}

	if err := s.store.UpdateContentRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func setStatus(r *models.ContentRequest, status models.RequestStatus) {
	r.Status = status
	if status == models.RequestStatusCompleted {
		r.CompletionPercentage = 100
	}
}

// Pause moves an active request to paused.
func (s *Service) Pause(ctx context.Context, actorID, id int64) (*models.ContentRequest, error) {
	return s.transition(ctx, actorID, id, models.RequestStatusPaused)
}

// Resume moves a paused request back to active.
func (s *Service) Resume(ctx context.Context, actorID, id int64) (*models.ContentRequest, error) {
	return s.transition(ctx, actorID, id, models.RequestStatusActive)
}

// Complete closes a request and forces completion to 100%.
func (s *Service) Complete(ctx context.Context, actorID, id int64) (*models.ContentRequest, error) {
	return s.transition(ctx, actorID, id, models.RequestStatusCompleted)
}

// Cancel closes a request without completing it.
func (s *Service) Cancel(ctx context.Context, actorID, id int64) (*models.ContentRequest, error) {
	return s.transition(ctx, actorID, id, models.RequestStatusCancelled)
}

func (s *Service) transition(ctx context.Context, actorID, id int64, to models.RequestStatus) (*models.ContentRequest, error) {
	r, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(to) {
		return nil, apperr.Field("status", fmt.Sprintf("Cannot change status from %s to %s.", r.Status, to))
	}
	from := r.Status
	setStatus(r, to)
	if err := s.store.UpdateContentRequest(ctx, r); err != nil {
		return nil, err
	}
	s.log.WithField("request_id", r.ID).Infof("🔁 Content request %s → %s", from, to)
	return r, nil
}

// Delete removes a request. Invitees go with it; linked videos are unlinked.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.authorize(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.store.DeleteContentRequest(ctx, id); err != nil {
		return err
	}
	s.log.WithField("request_id", id).Info("🗑️  Content request deleted")
	return nil
}

// Analytics derives progress and aggregate video metrics for a request.
func (s *Service) Analytics(ctx context.Context, actorID, id int64) (*models.ContentRequestAnalytics, error) {
	r, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	invitees, err := s.store.ListInvitees(ctx, id)
	if err != nil {
		return nil, err
	}
	videos, err := s.store.ListVideosByRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	a := &models.ContentRequestAnalytics{
		TotalInvitees:   len(invitees),
		SubmittedVideos: len(videos),
		CreatedAt:       r.CreatedAt,
		Deadline:        r.Deadline,
		Status:          r.Status,
		IsOverdue:       r.IsOverdue(s.Now()),
	}
	for _, inv := range invitees {
		if inv.Status == models.InviteeStatusSubmitted {
			a.SubmittedInvitees++
		} else {
			a.PendingInvitees++
		}
	}
	a.CompletionRate = models.CompletionPercentage(a.SubmittedInvitees, a.TotalInvitees)

	var qualitySum float64
	var rated int
	for _, v := range videos {
		a.TotalViews += v.ViewsCount
		a.TotalDuration += int64(v.Duration)
		if v.QualityScore != nil {
			qualitySum += *v.QualityScore
			rated++
		}
	}
	if rated > 0 {
		avg := math.Round(qualitySum/float64(rated)*100) / 100
		a.AverageQualityScore = &avg
	}
	a.FormattedTotalDuration = models.FormatDuration(a.TotalDuration)
	return a, nil
}

// SubmitVideo links the actor's video to a request on behalf of the invitee
// holding in.InviteeToken. All checks run before anything is written.
func (s *Service) SubmitVideo(ctx context.Context, actorID, requestID int64, in models.SubmitVideoRequest) (*models.Video, error) {
	r, err := s.store.GetContentRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	v, err := s.store.GetVideo(ctx, in.VideoID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Field("video_id", "The selected video id is invalid.")
	}
	if err != nil {
		return nil, err
	}

	inv, err := s.store.GetInviteeByToken(ctx, requestID, in.InviteeToken)
	if errors.Is(err, apperr.ErrNotFound) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"token":      logger.MaskToken(in.InviteeToken),
		}).Warn("🚫 Submission with a token that is not an invitee of this request")
		return nil, apperr.Forbidden("Invalid invitee token for this content request")
	}
	if err != nil {
		return nil, err
	}

	if v.UserID != actorID {
		return nil, apperr.Forbidden("You can only submit your own videos")
	}
	if err := submittable(v, requestID); err != nil {
		return nil, err
	}
	if r.Status != models.RequestStatusActive {
		return nil, apperr.Field("content_request", "The content request is not accepting submissions.")
	}
	if inv.Status == models.InviteeStatusSubmitted {
		return nil, apperr.Conflict("This invitation has already been used to submit a video")
	}

	pct, err := s.store.SubmitVideo(ctx, models.Submission{RequestID: r.ID, InviteeID: inv.ID, VideoID: v.ID})
	if err != nil {
		return nil, err
	}
	r.CompletionPercentage = pct

	v, err = s.store.GetVideo(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	v.ContentRequest = r

	log := s.log.WithFields(logrus.Fields{"request_id": r.ID, "video_id": v.ID, "invitee_id": inv.ID})
	log.Infof("🎬 Video submitted (completion %.2f%%)", pct)

	if creator, err := s.store.GetUserByID(ctx, r.CreatorID); err != nil {
		log.WithError(err).Warn("⚠️  Could not load creator for submission notice")
	} else if s.dispatcher != nil {
		if _, err := s.dispatcher.NotifySubmission(ctx, creator, r, inv, v); err != nil {
			log.WithError(err).Warn("⚠️  Failed to notify creator of submission")
		}
	}
	if s.events != nil {
		s.events.NotifyEvent(ctx, r.CreatorID, models.EventVideoSubmitted, map[string]any{
			"content_request_id":    r.ID,
			"video_id":              v.ID,
			"invitee_id":            inv.ID,
			"completion_percentage": pct,
		})
	}
	return v, nil
}

// submittable reports why v cannot be handed in to requestID, if it cannot.
// A video belongs to at most one request and must be done processing.
func submittable(v *models.Video, requestID int64) error {
	switch {
	case v.ContentRequestID != nil && *v.ContentRequestID != requestID:
		return apperr.Field("video_id", "The video is already linked to another content request.")
	case v.Status == models.VideoStatusSubmitted:
		return apperr.Field("video_id", "The video has already been submitted.")
	case v.Status != models.VideoStatusReady && v.Status != models.VideoStatusDraft:
		return apperr.Field("video_id", "The video must be ready before it can be submitted.")
	}
	return nil
}

// Comments lists the comments on a request. Only the creator may read them.
func (s *Service) Comments(ctx context.Context, actorID, id int64) ([]models.Comment, error) {
	if _, err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, models.Commentable{Type: models.CommentableContentRequest, ID: id})
	return nonNil(comments), err
}

// AddComment attaches a comment to a request.
func (s *Service) AddComment(ctx context.Context, actorID, id int64, body string) (*models.Comment, error) {
	if _, err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	c := &models.Comment{
		CommentableType: models.CommentableContentRequest,
		CommentableID:   id,
		UserID:          actorID,
		Body:            body,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
