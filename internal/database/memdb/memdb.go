// Package memdb is an in-memory store with the same behaviour as the
// Postgres-backed database.DB. Handler and service tests run against it so
// they need no live database.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// DB holds every table in maps keyed by primary key.
type DB struct {
	mu sync.Mutex

	seq map[string]int64

	users       map[int64]models.User
	requests    map[int64]models.ContentRequest
	invitees    map[int64]models.Invitee
	videos      map[int64]models.Video
	reviews     map[int64]models.Review
	suggestions map[int64]models.AISuggestion
	comments    map[int64]models.Comment
	jobs        map[string]models.ProcessingJob
	cleanups    map[int64]models.StorageCleanup
	webhooks    map[int64]models.Webhook
	deliveries  map[int64]models.WebhookDelivery

	// HealthErr is returned by HealthCheck when set.
	HealthErr error
}

// New creates an empty store.
func New() *DB {
	return &DB{
		seq:         map[string]int64{},
		users:       map[int64]models.User{},
		requests:    map[int64]models.ContentRequest{},
		invitees:    map[int64]models.Invitee{},
		videos:      map[int64]models.Video{},
		reviews:     map[int64]models.Review{},
		suggestions: map[int64]models.AISuggestion{},
		comments:    map[int64]models.Comment{},
		jobs:        map[string]models.ProcessingJob{},
		cleanups:    map[int64]models.StorageCleanup{},
		webhooks:    map[int64]models.Webhook{},
		deliveries:  map[int64]models.WebhookDelivery{},
	}
}

func (db *DB) next(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}

// HealthCheck reports HealthErr.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.HealthErr
}

// --- Users ---

func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("An account with this email already exists")
		}
	}
	u.ID = db.next("users")
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	db.users[u.ID] = *u
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (db *DB) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := db.users[id]; ok {
			out[id] = &u
		}
	}
	return out, nil
}

// --- Content requests ---

func stripRequest(r models.ContentRequest) models.ContentRequest {
	r.Creator, r.Invitees, r.Videos, r.Reviews = nil, nil, nil, nil
	return r
}

func (db *DB) CreateContentRequest(ctx context.Context, r *models.ContentRequest, invitees []models.Invitee) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tokens := map[string]bool{}
	for _, existing := range db.requests {
		tokens[existing.InviteToken] = true
	}
	for _, existing := range db.invitees {
		tokens[existing.InviteToken] = true
	}
	if tokens[r.InviteToken] {
		return fmt.Errorf("failed to create content request: duplicate invite token")
	}
	emails := map[string]bool{}
	for i, inv := range invitees {
		key := strings.ToLower(inv.Email)
		if emails[key] {
			return apperr.Field(fmt.Sprintf("invitees.%d.email", i), "The invitee email has already been taken.")
		}
		if tokens[inv.InviteToken] {
			return fmt.Errorf("failed to create invitee: duplicate invite token")
		}
		emails[key] = true
		tokens[inv.InviteToken] = true
	}

	now := time.Now()
	r.ID = db.next("content_requests")
	r.CreatedAt, r.UpdatedAt = now, now
	db.requests[r.ID] = stripRequest(*r)

	for i := range invitees {
		inv := &invitees[i]
		inv.ID = db.next("invitees")
		inv.ContentRequestID = r.ID
		inv.CreatedAt, inv.UpdatedAt = now, now
		db.invitees[inv.ID] = *inv
	}
	r.Invitees = invitees
	return nil
}

func (db *DB) GetContentRequest(ctx context.Context, id int64) (*models.ContentRequest, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.requests[id]
	if !ok {
		return nil, apperr.NotFound("Content request not found")
	}
	return &r, nil
}

func (db *DB) GetContentRequestByToken(ctx context.Context, token string) (*models.ContentRequest, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, r := range db.requests {
		if r.InviteToken == token {
			return &r, nil
		}
	}
	return nil, apperr.NotFound("Content request not found")
}

func (db *DB) ListContentRequests(ctx context.Context, creatorID int64, params models.ContentRequestListParams) ([]models.ContentRequest, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	params.Page, params.PerPage = models.NormalizePage(params.Page, params.PerPage)

	now := time.Now()
	search := strings.ToLower(params.Search)
	var matched []models.ContentRequest
	for _, r := range db.requests {
		switch {
		case r.CreatorID != creatorID:
		case params.Status != "" && string(r.Status) != params.Status:
		case params.Type != "" && string(r.Type) != params.Type:
		case search != "" && !strings.Contains(strings.ToLower(r.Title), search):
		case params.Overdue && !r.IsOverdue(now):
		default:
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})
	return page(matched, params.Page, params.PerPage), len(matched), nil
}

func (db *DB) UpdateContentRequest(ctx context.Context, r *models.ContentRequest) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.requests[r.ID]
	if !ok {
		return apperr.NotFound("Content request not found")
	}
	cur.Title = r.Title
	cur.Description = r.Description
	cur.Deadline = r.Deadline
	cur.Status = r.Status
	cur.Branding = r.Branding
	cur.Requirements = r.Requirements
	if cur.Status == models.RequestStatusCompleted {
		cur.CompletionPercentage = 100
	}
	cur.UsedBudget = r.UsedBudget
	cur.UpdatedAt = time.Now()
	r.CompletionPercentage = cur.CompletionPercentage
	r.UpdatedAt = cur.UpdatedAt
	db.requests[r.ID] = cur
	return nil
}

func (db *DB) DeleteContentRequest(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.requests[id]; !ok {
		return apperr.NotFound("Content request not found")
	}
	delete(db.requests, id)
	for invID, inv := range db.invitees {
		if inv.ContentRequestID == id {
			delete(db.invitees, invID)
		}
	}
	for vid, v := range db.videos {
		if v.ContentRequestID != nil && *v.ContentRequestID == id {
			v.ContentRequestID = nil
			db.videos[vid] = v
		}
	}
	db.deleteComments(models.Commentable{Type: models.CommentableContentRequest, ID: id})
	return nil
}

func (db *DB) ListInvitees(ctx context.Context, requestID int64) ([]models.Invitee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Invitee
	for _, inv := range db.invitees {
		if inv.ContentRequestID == requestID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *DB) GetInviteeByToken(ctx context.Context, requestID int64, token string) (*models.Invitee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, inv := range db.invitees {
		if inv.ContentRequestID == requestID && inv.InviteToken == token {
			return &inv, nil
		}
	}
	return nil, apperr.NotFound("Invitee not found")
}

// SubmitVideo applies the whole submission under the store lock, checking
// in the same order as the SQL transaction.
func (db *DB) SubmitVideo(ctx context.Context, s models.Submission) (float64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.requests[s.RequestID]
	if !ok {
		return 0, apperr.NotFound("Content request not found")
	}
	if r.Status != models.RequestStatusActive {
		return 0, apperr.Field("content_request", "The content request is not accepting submissions.")
	}
	inv, ok := db.invitees[s.InviteeID]
	if !ok || inv.ContentRequestID != s.RequestID || inv.Status != models.InviteeStatusPending {
		return 0, apperr.Conflict("This invitation has already been used to submit a video")
	}
	v, ok := db.videos[s.VideoID]
	if !ok {
		return 0, apperr.NotFound("Video not found")
	}
	linkedElsewhere := v.ContentRequestID != nil && *v.ContentRequestID != s.RequestID
	if linkedElsewhere || (v.Status != models.VideoStatusDraft && v.Status != models.VideoStatusReady) {
		return 0, apperr.Field("video_id", "The video cannot be submitted to this content request.")
	}

	now := time.Now()
	inv.Status = models.InviteeStatusSubmitted
	inv.SubmittedVideoID = &s.VideoID
	inv.SubmittedAt = &now
	inv.UpdatedAt = now
	db.invitees[inv.ID] = inv

	v.ContentRequestID = &s.RequestID
	v.Status = models.VideoStatusSubmitted
	v.UpdatedAt = now
	db.videos[v.ID] = v

	total, submitted := 0, 0
	for _, other := range db.invitees {
		if other.ContentRequestID != s.RequestID {
			continue
		}
		total++
		if other.Status == models.InviteeStatusSubmitted {
			submitted++
		}
	}
	r.CompletionPercentage = models.CompletionPercentage(submitted, total)
	r.UpdatedAt = now
	db.requests[r.ID] = r
	return r.CompletionPercentage, nil
}

// --- Videos ---

func stripVideo(v models.Video) models.Video {
	v.User, v.ContentRequest, v.Reviews, v.AISuggestions = nil, nil, nil, nil
	v.Metadata = v.Metadata.Clone()
	return v
}

func (db *DB) CreateVideo(ctx context.Context, v *models.Video) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if v.Metadata == nil {
		v.Metadata = models.JSONMap{}
	}
	v.ID = db.next("videos")
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	db.videos[v.ID] = stripVideo(*v)
	return nil
}

func (db *DB) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.videos[id]
	if !ok {
		return nil, apperr.NotFound("Video not found")
	}
	v.Metadata = v.Metadata.Clone()
	return &v, nil
}

func (db *DB) ListVideos(ctx context.Context, userID int64, params models.VideoListParams) ([]models.Video, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	params.Page, params.PerPage = models.NormalizePage(params.Page, params.PerPage)

	search := strings.ToLower(params.Search)
	var matched []models.Video
	for _, v := range db.videos {
		switch {
		case v.UserID != userID:
		case params.Status != "" && string(v.Status) != params.Status:
		case params.RecordingType != "" && string(v.RecordingType) != params.RecordingType:
		case params.ContentRequestID != nil && (v.ContentRequestID == nil || *v.ContentRequestID != *params.ContentRequestID):
		case search != "" && !strings.Contains(strings.ToLower(v.Title), search) &&
			!strings.Contains(strings.ToLower(v.Description), search):
		case params.Published != nil && v.IsPublished() != *params.Published:
		default:
			v.Metadata = v.Metadata.Clone()
			matched = append(matched, v)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})
	return page(matched, params.Page, params.PerPage), len(matched), nil
}

func (db *DB) ListVideosByRequest(ctx context.Context, requestID int64) ([]models.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Video
	for _, v := range db.videos {
		if v.ContentRequestID != nil && *v.ContentRequestID == requestID {
			v.Metadata = v.Metadata.Clone()
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (db *DB) UpdateVideo(ctx context.Context, v *models.Video, prev models.VideoStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.videos[v.ID]
	if !ok {
		return apperr.NotFound("Video not found")
	}
	cur.Title = v.Title
	cur.Description = v.Description
	if cur.Status == prev {
		cur.Status = v.Status
	}
	cur.EngagementRate = v.EngagementRate
	cur.CompletionRate = v.CompletionRate
	cur.PublishedAt = v.PublishedAt
	cur.ProcessingJobID = v.ProcessingJobID
	cur.UpdatedAt = time.Now()
	db.videos[v.ID] = cur
	loaded := *v
	*v = cur
	v.Metadata = cur.Metadata.Clone()
	v.User, v.ContentRequest = loaded.User, loaded.ContentRequest
	v.Reviews, v.AISuggestions = loaded.Reviews, loaded.AISuggestions
	return nil
}

func (db *DB) DeleteVideo(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.videos[id]; !ok {
		return apperr.NotFound("Video not found")
	}
	delete(db.videos, id)
	for rid, r := range db.reviews {
		if r.VideoID == id {
			delete(db.reviews, rid)
		}
	}
	for sid, s := range db.suggestions {
		if s.VideoID == id {
			delete(db.suggestions, sid)
		}
	}
	for iid, inv := range db.invitees {
		if inv.SubmittedVideoID != nil && *inv.SubmittedVideoID == id {
			inv.SubmittedVideoID = nil
			db.invitees[iid] = inv
		}
	}
	db.deleteComments(models.Commentable{Type: models.CommentableVideo, ID: id})
	return nil
}

func (db *DB) IncrementVideoCounter(ctx context.Context, id int64, counter models.VideoCounter) (*models.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.videos[id]
	if !ok {
		return nil, apperr.NotFound("Video not found")
	}
	switch counter {
	case models.CounterViews:
		v.ViewsCount++
		now := time.Now()
		v.LastViewedAt = &now
	case models.CounterDownloads:
		v.DownloadsCount++
	case models.CounterShares:
		v.SharesCount++
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}
	db.videos[id] = v
	v.Metadata = v.Metadata.Clone()
	return &v, nil
}

func (db *DB) CompleteVideoProcessing(ctx context.Context, id int64, thumbnail *string, metadata models.JSONMap, publish bool) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.videos[id]
	if !ok || v.Status != models.VideoStatusProcessing {
		return false, nil
	}
	now := time.Now()
	v.Status = models.VideoStatusReady
	if v.ThumbnailPath == nil {
		v.ThumbnailPath = thumbnail
	}
	if v.Metadata == nil {
		v.Metadata = models.JSONMap{}
	}
	for k, val := range metadata {
		v.Metadata[k] = val
	}
	if publish && v.PublishedAt == nil {
		v.PublishedAt = &now
	}
	v.UpdatedAt = now
	db.videos[id] = v
	return true, nil
}

// --- Reviews ---

func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.videos[r.VideoID]; !ok {
		return fmt.Errorf("failed to create review: video %d does not exist", r.VideoID)
	}
	r.ID = db.next("reviews")
	r.CreatedAt = time.Now()
	db.reviews[r.ID] = *r
	return nil
}

func (db *DB) ListReviewsByVideo(ctx context.Context, videoID int64) ([]models.Review, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reviewsWhere(func(r models.Review) bool { return r.VideoID == videoID }), nil
}

func (db *DB) ListReviewsByRequest(ctx context.Context, requestID int64) ([]models.Review, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reviewsWhere(func(r models.Review) bool {
		v, ok := db.videos[r.VideoID]
		return ok && v.ContentRequestID != nil && *v.ContentRequestID == requestID
	}), nil
}

func (db *DB) reviewsWhere(keep func(models.Review) bool) []models.Review {
	var out []models.Review
	for _, r := range db.reviews {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out
}

// --- AI suggestions ---

func (db *DB) SaveAIReport(ctx context.Context, v *models.Video, suggestions []models.AISuggestion) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.videos[v.ID]
	if !ok {
		return apperr.NotFound("Video not found")
	}
	now := time.Now()
	for i := range suggestions {
		s := &suggestions[i]
		s.ID = db.next("suggestions")
		s.VideoID = v.ID
		if s.Status == "" {
			s.Status = models.SuggestionPending
		}
		s.CreatedAt = now
		db.suggestions[s.ID] = *s
	}
	cur.QualityScore = v.QualityScore
	cur.AIProcessed = v.AIProcessed
	cur.Metadata = v.Metadata.Clone()
	cur.UpdatedAt = now
	v.UpdatedAt = now
	db.videos[v.ID] = cur
	return nil
}

func (db *DB) ListSuggestions(ctx context.Context, videoID int64) ([]models.AISuggestion, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.AISuggestion
	for _, s := range db.suggestions {
		if s.VideoID == videoID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *DB) GetSuggestion(ctx context.Context, id int64) (*models.AISuggestion, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.suggestions[id]
	if !ok {
		return nil, apperr.NotFound("Suggestion not found")
	}
	return &s, nil
}

func (db *DB) UpdateSuggestionStatus(ctx context.Context, id int64, status models.SuggestionStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.suggestions[id]
	if !ok {
		return apperr.NotFound("Suggestion not found")
	}
	s.Status = status
	db.suggestions[id] = s
	return nil
}

// --- Comments ---

func (db *DB) CreateComment(ctx context.Context, c *models.Comment) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c.ID = db.next("comments")
	c.CreatedAt = time.Now()
	db.comments[c.ID] = *c
	return nil
}

func (db *DB) ListComments(ctx context.Context, target models.Commentable) ([]models.Comment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Comment
	for _, c := range db.comments {
		if c.Target() == target {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *DB) deleteComments(target models.Commentable) {
	for id, c := range db.comments {
		if c.Target() == target {
			delete(db.comments, id)
		}
	}
}

// --- Jobs and storage cleanup ---

func (db *DB) CreateJob(ctx context.Context, j *models.ProcessingJob) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.jobs[j.ID]; exists {
		return fmt.Errorf("failed to create job: duplicate id %s", j.ID)
	}
	if j.Payload == nil {
		j.Payload = models.JSONMap{}
	}
	if j.Result == nil {
		j.Result = models.JSONMap{}
	}
	j.CreatedAt = time.Now()
	j.UpdatedAt = j.CreatedAt
	db.jobs[j.ID] = *j
	return nil
}

func (db *DB) GetJob(ctx context.Context, id string) (*models.ProcessingJob, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	j, ok := db.jobs[id]
	if !ok {
		return nil, apperr.NotFound("Job not found")
	}
	j.Result = j.Result.Clone()
	return &j, nil
}

func (db *DB) UpdateJob(ctx context.Context, j *models.ProcessingJob) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.jobs[j.ID]
	if !ok {
		return apperr.NotFound("Job not found")
	}
	cur.Status = j.Status
	cur.Progress = j.Progress
	cur.Result = j.Result.Clone()
	cur.Error = j.Error
	cur.CompletedAt = j.CompletedAt
	cur.UpdatedAt = time.Now()
	j.UpdatedAt = cur.UpdatedAt
	db.jobs[j.ID] = cur
	return nil
}

func (db *DB) CreateStorageCleanup(ctx context.Context, path, lastError string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.next("storage_cleanup")
	db.cleanups[id] = models.StorageCleanup{ID: id, Path: path, LastError: lastError, CreatedAt: time.Now()}
	return nil
}

func (db *DB) ListPendingCleanups(ctx context.Context, limit int) ([]models.StorageCleanup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]models.StorageCleanup, 0, len(db.cleanups))
	for _, c := range db.cleanups {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (db *DB) ResolveStorageCleanup(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.cleanups, id)
	return nil
}

func (db *DB) RetryStorageCleanup(ctx context.Context, id int64, lastError string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c, ok := db.cleanups[id]; ok {
		c.Attempts++
		c.LastError = lastError
		db.cleanups[id] = c
	}
	return nil
}

// --- Webhooks ---

func cloneWebhook(w models.Webhook) models.Webhook {
	w.Events = append([]string(nil), w.Events...)
	return w
}

func (db *DB) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	w.ID = db.next("webhooks")
	w.CreatedAt = time.Now()
	db.webhooks[w.ID] = cloneWebhook(*w)
	return nil
}

func (db *DB) GetWebhook(ctx context.Context, id int64) (*models.Webhook, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	w, ok := db.webhooks[id]
	if !ok {
		return nil, apperr.NotFound("Webhook not found")
	}
	w = cloneWebhook(w)
	return &w, nil
}

func (db *DB) ListWebhooks(ctx context.Context, userID int64) ([]models.Webhook, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Webhook
	for _, w := range db.webhooks {
		if w.UserID == userID {
			out = append(out, cloneWebhook(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (db *DB) UpdateWebhook(ctx context.Context, w *models.Webhook) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, ok := db.webhooks[w.ID]
	if !ok {
		return apperr.NotFound("Webhook not found")
	}
	cur.URL = w.URL
	cur.Events = append([]string(nil), w.Events...)
	cur.Active = w.Active
	db.webhooks[w.ID] = cur
	return nil
}

func (db *DB) DeleteWebhook(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.webhooks[id]; !ok {
		return apperr.NotFound("Webhook not found")
	}
	delete(db.webhooks, id)
	for did, d := range db.deliveries {
		if d.WebhookID == id {
			delete(db.deliveries, did)
		}
	}
	return nil
}

func (db *DB) GetActiveWebhooksForEvent(ctx context.Context, userID int64, event string) ([]models.Webhook, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Webhook
	for _, w := range db.webhooks {
		if w.UserID != userID || !w.Active {
			continue
		}
		for _, e := range w.Events {
			if e == event {
				out = append(out, cloneWebhook(w))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *DB) CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	d.ID = db.next("webhook_deliveries")
	d.CreatedAt = time.Now()
	db.deliveries[d.ID] = *d
	return nil
}

func (db *DB) UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.deliveries[d.ID]; ok {
		db.deliveries[d.ID] = *d
	}
	return nil
}

func (db *DB) ListWebhookDeliveries(ctx context.Context, userID int64, limit int) ([]models.WebhookDelivery, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.WebhookDelivery
	for _, d := range db.deliveries {
		if w, ok := db.webhooks[d.WebhookID]; ok && w.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- helpers ---

// newer orders by created_at DESC, id DESC.
func newer(at1 time.Time, id1 int64, at2 time.Time, id2 int64) bool {
	if !at1.Equal(at2) {
		return at1.After(at2)
	}
	return id1 > id2
}

func page[T any](items []T, p, perPage int) []T {
	start := (p - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
