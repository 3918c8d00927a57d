// Package video owns uploaded videos: storage of the media, background
// processing, engagement counters, AI suggestions, reviews and comments.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/aiedit"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/storage"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/worker"
)

// Upload limits.
const (
	MaxVideoSize     = 100 << 20
	MaxThumbnailSize = 5 << 20
)

var (
	videoExtensions     = []string{".mp4", ".webm", ".mov"}
	thumbnailExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// sniffLen is how many leading bytes are read to detect the content type.
const sniffLen = 3072

// Store is the persistence the service needs.
type Store interface {
	CreateVideo(ctx context.Context, v *models.Video) error
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	ListVideos(ctx context.Context, userID int64, params models.VideoListParams) ([]models.Video, int, error)
	UpdateVideo(ctx context.Context, v *models.Video, prev models.VideoStatus) error
	DeleteVideo(ctx context.Context, id int64) error
	IncrementVideoCounter(ctx context.Context, id int64, counter models.VideoCounter) (*models.Video, error)

	GetContentRequest(ctx context.Context, id int64) (*models.ContentRequest, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	CreateJob(ctx context.Context, j *models.ProcessingJob) error
	GetJob(ctx context.Context, id string) (*models.ProcessingJob, error)
	UpdateJob(ctx context.Context, j *models.ProcessingJob) error
	CreateStorageCleanup(ctx context.Context, path, lastError string) error

	CreateReview(ctx context.Context, r *models.Review) error
	ListReviewsByVideo(ctx context.Context, videoID int64) ([]models.Review, error)
	SaveAIReport(ctx context.Context, v *models.Video, suggestions []models.AISuggestion) error
	ListSuggestions(ctx context.Context, videoID int64) ([]models.AISuggestion, error)
	GetSuggestion(ctx context.Context, id int64) (*models.AISuggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id int64, status models.SuggestionStatus) error

	CreateComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, target models.Commentable) ([]models.Comment, error)
}

// Queue accepts background jobs.
type Queue interface {
	Submit(job worker.Job) error
}

// File is an uploaded file as received from the client.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// CreateInput is everything POST /videos carries.
type CreateInput struct {
	models.CreateVideoForm
	Video     *File
	Thumbnail *File
}

// Service implements the video operations.
type Service struct {
	store     Store
	blobs     storage.Storage
	queue     Queue
	suggester aiedit.Suggester
	log       *logrus.Entry

	// Now stamps publish times.
	Now func() time.Time
}

// New creates a Service.
func New(store Store, blobs storage.Storage, queue Queue, suggester aiedit.Suggester) *Service {
	return &Service{
		store:     store,
		blobs:     blobs,
		queue:     queue,
		suggester: suggester,
		log:       logger.WithComponent("videos"),
		Now:       time.Now,
	}
}

// ValidateFiles records upload errors for the video and thumbnail in fields,
// keyed by their form names.
func ValidateFiles(fields apperr.Fields, video, thumb *File) {
	switch {
	case video == nil:
		fields.Add("video_file", "The video file field is required.")
	case !hasExtension(video.Name, videoExtensions):
		fields.Add("video_file", "The video file must be a file of type: mp4, webm, mov.")
	case video.Size > MaxVideoSize:
		fields.Add("video_file", "The video file must not be greater than 102400 kilobytes.")
	}

	if thumb == nil {
		return
	}
	switch {
	case !hasExtension(thumb.Name, thumbnailExtensions):
		fields.Add("thumbnail", "The thumbnail must be an image.")
	case thumb.Size > MaxThumbnailSize:
		fields.Add("thumbnail", "The thumbnail must not be greater than 5120 kilobytes.")
	}
}

func hasExtension(name string, allowed []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// sniff reads the head of r and returns the detected MIME type along with a
// reader that replays the full content.
func sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	mime := mimetype.Detect(head).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime, io.MultiReader(bytes.NewReader(head), r), nil
}

// Create stores the uploaded media, inserts the video in processing state and
// queues its processing job.
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (*models.Video, error) {
	fields := make(apperr.Fields)
	ValidateFiles(fields, in.Video, in.Thumbnail)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if in.ContentRequestID != nil {
		_, err := s.store.GetContentRequest(ctx, *in.ContentRequestID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Field("content_request_id", "The selected content request id is invalid.")
		}
		if err != nil {
			return nil, err
		}
	}

	videoMime, videoReader, err := sniff(in.Video.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if !strings.HasPrefix(videoMime, "video/") {
		return nil, apperr.Field("video_file", "The video file must be a file of type: mp4, webm, mov.")
	}

	var thumbReader io.Reader
	if in.Thumbnail != nil {
		thumbMime, r, err := sniff(in.Thumbnail.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to read thumbnail: %w", err)
		}
		if !strings.HasPrefix(thumbMime, "image/") {
			return nil, apperr.Field("thumbnail", "The thumbnail must be an image.")
		}
		thumbReader = r
	}

	videoKey := storage.NewKey("videos", path.Ext(in.Video.Name))
	size, err := s.blobs.Put(ctx, videoKey, videoReader)
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}
	stored := []string{videoKey}

	v := &models.Video{
		UserID:           ownerID,
		ContentRequestID: in.ContentRequestID,
		Title:            in.Title,
		Description:      in.Description,
		FilePath:         videoKey,
		RecordingType:    models.RecordingType(in.RecordingType),
		Duration:         in.Duration,
		Status:           models.VideoStatusProcessing,
		FileSize:         size,
		MimeType:         videoMime,
		Metadata:         models.JSONMap{"original_filename": in.Video.Name},
	}

	if thumbReader != nil {
		thumbKey := storage.NewKey("thumbnails", path.Ext(in.Thumbnail.Name))
		if _, err := s.blobs.Put(ctx, thumbKey, thumbReader); err != nil {
			s.removeBlobs(ctx, stored...)
			return nil, fmt.Errorf("failed to store thumbnail: %w", err)
		}
		v.ThumbnailPath = &thumbKey
		stored = append(stored, thumbKey)
	}

	if err := s.store.CreateVideo(ctx, v); err != nil {
		s.removeBlobs(ctx, stored...)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"video_id": v.ID, "size": size, "mime": videoMime}).Info("🎥 Video uploaded")

	if err := s.queueProcessing(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// queueProcessing persists a video_processing job, links it to v and submits
// it. A full queue marks the job failed but leaves the video in processing.
func (s *Service) queueProcessing(ctx context.Context, v *models.Video) error {
	rec, err := s.newJob(ctx, v, models.JobVideoProcessing, worker.VideoProcessingPayload{VideoID: v.ID}, nil)
	if err != nil {
		return err
	}
	v.ProcessingJobID = &rec.ID
	if err := s.store.UpdateVideo(ctx, v, v.Status); err != nil {
		return err
	}
	s.submit(ctx, rec, worker.VideoProcessingPayload{VideoID: v.ID})
	return nil
}

func (s *Service) newJob(ctx context.Context, v *models.Video, jobType models.JobType, payload any, eta *time.Time) (*models.ProcessingJob, error) {
	raw, err := worker.NewJob("", jobType, payload)
	if err != nil {
		return nil, err
	}
	var data models.JSONMap
	if err := data.Scan([]byte(raw.Payload)); err != nil {
		return nil, err
	}

	rec := &models.ProcessingJob{
		ID:                  uuid.NewString(),
		Type:                jobType,
		Status:              models.JobQueued,
		UserID:              v.UserID,
		VideoID:             &v.ID,
		Payload:             data,
		EstimatedCompletion: eta,
	}
	if err := s.store.CreateJob(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// submit hands rec to the queue, marking it failed when that is not possible.
func (s *Service) submit(ctx context.Context, rec *models.ProcessingJob, payload any) {
	job, err := worker.NewJob(rec.ID, rec.Type, payload)
	if err == nil && s.queue != nil {
		err = s.queue.Submit(job)
	} else if err == nil {
		err = errors.New("no job queue configured")
	}
	if err == nil {
		return
	}

	log := s.log.WithFields(logrus.Fields{"job_id": rec.ID, "type": rec.Type})
	log.WithError(err).Warn("⚠️  Could not queue job")
	now := time.Now()
	rec.Status = models.JobFailed
	rec.Error = err.Error()
	rec.CompletedAt = &now
	if uerr := s.store.UpdateJob(ctx, rec); uerr != nil {
		log.WithError(uerr).Warn("⚠️  Failed to mark job failed")
	}
}

// Reprocess queues a fresh processing job for a video still in processing,
// e.g. after the first job could not be queued.
func (s *Service) Reprocess(ctx context.Context, actorID, id int64) (*models.ProcessingJob, error) {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if v.Status != models.VideoStatusProcessing {
		return nil, apperr.Field("status", "Only videos in processing can be reprocessed.")
	}
	if err := s.queueProcessing(ctx, v); err != nil {
		return nil, err
	}
	return s.store.GetJob(ctx, *v.ProcessingJobID)
}

// List returns a page of the owner's videos.
func (s *Service) List(ctx context.Context, ownerID int64, params models.VideoListParams) ([]models.Video, int, error) {
	return s.store.ListVideos(ctx, ownerID, params)
}

// owned loads a video the actor uploaded.
func (s *Service) owned(ctx context.Context, actorID, id int64) (*models.Video, error) {
	v, err := s.store.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != actorID {
		return nil, apperr.Forbidden("You do not have access to this video")
	}
	return v, nil
}

// viewable loads a video the actor uploaded or that was submitted to one of
// the actor's content requests. The linked request is attached when loaded.
func (s *Service) viewable(ctx context.Context, actorID, id int64) (*models.Video, error) {
	v, err := s.store.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.ContentRequestID != nil {
		r, err := s.store.GetContentRequest(ctx, *v.ContentRequestID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if r != nil {
			v.ContentRequest = r
		}
	}
	if v.UserID == actorID {
		return v, nil
	}
	if v.ContentRequest != nil && v.ContentRequest.CreatorID == actorID {
		return v, nil
	}
	return nil, apperr.Forbidden("You do not have access to this video")
}

// Get returns a video with its uploader, request, reviews and suggestions.
func (s *Service) Get(ctx context.Context, actorID, id int64) (*models.Video, error) {
	v, err := s.viewable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if v.User, err = s.store.GetUserByID(ctx, v.UserID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if v.Reviews, err = s.store.ListReviewsByVideo(ctx, v.ID); err != nil {
		return nil, err
	}
	if v.AISuggestions, err = s.store.ListSuggestions(ctx, v.ID); err != nil {
		return nil, err
	}
	return v, nil
}

// Update applies the non-nil fields of in. Owner only.
func (s *Service) Update(ctx context.Context, actorID, id int64, in models.UpdateVideoRequest) (*models.Video, error) {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	prev := v.Status
	if in.Title != nil {
		v.Title = *in.Title
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
	if in.Status != nil {
		if *in.Status == models.VideoStatusSubmitted {
			return nil, apperr.Field("status", "The selected status is invalid.")
		}
		v.Status = *in.Status
	}
	if err := s.store.UpdateVideo(ctx, v, prev); err != nil {
		return nil, err
	}
	return v, nil
}

// Publish marks a video ready and stamps published_at.
func (s *Service) Publish(ctx context.Context, actorID, id int64) (*models.Video, error) {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	prev := v.Status
	v.Status = models.VideoStatusReady
	v.PublishedAt = &now
	if err := s.store.UpdateVideo(ctx, v, prev); err != nil {
		return nil, err
	}
	return v, nil
}

// Archive hides a video. published_at is kept, but an archived video is not
// published.
func (s *Service) Archive(ctx context.Context, actorID, id int64) (*models.Video, error) {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	prev := v.Status
	v.Status = models.VideoStatusArchived
	if err := s.store.UpdateVideo(ctx, v, prev); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the media best-effort and then the record. Blobs that could
// not be removed are queued for the cleanup sweep.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return err
	}

	keys := []string{v.FilePath}
	if v.ThumbnailPath != nil && *v.ThumbnailPath != "" {
		keys = append(keys, *v.ThumbnailPath)
	}
	s.removeBlobs(ctx, keys...)

	if err := s.store.DeleteVideo(ctx, id); err != nil {
		return err
	}
	s.log.WithField("video_id", id).Info("🗑️  Video deleted")
	return nil
}

func (s *Service) removeBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		err := s.blobs.Delete(ctx, key)
		if err == nil {
			continue
		}
		s.log.WithError(err).WithField("path", key).Warn("⚠️  Failed to delete blob; queued for cleanup")
		if cerr := s.store.CreateStorageCleanup(ctx, key, err.Error()); cerr != nil {
			s.log.WithError(cerr).WithField("path", key).Error("❌ Failed to queue blob cleanup")
		}
	}
}

// IncrementViews bumps the view counter and stamps last_viewed_at.
func (s *Service) IncrementViews(ctx context.Context, id int64) (*models.Video, error) {
	return s.store.IncrementVideoCounter(ctx, id, models.CounterViews)
}

// IncrementDownloads bumps the download counter.
func (s *Service) IncrementDownloads(ctx context.Context, id int64) (*models.Video, error) {
	return s.store.IncrementVideoCounter(ctx, id, models.CounterDownloads)
}

// IncrementShares bumps the share counter.
func (s *Service) IncrementShares(ctx context.Context, id int64) (*models.Video, error) {
	return s.store.IncrementVideoCounter(ctx, id, models.CounterShares)
}

// UpdateEngagement stores the client-reported engagement and completion rates.
func (s *Service) UpdateEngagement(ctx context.Context, actorID, id int64, engagement, completion float64) (*models.Video, error) {
	v, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	fields := make(apperr.Fields)
	if engagement < 0 || engagement > 100 {
		fields.Add("engagement_rate", "The engagement rate must be between 0 and 100.")
	}
	if completion < 0 || completion > 100 {
		fields.Add("completion_rate", "The completion rate must be between 0 and 100.")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}
	v.EngagementRate = &engagement
	v.CompletionRate = &completion
	if err := s.store.UpdateVideo(ctx, v, v.Status); err != nil {
		return nil, err
	}
	return v, nil
}

// Analytics reports the stored counters verbatim; unset rates are 0.
func (s *Service) Analytics(ctx context.Context, actorID, id int64) (*models.VideoAnalytics, error) {
	v, err := s.viewable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	a := &models.VideoAnalytics{
		Views:        v.ViewsCount,
		Downloads:    v.DownloadsCount,
		Shares:       v.SharesCount,
		LastViewedAt: v.LastViewedAt,
	}
	if v.EngagementRate != nil {
		a.EngagementRate = *v.EngagementRate
	}
	if v.CompletionRate != nil {
		a.CompletionRate = *v.CompletionRate
	}
	return a, nil
}

// Job returns a background job started for one of the actor's videos.
func (s *Service) Job(ctx context.Context, actorID int64, jobID string) (*models.ProcessingJob, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.UserID != actorID {
		return nil, apperr.Forbidden("You do not have access to this job")
	}
	return j, nil
}
