// Package worker provides a background job processing system using goroutines.
//
// Go Pattern: A buffered channel is the job queue and N goroutines read from
// it. HTTP handlers never wait on video processing or AI edits; they persist a
// job row, submit it here and return the job id for polling.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/aiedit"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/storage"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/thumbnail"
)

// ErrQueueFull is returned by Submit when the buffer has no room.
var ErrQueueFull = errors.New("job queue is full; try again later")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker pool is stopped")

// Job represents a unit of work to be processed by a worker.
type Job struct {
	ID        string // processing_jobs.id
	Type      models.JobType
	Payload   json.RawMessage
	CreatedAt time.Time
}

// VideoProcessingPayload is the data for a video_processing job.
type VideoProcessingPayload struct {
	VideoID int64 `json:"video_id"`
}

// AIEditPayload is the data for an ai_edit job.
type AIEditPayload struct {
	VideoID      int64          `json:"video_id"`
	SuggestionID int64          `json:"suggestion_id"`
	Edits        models.JSONMap `json:"edits"`
}

// NewJob builds a Job with a marshalled payload.
func NewJob(id string, jobType models.JobType, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return Job{ID: id, Type: jobType, Payload: raw, CreatedAt: time.Now()}, nil
}

// Store is the persistence the workers need.
type Store interface {
	GetJob(ctx context.Context, id string) (*models.ProcessingJob, error)
	UpdateJob(ctx context.Context, j *models.ProcessingJob) error
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	GetContentRequest(ctx context.Context, id int64) (*models.ContentRequest, error)
	CompleteVideoProcessing(ctx context.Context, id int64, thumbnail *string, metadata models.JSONMap, publish bool) (bool, error)
	ListPendingCleanups(ctx context.Context, limit int) ([]models.StorageCleanup, error)
	ResolveStorageCleanup(ctx context.Context, id int64) error
	RetryStorageCleanup(ctx context.Context, id int64, lastError string) error
}

// EventNotifier fires webhook events.
type EventNotifier interface {
	NotifyEvent(ctx context.Context, userID int64, event string, data any)
}

// Deps are the collaborators a Pool runs jobs with.
type Deps struct {
	Store      Store
	Blobs      storage.Storage
	Thumbnails thumbnail.Generator
	Editor     aiedit.Editor
	Events     EventNotifier
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	jobs    chan Job
	workers int
	deps    Deps
	log     *logrus.Entry

	// mu guards stopped so Submit never sends on a closed channel.
	mu      sync.RWMutex
	stopped bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool.
func NewPool(workers, queueSize int, deps Deps) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		deps:    deps,
		log:     logger.WithComponent("worker"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start sweeps leftover blob deletions, then launches the worker goroutines.
func (p *Pool) Start() {
	p.SweepCleanups(p.ctx)

	p.log.Infof("🚀 Starting %d background workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, lets workers drain what is already buffered, then
// cancels the shared context.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.log.Info("⏹️  Stopping workers...")
	p.wg.Wait()
	p.cancel()
	p.log.Info("✅ All workers stopped")
}

// Submit adds a job to the queue without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		p.log.WithFields(logrus.Fields{"job_id": job.ID, "type": job.Type}).Info("📥 Job queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.log.WithField("worker", id)
	log.Debug("👷 Worker started")

	for job := range p.jobs {
		jlog := log.WithFields(logrus.Fields{"job_id": job.ID, "type": job.Type})
		jlog.Info("👷 Processing job")

		if err := p.Process(p.ctx, job); err != nil {
			jlog.WithError(err).Error("❌ Job failed")
		} else {
			jlog.Info("✅ Job completed")
		}
	}

	log.Debug("👷 Worker stopped")
}

// Process runs one job to completion and records the outcome on its
// processing_jobs row. Callers outside the pool use it to run a job inline.
func (p *Pool) Process(ctx context.Context, job Job) error {
	store := p.deps.Store

	rec, err := store.GetJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	rec.Status = models.JobProcessing
	rec.Progress = 10
	if err := store.UpdateJob(ctx, rec); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	var result models.JSONMap
	switch job.Type {
	case models.JobVideoProcessing:
		result, err = p.processVideo(ctx, job)
	case models.JobAIEdit:
		result, err = p.processAIEdit(ctx, job)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	now := time.Now()
	rec.CompletedAt = &now
	if err != nil {
		rec.Status = models.JobFailed
		rec.Error = err.Error()
	} else {
		rec.Status = models.JobCompleted
		rec.Progress = 100
		rec.Result = result
	}
	if uerr := store.UpdateJob(ctx, rec); uerr != nil {
		p.log.WithError(uerr).WithField("job_id", job.ID).Warn("⚠️  Failed to record job outcome")
	}
	return err
}

// processVideo fills a missing thumbnail, enriches metadata and moves the
// video to ready if nothing else changed its status meanwhile.
func (p *Pool) processVideo(ctx context.Context, job Job) (models.JSONMap, error) {
	var payload VideoProcessingPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid video processing payload: %w", err)
	}

	v, err := p.deps.Store.GetVideo(ctx, payload.VideoID)
	if err != nil {
		return nil, err
	}

	thumb := v.ThumbnailPath
	if thumb == nil && p.deps.Thumbnails != nil {
		key, err := p.deps.Thumbnails.Generate(ctx, v.FilePath)
		if err != nil {
			return nil, fmt.Errorf("thumbnail generation failed: %w", err)
		}
		thumb = &key
	}

	metadata := models.JSONMap{
		"mime_type":    v.MimeType,
		"file_size":    v.FileSize,
		"duration":     v.Duration,
		"resolution":   "1920x1080",
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	}

	publish := false
	if v.ContentRequestID != nil {
		r, err := p.deps.Store.GetContentRequest(ctx, *v.ContentRequestID)
		if err == nil {
			publish = r.AutoPublish
		}
	}

	ready, err := p.deps.Store.CompleteVideoProcessing(ctx, v.ID, thumb, metadata, publish)
	if err != nil {
		return nil, err
	}

	result := models.JSONMap{"video_id": v.ID, "ready": ready}
	if thumb != nil {
		result["thumbnail_path"] = *thumb
	}

	if ready && p.deps.Events != nil {
		p.deps.Events.NotifyEvent(ctx, v.UserID, models.EventVideoProcessed, models.JSONMap{
			"video_id":       v.ID,
			"status":         models.VideoStatusReady,
			"thumbnail_path": thumb,
			"published":      publish,
		})
	}
	return result, nil
}

// processAIEdit runs the editor for an applied suggestion.
func (p *Pool) processAIEdit(ctx context.Context, job Job) (models.JSONMap, error) {
	var payload AIEditPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid ai edit payload: %w", err)
	}

	v, err := p.deps.Store.GetVideo(ctx, payload.VideoID)
	if err != nil {
		return nil, err
	}
	if p.deps.Editor == nil {
		return nil, errors.New("no editor configured")
	}

	res, err := p.deps.Editor.Edit(ctx, job.ID, v, payload.Edits)
	if err != nil {
		return nil, fmt.Errorf("edit failed: %w", err)
	}

	result := models.JSONMap{
		"video_id":       v.ID,
		"suggestion_id":  payload.SuggestionID,
		"result_path":    res.ResultPath,
		"thumbnail_path": res.ThumbnailPath,
	}
	if p.deps.Events != nil {
		p.deps.Events.NotifyEvent(ctx, v.UserID, models.EventAIEditCompleted, models.JSONMap{
			"job_id":        job.ID,
			"video_id":      v.ID,
			"suggestion_id": payload.SuggestionID,
			"result_path":   res.ResultPath,
		})
	}
	return result, nil
}

// SweepCleanups retries blob deletions that failed earlier. Deleting a
// missing blob succeeds, so resolved entries never come back.
func (p *Pool) SweepCleanups(ctx context.Context) {
	if p.deps.Store == nil || p.deps.Blobs == nil {
		return
	}
	pending, err := p.deps.Store.ListPendingCleanups(ctx, 100)
	if err != nil {
		p.log.WithError(err).Warn("⚠️  Failed to list storage cleanups")
		return
	}

	resolved := 0
	for _, c := range pending {
		if err := p.deps.Blobs.Delete(ctx, c.Path); err != nil {
			if rerr := p.deps.Store.RetryStorageCleanup(ctx, c.ID, err.Error()); rerr != nil {
				p.log.WithError(rerr).Warn("⚠️  Failed to record cleanup retry")
			}
			continue
		}
		if err := p.deps.Store.ResolveStorageCleanup(ctx, c.ID); err != nil {
			p.log.WithError(err).Warn("⚠️  Failed to resolve storage cleanup")
			continue
		}
		resolved++
	}
	if len(pending) > 0 {
		p.log.Infof("🧹 Storage cleanup: %d/%d blobs removed", resolved, len(pending))
	}
}
