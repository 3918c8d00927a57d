// jobs.go persists background jobs and the blob cleanup queue.
package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// CreateJob inserts a job. The caller assigns the UUID.
func (db *DB) CreateJob(ctx context.Context, j *models.ProcessingJob) error {
	if j.Payload == nil {
		j.Payload = models.JSONMap{}
	}
	if j.Result == nil {
		j.Result = models.JSONMap{}
	}
	query := `
		INSERT INTO processing_jobs (id, type, status, progress, user_id, video_id, payload, result, error, estimated_completion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	if err := db.QueryRowContext(ctx, query,
		j.ID, j.Type, j.Status, j.Progress, j.UserID, j.VideoID, j.Payload, j.Result, j.Error, j.EstimatedCompletion,
	).Scan(&j.CreatedAt, &j.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (db *DB) GetJob(ctx context.Context, id string) (*models.ProcessingJob, error) {
	var j models.ProcessingJob
	if err := db.GetContext(ctx, &j, `SELECT * FROM processing_jobs WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "Job not found")
	}
	return &j, nil
}

// UpdateJob writes status, progress, result, error and completion time.
func (db *DB) UpdateJob(ctx context.Context, j *models.ProcessingJob) error {
	query := `
		UPDATE processing_jobs
		SET status = $2, progress = $3, result = $4, error = $5, completed_at = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := db.QueryRowContext(ctx, query,
		j.ID, j.Status, j.Progress, j.Result, j.Error, j.CompletedAt,
	).Scan(&j.UpdatedAt)
	if err != nil {
		return notFound(err, "Job not found")
	}
	return nil
}

// --- Storage cleanup ---

// CreateStorageCleanup records a blob whose deletion failed.
func (db *DB) CreateStorageCleanup(ctx context.Context, path, lastError string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO storage_cleanup (path, last_error) VALUES ($1, $2)`, path, lastError)
	if err != nil {
		return fmt.Errorf("failed to record storage cleanup: %w", err)
	}
	return nil
}

// ListPendingCleanups returns the oldest pending cleanups.
func (db *DB) ListPendingCleanups(ctx context.Context, limit int) ([]models.StorageCleanup, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.StorageCleanup
	err := db.SelectContext(ctx, &out,
		`SELECT * FROM storage_cleanup ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage cleanups: %w", err)
	}
	return out, nil
}

// ResolveStorageCleanup removes a cleanup entry once the blob is gone.
func (db *DB) ResolveStorageCleanup(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM storage_cleanup WHERE id = $1`, id)
	return err
}

// RetryStorageCleanup counts another failed attempt.
func (db *DB) RetryStorageCleanup(ctx context.Context, id int64, lastError string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE storage_cleanup SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, lastError)
	return err
}
