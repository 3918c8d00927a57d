// videos.go handles videos, their reviews, AI suggestions and comments.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// CreateVideo inserts a new video record.
func (db *DB) CreateVideo(ctx context.Context, v *models.Video) error {
	if v.Metadata == nil {
		v.Metadata = models.JSONMap{}
	}
	query := `
		INSERT INTO videos (user_id, content_request_id, title, description, file_path, thumbnail_path,
			recording_type, duration, status, file_size, mime_type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	if err := db.QueryRowContext(ctx, query,
		v.UserID, v.ContentRequestID, v.Title, v.Description, v.FilePath, v.ThumbnailPath,
		v.RecordingType, v.Duration, v.Status, v.FileSize, v.MimeType, v.Metadata,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// GetVideo retrieves a single video by ID.
func (db *DB) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	var v models.Video
	if err := db.GetContext(ctx, &v, `SELECT * FROM videos WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "Video not found")
	}
	return &v, nil
}

// ListVideos returns a user's videos, newest first, with the total count.
func (db *DB) ListVideos(ctx context.Context, userID int64, params models.VideoListParams) ([]models.Video, int, error) {
	params.Page, params.PerPage = models.NormalizePage(params.Page, params.PerPage)

	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argNum := 2

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}
	if params.RecordingType != "" {
		conditions = append(conditions, fmt.Sprintf("recording_type = $%d", argNum))
		args = append(args, params.RecordingType)
		argNum++
	}
	if params.ContentRequestID != nil {
		conditions = append(conditions, fmt.Sprintf("content_request_id = $%d", argNum))
		args = append(args, *params.ContentRequestID)
		argNum++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}
	if params.Published != nil {
		if *params.Published {
			conditions = append(conditions, "status = 'ready' AND published_at IS NOT NULL")
		} else {
			conditions = append(conditions, "NOT (status = 'ready' AND published_at IS NOT NULL)")
		}
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM videos "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM videos %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		whereClause, argNum, argNum+1,
	)
	args = append(args, params.PerPage, offset)

	var videos []models.Video
	if err := db.SelectContext(ctx, &videos, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}
	return videos, total, nil
}

// ListVideosByRequest returns the videos linked to a content request.
func (db *DB) ListVideosByRequest(ctx context.Context, requestID int64) ([]models.Video, error) {
	var videos []models.Video
	err := db.SelectContext(ctx, &videos,
		`SELECT * FROM videos WHERE content_request_id = $1 ORDER BY created_at DESC, id DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list request videos: %w", err)
	}
	return videos, nil
}

// UpdateVideo writes the owner-editable fields of v and reloads v from the
// stored row. The status is only replaced while the stored status is still
// prev, so a submission that landed after v was loaded keeps its status.
// Media and AI columns have their own writers and are left alone.
func (db *DB) UpdateVideo(ctx context.Context, v *models.Video, prev models.VideoStatus) error {
	query := `
		UPDATE videos
		SET title = $2, description = $3,
			status = CASE WHEN status = $5 THEN $4 ELSE status END,
			engagement_rate = $6, completion_rate = $7, published_at = $8,
			processing_job_id = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING *`

	err := db.GetContext(ctx, v, query,
		v.ID, v.Title, v.Description, v.Status, prev,
		v.EngagementRate, v.CompletionRate, v.PublishedAt, v.ProcessingJobID,
	)
	if err != nil {
		return notFound(err, "Video not found")
	}
	return nil
}

// DeleteVideo removes a video record. Reviews and suggestions cascade.
func (db *DB) DeleteVideo(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete video: %w", err)
		}
		if err := requireRows(res, "Video not found"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM comments WHERE commentable_type = 'video' AND commentable_id = $1`, id)
		return err
	})
}

// IncrementVideoCounter bumps one counter in a single UPDATE so concurrent
// increments are never lost. Views also stamp last_viewed_at.
func (db *DB) IncrementVideoCounter(ctx context.Context, id int64, counter models.VideoCounter) (*models.Video, error) {
	switch counter {
	case models.CounterViews, models.CounterDownloads, models.CounterShares:
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}

	set := fmt.Sprintf("%s = %s + 1", counter, counter)
	if counter == models.CounterViews {
		set += ", last_viewed_at = NOW()"
	}

	var v models.Video
	err := db.GetContext(ctx, &v,
		fmt.Sprintf(`UPDATE videos SET %s WHERE id = $1 RETURNING *`, set), id)
	if err != nil {
		return nil, notFound(err, "Video not found")
	}
	return &v, nil
}

// CompleteVideoProcessing moves a video from processing to ready, filling a
// missing thumbnail, merging metadata and optionally publishing it. It
// reports false when the video was no longer processing.
func (db *DB) CompleteVideoProcessing(ctx context.Context, id int64, thumbnail *string, metadata models.JSONMap, publish bool) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE videos
		SET status = 'ready',
			thumbnail_path = COALESCE(thumbnail_path, $2),
			metadata = metadata || $3::jsonb,
			published_at = CASE WHEN $4 THEN COALESCE(published_at, NOW()) ELSE published_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`,
		id, thumbnail, metadata, publish)
	if err != nil {
		return false, fmt.Errorf("failed to complete processing: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Reviews ---

// CreateReview inserts a review.
func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	query := `
		INSERT INTO video_reviews (video_id, reviewer_id, rating, decision, feedback)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if err := db.QueryRowContext(ctx, query,
		r.VideoID, r.ReviewerID, r.Rating, r.Decision, r.Feedback,
	).Scan(&r.ID, &r.CreatedAt); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ListReviewsByVideo returns a video's reviews, newest first.
func (db *DB) ListReviewsByVideo(ctx context.Context, videoID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := db.SelectContext(ctx, &reviews,
		`SELECT * FROM video_reviews WHERE video_id = $1 ORDER BY created_at DESC, id DESC`, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// ListReviewsByRequest returns reviews of every video linked to a request.
func (db *DB) ListReviewsByRequest(ctx context.Context, requestID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := db.SelectContext(ctx, &reviews, `
		SELECT r.* FROM video_reviews r
		JOIN videos v ON v.id = r.video_id
		WHERE v.content_request_id = $1
		ORDER BY r.created_at DESC, r.id DESC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list request reviews: %w", err)
	}
	return reviews, nil
}

// --- AI suggestions ---

// SaveAIReport stores generated suggestions and the video's quality fields
// in one transaction. IDs are written back into suggestions.
func (db *DB) SaveAIReport(ctx context.Context, v *models.Video, suggestions []models.AISuggestion) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO ai_suggestions (video_id, type, start_time, end_time, reason, confidence, text, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`
		for i := range suggestions {
			s := &suggestions[i]
			s.VideoID = v.ID
			if s.Status == "" {
				s.Status = models.SuggestionPending
			}
			if err := tx.QueryRowContext(ctx, query,
				s.VideoID, s.Type, s.StartTime, s.EndTime, s.Reason, s.Confidence, s.Text, s.Status,
			).Scan(&s.ID, &s.CreatedAt); err != nil {
				return fmt.Errorf("failed to save suggestion: %w", err)
			}
		}

		return tx.QueryRowContext(ctx, `
			UPDATE videos SET quality_score = $2, ai_processed = $3, metadata = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			v.ID, v.QualityScore, v.AIProcessed, v.Metadata,
		).Scan(&v.UpdatedAt)
	})
}

// ListSuggestions returns a video's AI suggestions in creation order.
func (db *DB) ListSuggestions(ctx context.Context, videoID int64) ([]models.AISuggestion, error) {
	var out []models.AISuggestion
	err := db.SelectContext(ctx, &out,
		`SELECT * FROM ai_suggestions WHERE video_id = $1 ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return out, nil
}

// GetSuggestion retrieves one suggestion.
func (db *DB) GetSuggestion(ctx context.Context, id int64) (*models.AISuggestion, error) {
	var s models.AISuggestion
	if err := db.GetContext(ctx, &s, `SELECT * FROM ai_suggestions WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "Suggestion not found")
	}
	return &s, nil
}

// UpdateSuggestionStatus sets a suggestion's status.
func (db *DB) UpdateSuggestionStatus(ctx context.Context, id int64, status models.SuggestionStatus) error {
	res, err := db.ExecContext(ctx, `UPDATE ai_suggestions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	return requireRows(res, "Suggestion not found")
}

// --- Comments ---

// CreateComment inserts a comment on any commentable entity.
func (db *DB) CreateComment(ctx context.Context, c *models.Comment) error {
	query := `
		INSERT INTO comments (commentable_type, commentable_id, user_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	if err := db.QueryRowContext(ctx, query,
		c.CommentableType, c.CommentableID, c.UserID, c.Body,
	).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments returns the comments on target, oldest first.
func (db *DB) ListComments(ctx context.Context, target models.Commentable) ([]models.Comment, error) {
	var out []models.Comment
	err := db.SelectContext(ctx, &out, `
		SELECT * FROM comments WHERE commentable_type = $1 AND commentable_id = $2
		ORDER BY created_at, id`, target.Type, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return out, nil
}
