// content_requests.go handles content requests and their invitees.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// CreateContentRequest inserts a request and its invitees in one transaction.
// IDs and timestamps are written back into r and invitees, and r.Invitees
// is set to the inserted rows.
func (db *DB) CreateContentRequest(ctx context.Context, r *models.ContentRequest, invitees []models.Invitee) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO content_requests (creator_id, title, description, type, deadline, status,
				branding, requirements, ai_editing_enabled, auto_publish, invite_token,
				completion_percentage, total_budget, used_budget)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id, created_at, updated_at`

		if err := tx.QueryRowContext(ctx, query,
			r.CreatorID, r.Title, r.Description, r.Type, r.Deadline, r.Status,
			r.Branding, r.Requirements, r.AIEditingEnabled, r.AutoPublish, r.InviteToken,
			r.CompletionPercentage, r.TotalBudget, r.UsedBudget,
		).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return fmt.Errorf("failed to create content request: %w", err)
		}

		inviteeQuery := `
			INSERT INTO content_request_invitees (content_request_id, email, name, role, status, invite_token)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`

		for i := range invitees {
			inv := &invitees[i]
			inv.ContentRequestID = r.ID
			if err := tx.QueryRowContext(ctx, inviteeQuery,
				inv.ContentRequestID, inv.Email, inv.Name, inv.Role, inv.Status, inv.InviteToken,
			).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
				if isUniqueViolation(err) {
					return apperr.Field(fmt.Sprintf("invitees.%d.email", i), "The invitee email has already been taken.")
				}
				return fmt.Errorf("failed to create invitee: %w", err)
			}
		}

		r.Invitees = invitees
		return nil
	})
}

// GetContentRequest retrieves a single content request by ID.
func (db *DB) GetContentRequest(ctx context.Context, id int64) (*models.ContentRequest, error) {
	var r models.ContentRequest
	err := db.GetContext(ctx, &r, `SELECT * FROM content_requests WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "Content request not found")
	}
	return &r, nil
}

// GetContentRequestByToken retrieves a request by its public invite token.
func (db *DB) GetContentRequestByToken(ctx context.Context, token string) (*models.ContentRequest, error) {
	var r models.ContentRequest
	err := db.GetContext(ctx, &r, `SELECT * FROM content_requests WHERE invite_token = $1`, token)
	if err != nil {
		return nil, notFound(err, "Content request not found")
	}
	return &r, nil
}

// ListContentRequests returns a creator's requests, newest first, with the
// total count for pagination.
func (db *DB) ListContentRequests(ctx context.Context, creatorID int64, params models.ContentRequestListParams) ([]models.ContentRequest, int, error) {
	params.Page, params.PerPage = models.NormalizePage(params.Page, params.PerPage)

	// Build WHERE clause dynamically
	conditions := []string{"creator_id = $1"}
	args := []interface{}{creatorID}
	argNum := 2

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}
	if params.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argNum))
		args = append(args, params.Type)
		argNum++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}
	if params.Overdue {
		conditions = append(conditions, "status = 'active' AND deadline IS NOT NULL AND deadline < NOW()")
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM content_requests "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM content_requests %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		whereClause, argNum, argNum+1,
	)
	args = append(args, params.PerPage, offset)

	var requests []models.ContentRequest
	if err := db.SelectContext(ctx, &requests, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}
	return requests, total, nil
}

// UpdateContentRequest writes the mutable fields of r. The completion
// percentage is owned by SubmitVideo and only forced to 100 when r is
// completed; the stored value is read back into r.
func (db *DB) UpdateContentRequest(ctx context.Context, r *models.ContentRequest) error {
	query := `
		UPDATE content_requests
		SET title = $2, description = $3, deadline = $4, status = $5, branding = $6,
			requirements = $7, used_budget = $8,
			completion_percentage = CASE WHEN $5 = 'completed' THEN 100 ELSE completion_percentage END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING completion_percentage, updated_at`

	err := db.QueryRowContext(ctx, query,
		r.ID, r.Title, r.Description, r.Deadline, r.Status, r.Branding,
		r.Requirements, r.UsedBudget,
	).Scan(&r.CompletionPercentage, &r.UpdatedAt)
	if err != nil {
		return notFound(err, "Content request not found")
	}
	return nil
}

// DeleteContentRequest removes a request. Invitees cascade; linked videos
// keep existing with content_request_id set to NULL.
func (db *DB) DeleteContentRequest(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM content_requests WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete content request: %w", err)
		}
		if err := requireRows(res, "Content request not found"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM comments WHERE commentable_type = 'content_request' AND commentable_id = $1`, id)
		return err
	})
}

// ListInvitees returns the invitees of a request in insertion order.
func (db *DB) ListInvitees(ctx context.Context, requestID int64) ([]models.Invitee, error) {
	var invitees []models.Invitee
	err := db.SelectContext(ctx, &invitees,
		`SELECT * FROM content_request_invitees WHERE content_request_id = $1 ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitees: %w", err)
	}
	return invitees, nil
}

// GetInviteeByToken finds the invitee of requestID holding token. A token
// belonging to another request is reported as not found.
func (db *DB) GetInviteeByToken(ctx context.Context, requestID int64, token string) (*models.Invitee, error) {
	var inv models.Invitee
	err := db.GetContext(ctx, &inv,
		`SELECT * FROM content_request_invitees WHERE content_request_id = $1 AND invite_token = $2`,
		requestID, token)
	if err != nil {
		return nil, notFound(err, "Invitee not found")
	}
	return &inv, nil
}

// SubmitVideo links a video to a request for one invitee and recomputes the
// request's completion percentage. The request row is locked for the whole
// transaction so concurrent submissions see each other's counts.
func (db *DB) SubmitVideo(ctx context.Context, s models.Submission) (float64, error) {
	var pct float64
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var status models.RequestStatus
		if err := tx.GetContext(ctx, &status,
			`SELECT status FROM content_requests WHERE id = $1 FOR UPDATE`, s.RequestID); err != nil {
			return notFound(err, "Content request not found")
		}
		if status != models.RequestStatusActive {
			return apperr.Field("content_request", "The content request is not accepting submissions.")
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE content_request_invitees
			SET status = 'submitted', submitted_video_id = $3, submitted_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND content_request_id = $2 AND status = 'pending'`,
			s.InviteeID, s.RequestID, s.VideoID)
		if err != nil {
			return fmt.Errorf("failed to update invitee: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("This invitation has already been used to submit a video")
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE videos SET content_request_id = $2, status = 'submitted', updated_at = NOW()
			WHERE id = $1 AND status IN ('draft', 'ready')
				AND (content_request_id IS NULL OR content_request_id = $2)`, s.VideoID, s.RequestID)
		if err != nil {
			return fmt.Errorf("failed to link video: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Field("video_id", "The video cannot be submitted to this content request.")
		}

		var counts struct {
			Total     int `db:"total"`
			Submitted int `db:"submitted"`
		}
		if err := tx.GetContext(ctx, &counts, `
			SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'submitted') AS submitted
			FROM content_request_invitees WHERE content_request_id = $1`, s.RequestID); err != nil {
			return fmt.Errorf("failed to count invitees: %w", err)
		}

		pct = models.CompletionPercentage(counts.Submitted, counts.Total)
		_, err = tx.ExecContext(ctx,
			`UPDATE content_requests SET completion_percentage = $2, updated_at = NOW() WHERE id = $1`,
			s.RequestID, pct)
		return err
	})
	return pct, err
}

// GetUsersByIDs loads users for eager loading, keyed by ID.
func (db *DB) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	out := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.SelectContext(ctx, &users, `SELECT * FROM users WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}
