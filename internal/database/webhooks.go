// webhooks.go handles user webhooks and their delivery log.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

const webhookColumns = `id, user_id, url, events, secret, active, created_at`

// scanWebhook reads one webhook row. Events is a TEXT[] column, so it goes
// through pq.Array instead of sqlx struct scanning.
func scanWebhook(row interface{ Scan(...any) error }) (models.Webhook, error) {
	var w models.Webhook
	err := row.Scan(&w.ID, &w.UserID, &w.URL, pq.Array(&w.Events), &w.Secret, &w.Active, &w.CreatedAt)
	return w, err
}

func scanWebhooks(rows *sql.Rows) ([]models.Webhook, error) {
	defer rows.Close()
	var webhooks []models.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// CreateWebhook inserts a new webhook record.
func (db *DB) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	query := `
		INSERT INTO webhooks (user_id, url, events, secret, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	if err := db.QueryRowContext(ctx, query,
		w.UserID, w.URL, pq.Array(w.Events), w.Secret, w.Active,
	).Scan(&w.ID, &w.CreatedAt); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

// GetWebhook retrieves a single webhook by ID.
func (db *DB) GetWebhook(ctx context.Context, id int64) (*models.Webhook, error) {
	w, err := scanWebhook(db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "Webhook not found")
	}
	return &w, nil
}

// ListWebhooks returns all webhooks of a user.
func (db *DB) ListWebhooks(ctx context.Context, userID int64) ([]models.Webhook, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return scanWebhooks(rows)
}

// UpdateWebhook writes url, events and active.
func (db *DB) UpdateWebhook(ctx context.Context, w *models.Webhook) error {
	res, err := db.ExecContext(ctx,
		`UPDATE webhooks SET url = $2, events = $3, active = $4 WHERE id = $1`,
		w.ID, w.URL, pq.Array(w.Events), w.Active)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return requireRows(res, "Webhook not found")
}

// DeleteWebhook removes a webhook by ID. Deliveries cascade.
func (db *DB) DeleteWebhook(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return requireRows(res, "Webhook not found")
}

// GetActiveWebhooksForEvent returns a user's active webhooks subscribed to event.
func (db *DB) GetActiveWebhooksForEvent(ctx context.Context, userID int64, event string) ([]models.Webhook, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE user_id = $1 AND active = true AND $2 = ANY(events)`,
		userID, event)
	if err != nil {
		return nil, fmt.Errorf("failed to get webhooks for event: %w", err)
	}
	return scanWebhooks(rows)
}

// CreateWebhookDelivery inserts a new webhook delivery record.
func (db *DB) CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (webhook_id, event, payload, status, attempts, last_error, response_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		d.WebhookID, d.Event, d.Payload, d.Status, d.Attempts, d.LastError, d.ResponseCode,
	).Scan(&d.ID, &d.CreatedAt)
}

// UpdateWebhookDelivery updates a delivery record after an attempt.
func (db *DB) UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $2, attempts = $3, last_error = $4, response_code = $5, delivered_at = $6
		WHERE id = $1`

	_, err := db.ExecContext(ctx, query,
		d.ID, d.Status, d.Attempts, d.LastError, d.ResponseCode, d.DeliveredAt,
	)
	return err
}

// ListWebhookDeliveries returns recent deliveries across a user's webhooks.
func (db *DB) ListWebhookDeliveries(ctx context.Context, userID int64, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var deliveries []models.WebhookDelivery
	err := db.SelectContext(ctx, &deliveries,
		`SELECT wd.* FROM webhook_deliveries wd
		 JOIN webhooks w ON w.id = wd.webhook_id
		 WHERE w.user_id = $1
		 ORDER BY wd.created_at DESC, wd.id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return deliveries, nil
}
