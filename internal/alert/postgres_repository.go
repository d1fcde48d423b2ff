package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanairpk/cleanair/internal/airquality"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const insertAlertQuery = `
	INSERT INTO alerts (
		id, user_id, city, city_key, kind, message, aqi_level, is_read, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Insert stores a single alert.
func (r *PostgresRepository) Insert(ctx context.Context, a *Alert) error {
	_, err := r.pool.Exec(ctx, insertAlertQuery, insertArgs(a)...)
	return err
}

// InsertBatch stores all alerts in one transaction.
func (r *PostgresRepository) InsertBatch(ctx context.Context, alerts []*Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, a := range alerts {
		batch.Queue(insertAlertQuery, insertArgs(a)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert alerts: %w", err)
	}

	return tx.Commit(ctx)
}

func insertArgs(a *Alert) []interface{} {
	return []interface{}{
		a.ID,
		a.UserID,
		a.City,
		airquality.NormalizeCity(a.City),
		string(a.Kind),
		a.Message,
		a.AQILevel,
		a.IsRead,
		a.CreatedAt,
	}
}

// HasRecentForCity reports whether the user has an alert for city created at or after since.
func (r *PostgresRepository) HasRecentForCity(ctx context.Context, userID, city string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE user_id = $1 AND city_key = $2 AND created_at >= $3
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, airquality.NormalizeCity(city), since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// List returns a user's alerts newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, limit int) ([]*Alert, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, user_id, city, kind, message, aqi_level, is_read, created_at
		FROM alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var (
			a    Alert
			kind string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.City, &kind, &a.Message, &a.AQILevel, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = Kind(kind)
		alerts = append(alerts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

// CountUnread returns the number of unread alerts for a user.
func (r *PostgresRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

// MarkRead marks one alert read.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, alertID string) error {
	var id string
	err := r.pool.QueryRow(ctx,
		`UPDATE alerts SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING id`,
		alertID, userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlertNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead marks every unread alert of a user read.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE alerts SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
