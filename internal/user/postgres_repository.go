package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanairpk/cleanair/internal/risk"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL profile repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a profile by user ID.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT
			user_id, age, has_chronic_conditions, is_smoker, daily_outdoor_hours,
			risk_score, risk_category, risk_advice, alert_threshold,
			created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var (
		p        Profile
		category string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Age,
		&p.HasChronicConditions,
		&p.IsSmoker,
		&p.DailyOutdoorHours,
		&p.Risk.Score,
		&category,
		&p.Risk.Advice,
		&p.AlertThreshold,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.Risk.Category = risk.Category(category)

	return &p, nil
}

// Upsert creates a profile if it doesn't exist, or replaces it if it does.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, age, has_chronic_conditions, is_smoker, daily_outdoor_hours,
			risk_score, risk_category, risk_advice, alert_threshold,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			age = EXCLUDED.age,
			has_chronic_conditions = EXCLUDED.has_chronic_conditions,
			is_smoker = EXCLUDED.is_smoker,
			daily_outdoor_hours = EXCLUDED.daily_outdoor_hours,
			risk_score = EXCLUDED.risk_score,
			risk_category = EXCLUDED.risk_category,
			risk_advice = EXCLUDED.risk_advice,
			alert_threshold = EXCLUDED.alert_threshold,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		p.UserID,
		p.Age,
		p.HasChronicConditions,
		p.IsSmoker,
		p.DailyOutdoorHours,
		p.Risk.Score,
		string(p.Risk.Category),
		p.Risk.Advice,
		p.AlertThreshold,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// ListWithThreshold returns every user with a threshold.
func (r *PostgresRepository) ListWithThreshold(ctx context.Context) ([]ThresholdEntry, error) {
	query := `
		SELECT user_id, alert_threshold
		FROM user_profiles
		WHERE alert_threshold IS NOT NULL
		ORDER BY user_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ThresholdEntry
	for rows.Next() {
		var e ThresholdEntry
		if err := rows.Scan(&e.UserID, &e.Threshold); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete deletes a profile.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
