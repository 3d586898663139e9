package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists usage records in the usage_records table,
// one row per user.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open sqlx handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID int64) (UsageRecord, bool, error) {
	var rec UsageRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT user_id, day, used FROM usage_records WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageRecord{}, false, nil
	}
	if err != nil {
		return UsageRecord{}, false, fmt.Errorf("select usage record: %w", err)
	}
	return rec, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec UsageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (user_id, day, used)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET day = EXCLUDED.day, used = EXCLUDED.used`,
		rec.UserID, rec.Day, rec.Used)
	if err != nil {
		return fmt.Errorf("upsert usage record: %w", err)
	}
	return nil
}
