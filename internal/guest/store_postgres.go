// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package guest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taibuivan/fabula/internal/platform/database/schema"
)

// # PostgreSQL Repository

// guestRepository implements the [Repository] interface using pgx.
type guestRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed guest reading log store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &guestRepository{pool: pool}
}

// HasRead reports whether a log row exists for the pair in the window.
func (repository *guestRepository) HasRead(context context.Context, guestID, storyID string, since time.Time) (bool, error) {

	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2 AND %s >= $3)",
		schema.CoreGuestReadingLog.Table,
		schema.CoreGuestReadingLog.GuestID,
		schema.CoreGuestReadingLog.StoryID,
		schema.CoreGuestReadingLog.ReadAt,
	)

	var exists bool
	if err := repository.pool.QueryRow(context, query, guestID, storyID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: failed to check guest reading log: %w", err)
	}

	return exists, nil
}

// CountDistinctSince counts the distinct stories a guest opened in the window.
func (repository *guestRepository) CountDistinctSince(context context.Context, guestID string, since time.Time) (int, error) {

	query := fmt.Sprintf(
		"SELECT COUNT(DISTINCT %s) FROM %s WHERE %s = $1 AND %s >= $2",
		schema.CoreGuestReadingLog.StoryID,
		schema.CoreGuestReadingLog.Table,
		schema.CoreGuestReadingLog.GuestID,
		schema.CoreGuestReadingLog.ReadAt,
	)

	var count int
	if err := repository.pool.QueryRow(context, query, guestID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count guest readings: %w", err)
	}

	return count, nil
}

// Record appends a reading log row stamped with the database clock.
func (repository *guestRepository) Record(context context.Context, guestID, storyID string) error {

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, NOW())",
		schema.CoreGuestReadingLog.Table,
		schema.CoreGuestReadingLog.GuestID,
		schema.CoreGuestReadingLog.StoryID,
		schema.CoreGuestReadingLog.ReadAt,
	)

	if _, err := repository.pool.Exec(context, query, guestID, storyID); err != nil {
		return fmt.Errorf("postgres: failed to record guest reading: %w", err)
	}

	return nil
}
