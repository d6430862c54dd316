// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/platform/database/schema"
)

// # PostgreSQL Repository

// historyRepository implements the [Repository] interface using pgx.
type historyRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed progress store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &historyRepository{pool: pool}
}

// Upsert inserts or replaces a position row, accumulating reading time.
func (repository *historyRepository) Upsert(context context.Context, progress *Progress) error {

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = %s.%s + EXCLUDED.%s,
			%s = NOW()
	`,
		schema.LibraryReadingProgress.Table,
		schema.LibraryReadingProgress.UserID,
		schema.LibraryReadingProgress.StoryID,
		schema.LibraryReadingProgress.StyleName,
		schema.LibraryReadingProgress.CurrentPage,
		schema.LibraryReadingProgress.DurationSeconds,
		schema.LibraryReadingProgress.UpdatedAt,
		schema.LibraryReadingProgress.UserID,
		schema.LibraryReadingProgress.StoryID,
		schema.LibraryReadingProgress.StyleName,
		schema.LibraryReadingProgress.StyleName,
		schema.LibraryReadingProgress.CurrentPage,
		schema.LibraryReadingProgress.CurrentPage,
		schema.LibraryReadingProgress.DurationSeconds,
		schema.LibraryReadingProgress.Table,
		schema.LibraryReadingProgress.DurationSeconds,
		schema.LibraryReadingProgress.DurationSeconds,
		schema.LibraryReadingProgress.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		progress.UserID,
		progress.StoryID,
		progress.StyleName,
		progress.CurrentPage,
		progress.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert reading progress: %w", err)
	}

	return nil
}

// ListByUser returns a user's progress rows, most recently read first.
func (repository *historyRepository) ListByUser(context context.Context, userID string, limit int) ([]*Progress, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC
		LIMIT $2
	`,
		schema.LibraryReadingProgress.UserID,
		schema.LibraryReadingProgress.StoryID,
		schema.LibraryReadingProgress.StyleName,
		schema.LibraryReadingProgress.CurrentPage,
		schema.LibraryReadingProgress.DurationSeconds,
		schema.LibraryReadingProgress.UpdatedAt,
		schema.LibraryReadingProgress.Table,
		schema.LibraryReadingProgress.UserID,
		schema.LibraryReadingProgress.UpdatedAt,
	)

	rows, err := repository.pool.Query(context, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list reading progress: %w", err)
	}
	defer rows.Close()

	var items []*Progress
	for rows.Next() {
		progress := &Progress{}
		err := rows.Scan(
			&progress.UserID,
			&progress.StoryID,
			&progress.StyleName,
			&progress.CurrentPage,
			&progress.DurationSeconds,
			&progress.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan reading progress: %w", err)
		}
		items = append(items, progress)
	}

	return items, nil
}

// Find returns a user's position in one story.
func (repository *historyRepository) Find(context context.Context, userID, storyID string) (*Progress, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
	`,
		schema.LibraryReadingProgress.UserID,
		schema.LibraryReadingProgress.StoryID,
		schema.LibraryReadingProgress.StyleName,
		schema.LibraryReadingProgress.CurrentPage,
		schema.LibraryReadingProgress.DurationSeconds,
		schema.LibraryReadingProgress.UpdatedAt,
		schema.LibraryReadingProgress.Table,
		schema.LibraryReadingProgress.UserID,
		schema.LibraryReadingProgress.StoryID,
	)

	progress := &Progress{}
	err := repository.pool.QueryRow(context, query, userID, storyID).Scan(
		&progress.UserID,
		&progress.StoryID,
		&progress.StyleName,
		&progress.CurrentPage,
		&progress.DurationSeconds,
		&progress.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("reading progress")
		}
		return nil, fmt.Errorf("postgres: failed to find reading progress: %w", err)
	}

	return progress, nil
}
