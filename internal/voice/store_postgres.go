// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package voice

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

// voiceRepository implements the [Repository] interface using pgx.
type voiceRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed voice store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &voiceRepository{pool: pool}
}

// FindByID retrieves one voice sample row.
func (repository *voiceRepository) FindByID(context context.Context, id string) (*Voice, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.CoreUserVoice.ID,
		schema.CoreUserVoice.UserID,
		schema.CoreUserVoice.Name,
		schema.CoreUserVoice.FilePath,
		schema.CoreUserVoice.Provider,
		schema.CoreUserVoice.CreatedAt,
		schema.CoreUserVoice.Table,
		schema.CoreUserVoice.ID,
	)

	voice := &Voice{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&voice.ID,
		&voice.UserID,
		&voice.Name,
		&voice.FilePath,
		&voice.Provider,
		&voice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("voice")
		}
		return nil, fmt.Errorf("postgres: failed to find voice by id: %w", err)
	}

	return voice, nil
}

// ListByUser retrieves a user's voice samples, newest first.
func (repository *voiceRepository) ListByUser(context context.Context, userID string) ([]*Voice, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC
	`,
		schema.CoreUserVoice.ID,
		schema.CoreUserVoice.UserID,
		schema.CoreUserVoice.Name,
		schema.CoreUserVoice.FilePath,
		schema.CoreUserVoice.Provider,
		schema.CoreUserVoice.CreatedAt,
		schema.CoreUserVoice.Table,
		schema.CoreUserVoice.UserID,
		schema.CoreUserVoice.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list voices: %w", err)
	}
	defer rows.Close()

	var voices []*Voice
	for rows.Next() {
		voice := &Voice{}
		err := rows.Scan(
			&voice.ID,
			&voice.UserID,
			&voice.Name,
			&voice.FilePath,
			&voice.Provider,
			&voice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan voice: %w", err)
		}
		voices = append(voices, voice)
	}

	return voices, nil
}

// Create persists a new voice sample row.
func (repository *voiceRepository) Create(context context.Context, voice *Voice) error {

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`,
		schema.CoreUserVoice.Table,
		schema.CoreUserVoice.ID,
		schema.CoreUserVoice.UserID,
		schema.CoreUserVoice.Name,
		schema.CoreUserVoice.FilePath,
		schema.CoreUserVoice.Provider,
		schema.CoreUserVoice.CreatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		voice.ID,
		voice.UserID,
		voice.Name,
		voice.FilePath,
		voice.Provider,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create voice: %w", err)
	}

	return nil
}

// Delete removes a voice sample row.
func (repository *voiceRepository) Delete(context context.Context, id string) error {

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", schema.CoreUserVoice.Table, schema.CoreUserVoice.ID)

	result, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete voice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("voice")
	}

	return nil
}
