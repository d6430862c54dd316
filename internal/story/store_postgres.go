/*
Package story implements the PostgreSQL backed Story Record Store.

Stories, their pages, and their style variants live in separate tables but
are always mutated through this repository so the invariants hold:
  - A PUBLISHED story always carries a contiguous 1..k page set.
  - Content replacement is transactional; readers never observe a story
    with zero pages mid-sync.
  - Page rows belong to exactly one story and are replaced wholesale, never
    merged.
*/
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/platform/database/schema"
)

// # PostgreSQL Repository

// storyRepository implements the [Repository] interface using pgx.
type storyRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed story store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &storyRepository{pool: pool}
}

// # Story Repository Implementation

/*
FindByID retrieves a story record by its primary key.

Parameters:
  - context: context.Context for request scoping and cancellation
  - id: string representing the generation-assigned story ID

Returns:
  - *Story: The hydrated story entity
  - error: apperr.NotFound if the story does not exist
*/
func (repository *storyRepository) FindByID(context context.Context, id string) (*Story, error) {

	// Single-row lookup over the story table
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.CoreStory.ID,
		schema.CoreStory.UserID,
		schema.CoreStory.TitleZh,
		schema.CoreStory.TitleEn,
		schema.CoreStory.Status,
		schema.CoreStory.AudioStatus,
		schema.CoreStory.GenerationPrompt,
		schema.CoreStory.SelectedStyleID,
		schema.CoreStory.CustomVoiceID,
		schema.CoreStory.ErrorMessage,
		schema.CoreStory.Description,
		schema.CoreStory.CreatedAt,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.Table,
		schema.CoreStory.ID,
	)

	story := &Story{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&story.ID,
		&story.UserID,
		&story.TitleZh,
		&story.TitleEn,
		&story.Status,
		&story.AudioStatus,
		&story.GenerationPrompt,
		&story.SelectedStyleID,
		&story.CustomVoiceID,
		&story.ErrorMessage,
		&story.Description,
		&story.CreatedAt,
		&story.UpdatedAt,
	)

	// Map the empty result set onto the domain 404
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("story")
		}
		return nil, fmt.Errorf("postgres: failed to find story by id: %w", err)
	}

	return story, nil
}

/*
List returns a filtered, paginated slice of stories and the total count.

Description: Uses COUNT(*) OVER() so the total matching count comes back on
every row without a second query. Filters are appended dynamically so the
same query serves the public listing, a user's own library, and the status
views of the admin surface.

Parameters:
  - context: context.Context
  - filter: ListFilter (owner, status, keyword)
  - limit: int
  - offset: int

Returns:
  - []*Story: Slice of hydrated story entities, newest first
  - int: Total count matching filters
  - error: Database execution errors
*/
func (repository *storyRepository) List(context context.Context, filter ListFilter, limit, offset int) ([]*Story, int, error) {

	// Query build initialization
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	// Window function carries the total count alongside each row
	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s,
			COUNT(*) OVER() AS total_count
		FROM %s
		WHERE 1=1
	`,
		schema.CoreStory.ID,
		schema.CoreStory.UserID,
		schema.CoreStory.TitleZh,
		schema.CoreStory.TitleEn,
		schema.CoreStory.Status,
		schema.CoreStory.AudioStatus,
		schema.CoreStory.GenerationPrompt,
		schema.CoreStory.SelectedStyleID,
		schema.CoreStory.CustomVoiceID,
		schema.CoreStory.ErrorMessage,
		schema.CoreStory.Description,
		schema.CoreStory.CreatedAt,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.Table,
	))

	// Owner Filtering
	if filter.UserID != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.CoreStory.UserID, argID))
		args = append(args, *filter.UserID)
		argID++
	}

	// Status Filtering
	if filter.Status != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.CoreStory.Status, argID))
		args = append(args, string(*filter.Status))
		argID++
	}

	// Keyword Filtering over both title languages
	if filter.Keyword != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (%s ILIKE $%d OR %s ILIKE $%d)", schema.CoreStory.TitleZh, argID, schema.CoreStory.TitleEn, argID))
		args = append(args, "%"+filter.Keyword+"%")
		argID++
	}

	// Newest stories first, ID as the tiebreaker for a stable order
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s DESC, %s DESC", schema.CoreStory.CreatedAt, schema.CoreStory.ID))

	// Pagination injection
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	// Query Execution
	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []*Story
	var totalCount int

	// Iterate over rows
	for rows.Next() {
		story := &Story{}
		err := rows.Scan(
			&story.ID,
			&story.UserID,
			&story.TitleZh,
			&story.TitleEn,
			&story.Status,
			&story.AudioStatus,
			&story.GenerationPrompt,
			&story.SelectedStyleID,
			&story.CustomVoiceID,
			&story.ErrorMessage,
			&story.Description,
			&story.CreatedAt,
			&story.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}

	return stories, totalCount, nil
}

/*
Create persists a new story row.

Parameters:
  - context: context.Context
  - story: *Story (ID, owner, titles, status, and prompt already populated)

Returns:
  - error: Database execution errors
*/
func (repository *storyRepository) Create(context context.Context, story *Story) error {

	// Insertion blueprint for the root story entity
	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`,
		schema.CoreStory.Table,
		schema.CoreStory.ID,
		schema.CoreStory.UserID,
		schema.CoreStory.TitleZh,
		schema.CoreStory.TitleEn,
		schema.CoreStory.Status,
		schema.CoreStory.AudioStatus,
		schema.CoreStory.GenerationPrompt,
		schema.CoreStory.SelectedStyleID,
		schema.CoreStory.CustomVoiceID,
		schema.CoreStory.ErrorMessage,
		schema.CoreStory.Description,
		schema.CoreStory.CreatedAt,
		schema.CoreStory.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		story.ID,
		story.UserID,
		story.TitleZh,
		story.TitleEn,
		string(story.Status),
		story.AudioStatus,
		story.GenerationPrompt,
		story.SelectedStyleID,
		story.CustomVoiceID,
		story.ErrorMessage,
		story.Description,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create story: %w", err)
	}

	return nil
}

/*
SetStatus updates the primary lifecycle status and the stored error message.

Description: The primary status and the audio status are independent fields;
this method never touches audiostatus so a redub outcome and a generation
outcome cannot clobber each other.

Parameters:
  - context: context.Context
  - id: string
  - status: Status (target lifecycle state)
  - errorMessage: *string (nil clears any prior error)

Returns:
  - error: apperr.NotFound if the story does not exist
*/
func (repository *storyRepository) SetStatus(context context.Context, id string, status Status, errorMessage *string) error {

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = $2, %s = NOW() WHERE %s = $3",
		schema.CoreStory.Table,
		schema.CoreStory.Status,
		schema.CoreStory.ErrorMessage,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.ID,
	)

	result, err := repository.pool.Exec(context, query, string(status), errorMessage, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to set story status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("story")
	}

	return nil
}

/*
SetAudioStatus updates the secondary audio pipeline status.

Parameters:
  - context: context.Context
  - id: string
  - status: Status
  - errorMessage: *string

Returns:
  - error: apperr.NotFound if the story does not exist
*/
func (repository *storyRepository) SetAudioStatus(context context.Context, id string, status Status, errorMessage *string) error {

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = $2, %s = NOW() WHERE %s = $3",
		schema.CoreStory.Table,
		schema.CoreStory.AudioStatus,
		schema.CoreStory.ErrorMessage,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.ID,
	)

	result, err := repository.pool.Exec(context, query, string(status), errorMessage, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to set story audio status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("story")
	}

	return nil
}

/*
SetCustomVoice records the voice asset selected for a redub request.

Parameters:
  - context: context.Context
  - id: string
  - voiceID: string

Returns:
  - error: apperr.NotFound if the story does not exist
*/
func (repository *storyRepository) SetCustomVoice(context context.Context, id string, voiceID string) error {

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2",
		schema.CoreStory.Table,
		schema.CoreStory.CustomVoiceID,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.ID,
	)

	result, err := repository.pool.Exec(context, query, voiceID, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to set custom voice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("story")
	}

	return nil
}

/*
AdoptStyle records the resolved style for a story with no explicit selection.

Parameters:
  - context: context.Context
  - id: string
  - styleID: string

Returns:
  - error: apperr.NotFound if the story does not exist
*/
func (repository *storyRepository) AdoptStyle(context context.Context, id string, styleID string) error {

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2",
		schema.CoreStory.Table,
		schema.CoreStory.SelectedStyleID,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.ID,
	)

	result, err := repository.pool.Exec(context, query, styleID, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to adopt style: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("story")
	}

	return nil
}

/*
CountCreatedSince counts a user's stories created at or after the instant.

Description: The daily creation quota is derived from timestamped rows on
every check instead of a maintained counter, so a failed story still counts
against the day it was attempted and the window resets itself at midnight
without a scheduled job.

Parameters:
  - context: context.Context
  - userID: string
  - since: time.Time (start of the current day in server local time)

Returns:
  - int: Number of stories created in the window
  - error: Database execution errors
*/
func (repository *storyRepository) CountCreatedSince(context context.Context, userID string, since time.Time) (int, error) {

	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s = $1 AND %s >= $2",
		schema.CoreStory.Table,
		schema.CoreStory.UserID,
		schema.CoreStory.CreatedAt,
	)

	var count int
	if err := repository.pool.QueryRow(context, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count stories since: %w", err)
	}

	return count, nil
}

/*
ListPages returns all pages for a story ordered by page number.

Parameters:
  - context: context.Context
  - storyID: string

Returns:
  - []*Page: Ordered page set
  - error: Database execution errors
*/
func (repository *storyRepository) ListPages(context context.Context, storyID string) ([]*Page, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.CoreStoryPage.PageNumber,
		schema.CoreStoryPage.TextZh,
		schema.CoreStoryPage.TextEn,
		schema.CoreStoryPage.ImageURL,
		schema.CoreStoryPage.AudioURLZh,
		schema.CoreStoryPage.AudioURLEn,
		schema.CoreStoryPage.CustomAudioURLZh,
		schema.CoreStoryPage.CustomAudioURLEn,
		schema.CoreStoryPage.Table,
		schema.CoreStoryPage.StoryID,
		schema.CoreStoryPage.PageNumber,
	)

	rows, err := repository.pool.Query(context, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list story pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page := &Page{}
		err := rows.Scan(
			&page.PageNumber,
			&page.TextZh,
			&page.TextEn,
			&page.ImageURL,
			&page.AudioURLZh,
			&page.AudioURLEn,
			&page.CustomAudioURLZh,
			&page.CustomAudioURLEn,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan story page: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, nil
}

/*
ListStyles returns all style rows for a story.

Parameters:
  - context: context.Context
  - storyID: string

Returns:
  - []*Style: Style variants
  - error: Database execution errors
*/
func (repository *storyRepository) ListStyles(context context.Context, storyID string) ([]*Style, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.CoreStoryStyle.Name,
		schema.CoreStoryStyle.NameEn,
		schema.CoreStoryStyle.CoverImage,
		schema.CoreStoryStyle.Table,
		schema.CoreStoryStyle.StoryID,
		schema.CoreStoryStyle.Name,
	)

	rows, err := repository.pool.Query(context, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list story styles: %w", err)
	}
	defer rows.Close()

	var styles []*Style
	for rows.Next() {
		style := &Style{}
		if err := rows.Scan(&style.Name, &style.NameEn, &style.CoverImage); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan story style: %w", err)
		}
		styles = append(styles, style)
	}

	return styles, nil
}

/*
ReplaceContent atomically rewrites a story's servable content.

Description: Runs inside a single ACID transaction: the story's titles,
description, and PUBLISHED status are updated, its existing pages are
deleted and the new set batch-inserted, and its style row is replaced.
Re-running the same reconciliation converges on the same row state, which
is what makes the sync engine idempotent.

Parameters:
  - context: context.Context
  - story: *Story (titles, description, and target status already set)
  - pages: []*Page (the complete replacement page set)
  - style: *Style (the single resolved style row, may be nil)

Returns:
  - error: Nothing is committed on error
*/
func (repository *storyRepository) ReplaceContent(context context.Context, story *Story, pages []*Page, style *Style) error {

	// Transaction boundary so readers never see a half-replaced story
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin replace transaction: %w", err)
	}
	defer transaction.Rollback(context)

	// Story field update
	updateQuery := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $4, %s = NULL, %s = NOW() WHERE %s = $5",
		schema.CoreStory.Table,
		schema.CoreStory.TitleZh,
		schema.CoreStory.TitleEn,
		schema.CoreStory.Description,
		schema.CoreStory.Status,
		schema.CoreStory.ErrorMessage,
		schema.CoreStory.UpdatedAt,
		schema.CoreStory.ID,
	)
	result, err := transaction.Exec(context, updateQuery,
		story.TitleZh,
		story.TitleEn,
		story.Description,
		string(story.Status),
		story.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update story content: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("story")
	}

	// Full page replace: delete then batch insert
	deletePagesQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", schema.CoreStoryPage.Table, schema.CoreStoryPage.StoryID)
	if _, err := transaction.Exec(context, deletePagesQuery, story.ID); err != nil {
		return fmt.Errorf("postgres: failed to clear story pages: %w", err)
	}

	if len(pages) > 0 {
		insertPageQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			schema.CoreStoryPage.Table,
			schema.CoreStoryPage.StoryID,
			schema.CoreStoryPage.PageNumber,
			schema.CoreStoryPage.TextZh,
			schema.CoreStoryPage.TextEn,
			schema.CoreStoryPage.ImageURL,
			schema.CoreStoryPage.AudioURLZh,
			schema.CoreStoryPage.AudioURLEn,
			schema.CoreStoryPage.CustomAudioURLZh,
			schema.CoreStoryPage.CustomAudioURLEn,
		)
		batch := &pgx.Batch{}
		for _, page := range pages {
			batch.Queue(insertPageQuery,
				story.ID,
				page.PageNumber,
				page.TextZh,
				page.TextEn,
				page.ImageURL,
				page.AudioURLZh,
				page.AudioURLEn,
				page.CustomAudioURLZh,
				page.CustomAudioURLEn,
			)
		}
		if err := transaction.SendBatch(context, batch).Close(); err != nil {
			return fmt.Errorf("postgres: failed to batch insert story pages: %w", err)
		}
	}

	// Style replace
	deleteStyleQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", schema.CoreStoryStyle.Table, schema.CoreStoryStyle.StoryID)
	if _, err := transaction.Exec(context, deleteStyleQuery, story.ID); err != nil {
		return fmt.Errorf("postgres: failed to clear story styles: %w", err)
	}
	if style != nil {
		insertStyleQuery := fmt.Sprintf(
			"INSERT INTO %s (%s, %s, %s, %s) VALUES ($1, $2, $3, $4)",
			schema.CoreStoryStyle.Table,
			schema.CoreStoryStyle.StoryID,
			schema.CoreStoryStyle.Name,
			schema.CoreStoryStyle.NameEn,
			schema.CoreStoryStyle.CoverImage,
		)
		if _, err := transaction.Exec(context, insertStyleQuery, story.ID, style.Name, style.NameEn, style.CoverImage); err != nil {
			return fmt.Errorf("postgres: failed to insert story style: %w", err)
		}
	}

	// Commit the full content swap
	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit replace transaction: %w", err)
	}

	return nil
}

/*
UpdatePageCustomAudio sets the custom narration URLs on one page in place.

Description: Custom audio sync touches only the two custom URL columns of
an existing page; pages are never replaced on this path, so a redub cannot
disturb published text or imagery.

Parameters:
  - context: context.Context
  - storyID: string
  - pageNumber: int
  - audioURLZh: *string
  - audioURLEn: *string

Returns:
  - error: Database execution errors
*/
func (repository *storyRepository) UpdatePageCustomAudio(context context.Context, storyID string, pageNumber int, audioURLZh, audioURLEn *string) error {

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3 AND %s = $4",
		schema.CoreStoryPage.Table,
		schema.CoreStoryPage.CustomAudioURLZh,
		schema.CoreStoryPage.CustomAudioURLEn,
		schema.CoreStoryPage.StoryID,
		schema.CoreStoryPage.PageNumber,
	)

	if _, err := repository.pool.Exec(context, query, audioURLZh, audioURLEn, storyID, pageNumber); err != nil {
		return fmt.Errorf("postgres: failed to update page custom audio: %w", err)
	}

	return nil
}
