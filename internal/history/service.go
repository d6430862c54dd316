// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package history

import (
	"context"
	"log/slog"

	"github.com/taibuivan/fabula/internal/platform/validate"
)

// recentShelfLimit bounds the "continue reading" listing.
const recentShelfLimit = 50

// # Service Layer

// Service records and serves reading positions.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a history [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

/*
Report upserts the caller's position in a story.

Parameters:
  - context: context.Context
  - progress: *Progress (UserID already bound to the caller)

Returns:
  - error: Validation or storage failures
*/
func (service *Service) Report(context context.Context, progress *Progress) error {

	validator := &validate.Validator{}
	validator.Required("storyId", progress.StoryID)
	validator.Custom("currentPage", progress.CurrentPage < 1, "must be at least 1")
	validator.Custom("durationSeconds", progress.DurationSeconds < 0, "must not be negative")
	if err := validator.Err(); err != nil {
		return err
	}

	return service.repo.Upsert(context, progress)
}

/*
Recent returns the caller's most recently read stories.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Progress: Positions ordered by last activity
  - error: Storage failures
*/
func (service *Service) Recent(context context.Context, userID string) ([]*Progress, error) {
	return service.repo.ListByUser(context, userID, recentShelfLimit)
}

/*
Position returns the caller's position in one story.

Parameters:
  - context: context.Context
  - userID: string
  - storyID: string

Returns:
  - *Progress: The position row
  - error: apperr.NotFound if never read
*/
func (service *Service) Position(context context.Context, userID, storyID string) (*Progress, error) {
	return service.repo.Find(context, userID, storyID)
}
