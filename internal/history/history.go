// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package history tracks where an authenticated reader left off in a story.

Progress is one row per user and story, upserted on every report from the
client. It powers the "continue reading" shelf and a coarse reading-time
figure; it is not an analytics event stream.
*/
package history

import (
	"context"
	"time"
)

// # Entities

// Progress is a user's reading position in one story.
type Progress struct {
	UserID          string    `json:"-"`
	StoryID         string    `json:"storyId"`
	StyleName       string    `json:"styleName,omitempty"`
	CurrentPage     int       `json:"currentPage"`
	DurationSeconds int       `json:"durationSeconds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// # Data Access

// Repository is the persistence contract for reading progress.
type Repository interface {

	/*
		Upsert inserts or replaces the user's position in a story. Reported
		reading time accumulates onto the existing row.

		Parameters:
		  - context: context.Context
		  - progress: *Progress

		Returns:
		  - error: Storage failures
	*/
	Upsert(context context.Context, progress *Progress) error

	/*
		ListByUser returns the user's progress rows, most recently read
		first.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - limit: int

		Returns:
		  - []*Progress: Recent positions
		  - error: Storage failures
	*/
	ListByUser(context context.Context, userID string, limit int) ([]*Progress, error)

	/*
		Find returns the user's position in one story.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - storyID: string

		Returns:
		  - *Progress: The position row
		  - error: apperr.NotFound if the user never read the story
	*/
	Find(context context.Context, userID, storyID string) (*Progress, error)
}
