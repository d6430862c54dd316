// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"
	"time"
)

// # Story Data Access

// Repository defines the data access contract for stories, their pages, and
// their style variants.
//
// The Story Record Store is owned exclusively by the orchestrator and the
// sync engine; no other component mutates these tables.
type Repository interface {

	/*
		FindByID returns the story with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string (generation-assigned story ID)

		Returns:
		  - *Story: Hydrated story row
		  - error: apperr.NotFound if missing
	*/
	FindByID(context context.Context, id string) (*Story, error)

	/*
		List returns stories matching the filter, newest first.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter (owner, status, keyword)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Story: Matching stories ordered by creation time descending
		  - int: Total matching count
		  - error: Storage failures
	*/
	List(context context.Context, filter ListFilter, limit, offset int) ([]*Story, int, error)

	/*
		Create persists a new story row.

		Parameters:
		  - context: context.Context
		  - story: *Story

		Returns:
		  - error: Storage failure
	*/
	Create(context context.Context, story *Story) error

	/*
		SetStatus updates the primary status, the error message, and updatedat.

		Parameters:
		  - context: context.Context
		  - id: string
		  - status: Status
		  - errorMessage: *string (nil clears the stored error)

		Returns:
		  - error: apperr.NotFound if the story does not exist
	*/
	SetStatus(context context.Context, id string, status Status, errorMessage *string) error

	/*
		SetAudioStatus updates the secondary audio status without touching the
		primary status or pages.

		Parameters:
		  - context: context.Context
		  - id: string
		  - status: Status
		  - errorMessage: *string

		Returns:
		  - error: apperr.NotFound if the story does not exist
	*/
	SetAudioStatus(context context.Context, id string, status Status, errorMessage *string) error

	/*
		SetCustomVoice records the voice asset chosen for a redub.

		Parameters:
		  - context: context.Context
		  - id: string
		  - voiceID: string

		Returns:
		  - error: apperr.NotFound if the story does not exist
	*/
	SetCustomVoice(context context.Context, id string, voiceID string) error

	/*
		AdoptStyle records the resolved style for a story whose selection was
		inferred from the content store during the startup sweep.

		Parameters:
		  - context: context.Context
		  - id: string
		  - styleID: string

		Returns:
		  - error: apperr.NotFound if the story does not exist
	*/
	AdoptStyle(context context.Context, id string, styleID string) error

	/*
		CountCreatedSince counts stories owned by a user created at or after
		the given instant. Used for the daily creation quota; this is a
		derived read over timestamped rows, not a cached counter.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - since: time.Time

		Returns:
		  - int: Number of stories
		  - error: Storage failure
	*/
	CountCreatedSince(context context.Context, userID string, since time.Time) (int, error)

	/*
		ListPages returns all pages for a story ordered by page number.

		Parameters:
		  - context: context.Context
		  - storyID: string

		Returns:
		  - []*Page: Ordered pages
		  - error: Storage failure
	*/
	ListPages(context context.Context, storyID string) ([]*Page, error)

	/*
		ListStyles returns all style rows for a story.

		Parameters:
		  - context: context.Context
		  - storyID: string

		Returns:
		  - []*Style: Style variants
		  - error: Storage failure
	*/
	ListStyles(context context.Context, storyID string) ([]*Style, error)

	/*
		ReplaceContent atomically rewrites a story's servable content: titles,
		description, status PUBLISHED, a full delete-and-insert of its pages,
		and a full replace of its style row. The whole mutation runs in one
		transaction so an observer never sees a story with zero pages
		mid-reconciliation.

		Parameters:
		  - context: context.Context
		  - story: *Story (titles, description, status already set)
		  - pages: []*Page (new page set in final order)
		  - style: *Style (the single resolved style row)

		Returns:
		  - error: Transaction failure; nothing is committed on error
	*/
	ReplaceContent(context context.Context, story *Story, pages []*Page, style *Style) error

	/*
		UpdatePageCustomAudio sets the custom-voice narration URLs on one
		existing page in place. Pages are not replaced.

		Parameters:
		  - context: context.Context
		  - storyID: string
		  - pageNumber: int
		  - audioURLZh: *string
		  - audioURLEn: *string

		Returns:
		  - error: Storage failure
	*/
	UpdatePageCustomAudio(context context.Context, storyID string, pageNumber int, audioURLZh, audioURLEn *string) error
}
