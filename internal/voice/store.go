// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package voice

import "context"

// # Voice Data Access

// Repository is the persistence contract for voice samples.
type Repository interface {

	/*
		FindByID returns one voice sample.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Voice: The sample row
		  - error: apperr.NotFound if missing
	*/
	FindByID(context context.Context, id string) (*Voice, error)

	/*
		ListByUser returns all samples owned by a user, newest first.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Voice: The user's samples
		  - error: Storage failures
	*/
	ListByUser(context context.Context, userID string) ([]*Voice, error)

	/*
		Create persists a new sample row.

		Parameters:
		  - context: context.Context
		  - voice: *Voice

		Returns:
		  - error: Storage failures
	*/
	Create(context context.Context, voice *Voice) error

	/*
		Delete removes a sample row.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: apperr.NotFound if missing
	*/
	Delete(context context.Context, id string) error
}
