// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package guest meters story reading for anonymous visitors.

Guests are identified by a client-minted device identifier and may open a
limited number of distinct stories per day. Re-opening a story already
counted today is always free, so a guest can finish what they started.
Authenticated users never pass through this package.
*/
package guest

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/fabula/internal/platform/apperr"
)

// # Data Access

// Repository is the persistence contract for the guest reading log.
type Repository interface {

	/*
		HasRead reports whether the guest already opened the story at or
		after the given instant.

		Parameters:
		  - context: context.Context
		  - guestID: string
		  - storyID: string
		  - since: time.Time

		Returns:
		  - bool: True if a log row exists in the window
		  - error: Storage failures
	*/
	HasRead(context context.Context, guestID, storyID string, since time.Time) (bool, error)

	/*
		CountDistinctSince counts the distinct stories the guest opened at
		or after the given instant.

		Parameters:
		  - context: context.Context
		  - guestID: string
		  - since: time.Time

		Returns:
		  - int: Number of distinct stories
		  - error: Storage failures
	*/
	CountDistinctSince(context context.Context, guestID string, since time.Time) (int, error)

	/*
		Record appends a reading log row.

		Parameters:
		  - context: context.Context
		  - guestID: string
		  - storyID: string

		Returns:
		  - error: Storage failures
	*/
	Record(context context.Context, guestID, storyID string) error
}

// # Limiter

// Limiter enforces the daily distinct-story reading allowance for guests.
type Limiter struct {
	repo       Repository
	dailyLimit int
	logger     *slog.Logger
}

// NewLimiter constructs a [Limiter] with the given daily allowance.
func NewLimiter(repo Repository, dailyLimit int, logger *slog.Logger) *Limiter {
	return &Limiter{
		repo:       repo,
		dailyLimit: dailyLimit,
		logger:     logger,
	}
}

/*
AuthorizeRead admits or rejects a guest's access to a story.

Description: Re-reads are always free: if the guest already opened this
story today the request passes without touching the allowance. Otherwise
the distinct-story count for the day is checked against the limit and, if
room remains, the access is recorded. The check and the record are not one
atomic step; two simultaneous first reads can both pass, which is accepted
for an abuse brake that is not a billing meter.

Parameters:
  - context: context.Context
  - guestID: string (client-minted device identifier)
  - storyID: string

Returns:
  - error: apperr.LimitReached when the allowance is exhausted
*/
func (limiter *Limiter) AuthorizeRead(context context.Context, guestID, storyID string) error {

	// Same UTC-midnight window as the story creation quota
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)

	// Free re-read of anything already counted today
	read, err := limiter.repo.HasRead(context, guestID, storyID, startOfDay)
	if err != nil {
		return err
	}
	if read {
		return nil
	}

	// New story: check the distinct-story allowance
	count, err := limiter.repo.CountDistinctSince(context, guestID, startOfDay)
	if err != nil {
		return err
	}
	if count >= limiter.dailyLimit {
		limiter.logger.Info("guest.limit.reached",
			"guest_id", guestID,
			"story_id", storyID,
		)
		return apperr.LimitReached("Daily guest reading limit reached")
	}

	// Count this story against today's allowance
	if err := limiter.repo.Record(context, guestID, storyID); err != nil {
		return err
	}

	return nil
}
