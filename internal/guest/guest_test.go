// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package guest_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/guest"
	"github.com/taibuivan/fabula/internal/platform/apperr"
)

// # Test Fakes

type logEntry struct {
	guestID string
	storyID string
	readAt  time.Time
}

// fakeRepo keeps the reading log in memory.
type fakeRepo struct {
	entries []logEntry
}

func (f *fakeRepo) HasRead(_ context.Context, guestID, storyID string, since time.Time) (bool, error) {
	for _, entry := range f.entries {
		if entry.guestID == guestID && entry.storyID == storyID && !entry.readAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CountDistinctSince(_ context.Context, guestID string, since time.Time) (int, error) {
	seen := make(map[string]bool)
	for _, entry := range f.entries {
		if entry.guestID == guestID && !entry.readAt.Before(since) {
			seen[entry.storyID] = true
		}
	}
	return len(seen), nil
}

func (f *fakeRepo) Record(_ context.Context, guestID, storyID string) error {
	f.entries = append(f.entries, logEntry{guestID: guestID, storyID: storyID, readAt: time.Now()})
	return nil
}

func newLimiter(repo *fakeRepo, limit int) *guest.Limiter {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return guest.NewLimiter(repo, limit, logger)
}

// # Limiter Tests

/*
TestAuthorizeRead_WithinLimit verifies a guest can open distinct stories
up to the daily allowance and each one is recorded.
*/
func TestAuthorizeRead_WithinLimit(t *testing.T) {
	repo := &fakeRepo{}
	limiter := newLimiter(repo, 2)

	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-a"))
	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-b"))

	assert.Len(t, repo.entries, 2)
}

/*
TestAuthorizeRead_LimitReached verifies the third distinct story is
rejected with LIMIT_REACHED and nothing is recorded for it.
*/
func TestAuthorizeRead_LimitReached(t *testing.T) {
	repo := &fakeRepo{}
	limiter := newLimiter(repo, 2)

	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-a"))
	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-b"))

	err := limiter.AuthorizeRead(context.Background(), "g1", "story-c")

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "LIMIT_REACHED", appErr.Code)
	assert.Len(t, repo.entries, 2)
}

/*
TestAuthorizeRead_RereadIsFree verifies re-opening an already counted
story passes even at the limit and adds no new log row.
*/
func TestAuthorizeRead_RereadIsFree(t *testing.T) {
	repo := &fakeRepo{}
	limiter := newLimiter(repo, 2)

	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-a"))
	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-b"))

	// Allowance exhausted, but story-a was already counted today
	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-a"))
	assert.Len(t, repo.entries, 2)
}

/*
TestAuthorizeRead_GuestsAreIndependent verifies one guest's consumption
never affects another's allowance.
*/
func TestAuthorizeRead_GuestsAreIndependent(t *testing.T) {
	repo := &fakeRepo{}
	limiter := newLimiter(repo, 1)

	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-a"))
	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g2", "story-a"))

	err := limiter.AuthorizeRead(context.Background(), "g1", "story-b")
	require.Error(t, err)

	assert.NoError(t, limiter.AuthorizeRead(context.Background(), "g2", "story-a"))
}

/*
TestAuthorizeRead_YesterdayDoesNotCount verifies the allowance resets
at midnight: old log rows neither grant free re-reads nor consume today's
budget.
*/
func TestAuthorizeRead_YesterdayDoesNotCount(t *testing.T) {
	repo := &fakeRepo{}
	limiter := newLimiter(repo, 1)

	// A read from yesterday
	repo.entries = append(repo.entries, logEntry{
		guestID: "g1",
		storyID: "story-old",
		readAt:  time.Now().Add(-36 * time.Hour),
	})

	// Today's budget is untouched; a new story is admitted and recorded
	require.NoError(t, limiter.AuthorizeRead(context.Background(), "g1", "story-new"))
	assert.Len(t, repo.entries, 2)
}
