// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package voice_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/voice"
)

// # Test Fakes

type fakeRepo struct {
	voices map[string]*voice.Voice
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{voices: make(map[string]*voice.Voice)}
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*voice.Voice, error) {
	v, ok := f.voices[id]
	if !ok {
		return nil, apperr.NotFound("voice")
	}
	return v, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID string) ([]*voice.Voice, error) {
	var out []*voice.Voice
	for _, v := range f.voices {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, v *voice.Voice) error {
	f.voices[v.ID] = v
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.voices[id]; !ok {
		return apperr.NotFound("voice")
	}
	delete(f.voices, id)
	return nil
}

func newService(t *testing.T, repo *fakeRepo) *voice.Service {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return voice.NewService(repo, t.TempDir(), logger)
}

// # Upload Tests

/*
TestUpload_StoresSample verifies the audio lands on disk under the user's
directory and the row records its path.
*/
func TestUpload_StoresSample(t *testing.T) {
	repo := newFakeRepo()
	service := newService(t, repo)

	sample, err := service.Upload(context.Background(), "user-1", "Grandma", strings.NewReader("audio-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "Grandma", sample.Name)
	assert.Equal(t, "user-1", sample.UserID)
	assert.Equal(t, voice.ProviderUpload, sample.Provider)

	// The file exists where the row points
	raw, err := os.ReadFile(sample.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(raw))

	assert.Contains(t, sample.FilePath, "user-1")
	assert.Contains(t, sample.FilePath, "grandma")
}

/*
TestUpload_EmptyBodyRejected verifies a zero-byte upload is rejected and
leaves no file behind.
*/
func TestUpload_EmptyBodyRejected(t *testing.T) {
	repo := newFakeRepo()
	service := newService(t, repo)

	_, err := service.Upload(context.Background(), "user-1", "Empty", strings.NewReader(""))

	require.Error(t, err)
	assert.Empty(t, repo.voices)
}

/*
TestUpload_NameRequired verifies validation on the display name.
*/
func TestUpload_NameRequired(t *testing.T) {
	repo := newFakeRepo()
	service := newService(t, repo)

	_, err := service.Upload(context.Background(), "user-1", "", strings.NewReader("audio"))

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// # Resolution Tests

/*
TestResolvePath_OwnershipEnforced verifies a voice cannot be resolved by
anyone but its owner. A foreign voice resolves to NOT_FOUND, the same
answer a nonexistent one gives, so resolution never reveals whether a
voice ID exists under another account.
*/
func TestResolvePath_OwnershipEnforced(t *testing.T) {
	repo := newFakeRepo()
	service := newService(t, repo)

	sample, err := service.Upload(context.Background(), "user-1", "Mine", strings.NewReader("audio"))
	require.NoError(t, err)

	// Owner resolves fine
	path, err := service.ResolvePath(context.Background(), sample.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sample.FilePath, path)

	// Anyone else sees the voice as missing
	_, err = service.ResolvePath(context.Background(), sample.ID, "user-2")
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

// # Deletion Tests

/*
TestDeleteVoice_RemovesRowAndFile verifies deletion clears both the row
and the stored audio.
*/
func TestDeleteVoice_RemovesRowAndFile(t *testing.T) {
	repo := newFakeRepo()
	service := newService(t, repo)

	sample, err := service.Upload(context.Background(), "user-1", "Old", strings.NewReader("audio"))
	require.NoError(t, err)

	require.NoError(t, service.DeleteVoice(context.Background(), sample.ID, "user-1"))

	assert.Empty(t, repo.voices)
	_, statErr := os.Stat(sample.FilePath)
	assert.True(t, os.IsNotExist(statErr))
}

/*
TestDeleteVoice_OwnerOnly verifies a non-owner cannot delete a sample.
*/
func TestDeleteVoice_OwnerOnly(t *testing.T) {
	repo := newFakeRepo()
	service := newService(t, repo)

	sample, err := service.Upload(context.Background(), "user-1", "Mine", strings.NewReader("audio"))
	require.NoError(t, err)

	err = service.DeleteVoice(context.Background(), sample.ID, "user-2")

	require.Error(t, err)
	assert.Len(t, repo.voices, 1)
}
