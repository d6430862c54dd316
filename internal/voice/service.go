// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/platform/validate"
	"github.com/taibuivan/fabula/pkg/slug"
	"github.com/taibuivan/fabula/pkg/uuidv7"
)

// maxSampleBytes caps an uploaded sample. Cloning needs seconds of audio,
// not an album.
const maxSampleBytes = 10 << 20

// # Service Layer

// Service manages the lifecycle of voice samples: upload to the shared
// filesystem, listing, deletion, and path resolution for the workflow
// engine.
type Service struct {
	repo   Repository
	root   string
	logger *slog.Logger
}

// NewService constructs a voice [Service] storing samples under root.
func NewService(repo Repository, root string, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		root:   root,
		logger: logger,
	}
}

/*
Upload stores a new voice sample for a user.

Description: The audio is copied to the shared voices directory where the
workflow engine reads it, under a per-user subdirectory. The stored
filename derives from a slug of the display name plus the sample ID, so
names in any script produce a safe path while staying recognizable.

Parameters:
  - context: context.Context
  - userID: string
  - name: string (display name for the sample)
  - audio: io.Reader (the uploaded file body)

Returns:
  - *Voice: The persisted sample
  - error: Validation, filesystem, or storage failures
*/
func (service *Service) Upload(context context.Context, userID, name string, audio io.Reader) (*Voice, error) {

	validator := &validate.Validator{}
	validator.Required("name", name).MaxLen("name", name, 100)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	id := uuidv7.New()

	// Per-user subdirectory keeps samples isolated between accounts
	userDir := filepath.Join(service.root, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("voice: failed to create user directory: %w", err)
	}

	filename := id + ".mp3"
	if slugged := slug.From(name); slugged != "" {
		filename = slugged + "-" + id + ".mp3"
	}
	path := filepath.Join(userDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("voice: failed to create sample file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, io.LimitReader(audio, maxSampleBytes+1))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("voice: failed to write sample file: %w", err)
	}
	if written > maxSampleBytes {
		os.Remove(path)
		return nil, apperr.Unprocessable("Voice sample exceeds the size limit")
	}
	if written == 0 {
		os.Remove(path)
		return nil, apperr.ValidationError("Voice sample is empty")
	}

	voice := &Voice{
		ID:        id,
		UserID:    userID,
		Name:      name,
		FilePath:  path,
		Provider:  ProviderUpload,
		CreatedAt: time.Now(),
	}
	if err := service.repo.Create(context, voice); err != nil {
		os.Remove(path)
		return nil, err
	}

	service.logger.Info("voice.uploaded",
		"voice_id", id,
		"user_id", userID,
		"bytes", written,
	)

	return voice, nil
}

/*
ListVoices returns a user's stored samples.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Voice: The user's samples, newest first
  - error: Storage failures
*/
func (service *Service) ListVoices(context context.Context, userID string) ([]*Voice, error) {
	return service.repo.ListByUser(context, userID)
}

/*
DeleteVoice removes a sample the user owns, row and file both.

Parameters:
  - context: context.Context
  - id: string
  - userID: string (the caller; must own the sample)

Returns:
  - error: apperr.NotFound or apperr.Forbidden
*/
func (service *Service) DeleteVoice(context context.Context, id, userID string) error {

	voice, err := service.repo.FindByID(context, id)
	if err != nil {
		return err
	}
	if voice.UserID != userID {
		return apperr.Forbidden("Only the owner can delete a voice")
	}

	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	// The row is authoritative; a failed file removal only leaks disk
	if err := os.Remove(voice.FilePath); err != nil && !os.IsNotExist(err) {
		service.logger.Warn("voice.file_remove_failed",
			"voice_id", id,
			"error", err.Error(),
		)
	}

	return nil
}

/*
ResolvePath returns the on-disk location of a voice for workflow dispatch.

Parameters:
  - context: context.Context
  - voiceID: string
  - userID: string (must own the voice)

Returns:
  - string: Absolute path of the sample file
  - error: apperr.NotFound, for foreign voices too so existence never leaks
*/
func (service *Service) ResolvePath(context context.Context, voiceID, userID string) (string, error) {

	voice, err := service.repo.FindByID(context, voiceID)
	if err != nil {
		return "", err
	}
	if voice.UserID != userID {
		return "", apperr.NotFound("Voice")
	}

	return voice.FilePath, nil
}
