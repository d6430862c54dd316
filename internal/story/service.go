// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/platform/validate"
	"github.com/taibuivan/fabula/pkg/uuidv7"
)

// # Collaborator Contracts

// WorkflowTrigger dispatches one-way generation requests to the external
// workflow engine. Implementations must not block on workflow completion;
// results arrive later through the callback endpoint.
type WorkflowTrigger interface {
	// TriggerGeneration asks the workflow engine to generate a new story.
	TriggerGeneration(context context.Context, storyID, prompt, styleID, userID string, voicePath *string) error

	// TriggerRedub asks the workflow engine to re-narrate an existing story
	// with a custom voice.
	TriggerRedub(context context.Context, storyID, userID string, voicePath *string) error
}

// Reconciler imports generated content from the filesystem content store
// into the Story Record Store.
type Reconciler interface {
	// ReconcileOne synchronizes a single story's pages and style from disk.
	ReconcileOne(context context.Context, storyID string) error

	// SyncCustomAudio attaches custom-voice narration files produced for the
	// given owner to the story's existing pages.
	SyncCustomAudio(context context.Context, storyID, userID string) error
}

// VoiceResolver maps a stored voice sample to the filesystem path the
// workflow engine reads it from.
type VoiceResolver interface {
	// ResolvePath returns the on-disk path of a voice owned by the user.
	ResolvePath(context context.Context, voiceID, userID string) (string, error)
}

// # Callback Protocol

// Workflow callback outcome values. Anything else is treated as a failure
// report and recorded as an anomaly.
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"

	// CallbackTypeRedub marks an audio-only regeneration outcome. Redub
	// callbacks touch audiostatus and never the primary lifecycle status.
	CallbackTypeRedub = "REDUB"
)

// Callback is the payload the workflow engine posts when a run finishes.
type Callback struct {
	StoryID      string `json:"storyId"`
	Status       string `json:"status"`
	Type         string `json:"type,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// # Service Layer

// Service orchestrates the story lifecycle: initiating generation runs,
// absorbing workflow callbacks, and serving published content.
type Service struct {
	repo       Repository
	trigger    WorkflowTrigger
	reconciler Reconciler
	voices     VoiceResolver
	dailyLimit int
	logger     *slog.Logger
	locks      *keyedMutex
}

// NewService constructs a new [Service] with its collaborators.
func NewService(repo Repository, trigger WorkflowTrigger, reconciler Reconciler, voices VoiceResolver, dailyLimit int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		trigger:    trigger,
		reconciler: reconciler,
		voices:     voices,
		dailyLimit: dailyLimit,
		logger:     logger,
		locks:      newKeyedMutex(),
	}
}

// # Generation Orchestration

/*
InitiateGeneration starts a new story generation run for a user.

Description: Enforces the daily creation quota, persists a GENERATING
placeholder row, and fires the workflow trigger. The trigger is
fire-and-forget: an accepted dispatch tells the caller nothing about the
eventual outcome, which arrives later through HandleWorkflowCallback. A
dispatch failure is surfaced synchronously so the caller can retry, but the
row is never re-triggered automatically and stays GENERATING until a
callback or an operator resolves it. At-most-once, by contract with the
workflow engine.

The quota is a soft check-then-act; two simultaneous requests can both pass
the count and briefly exceed the limit. The quota protects generation
capacity, not billing, so the race is tolerated.

Parameters:
  - context: context.Context
  - userID: string (the authenticated owner)
  - prompt: string (free-text generation prompt)
  - styleID: string (requested illustration style)
  - voiceID: *string (optional custom voice for initial narration)

Returns:
  - *Story: The placeholder row in GENERATING state
  - error: apperr.QuotaExceeded, apperr.TriggerFailed, or validation errors
*/
func (service *Service) InitiateGeneration(context context.Context, userID, prompt, styleID string, voiceID *string) (*Story, error) {

	// Request validation
	validator := &validate.Validator{}
	validator.Required("prompt", prompt).MaxLen("prompt", prompt, 2000)
	validator.Required("styleId", styleID)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Daily quota check over timestamped rows, windowed to UTC midnight
	now := time.Now()
	startOfDay := now.UTC().Truncate(24 * time.Hour)
	created, err := service.repo.CountCreatedSince(context, userID, startOfDay)
	if err != nil {
		return nil, err
	}
	if created >= service.dailyLimit {
		return nil, apperr.QuotaExceeded("Daily story creation limit reached")
	}

	// Optional custom voice resolution. An unresolvable voice downgrades to
	// the default narration rather than blocking the whole generation.
	var voicePath *string
	if voiceID != nil && *voiceID != "" {
		path, err := service.voices.ResolvePath(context, *voiceID, userID)
		if err != nil {
			service.logger.Warn("story.generation.voice_unresolved",
				"voice_id", *voiceID,
				"user_id", userID,
				"error", err.Error(),
			)
			voiceID = nil
		} else {
			voicePath = &path
		}
	}

	// Placeholder row so the story is addressable before content exists
	story := &Story{
		ID:               uuidv7.New(),
		UserID:           &userID,
		Status:           StatusGenerating,
		GenerationPrompt: &prompt,
		SelectedStyleID:  &styleID,
		CustomVoiceID:    voiceID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := service.repo.Create(context, story); err != nil {
		return nil, err
	}

	// Fire-and-forget workflow dispatch. On delivery failure the row stays
	// GENERATING with no automatic retry; the caller gets the error and the
	// story remains orphaned until a callback or operator intervenes.
	if err := service.trigger.TriggerGeneration(context, story.ID, prompt, styleID, userID, voicePath); err != nil {
		service.logger.Warn("story.generation.trigger_failed",
			"story_id", story.ID,
			"error", err.Error(),
		)
		return nil, apperr.TriggerFailed(err)
	}

	service.logger.Info("story.generation.initiated",
		"story_id", story.ID,
		"user_id", userID,
		"style_id", styleID,
	)

	return story, nil
}

/*
Redub re-narrates a published story with one of the owner's custom voices.

Description: A redub runs entirely on the audio track. The story's primary
status, text, imagery, and standard narration are untouched for the whole
run; only audiostatus moves to GENERATING until the workflow reports back.
The voice selection and status flip happen under the story's lock so they
never interleave with callback handling for the same story.

Parameters:
  - context: context.Context
  - storyID: string
  - voiceID: string (a voice owned by the caller)
  - callerID: string (the authenticated user; must own the story)

Returns:
  - error: apperr.NotFound, apperr.Unauthorized for non-owners, or
    apperr.TriggerFailed
*/
func (service *Service) Redub(context context.Context, storyID, voiceID, callerID string) error {

	// Same per-story lock as callback handling, so the voice selection and
	// audio-status flip never interleave with an in-flight outcome
	unlock := service.locks.Lock(storyID)
	defer unlock()

	story, err := service.repo.FindByID(context, storyID)
	if err != nil {
		return err
	}

	// Only the owner may re-narrate. Surfaced as an authorization failure
	// rather than a 404 so misuse is visible to the caller.
	if story.UserID == nil || *story.UserID != callerID {
		return apperr.Unauthorized("Only the story owner can request a redub")
	}

	voicePath, err := service.voices.ResolvePath(context, voiceID, callerID)
	if err != nil {
		return err
	}

	// Record the selection and flip only the audio track to GENERATING
	if err := service.repo.SetCustomVoice(context, storyID, voiceID); err != nil {
		return err
	}
	if err := service.repo.SetAudioStatus(context, storyID, StatusGenerating, nil); err != nil {
		return err
	}

	// Dispatch with the story owner's identity; the callback path locates
	// the produced audio under the owner's directory, not the caller's.
	// Same at-most-once contract as generation: a delivery failure leaves
	// audiostatus GENERATING and the caller decides whether to retry.
	if err := service.trigger.TriggerRedub(context, storyID, *story.UserID, &voicePath); err != nil {
		service.logger.Warn("story.redub.trigger_failed",
			"story_id", storyID,
			"error", err.Error(),
		)
		return apperr.TriggerFailed(err)
	}

	service.logger.Info("story.redub.initiated",
		"story_id", storyID,
		"voice_id", voiceID,
	)

	return nil
}

// # Callback Handling

/*
HandleWorkflowCallback absorbs a completion report from the workflow engine.

Description: Callbacks are processed under a per-story lock so a generation
outcome and a redub outcome for the same story never interleave. Outcomes
for unknown stories are logged and dropped so workflow retries against a
deleted story cannot wedge the engine. An unrecognized status value is
recorded as FAILED with an anomaly message rather than rejected, keeping the
story out of a permanent GENERATING state.

Parameters:
  - context: context.Context
  - callback: Callback (the posted outcome payload)

Returns:
  - error: Storage failures only; protocol anomalies are absorbed
*/
func (service *Service) HandleWorkflowCallback(context context.Context, callback Callback) error {

	if callback.StoryID == "" {
		return apperr.ValidationError("storyId is required")
	}

	// Serialize all outcome handling per story
	unlock := service.locks.Lock(callback.StoryID)
	defer unlock()

	story, err := service.repo.FindByID(context, callback.StoryID)
	if err != nil {
		if apperr.IsAppError(err) {
			// Unknown story: log and drop so workflow retries terminate
			service.logger.Warn("story.callback.unknown_story",
				"story_id", callback.StoryID,
				"status", callback.Status,
			)
			return nil
		}
		return err
	}

	status := strings.ToUpper(strings.TrimSpace(callback.Status))

	// Redub outcomes run on the audio track only
	if strings.EqualFold(callback.Type, CallbackTypeRedub) {
		return service.handleRedubOutcome(context, story, status, callback)
	}

	switch status {
	case CallbackStatusSuccess:
		// Publish first, then import content; reconciliation is idempotent
		// and the startup sweep repairs a crash between the two steps
		if err := service.repo.SetStatus(context, story.ID, StatusPublished, nil); err != nil {
			return err
		}
		if err := service.reconciler.ReconcileOne(context, story.ID); err != nil {
			service.logger.Error("story.callback.reconcile_failed",
				"story_id", story.ID,
				"error", err.Error(),
			)
			return err
		}
		service.logger.Info("story.callback.published", "story_id", story.ID)
		return nil

	case CallbackStatusFailed:
		message := callback.ErrorMessage
		if message == "" {
			message = "Story generation failed"
		}
		service.logger.Info("story.callback.failed",
			"story_id", story.ID,
			"error", message,
		)
		return service.repo.SetStatus(context, story.ID, StatusFailed, &message)

	default:
		// Anomaly: record verbatim so operators can see what the engine sent
		message := "Invalid status received from workflow: " + callback.Status
		service.logger.Warn("story.callback.invalid_status",
			"story_id", story.ID,
			"status", callback.Status,
		)
		return service.repo.SetStatus(context, story.ID, StatusFailed, &message)
	}
}

// handleRedubOutcome applies a redub callback to the audio track.
func (service *Service) handleRedubOutcome(context context.Context, story *Story, status string, callback Callback) error {

	switch status {
	case CallbackStatusSuccess:
		// Custom audio lives under the owner's directory in the content
		// store, so a story without an owner has nothing to attach
		if story.UserID == nil {
			message := "Redub completed for a story without an owner"
			service.logger.Warn("story.callback.redub_orphan", "story_id", story.ID)
			return service.repo.SetAudioStatus(context, story.ID, StatusFailed, &message)
		}
		if err := service.reconciler.SyncCustomAudio(context, story.ID, *story.UserID); err != nil {
			service.logger.Error("story.callback.redub_sync_failed",
				"story_id", story.ID,
				"error", err.Error(),
			)
			message := "Custom audio could not be imported"
			return service.repo.SetAudioStatus(context, story.ID, StatusFailed, &message)
		}
		service.logger.Info("story.callback.redub_published", "story_id", story.ID)
		return service.repo.SetAudioStatus(context, story.ID, StatusPublished, nil)

	case CallbackStatusFailed:
		message := callback.ErrorMessage
		if message == "" {
			message = "Story redub failed"
		}
		return service.repo.SetAudioStatus(context, story.ID, StatusFailed, &message)

	default:
		message := "Invalid status received from workflow: " + callback.Status
		return service.repo.SetAudioStatus(context, story.ID, StatusFailed, &message)
	}
}

// # Story Lookups

// Detail is a story with its full servable content attached.
type Detail struct {
	Story  *Story   `json:"story"`
	Pages  []*Page  `json:"pages"`
	Styles []*Style `json:"styles"`
}

/*
ListStories retrieves a paginated, filtered collection of stories.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - limit: int
  - offset: int

Returns:
  - []*Story: Matching stories, newest first
  - int: Total matching count
  - error: Repository errors
*/
func (service *Service) ListStories(context context.Context, filter ListFilter, limit, offset int) ([]*Story, int, error) {
	return service.repo.List(context, filter, limit, offset)
}

/*
GetStory fetches a story's metadata by ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Story: The story row
  - error: apperr.NotFound if missing
*/
func (service *Service) GetStory(context context.Context, id string) (*Story, error) {
	return service.repo.FindByID(context, id)
}

/*
GetStoryDetail fetches a story together with its pages and style variants.

Description: Pages come back ordered 1..k. A GENERATING or FAILED story
returns its metadata with an empty page set; the caller decides how to
render the in-progress state.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Detail: Story, ordered pages, and styles
  - error: apperr.NotFound if the story does not exist
*/
func (service *Service) GetStoryDetail(context context.Context, id string) (*Detail, error) {

	story, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	pages, err := service.repo.ListPages(context, id)
	if err != nil {
		return nil, err
	}

	styles, err := service.repo.ListStyles(context, id)
	if err != nil {
		return nil, err
	}

	return &Detail{Story: story, Pages: pages, Styles: styles}, nil
}
