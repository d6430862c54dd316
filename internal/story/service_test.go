// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/story"
)

// # Test Fakes

// fakeRepo is an in-memory stand-in for the story repository.
type fakeRepo struct {
	stories      map[string]*story.Story
	pages        map[string][]*story.Page
	styles       map[string]*story.Style
	createdCount int
	replaced     bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stories: make(map[string]*story.Story),
		pages:   make(map[string][]*story.Page),
		styles:  make(map[string]*story.Style),
	}
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*story.Story, error) {
	s, ok := f.stories[id]
	if !ok {
		return nil, apperr.NotFound("story")
	}
	copied := *s
	return &copied, nil
}

func (f *fakeRepo) List(_ context.Context, filter story.ListFilter, limit, offset int) ([]*story.Story, int, error) {
	var out []*story.Story
	for _, s := range f.stories {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && (s.UserID == nil || *s.UserID != *filter.UserID) {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(_ context.Context, s *story.Story) error {
	f.stories[s.ID] = s
	f.createdCount++
	return nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id string, status story.Status, message *string) error {
	s, ok := f.stories[id]
	if !ok {
		return apperr.NotFound("story")
	}
	s.Status = status
	s.ErrorMessage = message
	return nil
}

func (f *fakeRepo) SetAudioStatus(_ context.Context, id string, status story.Status, message *string) error {
	s, ok := f.stories[id]
	if !ok {
		return apperr.NotFound("story")
	}
	s.AudioStatus = &status
	s.ErrorMessage = message
	return nil
}

func (f *fakeRepo) SetCustomVoice(_ context.Context, id, voiceID string) error {
	s, ok := f.stories[id]
	if !ok {
		return apperr.NotFound("story")
	}
	s.CustomVoiceID = &voiceID
	return nil
}

func (f *fakeRepo) AdoptStyle(_ context.Context, id, styleID string) error {
	s, ok := f.stories[id]
	if !ok {
		return apperr.NotFound("story")
	}
	s.SelectedStyleID = &styleID
	return nil
}

func (f *fakeRepo) CountCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	count := 0
	for _, s := range f.stories {
		if s.UserID != nil && *s.UserID == userID && !s.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) ListPages(_ context.Context, storyID string) ([]*story.Page, error) {
	return f.pages[storyID], nil
}

func (f *fakeRepo) ListStyles(_ context.Context, storyID string) ([]*story.Style, error) {
	if style, ok := f.styles[storyID]; ok {
		return []*story.Style{style}, nil
	}
	return nil, nil
}

func (f *fakeRepo) ReplaceContent(_ context.Context, s *story.Story, pages []*story.Page, style *story.Style) error {
	f.stories[s.ID] = s
	f.pages[s.ID] = pages
	if style != nil {
		f.styles[s.ID] = style
	}
	f.replaced = true
	return nil
}

func (f *fakeRepo) UpdatePageCustomAudio(_ context.Context, storyID string, pageNumber int, zh, en *string) error {
	return nil
}

// fakeTrigger records dispatches and can be forced to fail.
type fakeTrigger struct {
	failWith      error
	generateCalls int
	redubCalls    int
	lastUserID    string
}

func (f *fakeTrigger) TriggerGeneration(_ context.Context, storyID, prompt, styleID, userID string, voicePath *string) error {
	f.generateCalls++
	f.lastUserID = userID
	return f.failWith
}

func (f *fakeTrigger) TriggerRedub(_ context.Context, storyID, userID string, voicePath *string) error {
	f.redubCalls++
	f.lastUserID = userID
	return f.failWith
}

// fakeReconciler records which sync operations ran.
type fakeReconciler struct {
	reconciled  []string
	syncedUsers []string
	failSync    error
}

func (f *fakeReconciler) ReconcileOne(_ context.Context, storyID string) error {
	f.reconciled = append(f.reconciled, storyID)
	return nil
}

func (f *fakeReconciler) SyncCustomAudio(_ context.Context, storyID, userID string) error {
	if f.failSync != nil {
		return f.failSync
	}
	f.syncedUsers = append(f.syncedUsers, userID)
	return nil
}

// fakeVoices resolves every voice to a fixed path.
type fakeVoices struct{}

func (fakeVoices) ResolvePath(_ context.Context, voiceID, userID string) (string, error) {
	return "/voices/" + userID + "/" + voiceID + ".mp3", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newService(repo *fakeRepo, trigger *fakeTrigger, reconciler *fakeReconciler, limit int) *story.Service {
	return story.NewService(repo, trigger, reconciler, fakeVoices{}, limit, discardLogger())
}

func seedStory(repo *fakeRepo, id, owner string, status story.Status) *story.Story {
	s := &story.Story{
		ID:        id,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if owner != "" {
		s.UserID = &owner
	}
	repo.stories[id] = s
	return s
}

// # Generation Tests

/*
TestInitiateGeneration_Success verifies the happy path: a placeholder row
in GENERATING state and one workflow dispatch.
*/
func TestInitiateGeneration_Success(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{}
	service := newService(repo, trigger, &fakeReconciler{}, 2)

	created, err := service.InitiateGeneration(context.Background(), "user-1", "a brave rabbit", "watercolor", nil)

	require.NoError(t, err)
	assert.Equal(t, story.StatusGenerating, created.Status)
	assert.Equal(t, "user-1", *created.UserID)
	assert.Equal(t, 1, trigger.generateCalls)
	assert.Equal(t, 1, repo.createdCount)
}

/*
TestInitiateGeneration_QuotaExceeded verifies the daily limit counts all
stories created today, including failed ones.
*/
func TestInitiateGeneration_QuotaExceeded(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{}
	service := newService(repo, trigger, &fakeReconciler{}, 2)

	// Two stories today, one of them FAILED; both count
	seedStory(repo, "s1", "user-1", story.StatusPublished)
	seedStory(repo, "s2", "user-1", story.StatusFailed)

	_, err := service.InitiateGeneration(context.Background(), "user-1", "another story", "anime", nil)

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "QUOTA_EXCEEDED", appErr.Code)
	assert.Zero(t, trigger.generateCalls)
}

/*
TestInitiateGeneration_TriggerFailure verifies a dispatch failure surfaces
synchronously while the persisted placeholder stays GENERATING. At-most-once:
no retry, no status rewrite; only a callback or an operator moves it on.
*/
func TestInitiateGeneration_TriggerFailure(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{failWith: errors.New("connection refused")}
	service := newService(repo, trigger, &fakeReconciler{}, 2)

	_, err := service.InitiateGeneration(context.Background(), "user-1", "a story", "anime", nil)

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "TRIGGER_FAILED", appErr.Code)

	// The row is persisted before the dispatch and is left untouched by it
	require.Equal(t, 1, repo.createdCount)
	for _, s := range repo.stories {
		assert.Equal(t, story.StatusGenerating, s.Status)
	}
}

// # Callback Tests

/*
TestCallback_Success verifies a SUCCESS outcome publishes the story and
runs reconciliation.
*/
func TestCallback_Success(t *testing.T) {
	repo := newFakeRepo()
	reconciler := &fakeReconciler{}
	service := newService(repo, &fakeTrigger{}, reconciler, 2)
	seedStory(repo, "s1", "user-1", story.StatusGenerating)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: "s1",
		Status:  "SUCCESS",
	})

	require.NoError(t, err)
	assert.Equal(t, story.StatusPublished, repo.stories["s1"].Status)
	assert.Equal(t, []string{"s1"}, reconciler.reconciled)
}

/*
TestCallback_StatusNormalization verifies status matching is
case-insensitive and whitespace-tolerant.
*/
func TestCallback_StatusNormalization(t *testing.T) {
	repo := newFakeRepo()
	reconciler := &fakeReconciler{}
	service := newService(repo, &fakeTrigger{}, reconciler, 2)
	seedStory(repo, "s1", "user-1", story.StatusGenerating)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: "s1",
		Status:  "  success ",
	})

	require.NoError(t, err)
	assert.Equal(t, story.StatusPublished, repo.stories["s1"].Status)
}

/*
TestCallback_Failed verifies a FAILED outcome stores the reported message
verbatim.
*/
func TestCallback_Failed(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, &fakeTrigger{}, &fakeReconciler{}, 2)
	seedStory(repo, "s1", "user-1", story.StatusGenerating)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID:      "s1",
		Status:       "FAILED",
		ErrorMessage: "image model timed out",
	})

	require.NoError(t, err)
	assert.Equal(t, story.StatusFailed, repo.stories["s1"].Status)
	require.NotNil(t, repo.stories["s1"].ErrorMessage)
	assert.Equal(t, "image model timed out", *repo.stories["s1"].ErrorMessage)
}

/*
TestCallback_UnrecognizedStatus verifies an unknown status value is
recorded as a FAILED anomaly instead of being rejected.
*/
func TestCallback_UnrecognizedStatus(t *testing.T) {
	repo := newFakeRepo()
	reconciler := &fakeReconciler{}
	service := newService(repo, &fakeTrigger{}, reconciler, 2)
	seedStory(repo, "s1", "user-1", story.StatusGenerating)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: "s1",
		Status:  "MAYBE",
	})

	require.NoError(t, err)
	assert.Equal(t, story.StatusFailed, repo.stories["s1"].Status)
	require.NotNil(t, repo.stories["s1"].ErrorMessage)
	assert.Contains(t, *repo.stories["s1"].ErrorMessage, "MAYBE")
	assert.Empty(t, reconciler.reconciled)
}

/*
TestCallback_UnknownStory verifies outcomes for unknown stories are
absorbed so workflow retries terminate.
*/
func TestCallback_UnknownStory(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, &fakeTrigger{}, &fakeReconciler{}, 2)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: "ghost",
		Status:  "SUCCESS",
	})

	assert.NoError(t, err)
}

/*
TestCallback_RedubSuccess verifies a REDUB outcome syncs custom audio with
the story owner's identity and publishes the audio track only.
*/
func TestCallback_RedubSuccess(t *testing.T) {
	repo := newFakeRepo()
	reconciler := &fakeReconciler{}
	service := newService(repo, &fakeTrigger{}, reconciler, 2)
	seedStory(repo, "s1", "owner-9", story.StatusPublished)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: "s1",
		Status:  "SUCCESS",
		Type:    "REDUB",
	})

	require.NoError(t, err)

	// Primary status untouched, audio track published
	assert.Equal(t, story.StatusPublished, repo.stories["s1"].Status)
	require.NotNil(t, repo.stories["s1"].AudioStatus)
	assert.Equal(t, story.StatusPublished, *repo.stories["s1"].AudioStatus)

	// Custom audio resolved under the owner's directory
	assert.Equal(t, []string{"owner-9"}, reconciler.syncedUsers)
	assert.Empty(t, reconciler.reconciled)
}

/*
TestCallback_RedubWithoutOwner verifies a redub outcome for an ownerless
story fails the audio track instead of guessing a directory.
*/
func TestCallback_RedubWithoutOwner(t *testing.T) {
	repo := newFakeRepo()
	reconciler := &fakeReconciler{}
	service := newService(repo, &fakeTrigger{}, reconciler, 2)
	seedStory(repo, "s1", "", story.StatusPublished)

	err := service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: "s1",
		Status:  "SUCCESS",
		Type:    "REDUB",
	})

	require.NoError(t, err)
	require.NotNil(t, repo.stories["s1"].AudioStatus)
	assert.Equal(t, story.StatusFailed, *repo.stories["s1"].AudioStatus)
	assert.Empty(t, reconciler.syncedUsers)
}

// # Redub Request Tests

/*
TestRedub_OwnerOnly verifies only the story owner can request a redub.
*/
func TestRedub_OwnerOnly(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{}
	service := newService(repo, trigger, &fakeReconciler{}, 2)
	seedStory(repo, "s1", "owner-1", story.StatusPublished)

	err := service.Redub(context.Background(), "s1", "voice-1", "intruder")

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.Zero(t, trigger.redubCalls)
}

/*
TestRedub_TriggerFailure verifies a redub dispatch failure surfaces
TRIGGER_FAILED while audiostatus stays GENERATING, mirroring the
at-most-once generation contract.
*/
func TestRedub_TriggerFailure(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{failWith: errors.New("connection refused")}
	service := newService(repo, trigger, &fakeReconciler{}, 2)
	seedStory(repo, "s1", "owner-1", story.StatusPublished)

	err := service.Redub(context.Background(), "s1", "voice-1", "owner-1")

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "TRIGGER_FAILED", appErr.Code)

	require.NotNil(t, repo.stories["s1"].AudioStatus)
	assert.Equal(t, story.StatusGenerating, *repo.stories["s1"].AudioStatus)
}

/*
TestRedub_DispatchesWithOwner verifies the trigger carries the story
owner's identity and flips only the audio track.
*/
func TestRedub_DispatchesWithOwner(t *testing.T) {
	repo := newFakeRepo()
	trigger := &fakeTrigger{}
	service := newService(repo, trigger, &fakeReconciler{}, 2)
	seedStory(repo, "s1", "owner-1", story.StatusPublished)

	err := service.Redub(context.Background(), "s1", "voice-1", "owner-1")

	require.NoError(t, err)
	assert.Equal(t, 1, trigger.redubCalls)
	assert.Equal(t, "owner-1", trigger.lastUserID)

	assert.Equal(t, story.StatusPublished, repo.stories["s1"].Status)
	require.NotNil(t, repo.stories["s1"].AudioStatus)
	assert.Equal(t, story.StatusGenerating, *repo.stories["s1"].AudioStatus)
	require.NotNil(t, repo.stories["s1"].CustomVoiceID)
	assert.Equal(t, "voice-1", *repo.stories["s1"].CustomVoiceID)
}

// blockingRepo stalls inside SetCustomVoice so a test can observe what
// else runs while a redub holds the story's lock.
type blockingRepo struct {
	*fakeRepo
	enteredVoice chan struct{}
	releaseVoice chan struct{}
}

func (b *blockingRepo) SetCustomVoice(ctx context.Context, id, voiceID string) error {
	close(b.enteredVoice)
	<-b.releaseVoice
	return b.fakeRepo.SetCustomVoice(ctx, id, voiceID)
}

/*
TestRedub_SerializesWithCallbacks verifies a redub's two updates run under
the per-story lock, so a callback outcome for the same story cannot land
between the voice selection and the audio-status flip.
*/
func TestRedub_SerializesWithCallbacks(t *testing.T) {
	base := newFakeRepo()
	repo := &blockingRepo{
		fakeRepo:     base,
		enteredVoice: make(chan struct{}),
		releaseVoice: make(chan struct{}),
	}
	trigger := &fakeTrigger{}
	service := story.NewService(repo, trigger, &fakeReconciler{}, fakeVoices{}, 2, discardLogger())
	seedStory(base, "s1", "owner-1", story.StatusPublished)

	redubDone := make(chan error, 1)
	go func() {
		redubDone <- service.Redub(context.Background(), "s1", "voice-1", "owner-1")
	}()
	<-repo.enteredVoice // redub is mid-mutation, holding the lock

	callbackDone := make(chan error, 1)
	go func() {
		callbackDone <- service.HandleWorkflowCallback(context.Background(), story.Callback{
			StoryID: "s1",
			Status:  "FAILED",
			Type:    story.CallbackTypeRedub,
		})
	}()

	// The outcome must wait for the redub to finish
	select {
	case <-callbackDone:
		t.Fatal("callback completed while a redub held the story lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(repo.releaseVoice)
	require.NoError(t, <-redubDone)
	require.NoError(t, <-callbackDone)

	// The failure outcome landed after the complete redub, never between
	// its two updates
	require.NotNil(t, base.stories["s1"].CustomVoiceID)
	require.NotNil(t, base.stories["s1"].AudioStatus)
	assert.Equal(t, story.StatusFailed, *base.stories["s1"].AudioStatus)
}

// # Status Parsing

/*
TestParseStatus verifies lifecycle parsing accepts any casing and rejects
unknown values.
*/
func TestParseStatus(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  story.Status
		valid bool
	}{
		{name: "uppercase", raw: "PUBLISHED", want: story.StatusPublished, valid: true},
		{name: "lowercase", raw: "generating", want: story.StatusGenerating, valid: true},
		{name: "draft reserved but parseable", raw: "DRAFT", want: story.StatusDraft, valid: true},
		{name: "unknown", raw: "ARCHIVED", valid: false},
		{name: "empty", raw: "", valid: false},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got, ok := story.ParseStatus(testCase.raw)
			assert.Equal(t, testCase.valid, ok)
			if testCase.valid {
				assert.Equal(t, testCase.want, got)
			}
		})
	}
}
