// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sync_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/story"
	storysync "github.com/taibuivan/fabula/internal/sync"
)

// # Test Fakes

type fakeRepo struct {
	stories map[string]*story.Story
	pages   map[string][]*story.Page
	styles  map[string]*story.Style
	updates map[int][2]*string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stories: make(map[string]*story.Story),
		pages:   make(map[string][]*story.Page),
		styles:  make(map[string]*story.Style),
		updates: make(map[int][2]*string),
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

func (f *fakeRepo) List(_ context.Context, _ story.ListFilter, _, _ int) ([]*story.Story, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Create(_ context.Context, s *story.Story) error {
	f.stories[s.ID] = s
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
	return nil
}

func (f *fakeRepo) SetCustomVoice(_ context.Context, id, voiceID string) error { return nil }

func (f *fakeRepo) AdoptStyle(_ context.Context, id, styleID string) error {
	s, ok := f.stories[id]
	if !ok {
		return apperr.NotFound("story")
	}
	s.SelectedStyleID = &styleID
	return nil
}

func (f *fakeRepo) CountCreatedSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
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
	return nil
}

func (f *fakeRepo) UpdatePageCustomAudio(_ context.Context, _ string, pageNumber int, zh, en *string) error {
	f.updates[pageNumber] = [2]*string{zh, en}
	return nil
}

// # Fixture Helpers

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeManifest(t *testing.T, dir string, manifest storysync.Manifest) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "story.json"), raw, 0o644))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func sampleManifest(pages int) storysync.Manifest {
	manifest := storysync.Manifest{
		TitleZh:   "小兔子",
		TitleEn:   "The Little Rabbit",
		StyleZh:   "水彩",
		StyleEn:   "Watercolor",
		FullStory: "Once upon a time a little rabbit set out to find the moon.",
	}
	for i := 1; i <= pages; i++ {
		manifest.Pages = append(manifest.Pages, storysync.ManifestPage{
			PageNumber: i,
			TextZh:     "第" + string(rune('0'+i)) + "页",
			TextEn:     "Page text",
		})
	}
	return manifest
}

// # Reconciliation Tests

/*
TestReconcileOne_ImportsManifest verifies a full import: titles,
description excerpt, contiguous page numbers, and asset URLs for files
present on disk.
*/
func TestReconcileOne_ImportsManifest(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	styleID := "watercolor"
	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished, SelectedStyleID: &styleID}

	styleDir := filepath.Join(root, "s1", "watercolor")
	writeManifest(t, styleDir, sampleManifest(2))
	touch(t, filepath.Join(styleDir, "page-1.png"))
	touch(t, filepath.Join(styleDir, "page-2.png"))
	touch(t, filepath.Join(styleDir, "page-1-zh.mp3"))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	imported := repo.stories["s1"]
	assert.Equal(t, story.StatusPublished, imported.Status)
	assert.Equal(t, "小兔子", imported.TitleZh)
	assert.Equal(t, "The Little Rabbit", imported.TitleEn)
	assert.Contains(t, imported.Description, "little rabbit")

	pages := repo.pages["s1"]
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, "/stories/s1/watercolor/page-1.png", pages[0].ImageURL)

	// Narration URLs only where the file exists
	require.NotNil(t, pages[0].AudioURLZh)
	assert.Equal(t, "/stories/s1/watercolor/page-1-zh.mp3", *pages[0].AudioURLZh)
	assert.Nil(t, pages[0].AudioURLEn)
	assert.Nil(t, pages[1].AudioURLZh)

	style := repo.styles["s1"]
	require.NotNil(t, style)
	assert.Equal(t, "水彩", style.Name)
	assert.Equal(t, "Watercolor", style.NameEn)
}

/*
TestReconcileOne_RenumbersPages verifies page numbers come from manifest
order, not the numbers the file claims.
*/
func TestReconcileOne_RenumbersPages(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	styleID := "anime"
	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished, SelectedStyleID: &styleID}

	// Manifest claims wild page numbers with gaps
	manifest := sampleManifest(0)
	manifest.Pages = []storysync.ManifestPage{
		{PageNumber: 7, TextEn: "first"},
		{PageNumber: 3, TextEn: "second"},
		{PageNumber: 99, TextEn: "third"},
	}
	writeManifest(t, filepath.Join(root, "s1", "anime"), manifest)

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	pages := repo.pages["s1"]
	require.Len(t, pages, 3)
	for i, page := range pages {
		assert.Equal(t, i+1, page.PageNumber)
	}
	assert.Equal(t, "first", pages[0].TextEn)
	assert.Equal(t, "third", pages[2].TextEn)
}

/*
TestReconcileOne_EmptyManifestFails verifies a zero-page manifest marks
the story FAILED rather than publishing an unreadable story.
*/
func TestReconcileOne_EmptyManifestFails(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	styleID := "anime"
	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished, SelectedStyleID: &styleID}
	writeManifest(t, filepath.Join(root, "s1", "anime"), sampleManifest(0))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	assert.Equal(t, story.StatusFailed, repo.stories["s1"].Status)
	require.NotNil(t, repo.stories["s1"].ErrorMessage)
	assert.Contains(t, *repo.stories["s1"].ErrorMessage, "no pages")
	assert.Empty(t, repo.pages["s1"])
}

/*
TestReconcileOne_MissingContentFails verifies a story directory without
any manifest marks the story FAILED.
*/
func TestReconcileOne_MissingContentFails(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "s1"), 0o755))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	assert.Equal(t, story.StatusFailed, repo.stories["s1"].Status)
}

/*
TestReconcileOne_UnparseableManifestFails verifies a malformed story.json
marks the story FAILED and records the decode error on the row.
*/
func TestReconcileOne_UnparseableManifestFails(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	styleID := "anime"
	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished, SelectedStyleID: &styleID}

	styleDir := filepath.Join(root, "s1", "anime")
	require.NoError(t, os.MkdirAll(styleDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(styleDir, "story.json"), []byte("{not json"), 0o644))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	assert.Equal(t, story.StatusFailed, repo.stories["s1"].Status)
	require.NotNil(t, repo.stories["s1"].ErrorMessage)
	// The stored message carries the decode failure, not a generic label
	assert.Contains(t, *repo.stories["s1"].ErrorMessage, "Failed to parse story manifest")
	assert.Contains(t, *repo.stories["s1"].ErrorMessage, "story.json")
	assert.Empty(t, repo.pages["s1"])
}

/*
TestReconcileOne_ImageURLsFollowConvention verifies page image URLs are
derived from the path convention even before the image files land on disk.
*/
func TestReconcileOne_ImageURLsFollowConvention(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	styleID := "anime"
	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished, SelectedStyleID: &styleID}
	writeManifest(t, filepath.Join(root, "s1", "anime"), sampleManifest(2))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	pages := repo.pages["s1"]
	require.Len(t, pages, 2)
	assert.Equal(t, "/stories/s1/anime/page-1.png", pages[0].ImageURL)
	assert.Equal(t, "/stories/s1/anime/page-2.png", pages[1].ImageURL)
	// Narration stays stat-gated; no audio files were written
	assert.Nil(t, pages[0].AudioURLZh)
	assert.Nil(t, pages[0].AudioURLEn)
}

/*
TestReconcileOne_AdoptsFirstStyle verifies that with no explicit
selection, the lexicographically first style directory wins and the
choice is recorded.
*/
func TestReconcileOne_AdoptsFirstStyle(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished}

	// Two candidate styles; "anime" sorts before "watercolor"
	writeManifest(t, filepath.Join(root, "s1", "watercolor"), sampleManifest(1))
	writeManifest(t, filepath.Join(root, "s1", "anime"), sampleManifest(1))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	require.NotNil(t, repo.stories["s1"].SelectedStyleID)
	assert.Equal(t, "anime", *repo.stories["s1"].SelectedStyleID)
}

/*
TestReconcileOne_LegacyRootManifest verifies the old layout with
story.json at the story root is still importable.
*/
func TestReconcileOne_LegacyRootManifest(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished}
	writeManifest(t, filepath.Join(root, "s1"), sampleManifest(2))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))

	assert.Equal(t, story.StatusPublished, repo.stories["s1"].Status)
	assert.Len(t, repo.pages["s1"], 2)
}

/*
TestReconcileOne_Idempotent verifies running the import twice converges
on the same state.
*/
func TestReconcileOne_Idempotent(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	styleID := "anime"
	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusPublished, SelectedStyleID: &styleID}
	writeManifest(t, filepath.Join(root, "s1", "anime"), sampleManifest(3))

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))
	firstPages := repo.pages["s1"]

	require.NoError(t, engine.ReconcileOne(context.Background(), "s1"))
	secondPages := repo.pages["s1"]

	require.Equal(t, len(firstPages), len(secondPages))
	for i := range firstPages {
		assert.Equal(t, firstPages[i].PageNumber, secondPages[i].PageNumber)
		assert.Equal(t, firstPages[i].ImageURL, secondPages[i].ImageURL)
	}
}

// # Sweep Tests

/*
TestReconcileAll_AdoptsUnknownDirectories verifies on-disk stories with no
database row are adopted as ownerless PUBLISHED stories.
*/
func TestReconcileAll_AdoptsUnknownDirectories(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	writeManifest(t, filepath.Join(root, "legacy-1", "anime"), sampleManifest(1))

	require.NoError(t, engine.ReconcileAll(context.Background()))

	adopted, ok := repo.stories["legacy-1"]
	require.True(t, ok)
	assert.Equal(t, story.StatusPublished, adopted.Status)
	assert.Nil(t, adopted.UserID)
	assert.Len(t, repo.pages["legacy-1"], 1)
}

/*
TestReconcileAll_SkipsManifestlessDirectories verifies a directory holding
no manifest anywhere is not a story and never produces a row.
*/
func TestReconcileAll_SkipsManifestlessDirectories(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	junk := filepath.Join(root, "lost+found")
	require.NoError(t, os.MkdirAll(junk, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(junk, "notes.txt"), []byte("scratch"), 0o644))

	require.NoError(t, engine.ReconcileAll(context.Background()))

	assert.Empty(t, repo.stories)
}

/*
TestReconcileAll_RepairsInterruptedRun verifies the sweep publishes a
GENERATING story whose content landed on disk but whose callback was lost,
while a GENERATING story with no directory is never visited.
*/
func TestReconcileAll_RepairsInterruptedRun(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	repo.stories["s1"] = &story.Story{ID: "s1", Status: story.StatusGenerating}
	writeManifest(t, filepath.Join(root, "s1", "anime"), sampleManifest(1))

	repo.stories["s2"] = &story.Story{ID: "s2", Status: story.StatusGenerating}

	require.NoError(t, engine.ReconcileAll(context.Background()))

	assert.Equal(t, story.StatusPublished, repo.stories["s1"].Status)
	assert.Len(t, repo.pages["s1"], 1)

	assert.Equal(t, story.StatusGenerating, repo.stories["s2"].Status)
	assert.Empty(t, repo.pages["s2"])
}

// # Custom Audio Tests

/*
TestSyncCustomAudio_AttachesFiles verifies custom narration files update
existing pages in place.
*/
func TestSyncCustomAudio_AttachesFiles(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	repo.pages["s1"] = []*story.Page{{PageNumber: 1}, {PageNumber: 2}}

	userDir := filepath.Join(root, "s1", "owner-1")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	touch(t, filepath.Join(userDir, "page-1-zh.mp3"))
	touch(t, filepath.Join(userDir, "page-1-en.mp3"))
	touch(t, filepath.Join(userDir, "page-2-zh.mp3"))

	require.NoError(t, engine.SyncCustomAudio(context.Background(), "s1", "owner-1"))

	require.Contains(t, repo.updates, 1)
	require.NotNil(t, repo.updates[1][0])
	assert.Equal(t, "/stories/s1/owner-1/page-1-zh.mp3", *repo.updates[1][0])
	require.NotNil(t, repo.updates[1][1])

	require.Contains(t, repo.updates, 2)
	assert.Nil(t, repo.updates[2][1])
}

/*
TestSyncCustomAudio_NothingFound verifies an empty redub output directory
is an error so the caller can fail the audio track.
*/
func TestSyncCustomAudio_NothingFound(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())

	repo.pages["s1"] = []*story.Page{{PageNumber: 1}}

	err := engine.SyncCustomAudio(context.Background(), "s1", "owner-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no custom audio")
}

// # Manifest Tests

/*
TestParseManifest_ToleratesVariants verifies the decoder ignores fields the
workflow engine adds over time and accepts manifests without the optional
style names.
*/
func TestParseManifest_ToleratesVariants(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "story.json")

	raw := `{
		"titleZh": "小兔子",
		"titleEn": "The Little Rabbit",
		"fullStory": "Once upon a time.",
		"generatorVersion": "2.3",
		"seed": 42,
		"pages": [{"pageNumber": 1, "textZh": "第一页", "textEn": "Page one", "imagePrompt": "a rabbit"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	manifest, err := storysync.ParseManifest(path)

	require.NoError(t, err)
	assert.Equal(t, "The Little Rabbit", manifest.TitleEn)
	assert.Empty(t, manifest.StyleZh)
	require.Len(t, manifest.Pages, 1)
	assert.Equal(t, "Page one", manifest.Pages[0].TextEn)
}

// # Excerpt Tests

/*
TestExcerpt verifies the description excerpt trims whitespace and cuts at
the rune limit without splitting multibyte characters.
*/
func TestExcerpt(t *testing.T) {
	// Short text passes through trimmed
	assert.Equal(t, "hello", storysync.Excerpt("  hello \n"))

	// Long multibyte text cuts at 200 runes exactly
	long := strings.Repeat("月", 250)
	excerpt := storysync.Excerpt(long)
	assert.Equal(t, 200, len([]rune(excerpt)))
	assert.Equal(t, strings.Repeat("月", 200), excerpt)
}
