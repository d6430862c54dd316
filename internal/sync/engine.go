// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/story"
)

// # Reconciliation Engine

// Engine synchronizes the content store with the Story Record Store. It
// implements the reconciliation contract the story service dispatches to
// after a successful workflow callback, plus a full sweep run at startup.
type Engine struct {
	repo   story.Repository
	store  *ContentStore
	logger *slog.Logger
}

// NewEngine constructs a reconciliation [Engine].
func NewEngine(repo story.Repository, store *ContentStore, logger *slog.Logger) *Engine {
	return &Engine{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

// resolvedContent points at the manifest chosen for a story and the style
// directory its assets live in. legacy marks the old root-manifest layout
// where assets sit directly under the story directory.
type resolvedContent struct {
	manifestPath string
	styleID      string
	adopted      bool
	legacy       bool
}

/*
ReconcileAll sweeps the whole content store against the database.

Description: Runs at startup. Every on-disk story directory is visited:
rows with a directory are re-imported, so edits made directly to the
content store become visible and a crash between the content write and the
callback is repaired, and directories with no matching row are adopted as
ownerless PUBLISHED stories, which is how content predating the database
survives redeployments. A GENERATING row with no directory is never visited
at all; its workflow run has not written anything yet and the callback owns
its transition.

Directories whose style cannot be determined are skipped with a warning and
produce no rows. Per-story failures are logged and skipped so one corrupt
manifest cannot block the sweep.

Parameters:
  - context: context.Context

Returns:
  - error: Only filesystem errors enumerating the root; per-story errors
    are absorbed
*/
func (engine *Engine) ReconcileAll(context context.Context) error {

	started := time.Now()
	dirs, err := engine.store.StoryDirs()
	if err != nil {
		return err
	}

	var synced, adopted, skipped int
	for _, storyID := range dirs {
		row, err := engine.repo.FindByID(context, storyID)
		switch {
		case err == nil:
			// A directory whose style cannot be determined is left out of
			// sync until its selection is known by some other path
			if _, resolveErr := engine.resolveContent(row); resolveErr != nil {
				engine.logger.Warn("sync.sweep.style_unresolved",
					"story_id", storyID,
					"error", resolveErr.Error(),
				)
				skipped++
				continue
			}
			if err := engine.ReconcileOne(context, storyID); err != nil {
				engine.logger.Warn("sync.sweep.story_failed",
					"story_id", storyID,
					"error", err.Error(),
				)
				continue
			}
			synced++

		case apperr.IsAppError(err):
			// On-disk story with no row: adopt it as ownerless content.
			// Directories holding no manifest at all are not stories and
			// must not produce rows.
			if _, resolveErr := engine.resolveContent(&story.Story{ID: storyID}); resolveErr != nil {
				engine.logger.Warn("sync.sweep.style_unresolved",
					"story_id", storyID,
					"error", resolveErr.Error(),
				)
				skipped++
				continue
			}
			if err := engine.adoptStory(context, storyID); err != nil {
				engine.logger.Warn("sync.sweep.adopt_failed",
					"story_id", storyID,
					"error", err.Error(),
				)
				continue
			}
			adopted++

		default:
			return err
		}
	}

	engine.logger.Info("sync.sweep.completed",
		"synced", synced,
		"adopted", adopted,
		"skipped", skipped,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return nil
}

// adoptStory creates a PUBLISHED row for an on-disk story that predates
// the database, then imports its content.
func (engine *Engine) adoptStory(context context.Context, storyID string) error {

	now := time.Now()
	row := &story.Story{
		ID:        storyID,
		Status:    story.StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := engine.repo.Create(context, row); err != nil {
		return err
	}

	return engine.ReconcileOne(context, storyID)
}

/*
ReconcileOne imports a single story's content from disk into the database.

Description: Resolves the manifest (explicit style selection first, then
the lexicographically first style directory holding one, then the legacy
root location), parses it, and replaces the story's pages, style row,
titles, and description in one transaction. Page numbers are assigned from
manifest order so the stored set is contiguous from 1 regardless of what
the file claims. Narration URLs are recorded only for audio files that
exist on disk.

The import fails closed: a missing or unreadable manifest, or one with no
pages, marks the story FAILED instead of leaving stale rows behind.

Parameters:
  - context: context.Context
  - storyID: string

Returns:
  - error: Database failures; content problems are recorded on the row
*/
func (engine *Engine) ReconcileOne(context context.Context, storyID string) error {

	row, err := engine.repo.FindByID(context, storyID)
	if err != nil {
		return err
	}

	// Content problems carry their cause onto the row so operators can
	// diagnose a FAILED story without correlating logs
	resolved, err := engine.resolveContent(row)
	if err != nil {
		message := "Generated content is missing or unreadable: " + err.Error()
		engine.logger.Warn("sync.reconcile.unresolved",
			"story_id", storyID,
			"error", err.Error(),
		)
		return engine.repo.SetStatus(context, storyID, story.StatusFailed, &message)
	}

	manifest, err := ParseManifest(resolved.manifestPath)
	if err != nil {
		message := "Failed to parse story manifest: " + err.Error()
		engine.logger.Warn("sync.reconcile.bad_manifest",
			"story_id", storyID,
			"error", err.Error(),
		)
		return engine.repo.SetStatus(context, storyID, story.StatusFailed, &message)
	}

	if len(manifest.Pages) == 0 {
		message := "Generated content contains no pages"
		return engine.repo.SetStatus(context, storyID, story.StatusFailed, &message)
	}

	pages := engine.buildPages(row, manifest, resolved)
	style := engine.buildStyle(manifest, resolved, storyID)

	// Record an inferred style selection before the content swap so a
	// rerun resolves the same directory without re-inferring
	if resolved.adopted && !resolved.legacy {
		if err := engine.repo.AdoptStyle(context, storyID, resolved.styleID); err != nil {
			return err
		}
		row.SelectedStyleID = &resolved.styleID
	}

	row.TitleZh = manifest.TitleZh
	row.TitleEn = manifest.TitleEn
	row.Description = Excerpt(manifest.FullStory)
	row.Status = story.StatusPublished

	if err := engine.repo.ReplaceContent(context, row, pages, style); err != nil {
		return err
	}

	engine.logger.Info("sync.reconcile.completed",
		"story_id", storyID,
		"style_id", resolved.styleID,
		"pages", len(pages),
	)

	return nil
}

// resolveContent locates the manifest to import for a story.
func (engine *Engine) resolveContent(row *story.Story) (*resolvedContent, error) {

	// Explicit selection wins when its directory actually holds a manifest
	if row.SelectedStyleID != nil && *row.SelectedStyleID != "" {
		path, err := engine.store.ManifestPath(row.ID, *row.SelectedStyleID)
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return &resolvedContent{manifestPath: path, styleID: *row.SelectedStyleID}, nil
			}
		}
	}

	// Otherwise adopt the first style directory, lexicographically
	styles, err := engine.store.StyleDirs(row.ID)
	if err != nil {
		return nil, err
	}
	if len(styles) > 0 {
		path, err := engine.store.ManifestPath(row.ID, styles[0])
		if err != nil {
			return nil, err
		}
		return &resolvedContent{manifestPath: path, styleID: styles[0], adopted: true}, nil
	}

	// Legacy layout: manifest and assets at the story root
	path, err := engine.store.LegacyManifestPath(row.ID)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return &resolvedContent{manifestPath: path, legacy: true}, nil
	}

	return nil, fmt.Errorf("sync: no manifest found for story %s", row.ID)
}

// buildPages converts manifest entries into page rows, attaching asset
// URLs for files present on disk.
func (engine *Engine) buildPages(row *story.Story, manifest *Manifest, resolved *resolvedContent) []*story.Page {

	pages := make([]*story.Page, 0, len(manifest.Pages))
	for index, entry := range manifest.Pages {
		number := index + 1
		page := &story.Page{
			PageNumber: number,
			TextZh:     entry.TextZh,
			TextEn:     entry.TextEn,
		}

		if !resolved.legacy {
			// Image URLs follow the fixed path convention unconditionally;
			// narration is optional, so only files present on disk are linked
			page.ImageURL = engine.store.PageImageURL(row.ID, resolved.styleID, number)
			page.AudioURLZh = engine.audioURL(row.ID, resolved.styleID, number, "zh")
			page.AudioURLEn = engine.audioURL(row.ID, resolved.styleID, number, "en")
		}

		// Custom narration survives content replacement by being rebuilt
		// from disk on every import
		if row.UserID != nil && row.CustomVoiceID != nil {
			page.CustomAudioURLZh = engine.customAudioURL(row.ID, *row.UserID, number, "zh")
			page.CustomAudioURLEn = engine.customAudioURL(row.ID, *row.UserID, number, "en")
		}

		pages = append(pages, page)
	}

	return pages
}

// buildStyle derives the single style row for the import.
func (engine *Engine) buildStyle(manifest *Manifest, resolved *resolvedContent, storyID string) *story.Style {

	if resolved.legacy {
		return nil
	}

	style := &story.Style{
		Name:   manifest.StyleZh,
		NameEn: manifest.StyleEn,
	}

	// Older manifests carry no style names; the directory name stands in
	if style.Name == "" {
		style.Name = resolved.styleID
	}
	if style.NameEn == "" {
		style.NameEn = resolved.styleID
	}

	style.CoverImage = engine.store.PageImageURL(storyID, resolved.styleID, 1)
	return style
}

// audioURL returns the public URL for a narration file, or nil if the
// file does not exist.
func (engine *Engine) audioURL(storyID, styleID string, page int, lang string) *string {

	path, err := engine.store.PageAudioPath(storyID, styleID, page, lang)
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	url := engine.store.PageAudioURL(storyID, styleID, page, lang)
	return &url
}

// customAudioURL returns the public URL for a custom narration file, or
// nil if the file does not exist.
func (engine *Engine) customAudioURL(storyID, userID string, page int, lang string) *string {

	path, err := engine.store.CustomAudioPath(storyID, userID, page, lang)
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	url := engine.store.CustomAudioURL(storyID, userID, page, lang)
	return &url
}

/*
SyncCustomAudio attaches redub output to a story's existing pages.

Description: The redub pipeline writes narration files under the owner's
directory inside the story. Each existing page is checked for its pair of
custom files and updated in place; pages are never replaced on this path.
Finding no files at all is an error so the caller can mark the audio run
FAILED instead of silently publishing nothing.

Parameters:
  - context: context.Context
  - storyID: string
  - userID: string (the story owner; the directory custom audio lives in)

Returns:
  - error: No custom audio present, or database failures
*/
func (engine *Engine) SyncCustomAudio(context context.Context, storyID, userID string) error {

	pages, err := engine.repo.ListPages(context, storyID)
	if err != nil {
		return err
	}

	var attached int
	for _, page := range pages {
		urlZh := engine.customAudioURL(storyID, userID, page.PageNumber, "zh")
		urlEn := engine.customAudioURL(storyID, userID, page.PageNumber, "en")
		if urlZh == nil && urlEn == nil {
			continue
		}
		if err := engine.repo.UpdatePageCustomAudio(context, storyID, page.PageNumber, urlZh, urlEn); err != nil {
			return err
		}
		attached++
	}

	if attached == 0 {
		return fmt.Errorf("sync: no custom audio found for story %s", storyID)
	}

	engine.logger.Info("sync.custom_audio.attached",
		"story_id", storyID,
		"pages", attached,
	)

	return nil
}
