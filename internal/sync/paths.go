// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// # Content Store Layout
//
// The workflow engine lays stories out as:
//
//	{root}/{storyID}/{styleID}/story.json
//	{root}/{storyID}/{styleID}/page-{n}.png
//	{root}/{storyID}/{styleID}/page-{n}-zh.mp3
//	{root}/{storyID}/{styleID}/page-{n}-en.mp3
//	{root}/{storyID}/{userID}/page-{n}-zh.mp3   (custom voice redub output)
//
// Very old runs wrote the manifest at the story root instead of inside a
// style directory; that layout is still readable.

// ManifestName is the per-story metadata document the engine writes.
const ManifestName = "story.json"

// PublicPrefix is the URL prefix the static file server mounts the content
// store under.
const PublicPrefix = "/stories"

// ContentStore resolves filesystem paths and public URLs inside the shared
// story content directory.
type ContentStore struct {
	root string
}

// NewContentStore constructs a store rooted at the given directory.
func NewContentStore(root string) *ContentStore {
	return &ContentStore{root: root}
}

// Root returns the store's base directory.
func (store *ContentStore) Root() string {
	return store.root
}

// # Directory Listing

/*
StoryDirs lists the story directories present in the content store.

Returns:
  - []string: Directory names (story IDs) in lexicographic order
  - error: Filesystem errors; a missing root yields an empty slice
*/
func (store *ContentStore) StoryDirs() ([]string, error) {

	entries, err := os.ReadDir(store.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sync: failed to read content root: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

/*
StyleDirs lists the style subdirectories of one story that contain a
manifest.

Description: The listing is sorted lexicographically so the adopted style
for a story without an explicit selection is deterministic across runs and
hosts, regardless of directory enumeration order.

Parameters:
  - storyID: string

Returns:
  - []string: Style directory names holding a story.json, sorted
  - error: Filesystem errors
*/
func (store *ContentStore) StyleDirs(storyID string) ([]string, error) {

	storyDir, err := store.storyPath(storyID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(storyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sync: failed to read story directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest := filepath.Join(storyDir, entry.Name(), ManifestName)
		if _, err := os.Stat(manifest); err == nil {
			dirs = append(dirs, entry.Name())
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// # Path Resolution

// ManifestPath returns the manifest location inside a style directory.
func (store *ContentStore) ManifestPath(storyID, styleID string) (string, error) {
	dir, err := store.stylePath(storyID, styleID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ManifestName), nil
}

// LegacyManifestPath returns the story-root manifest location used by very
// old generation runs.
func (store *ContentStore) LegacyManifestPath(storyID string) (string, error) {
	dir, err := store.storyPath(storyID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ManifestName), nil
}

// PageImagePath returns the on-disk location of a page illustration.
func (store *ContentStore) PageImagePath(storyID, styleID string, page int) (string, error) {
	dir, err := store.stylePath(storyID, styleID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("page-%d.png", page)), nil
}

// PageAudioPath returns the on-disk location of a page narration file.
// lang is "zh" or "en".
func (store *ContentStore) PageAudioPath(storyID, styleID string, page int, lang string) (string, error) {
	dir, err := store.stylePath(storyID, styleID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("page-%d-%s.mp3", page, lang)), nil
}

// CustomAudioPath returns the on-disk location of a custom-voice narration
// file, which the redub pipeline writes under the owner's directory.
func (store *ContentStore) CustomAudioPath(storyID, userID string, page int, lang string) (string, error) {
	dir, err := store.stylePath(storyID, userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("page-%d-%s.mp3", page, lang)), nil
}

// # Public URLs

// PageImageURL returns the URL the static server exposes an illustration at.
func (store *ContentStore) PageImageURL(storyID, styleID string, page int) string {
	return fmt.Sprintf("%s/%s/%s/page-%d.png", PublicPrefix, storyID, styleID, page)
}

// PageAudioURL returns the public URL of a page narration file.
func (store *ContentStore) PageAudioURL(storyID, styleID string, page int, lang string) string {
	return fmt.Sprintf("%s/%s/%s/page-%d-%s.mp3", PublicPrefix, storyID, styleID, page, lang)
}

// CustomAudioURL returns the public URL of a custom-voice narration file.
func (store *ContentStore) CustomAudioURL(storyID, userID string, page int, lang string) string {
	return fmt.Sprintf("%s/%s/%s/page-%d-%s.mp3", PublicPrefix, storyID, userID, page, lang)
}

// # Safety

// storyPath joins the root with a validated story segment.
func (store *ContentStore) storyPath(storyID string) (string, error) {
	if err := validateSegment(storyID); err != nil {
		return "", err
	}
	return filepath.Join(store.root, storyID), nil
}

// stylePath joins the root with validated story and style segments.
func (store *ContentStore) stylePath(storyID, styleID string) (string, error) {
	if err := validateSegment(storyID); err != nil {
		return "", err
	}
	if err := validateSegment(styleID); err != nil {
		return "", err
	}
	return filepath.Join(store.root, storyID, styleID), nil
}

// validateSegment rejects identifiers that could escape the content root.
// IDs arrive from external callbacks and URLs, so path traversal must be
// impossible regardless of what the database holds.
func validateSegment(segment string) error {
	if segment == "" || segment == "." || segment == ".." {
		return fmt.Errorf("sync: invalid path segment %q", segment)
	}
	if strings.ContainsAny(segment, `/\`) || strings.Contains(segment, "..") {
		return fmt.Errorf("sync: invalid path segment %q", segment)
	}
	return nil
}
