// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sync implements the filesystem to database reconciliation engine.

The workflow engine writes generated stories to a shared content directory:
a story.json manifest plus page imagery and narration audio per style. This
package reads that layout and replaces the corresponding database rows so
the API serves exactly what is on disk. Reconciliation is idempotent;
running it twice over an unchanged directory converges on the same rows.
*/
package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// # Manifest Format

// ManifestPage is one page entry inside a story.json manifest. Page numbers
// in the file are advisory; the engine assigns final numbers from manifest
// order so the stored set is always contiguous from 1.
type ManifestPage struct {
	PageNumber int    `json:"pageNumber"`
	TextZh     string `json:"textZh"`
	TextEn     string `json:"textEn"`
}

// Manifest is the story.json document the workflow engine writes next to
// the generated assets. Style names are optional; older runs omitted them.
type Manifest struct {
	TitleZh   string         `json:"titleZh"`
	TitleEn   string         `json:"titleEn"`
	StyleZh   string         `json:"styleZh,omitempty"`
	StyleEn   string         `json:"styleEn,omitempty"`
	FullStory string         `json:"fullStory"`
	Pages     []ManifestPage `json:"pages"`
}

// descriptionLimit caps the excerpt stored as the story description.
const descriptionLimit = 200

// ParseManifest reads and decodes a story.json file.
func ParseManifest(path string) (*Manifest, error) {

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sync: failed to read manifest %s: %w", path, err)
	}

	manifest := &Manifest{}
	if err := json.Unmarshal(raw, manifest); err != nil {
		return nil, fmt.Errorf("sync: failed to decode manifest %s: %w", path, err)
	}

	return manifest, nil
}

// Excerpt derives the story description from the full text: whitespace
// trimmed and cut at the rune limit so multibyte text never splits inside
// a character.
func Excerpt(fullStory string) string {

	trimmed := strings.TrimSpace(fullStory)
	runes := []rune(trimmed)
	if len(runes) <= descriptionLimit {
		return trimmed
	}

	return string(runes[:descriptionLimit])
}
