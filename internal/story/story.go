// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package story implements the storybook generation lifecycle.

It owns the Story aggregate (story, pages, styles), the status state machine,
the generation orchestrator that talks to the external workflow, and the
callback endpoint the workflow reports back to.

Lifecycle:

  - GENERATING: the external workflow is producing content.
  - PUBLISHED:  content has been reconciled from the content store and is servable.
  - FAILED:     generation or reconciliation failed; the error is kept on the row.
  - DRAFT:      reserved; no transition currently produces it.

GENERATING is the only non-terminal state. There is no transition back to
GENERATING for the primary status; a failed story is not retried automatically.
*/
package story

import (
	"strings"
	"time"
)

// # Status State Machine

// Status is the lifecycle state of a story. The same enum is used twice per
// story: once for the primary generation and once for the custom-audio redub
// sub-process, which runs independently of the primary content.
type Status string

const (
	// StatusDraft is reserved and currently unreachable.
	StatusDraft Status = "DRAFT"
	// StatusGenerating means the external workflow is working on the story.
	StatusGenerating Status = "GENERATING"
	// StatusPublished means reconciliation succeeded and content is servable.
	StatusPublished Status = "PUBLISHED"
	// StatusFailed means generation or reconciliation failed terminally.
	StatusFailed Status = "FAILED"
)

// Valid reports whether the status is one of the defined enum values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusGenerating, StatusPublished, StatusFailed:
		return true
	}
	return false
}

// ParseStatus parses a case-insensitive status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// # Domain Entities

// Story is the relational record of a generated storybook.
//
// The ID is generation-assigned (UUIDv7), never user-chosen. UserID is nil
// for legacy stories adopted from the content store during the startup sweep.
type Story struct {
	ID               string    `json:"id"`
	UserID           *string   `json:"userId"`
	TitleZh          string    `json:"titleZh"`
	TitleEn          string    `json:"titleEn"`
	Status           Status    `json:"status"`
	AudioStatus      *Status   `json:"audioStatus,omitempty"`
	GenerationPrompt *string   `json:"generationPrompt,omitempty"`
	SelectedStyleID  *string   `json:"selectedStyleId,omitempty"`
	CustomVoiceID    *string   `json:"customVoiceId,omitempty"`
	ErrorMessage     *string   `json:"errorMessage,omitempty"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Page is a single illustrated page of a story.
//
// Pages are fully replaced on every reconciliation; page numbers are
// contiguous starting at 1 after a successful sync. Media URLs are derived
// from the fixed content-store path convention, never stored by the workflow.
type Page struct {
	StoryID          string  `json:"-"`
	PageNumber       int     `json:"pageNumber"`
	TextZh           string  `json:"textZh"`
	TextEn           string  `json:"textEn"`
	ImageURL         string  `json:"imageUrl"`
	AudioURLZh       *string `json:"audioUrlZh,omitempty"`
	AudioURLEn       *string `json:"audioUrlEn,omitempty"`
	CustomAudioURLZh *string `json:"customAudioUrlZh,omitempty"`
	CustomAudioURLEn *string `json:"customAudioUrlEn,omitempty"`
}

// Style is a named visual variant of a story's illustrations. Reconciliation
// keeps at most one style row per story (the currently-resolved style).
// Pages and styles are keyed by (storyid, pagenumber) and (storyid, name);
// neither carries a surrogate ID.
type Style struct {
	StoryID    string `json:"-"`
	Name       string `json:"name"`
	NameEn     string `json:"nameEn"`
	CoverImage string `json:"coverImage"`
}

// # Query Filters

// ListFilter narrows story listings.
type ListFilter struct {
	// UserID restricts results to stories owned by the given user.
	UserID *string
	// Status restricts results to a single lifecycle state.
	Status *Status
	// Keyword matches against both bilingual titles (case-insensitive).
	Keyword string
}
