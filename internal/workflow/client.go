// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package workflow dispatches generation requests to the external workflow
engine.

Dispatch is one-way and at-most-once: the client posts the request, checks
only that the engine accepted it, and never retries. Retrying could start a
second generation run for the same story, which is worse than surfacing the
failure to the caller. Outcomes arrive later through the story callback
endpoint.
*/
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// dispatchTimeout bounds a trigger call. The engine only needs to accept
// the request, not run it, so a short deadline is enough.
const dispatchTimeout = 10 * time.Second

// # Trigger Client

// Client posts generation and redub triggers to the workflow engine's
// webhook endpoints.
type Client struct {
	generateURL string
	redubURL    string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient constructs a workflow trigger [Client].
func NewClient(generateURL, redubURL string, logger *slog.Logger) *Client {
	return &Client{
		generateURL: generateURL,
		redubURL:    redubURL,
		httpClient:  &http.Client{Timeout: dispatchTimeout},
		logger:      logger,
	}
}

// generatePayload is the body posted to the generation webhook.
type generatePayload struct {
	StoryID   string  `json:"storyId"`
	Prompt    string  `json:"prompt"`
	StyleID   string  `json:"styleId"`
	UserID    string  `json:"userId"`
	VoicePath *string `json:"voicePath,omitempty"`
}

// redubPayload is the body posted to the redub webhook.
type redubPayload struct {
	StoryID   string  `json:"storyId"`
	UserID    string  `json:"userId"`
	VoicePath *string `json:"voicePath,omitempty"`
	Type      string  `json:"type"`
}

/*
TriggerGeneration asks the engine to generate a new story.

Parameters:
  - context: context.Context
  - storyID: string (the placeholder row's ID, echoed back in the callback)
  - prompt: string
  - styleID: string
  - userID: string
  - voicePath: *string (optional custom voice sample location)

Returns:
  - error: Dispatch failures; the engine accepting the request returns nil
*/
func (client *Client) TriggerGeneration(context context.Context, storyID, prompt, styleID, userID string, voicePath *string) error {

	payload := generatePayload{
		StoryID:   storyID,
		Prompt:    prompt,
		StyleID:   styleID,
		UserID:    userID,
		VoicePath: voicePath,
	}

	return client.post(context, client.generateURL, payload, storyID)
}

/*
TriggerRedub asks the engine to re-narrate an existing story.

Parameters:
  - context: context.Context
  - storyID: string
  - userID: string (the story owner; redub output lands in their directory)
  - voicePath: *string

Returns:
  - error: Dispatch failures
*/
func (client *Client) TriggerRedub(context context.Context, storyID, userID string, voicePath *string) error {

	payload := redubPayload{
		StoryID:   storyID,
		UserID:    userID,
		VoicePath: voicePath,
		Type:      "REDUB",
	}

	return client.post(context, client.redubURL, payload, storyID)
}

// post sends one webhook call and validates only that it was accepted.
func (client *Client) post(context context.Context, url string, payload any, storyID string) error {

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("workflow: failed to encode trigger payload: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("workflow: failed to build trigger request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("workflow: trigger dispatch failed: %w", err)
	}
	defer response.Body.Close()

	// Any 2xx means the engine accepted the run
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("workflow: engine rejected trigger with status %d", response.StatusCode)
	}

	client.logger.Info("workflow.trigger.dispatched",
		"story_id", storyID,
		"url", url,
	)

	return nil
}
