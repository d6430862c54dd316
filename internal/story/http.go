// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package story provides the HTTP interface for the story lifecycle.

It exposes endpoints for browsing published stories, starting generation
runs, requesting redubs, and the webhook the workflow engine reports back
on.

# Routing Strategy

  - Public (v1): Discovery and reading endpoints; reading is metered for
    anonymous guests.
  - Authenticated (v1): Generation and redub endpoints bound to the
    caller's account.
  - Webhook (v1): The callback endpoint the workflow engine posts
    completion reports to.
*/
package story

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/platform/middleware"
	requestutil "github.com/taibuivan/fabula/internal/platform/request"
	"github.com/taibuivan/fabula/internal/platform/respond"
	"github.com/taibuivan/fabula/pkg/pagination"
)

// GuestHeader carries the anonymous device identifier minted by the client.
const GuestHeader = "X-Guest-Id"

// GuestGate meters anonymous reading. Authenticated users bypass the gate.
type GuestGate interface {
	// AuthorizeRead records or rejects a guest's access to a story.
	// Re-reading a story already counted today is always allowed.
	AuthorizeRead(context context.Context, guestID, storyID string) error
}

// # Handler Implementation

// Handler implements the HTTP layer for story discovery and generation.
type Handler struct {
	service *Service
	gate    GuestGate
}

// NewHandler constructs a new story [Handler].
func NewHandler(service *Service, gate GuestGate) *Handler {
	return &Handler{service: service, gate: gate}
}

// Routes returns a [chi.Router] configured with the story endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Discovery
	router.Get("/", handler.listStories)
	router.Get("/{id}", handler.getStory)
	router.Get("/{id}/content", handler.getStoryContent)

	// ## Workflow Webhook
	router.Post("/callback", handler.workflowCallback)

	// ## Authenticated Operations
	router.Group(func(private chi.Router) {
		private.Use(middleware.RequireAuth)

		private.Get("/mine", handler.listOwnStories)
		private.Post("/generate", handler.createStory)
		private.Post("/{id}/redub", handler.redubStory)
	})

	return router
}

// # Request Payloads

type createStoryRequest struct {
	Prompt  string  `json:"prompt"`
	StyleID string  `json:"styleId"`
	VoiceID *string `json:"voiceId,omitempty"`
}

type redubRequest struct {
	VoiceID string `json:"voiceId"`
}

// # Story Endpoints

/*
GET /api/v1/stories.

Description: Retrieves a paginated list of published stories for public
browsing. Only PUBLISHED stories appear; in-flight and failed runs are
visible solely through the owner's library view.

Request:
  - keyword: string (matched across both title languages)
  - limit: int
  - page: int

Response:
  - 200: []Story: Paginated list of published stories
*/
func (handler *Handler) listStories(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	published := StatusPublished
	filter := ListFilter{
		Status:  &published,
		Keyword: request.URL.Query().Get("keyword"),
	}

	stories, total, err := handler.service.ListStories(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, stories, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/stories/mine.

Description: Retrieves the caller's own stories regardless of status, so a
user can watch a GENERATING run and see FAILED runs with their error
messages.

Response:
  - 200: []Story: Paginated list of the caller's stories
  - 401: Missing or invalid credentials
*/
func (handler *Handler) listOwnStories(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	paginationParams := pagination.FromRequest(request)
	filter := ListFilter{UserID: &userID}

	// Optional status filter for a tabbed library UI
	if raw := request.URL.Query().Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			respond.Error(writer, request, apperr.ValidationError("Unknown status filter"))
			return
		}
		filter.Status = &status
	}

	stories, total, err := handler.service.ListStories(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, stories, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/stories/{id}.

Description: Retrieves a story's metadata only. The lifecycle status and
any error message are included so clients can poll a GENERATING run.

Response:
  - 200: Story
  - 404: Unknown story ID
*/
func (handler *Handler) getStory(writer http.ResponseWriter, request *http.Request) {
	story, err := handler.service.GetStory(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, story)
}

/*
GET /api/v1/stories/{id}/content.

Description: Retrieves the full readable content of a story. Anonymous
guests identify themselves with the X-Guest-Id header and are metered to a
daily number of distinct stories; re-opening a story already read today is
free. Authenticated users read without limits.

Response:
  - 200: Detail: Story with ordered pages and styles
  - 400: Anonymous request without a guest identifier
  - 403: Guest daily reading limit reached
  - 404: Unknown story ID
*/
func (handler *Handler) getStoryContent(writer http.ResponseWriter, request *http.Request) {
	storyID := requestutil.ID(request, "id")

	// Guests pass through the reading gate; authenticated users do not
	if claims := requestutil.Claims(request); claims == nil {
		guestID := request.Header.Get(GuestHeader)
		if guestID == "" {
			respond.Error(writer, request, apperr.ValidationError("Guest identifier header is required"))
			return
		}
		if err := handler.gate.AuthorizeRead(request.Context(), guestID, storyID); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	detail, err := handler.service.GetStoryDetail(request.Context(), storyID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, detail)
}

/*
POST /api/v1/stories/generate.

Description: Starts a new generation run. The response carries the
placeholder story in GENERATING state; the client polls or subscribes for
the outcome. Creation counts against the caller's daily quota even when the
run later fails.

Request:
  - prompt: string (required)
  - styleId: string (required)
  - voiceId: string (optional custom voice)

Response:
  - 202: Story: Placeholder in GENERATING state
  - 400: Validation failure
  - 429: Daily creation quota exhausted
  - 502: Workflow engine unreachable
*/
func (handler *Handler) createStory(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload createStoryRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	story, err := handler.service.InitiateGeneration(request.Context(), userID, payload.Prompt, payload.StyleID, payload.VoiceID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, story)
}

/*
POST /api/v1/stories/{id}/redub.

Description: Re-narrates a story with one of the caller's custom voices.
Only the owner may redub. The story stays readable throughout; only
audiostatus moves.

Request:
  - voiceId: string (required, a voice owned by the caller)

Response:
  - 202: Redub accepted, audio generation in progress
  - 401: Caller does not own the story
  - 502: Workflow engine unreachable
*/
func (handler *Handler) redubStory(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload redubRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if payload.VoiceID == "" {
		respond.Error(writer, request, apperr.ValidationError("voiceId is required"))
		return
	}

	if err := handler.service.Redub(request.Context(), requestutil.ID(request, "id"), payload.VoiceID, userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, map[string]string{"status": string(StatusGenerating)})
}

/*
POST /api/v1/stories/callback.

Description: The webhook the workflow engine posts completion reports to.
The endpoint always acknowledges recognized stories with 200 so the engine
does not retry; anomalies in the payload are recorded on the story rather
than rejected.

Request:
  - storyId: string (required)
  - status: string (SUCCESS, FAILED, or anything else as an anomaly)
  - type: string (REDUB for audio-only outcomes)
  - errorMessage: string (optional failure detail)

Response:
  - 200: Outcome absorbed
  - 400: Missing storyId
*/
func (handler *Handler) workflowCallback(writer http.ResponseWriter, request *http.Request) {
	var payload Callback
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.HandleWorkflowCallback(request.Context(), payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"status": "received"})
}
