// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package history

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/fabula/internal/platform/middleware"
	requestutil "github.com/taibuivan/fabula/internal/platform/request"
	"github.com/taibuivan/fabula/internal/platform/respond"
)

// # Handler Implementation

// Handler implements the HTTP layer for reading progress. All endpoints
// require authentication; guest positions are kept client-side only.
type Handler struct {
	service *Service
}

// NewHandler constructs a new history [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the progress endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.recent)
	router.Put("/{storyID}", handler.report)
	router.Get("/{storyID}", handler.position)

	return router
}

type reportRequest struct {
	StyleName       string `json:"styleName,omitempty"`
	CurrentPage     int    `json:"currentPage"`
	DurationSeconds int    `json:"durationSeconds"`
}

/*
GET /api/v1/history.

Response:
  - 200: []Progress: The caller's continue-reading shelf
*/
func (handler *Handler) recent(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	items, err := handler.service.Recent(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, items)
}

/*
PUT /api/v1/history/{storyID}.

Description: Reports the caller's position in a story. The client sends
the page currently open and the seconds spent since the last report;
duration accumulates server-side.

Request:
  - styleName: string (optional, the style being read)
  - currentPage: int (>= 1)
  - durationSeconds: int (>= 0, delta since last report)

Response:
  - 204: Position recorded
  - 422: Validation failure
*/
func (handler *Handler) report(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload reportRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	progress := &Progress{
		UserID:          userID,
		StoryID:         requestutil.ID(request, "storyID"),
		StyleName:       payload.StyleName,
		CurrentPage:     payload.CurrentPage,
		DurationSeconds: payload.DurationSeconds,
	}
	if err := handler.service.Report(request.Context(), progress); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
GET /api/v1/history/{storyID}.

Response:
  - 200: Progress: The caller's position in the story
  - 404: The caller never read the story
*/
func (handler *Handler) position(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	progress, err := handler.service.Position(request.Context(), userID, requestutil.ID(request, "storyID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, progress)
}
