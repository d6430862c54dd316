// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package voice

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/fabula/internal/platform/apperr"
	"github.com/taibuivan/fabula/internal/platform/middleware"
	requestutil "github.com/taibuivan/fabula/internal/platform/request"
	"github.com/taibuivan/fabula/internal/platform/respond"
)

// # Handler Implementation

// Handler implements the HTTP layer for voice sample management. All
// endpoints require authentication; guests cannot store voices.
type Handler struct {
	service *Service
}

// NewHandler constructs a new voice [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the voice endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.listVoices)
	router.Post("/", handler.uploadVoice)
	router.Delete("/{id}", handler.deleteVoice)

	return router
}

/*
GET /api/v1/voices.

Response:
  - 200: []Voice: The caller's stored samples
*/
func (handler *Handler) listVoices(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	voices, err := handler.service.ListVoices(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, voices)
}

/*
POST /api/v1/voices.

Description: Accepts a multipart upload with a display name and an audio
file, and stores the sample where the workflow engine can read it.

Request:
  - name: string (form field)
  - file: audio attachment

Response:
  - 201: Voice: The stored sample
  - 422: Missing name or file, or oversized sample
*/
func (handler *Handler) uploadVoice(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(maxSampleBytes); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid multipart payload"))
		return
	}

	file, _, err := request.FormFile("file")
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Audio file is required"))
		return
	}
	defer file.Close()

	voice, err := handler.service.Upload(request.Context(), userID, request.FormValue("name"), file)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, voice)
}

/*
DELETE /api/v1/voices/{id}.

Response:
  - 204: Sample removed
  - 403: Caller does not own the sample
  - 404: Unknown sample
*/
func (handler *Handler) deleteVoice(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteVoice(request.Context(), requestutil.ID(request, "id"), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
