// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package workflow_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/workflow"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

/*
TestTriggerGeneration_PostsPayload verifies the generation webhook
receives the full JSON payload and a 2xx response counts as dispatched.
*/
func TestTriggerGeneration_PostsPayload(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(request.Body).Decode(&received))
		writer.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := workflow.NewClient(server.URL, server.URL+"/redub", discardLogger())

	voicePath := "/voices/u1/v1.mp3"
	err := client.TriggerGeneration(context.Background(), "s1", "a brave rabbit", "watercolor", "u1", &voicePath)

	require.NoError(t, err)
	assert.Equal(t, "s1", received["storyId"])
	assert.Equal(t, "a brave rabbit", received["prompt"])
	assert.Equal(t, "watercolor", received["styleId"])
	assert.Equal(t, "u1", received["userId"])
	assert.Equal(t, voicePath, received["voicePath"])
}

/*
TestTriggerRedub_MarksType verifies redub dispatches carry the REDUB type
marker so the engine routes them to the audio pipeline.
*/
func TestTriggerRedub_MarksType(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, json.NewDecoder(request.Body).Decode(&received))
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := workflow.NewClient(server.URL+"/generate", server.URL, discardLogger())

	err := client.TriggerRedub(context.Background(), "s1", "owner-1", nil)

	require.NoError(t, err)
	assert.Equal(t, "REDUB", received["type"])
	assert.Equal(t, "owner-1", received["userId"])
	_, hasVoice := received["voicePath"]
	assert.False(t, hasVoice)
}

/*
TestTrigger_RejectedStatus verifies any non-2xx engine response is a
dispatch error.
*/
func TestTrigger_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := workflow.NewClient(server.URL, server.URL, discardLogger())

	err := client.TriggerGeneration(context.Background(), "s1", "p", "style", "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

/*
TestTrigger_Unreachable verifies a connection failure surfaces as an
error instead of being swallowed.
*/
func TestTrigger_Unreachable(t *testing.T) {
	// Grab a port that is not listening
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := workflow.NewClient(url, url, discardLogger())

	err := client.TriggerGeneration(context.Background(), "s1", "p", "style", "u1", nil)

	assert.Error(t, err)
}
