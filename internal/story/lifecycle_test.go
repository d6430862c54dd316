// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package story_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/fabula/internal/story"
	storysync "github.com/taibuivan/fabula/internal/sync"
)

// # Full Lifecycle

/*
TestGenerationLifecycle walks a story through the whole happy path with a
real reconciliation engine over a temporary content store: initiate puts
the row in GENERATING, the workflow run lands a three-page manifest on
disk, and the SUCCESS callback publishes the story with pages 1..3 and a
single style row.
*/
func TestGenerationLifecycle(t *testing.T) {
	root := t.TempDir()
	repo := newFakeRepo()
	trigger := &fakeTrigger{}
	engine := storysync.NewEngine(repo, storysync.NewContentStore(root), discardLogger())
	service := story.NewService(repo, trigger, engine, fakeVoices{}, 5, discardLogger())

	// Initiate: placeholder row, one dispatch, nothing on disk yet
	created, err := service.InitiateGeneration(context.Background(), "user-1", "A rabbit looks for the moon", "watercolor", nil)
	require.NoError(t, err)
	assert.Equal(t, story.StatusGenerating, created.Status)
	assert.Equal(t, 1, trigger.generateCalls)

	row, err := service.GetStory(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, story.StatusGenerating, row.Status)

	// The workflow engine writes its output under <story>/<style>
	styleDir := filepath.Join(root, created.ID, "watercolor")
	require.NoError(t, os.MkdirAll(styleDir, 0o755))
	manifest := storysync.Manifest{
		TitleZh:   "小兔子",
		TitleEn:   "The Little Rabbit",
		StyleZh:   "水彩",
		StyleEn:   "Watercolor",
		FullStory: "A rabbit looks for the moon and finds it in a pond.",
		Pages: []storysync.ManifestPage{
			{PageNumber: 1, TextEn: "The rabbit sets out."},
			{PageNumber: 2, TextEn: "The woods grow dark."},
			{PageNumber: 3, TextEn: "The moon waits in the pond."},
		},
	}
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(styleDir, "story.json"), raw, 0o644))
	for page := 1; page <= 3; page++ {
		imagePath, err := storysync.NewContentStore(root).PageImagePath(created.ID, "watercolor", page)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(imagePath, []byte("png"), 0o644))
	}

	// SUCCESS callback publishes and imports in one pass
	err = service.HandleWorkflowCallback(context.Background(), story.Callback{
		StoryID: created.ID,
		Status:  "SUCCESS",
	})
	require.NoError(t, err)

	detail, err := service.GetStoryDetail(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, story.StatusPublished, detail.Story.Status)
	assert.Equal(t, "The Little Rabbit", detail.Story.TitleEn)

	require.Len(t, detail.Pages, 3)
	for i, page := range detail.Pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.NotEmpty(t, page.ImageURL)
	}
	assert.Equal(t, "The moon waits in the pond.", detail.Pages[2].TextEn)

	require.Len(t, detail.Styles, 1)
	assert.Equal(t, "Watercolor", detail.Styles[0].NameEn)
}
