package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsProcessing(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusThinking, true},
		{StatusSearching, true},
		{StatusSourcesFound, true},
		{StatusCalculating, true},
		{StatusFinished, false},
		{StatusError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsProcessing())
		})
	}
}

func TestNewJob(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	job := NewJob("analysis-1", []string{"egg", "rice"}, []byte{0x01}, "dinner", "extra spicy", now)

	require.NotEmpty(t, job.ID)
	assert.Equal(t, "analysis-1", job.AnalysisID)
	assert.Equal(t, []string{"egg", "rice"}, job.Ingredients)
	assert.Equal(t, StatusThinking, job.Status)
	assert.Equal(t, now, job.CreatedAt)
	assert.Nil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMessage)
	assert.NotNil(t, job.Sources)
	assert.Empty(t, job.Sources)
	assert.NotNil(t, job.Recipes)
	assert.Empty(t, job.Recipes)
	assert.Equal(t, "dinner", job.RecipeType)
	assert.Equal(t, "extra spicy", job.CustomPrompt)

	other := NewJob("analysis-1", nil, nil, "", "", now)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestJob_Clone(t *testing.T) {
	now := time.Now().UTC()
	completed := now.Add(time.Minute)
	job := NewJob("analysis-2", []string{"tomato"}, []byte{0xAA, 0xBB}, "", "", now)
	job.Status = StatusFinished
	job.CompletedAt = &completed
	job.Sources = []Source{{Name: "Blog", URL: "https://example.com", Domain: "example.com"}}

	clone := job.Clone()
	require.Equal(t, job, clone)

	clone.Ingredients[0] = "onion"
	clone.ThumbnailBytes[0] = 0x00
	*clone.CompletedAt = clone.CompletedAt.Add(time.Hour)

	assert.Equal(t, "tomato", job.Ingredients[0])
	assert.Equal(t, byte(0xAA), job.ThumbnailBytes[0])
	assert.Equal(t, completed, *job.CompletedAt)
}

func TestJob_CloneKeepsEmptySlices(t *testing.T) {
	now := time.Now().UTC()
	job := NewJob("analysis-3", nil, nil, "", "", now)
	job.Status = StatusFinished

	clone := job.Clone()

	// A finished job with no recipes must still serialize its collections
	// as [] rather than null.
	require.NotNil(t, clone.Sources)
	assert.Empty(t, clone.Sources)
	require.NotNil(t, clone.Recipes)
	assert.Empty(t, clone.Recipes)
	assert.Nil(t, clone.Ingredients)
}
