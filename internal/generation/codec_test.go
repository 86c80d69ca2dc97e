package generation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(t *testing.T, status Status, createdAt time.Time) *Job {
	t.Helper()
	job := NewJob("analysis-1", []string{"egg", "rice"}, []byte{0xDE, 0xAD}, "dinner", "", createdAt)
	job.Status = status
	if !status.IsProcessing() {
		completed := createdAt.Add(time.Minute)
		job.CompletedAt = &completed
	}
	if status == StatusError {
		job.ErrorMessage = "something went wrong"
	}
	return job
}

func TestEncodeDecodeJobs_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	job := testJob(t, StatusFinished, now)
	job.SourceCount = 2
	job.Sources = []Source{
		{Name: "Chef Blog", URL: "https://chef.example.com/r/1", Domain: "chef.example.com"},
		{Name: "Cookbook", URL: "https://books.example.com/2", Domain: "books.example.com"},
	}
	job.Recipes = []Recipe{{
		ID:            "r-1",
		Name:          "Egg Fried Rice",
		Instructions:  []string{"Cook rice", "Fry egg"},
		Ingredients:   []RecipeIngredient{{Name: "egg", Amount: "2"}},
		Difficulty:    DifficultyEasy,
		DateGenerated: now,
	}}

	blob, err := EncodeJobs([]*Job{job})
	require.NoError(t, err)

	decoded, err := DecodeJobs(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	// Everything round-trips except the thumbnail, which must come back
	// empty regardless of its value before.
	got := decoded[0]
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.AnalysisID, got.AnalysisID)
	assert.Equal(t, job.Ingredients, got.Ingredients)
	assert.Equal(t, job.Status, got.Status)
	assert.Equal(t, job.SourceCount, got.SourceCount)
	assert.Equal(t, job.Sources, got.Sources)
	assert.Equal(t, job.ErrorMessage, got.ErrorMessage)
	assert.Equal(t, job.RecipeType, got.RecipeType)
	assert.Equal(t, job.CustomPrompt, got.CustomPrompt)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.CompletedAt)
	assert.True(t, job.CompletedAt.Equal(*got.CompletedAt))
	require.Len(t, got.Recipes, 1)
	assert.Equal(t, job.Recipes[0].ID, got.Recipes[0].ID)
	assert.Equal(t, job.Recipes[0].Name, got.Recipes[0].Name)
	assert.Equal(t, job.Recipes[0].Instructions, got.Recipes[0].Instructions)
	assert.Equal(t, job.Recipes[0].Ingredients, got.Recipes[0].Ingredients)
	assert.Equal(t, job.Recipes[0].Difficulty, got.Recipes[0].Difficulty)
	assert.Empty(t, got.ThumbnailBytes)

	// Encoding never mutates its input.
	assert.Equal(t, []byte{0xDE, 0xAD}, job.ThumbnailBytes)
}

func TestDecodeJobs_EmptyBlob(t *testing.T) {
	jobs, err := DecodeJobs(nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	jobs, err = DecodeJobs([]byte{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestDecodeJobs_Corrupt(t *testing.T) {
	_, err := DecodeJobs([]byte("definitely not msgpack"))
	assert.Error(t, err)
}

func TestEncodeSnapshot_CompletedCap(t *testing.T) {
	now := time.Now().UTC()

	var completed []*Job
	for i := 0; i < 10; i++ {
		completed = append(completed, testJob(t, StatusFinished, now.Add(-time.Duration(i)*time.Minute)))
	}
	active := []*Job{testJob(t, StatusThinking, now)}

	blob, err := EncodeSnapshot(active, completed, 3, 0)
	require.NoError(t, err)

	decoded, err := DecodeJobs(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 4, "1 active + capped 3 completed")

	// Most-recent-first means the newest completed jobs survive.
	assert.Equal(t, active[0].ID, decoded[0].ID)
	assert.Equal(t, completed[0].ID, decoded[1].ID)
	assert.Equal(t, completed[2].ID, decoded[3].ID)
}

func TestEncodeSnapshot_SizeCap(t *testing.T) {
	now := time.Now().UTC()

	var completed []*Job
	for i := 0; i < 20; i++ {
		job := testJob(t, StatusFinished, now.Add(-time.Duration(i)*time.Minute))
		job.Recipes = []Recipe{{
			ID:          fmt.Sprintf("r-%d", i),
			Name:        "Padded",
			Description: string(make([]byte, 2048)),
		}}
		completed = append(completed, job)
	}

	sizeCap := 10 * 1024
	blob, err := EncodeSnapshot(nil, completed, 0, sizeCap)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(blob), sizeCap)

	decoded, err := DecodeJobs(blob)
	require.NoError(t, err)
	assert.Less(t, len(decoded), 20, "oldest completed jobs are dropped to fit")
	if len(decoded) > 0 {
		assert.Equal(t, completed[0].ID, decoded[0].ID, "the newest job survives")
	}
}
