package generation

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle stage of a generation job.
type Status string

const (
	StatusThinking     Status = "thinking"
	StatusSearching    Status = "searching"
	StatusSourcesFound Status = "sourcesFound"
	StatusCalculating  Status = "calculating"
	StatusFinished     Status = "finished"
	StatusError        Status = "error"
)

// IsProcessing reports whether the status is one of the four in-progress
// stages. Finished and error jobs are terminal.
func (s Status) IsProcessing() bool {
	switch s {
	case StatusThinking, StatusSearching, StatusSourcesFound, StatusCalculating:
		return true
	default:
		return false
	}
}

// Source is a citation for where a generated recipe came from.
type Source struct {
	Name   string `json:"name" msgpack:"name"`
	URL    string `json:"url" msgpack:"url"`
	Domain string `json:"domain" msgpack:"domain"`
}

// Job is one recipe-generation request and its evolving progress record.
// Identity and request inputs are immutable after construction; status,
// sources, recipes and the completion fields are mutated only by the
// pipeline run that owns the job (or the startup reaper).
type Job struct {
	ID             string     `json:"id" msgpack:"id"`
	AnalysisID     string     `json:"analysis_id" msgpack:"analysis_id"`
	Ingredients    []string   `json:"ingredients" msgpack:"ingredients"`
	ThumbnailBytes []byte     `json:"-" msgpack:"thumbnail_bytes"`
	Status         Status     `json:"status" msgpack:"status"`
	SourceCount    int        `json:"source_count" msgpack:"source_count"`
	Sources        []Source   `json:"sources" msgpack:"sources"`
	Recipes        []Recipe   `json:"recipes" msgpack:"recipes"`
	CreatedAt      time.Time  `json:"created_at" msgpack:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" msgpack:"completed_at"`
	ErrorMessage   string     `json:"error_message,omitempty" msgpack:"error_message"`
	RecipeType     string     `json:"recipe_type,omitempty" msgpack:"recipe_type"`
	CustomPrompt   string     `json:"custom_prompt,omitempty" msgpack:"custom_prompt"`
}

// NewJob constructs a job in the initial thinking stage.
func NewJob(analysisID string, ingredients []string, thumbnail []byte, recipeType, customPrompt string, now time.Time) *Job {
	return &Job{
		ID:             uuid.New().String(),
		AnalysisID:     analysisID,
		Ingredients:    append([]string(nil), ingredients...),
		ThumbnailBytes: thumbnail,
		Status:         StatusThinking,
		Sources:        []Source{},
		Recipes:        []Recipe{},
		CreatedAt:      now,
		RecipeType:     recipeType,
		CustomPrompt:   customPrompt,
	}
}

// Clone returns a copy of the job that shares no mutable state with the
// original. Sources and recipes are written once at their transition and
// never mutated afterwards, so copying the slice headers is deep enough.
// Empty slices stay empty rather than becoming nil; they serialize as [].
func (j *Job) Clone() *Job {
	c := *j
	if j.Ingredients != nil {
		c.Ingredients = append([]string{}, j.Ingredients...)
	}
	if j.Sources != nil {
		c.Sources = append([]Source{}, j.Sources...)
	}
	if j.Recipes != nil {
		c.Recipes = append([]Recipe{}, j.Recipes...)
	}
	if j.ThumbnailBytes != nil {
		c.ThumbnailBytes = append([]byte(nil), j.ThumbnailBytes...)
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
