package dto

import (
	"time"

	"github.com/snapdish/recipegen-be/internal/generation"
)

type StartGenerationRequest struct {
	AnalysisID   string   `json:"analysis_id" binding:"required"`
	Ingredients  []string `json:"ingredients" binding:"required,min=1"`
	RecipeType   string   `json:"recipe_type"`
	CustomPrompt string   `json:"custom_prompt"`
	// Thumbnail is an optional base64-encoded preview image. It is kept
	// in memory for display only and never persisted.
	Thumbnail string `json:"thumbnail"`
}

type JobDTO struct {
	ID           string              `json:"id"`
	AnalysisID   string              `json:"analysis_id"`
	Ingredients  []string            `json:"ingredients"`
	Status       string              `json:"status"`
	SourceCount  int                 `json:"source_count"`
	Sources      []generation.Source `json:"sources"`
	Recipes      []generation.Recipe `json:"recipes"`
	CreatedAt    string              `json:"created_at"`
	CompletedAt  string              `json:"completed_at,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	RecipeType   string              `json:"recipe_type,omitempty"`
	CustomPrompt string              `json:"custom_prompt,omitempty"`
}

type ListJobsResponse struct {
	Active    []JobDTO `json:"active"`
	Completed []JobDTO `json:"completed"`
}

// FromJob maps a job to its API representation.
func FromJob(job *generation.Job) JobDTO {
	d := JobDTO{
		ID:           job.ID,
		AnalysisID:   job.AnalysisID,
		Ingredients:  job.Ingredients,
		Status:       string(job.Status),
		SourceCount:  job.SourceCount,
		Sources:      job.Sources,
		Recipes:      job.Recipes,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		ErrorMessage: job.ErrorMessage,
		RecipeType:   job.RecipeType,
		CustomPrompt: job.CustomPrompt,
	}
	if job.CompletedAt != nil {
		d.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return d
}

// FromJobs maps a job slice to its API representation.
func FromJobs(jobs []*generation.Job) []JobDTO {
	out := make([]JobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FromJob(j))
	}
	return out
}
