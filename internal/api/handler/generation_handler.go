package handler

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snapdish/recipegen-be/internal/api/dto"
	"github.com/snapdish/recipegen-be/internal/generation"
)

// StartGeneration handles POST /api/v1/generations
// Starts a new recipe-generation job and returns it immediately; the
// pipeline runs asynchronously.
func (h *GenerationHandler) StartGeneration(c *gin.Context) {
	var req dto.StartGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	var thumbnail []byte
	if req.Thumbnail != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Thumbnail)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "thumbnail must be valid base64",
			})
			return
		}
		thumbnail = decoded
	}

	job := h.jobs.Start(generation.StartParams{
		AnalysisID:   req.AnalysisID,
		Ingredients:  req.Ingredients,
		Thumbnail:    thumbnail,
		RecipeType:   req.RecipeType,
		CustomPrompt: req.CustomPrompt,
	})

	h.logger.Info("Generation job accepted",
		slog.String("job_id", job.ID),
		slog.String("analysis_id", job.AnalysisID),
	)

	c.JSON(http.StatusAccepted, dto.FromJob(job))
}

// GetGeneration handles GET /api/v1/generations/:job_id
// Looks the job up across both the active and completed collections.
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job := h.jobs.Job(jobID)
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromJob(job))
}

// ListGenerations handles GET /api/v1/generations
// Returns both collections for display, most recent first.
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Active:    dto.FromJobs(h.jobs.Active()),
		Completed: dto.FromJobs(h.jobs.Completed()),
	})
}

// CancelGeneration handles POST /api/v1/generations/:job_id/cancel
// Idempotent: cancelling an unknown or already-completed job succeeds.
func (h *GenerationHandler) CancelGeneration(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	h.jobs.Cancel(jobID)

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": "cancelled",
	})
}

// RetryGeneration handles POST /api/v1/generations/:job_id/retry
// Valid only for a completed job in the error state.
func (h *GenerationHandler) RetryGeneration(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job := h.jobs.Retry(jobID)
	if job == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": "job is not retryable",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.FromJob(job))
}

// DeleteGeneration handles DELETE /api/v1/generations/:job_id
// Removes a job from the completed collection.
func (h *GenerationHandler) DeleteGeneration(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	h.jobs.Delete(jobID)

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": "deleted",
	})
}

// ClearGenerations handles DELETE /api/v1/generations
// Removes every completed job.
func (h *GenerationHandler) ClearGenerations(c *gin.Context) {
	h.jobs.ClearCompleted()

	c.JSON(http.StatusOK, gin.H{
		"status": "cleared",
	})
}
