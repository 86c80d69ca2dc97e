package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snapdish/recipegen-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "recipegen-service",
		})
	})

	generationHandler := handler.NewGenerationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		generations := v1.Group("/generations")
		{
			// POST /api/v1/generations - Start a generation job
			generations.POST("", generationHandler.StartGeneration)

			// GET /api/v1/generations - Active and completed collections
			generations.GET("", generationHandler.ListGenerations)

			// DELETE /api/v1/generations - Clear completed jobs
			generations.DELETE("", generationHandler.ClearGenerations)

			// GET /api/v1/generations/:job_id - Get job details
			generations.GET("/:job_id", generationHandler.GetGeneration)

			// POST /api/v1/generations/:job_id/cancel - Cancel a job
			generations.POST("/:job_id/cancel", generationHandler.CancelGeneration)

			// POST /api/v1/generations/:job_id/retry - Retry an errored job
			generations.POST("/:job_id/retry", generationHandler.RetryGeneration)

			// DELETE /api/v1/generations/:job_id - Delete a completed job
			generations.DELETE("/:job_id", generationHandler.DeleteGeneration)
		}
	}

	return r
}
