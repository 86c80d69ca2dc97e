package handler

import (
	"log/slog"

	"github.com/snapdish/recipegen-be/internal/generation"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Jobs   *generation.Orchestrator
}

// GenerationHandler handles generation-job HTTP requests
type GenerationHandler struct {
	logger *slog.Logger
	jobs   *generation.Orchestrator
}

// NewGenerationHandler creates a new GenerationHandler instance
func NewGenerationHandler(deps *Dependencies) *GenerationHandler {
	return &GenerationHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
	}
}
