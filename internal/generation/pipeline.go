package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"
)

// PacingDelays are the cosmetic stage delays. They exist purely for
// perceived-latency pacing in the consuming UI and carry no semantics;
// zeroing them is safe.
type PacingDelays struct {
	Thinking     time.Duration
	Searching    time.Duration
	SourcesFound time.Duration
	Calculating  time.Duration
}

// User-facing failure messages. The transport mapping is deliberate UX, not
// generic error forwarding: a user on a dead connection gets different advice
// than one hitting a rate limit.
const (
	msgBadEndpoint    = "The recipe service is misconfigured. Please try again later."
	msgEncodeFailure  = "Could not prepare your recipe request. Please try again."
	msgTimedOut       = "The request timed out. Please check your connection and try again."
	msgNoConnectivity = "Could not reach the recipe service. Please check your internet connection."
	msgConnLost       = "The connection to the recipe service was lost. Please try again."
	msgTransport      = "A network error occurred. Please check your connection and try again."
	msgUnavailable    = "The recipe service is temporarily unavailable. Please try again later."
	msgBadResponse    = "Received an unexpected response from the recipe service. Please try again."
	msgRefusedNoInfo  = "Recipe generation failed. Please try again."
	msgInterrupted    = "Recipe generation was interrupted. Please try again."
)

// Pipeline drives a single job through the fixed stage sequence. One Run is
// one complete attempt: it advances the job's status on the orchestrator at
// each stage boundary and terminates by completing the job as finished or
// error. Cancellation is checked at every boundary; a cancelled run writes
// nothing further and leaves the job exactly as the canceller left it.
type Pipeline struct {
	generator   Generator
	pacing      PacingDelays
	recipeCount int
	logger      *slog.Logger
}

// NewPipeline creates a pipeline bound to a generator.
func NewPipeline(generator Generator, pacing PacingDelays, recipeCount int, logger *slog.Logger) *Pipeline {
	if recipeCount <= 0 {
		recipeCount = 3
	}
	return &Pipeline{
		generator:   generator,
		pacing:      pacing,
		recipeCount: recipeCount,
		logger:      logger,
	}
}

// Run executes one attempt for the given job. The job must already be in the
// thinking stage and present in the orchestrator's active collection; ctx is
// the per-job cancellation handle.
func (p *Pipeline) Run(ctx context.Context, o *Orchestrator, job *Job) {
	p.logger.Info("Pipeline run started",
		slog.String("job_id", job.ID),
		slog.Int("ingredient_count", len(job.Ingredients)),
	)

	req := GenerateRequest{
		Ingredients:  make([]IngredientRef, 0, len(job.Ingredients)),
		Count:        p.recipeCount,
		RecipeType:   job.RecipeType,
		CustomPrompt: job.CustomPrompt,
	}
	for _, name := range job.Ingredients {
		req.Ingredients = append(req.Ingredients, IngredientRef{Name: name})
	}

	// thinking: pacing only, no network.
	if !p.pause(ctx, p.pacing.Thinking) {
		return
	}

	if !o.advance(job.ID, func(j *Job) { j.Status = StatusSearching }) {
		return
	}
	if !p.pause(ctx, p.pacing.Searching) {
		return
	}

	resp, err := p.generator.Generate(ctx, req)
	if ctx.Err() != nil {
		// Cancelled while the call was in flight. The canceller already
		// removed the job; do not race it with a stale terminal status.
		return
	}
	if err != nil {
		p.logger.Warn("Generation attempt failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		o.completeError(job.ID, FailureMessage(err))
		return
	}

	if !o.advance(job.ID, func(j *Job) {
		j.Status = StatusSourcesFound
		j.SourceCount = resp.SourceCount
		j.Sources = append([]Source{}, resp.Sources...)
	}) {
		return
	}
	if !p.pause(ctx, p.pacing.SourcesFound) {
		return
	}

	if !o.advance(job.ID, func(j *Job) { j.Status = StatusCalculating }) {
		return
	}
	if !p.pause(ctx, p.pacing.Calculating) {
		return
	}

	o.completeFinished(job.ID, append([]Recipe{}, resp.Recipes...))

	p.logger.Info("Pipeline run finished",
		slog.String("job_id", job.ID),
		slog.Int("recipe_count", len(resp.Recipes)),
	)
}

// pause sleeps for d unless the run is cancelled first. Returns false when
// the run should stop.
func (p *Pipeline) pause(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// FailureMessage translates a generation error into the user-facing message
// stored on the failed job.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrBadEndpoint):
		return msgBadEndpoint
	case errors.Is(err, ErrEncodeRequest):
		return msgEncodeFailure
	case errors.Is(err, ErrUnexpectedResponse):
		return msgBadResponse
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusMessage(statusErr)
	}

	var refusal *RefusalError
	if errors.As(err, &refusal) {
		if refusal.Message != "" {
			return refusal.Message
		}
		return msgRefusedNoInfo
	}

	return transportMessage(err)
}

func statusMessage(err *HTTPStatusError) string {
	switch err.Code {
	case 429:
		if err.RetryAfter != "" {
			return fmt.Sprintf("We're receiving too many requests right now. Please try again in %s seconds.", err.RetryAfter)
		}
		return "We're receiving too many requests right now. Please try again in a moment."
	case 502, 503, 504:
		return msgUnavailable
	case 408:
		return msgTimedOut
	default:
		return fmt.Sprintf("Server error (%d). Please try again.", err.Code)
	}
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimedOut
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return msgTimedOut
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return msgNoConnectivity
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return msgNoConnectivity
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return msgConnLost
	}

	return msgTransport
}
