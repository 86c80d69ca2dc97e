package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrBadEndpoint is returned before any network activity when the
	// configured endpoint URL cannot be parsed into a routable request.
	ErrBadEndpoint = errors.New("invalid generation endpoint URL")

	// ErrEncodeRequest is returned when the request body cannot be encoded.
	ErrEncodeRequest = errors.New("failed to encode generation request")

	// ErrUnexpectedResponse is returned when the response body does not
	// decode into the expected envelope.
	ErrUnexpectedResponse = errors.New("unexpected response from generation endpoint")
)

// HTTPStatusError reports a non-200 HTTP response from the generation
// endpoint. RetryAfter carries the Retry-After header value when the server
// sent one.
type HTTPStatusError struct {
	Code       int
	RetryAfter string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("generation endpoint returned status %d", e.Code)
}

// RefusalError reports a decodable 200 response whose success flag was false.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	if e.Message == "" {
		return "generation endpoint refused the request"
	}
	return e.Message
}

// IngredientRef names one ingredient in an outbound generation request.
type IngredientRef struct {
	Name string `json:"name"`
}

// GenerateRequest is the JSON body of the one POST to the remote endpoint.
type GenerateRequest struct {
	Ingredients  []IngredientRef `json:"ingredients"`
	Count        int             `json:"count"`
	RecipeType   string          `json:"recipeType,omitempty"`
	CustomPrompt string          `json:"customPrompt,omitempty"`
}

// GenerateResponse is the success envelope of the remote endpoint.
type GenerateResponse struct {
	Success     bool     `json:"success"`
	Recipes     []Recipe `json:"recipes"`
	Sources     []Source `json:"sources"`
	SourceCount int      `json:"sourceCount"`
	Message     string   `json:"message,omitempty"`
}

// Generator performs the one blocking call to the remote generation service.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Client is the HTTP Generator implementation.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// DefaultRequestTimeout bounds the request/response exchange when no
// explicit timeout is configured. The call is never unbounded.
const DefaultRequestTimeout = 45 * time.Second

// NewClient creates a Client for the given endpoint URL. The timeout bounds
// the whole request/response exchange; zero or negative falls back to
// DefaultRequestTimeout.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Generate posts the request and decodes the response envelope. Errors are
// typed so the pipeline can translate them into user-facing messages:
// ErrBadEndpoint and ErrEncodeRequest before any network activity,
// transport errors as returned by the HTTP client, *HTTPStatusError for
// non-200
// responses, ErrUnexpectedResponse for undecodable bodies, and *RefusalError
// when the envelope carries success=false.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadEndpoint, c.endpoint)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEndpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("Calling generation endpoint",
		slog.String("url", u.String()),
		slog.Int("ingredient_count", len(req.Ingredients)),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &HTTPStatusError{Code: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr.RetryAfter = resp.Header.Get("Retry-After")
		}
		return nil, statusErr
	}

	var envelope GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	if !envelope.Success {
		return nil, &RefusalError{Message: envelope.Message}
	}

	now := c.now()
	for i := range envelope.Recipes {
		envelope.Recipes[i].normalize(now)
	}

	c.logger.Debug("Generation endpoint responded",
		slog.Int("recipe_count", len(envelope.Recipes)),
		slog.Int("source_count", envelope.SourceCount),
	)

	return &envelope, nil
}
