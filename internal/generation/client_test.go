package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() GenerateRequest {
	return GenerateRequest{
		Ingredients: []IngredientRef{{Name: "egg"}, {Name: "rice"}},
		Count:       3,
	}
}

func TestClient_Generate_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"sourceCount": 1,
			"sources": [{"name": "Chef Blog", "url": "https://chef.example.com/r/1", "domain": "chef.example.com"}],
			"recipes": [{
				"id": "r-1",
				"name": "Egg Fried Rice",
				"instructions": ["Cook rice", "Fry egg"],
				"ingredients": [{"name": "egg", "amount": "2"}],
				"difficulty": "Advanced"
			}]
		}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second, discard())
	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SourceCount)
	require.Len(t, resp.Recipes, 1)
	assert.Equal(t, DifficultyHard, resp.Recipes[0].Difficulty, "free-text difficulty is normalized")
	assert.False(t, resp.Recipes[0].DateGenerated.IsZero(), "missing generation date defaults to now")
}

func TestClient_Generate_EmptyRecipes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "recipes": [], "sources": [], "sourceCount": 0}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second, discard())
	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Recipes)
	assert.Zero(t, resp.SourceCount)
}

func TestClient_Generate_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second, discard())
	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 429, statusErr.Code)
	assert.Equal(t, "30", statusErr.RetryAfter)
	assert.Contains(t, FailureMessage(err), "30")
}

func TestClient_Generate_StatusCodes(t *testing.T) {
	tests := []struct {
		code    int
		wantMsg string
	}{
		{http.StatusBadGateway, msgUnavailable},
		{http.StatusServiceUnavailable, msgUnavailable},
		{http.StatusGatewayTimeout, msgUnavailable},
		{http.StatusRequestTimeout, msgTimedOut},
		{http.StatusInternalServerError, "Server error (500). Please try again."},
		{http.StatusTeapot, "Server error (418). Please try again."},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer ts.Close()

			client := NewClient(ts.URL, 5*time.Second, discard())
			_, err := client.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, FailureMessage(err))
		})
	}
}

func TestClient_Generate_Refusal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "no recipes possible for these ingredients"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second, discard())
	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)

	var refusal *RefusalError
	require.ErrorAs(t, err, &refusal)
	assert.Equal(t, "no recipes possible for these ingredients", FailureMessage(err))
}

func TestClient_Generate_RefusalWithoutMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second, discard())
	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, msgRefusedNoInfo, FailureMessage(err))
}

func TestClient_Generate_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 5*time.Second, discard())
	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Equal(t, msgBadResponse, FailureMessage(err))
}

func TestClient_Generate_BadEndpoint(t *testing.T) {
	tests := []string{"", "not a url", "http://"}

	for _, endpoint := range tests {
		client := NewClient(endpoint, 5*time.Second, discard())
		_, err := client.Generate(context.Background(), testRequest())
		require.Error(t, err, "endpoint %q", endpoint)
		assert.ErrorIs(t, err, ErrBadEndpoint)
		assert.Equal(t, msgBadEndpoint, FailureMessage(err))
	}
}

func TestClient_Generate_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, 50*time.Millisecond, discard())
	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, msgTimedOut, FailureMessage(err))
}

func TestClient_Generate_ConnectionRefused(t *testing.T) {
	// A server that is already closed refuses connections.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := ts.URL
	ts.Close()

	client := NewClient(endpoint, 2*time.Second, discard())
	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, msgNoConnectivity, FailureMessage(err))
}

func TestFailureMessage_UnknownTransport(t *testing.T) {
	assert.Equal(t, msgTransport, FailureMessage(errors.New("weird wire glitch")))
	assert.Equal(t, msgTimedOut, FailureMessage(context.DeadlineExceeded))
}

func TestNewClient_BoundedTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"zero falls back to default", 0, DefaultRequestTimeout},
		{"negative falls back to default", -time.Second, DefaultRequestTimeout},
		{"explicit timeout kept", 5 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("https://recipes.example.com/api/generate", tt.timeout, discard())
			assert.Equal(t, tt.want, client.httpClient.Timeout)
		})
	}
}
