/**
 * @description
 * This package provides a client for the external video-resolution provider
 * behind the metered lookup endpoint. It encapsulates the logic for making
 * authenticated HTTP requests, handling request construction, and parsing
 * responses. The provider itself is opaque to this service: the metered
 * endpoint forwards a query and passes the provider's result through.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, net/url, time: Standard Go libraries.
 */
package videoprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrUnavailable marks any provider-side failure. Callers map it outward
// instead of masking it, so a provider outage stays visible and auditable.
var ErrUnavailable = errors.New("video provider unavailable")

// Resolver is the interface the metered endpoint depends on.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Result, error)
}

// Client is an HTTP client for the video-resolution provider.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Result is the provider's resolution payload, passed through to callers of
// the metered endpoint unchanged.
type Result struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Duration int64  `json:"duration"` // in seconds
	AudioURL string `json:"audio_url"`
}

// ErrorResponse represents an error body from the provider API.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("video provider error: %s", e.Message)
	}
	return "unknown video provider error"
}

// Resolve looks up a video by query (URL, id, or search text) and returns the
// provider's metadata and audio stream URL.
func (c *Client) Resolve(ctx context.Context, query string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/resolve?q=%s", c.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var provErr ErrorResponse
		if err := json.Unmarshal(body, &provErr); err == nil && provErr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, provErr.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return &result, nil
}
