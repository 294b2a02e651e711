// Package joke fetches random Chuck Norris jokes for the random-joke tool.
package joke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.chucknorris.io"

// ErrNoJoke is returned when the API answers without a joke.
var ErrNoJoke = errors.New("joke api returned no joke")

// Fetcher is what the tool registry depends on.
type Fetcher interface {
	Random(ctx context.Context) (string, error)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL; an empty baseURL selects the
// public API and a non-positive timeout selects 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Random returns the text of one random joke.
func (c *Client) Random(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/jokes/random", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch joke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("joke api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode joke: %w", err)
	}
	if strings.TrimSpace(out.Value) == "" {
		return "", ErrNoJoke
	}
	return out.Value, nil
}
