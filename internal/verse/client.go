// Package verse calls the verse-lookup HTTP service.
package verse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rbright/versecatch/internal/reference"
)

// VersePath is the lookup endpoint relative to the configured base URL.
const VersePath = "/api/v1/bible/verse"

// ErrMalformedResponse indicates a success status with an unusable body.
var ErrMalformedResponse = errors.New("malformed verse response")

// Client fetches verse text for one reference and translation. It never retries or caches.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client rooted at baseURL. A nil httpClient uses a client with no timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

type verseResponse struct {
	Verses *string `json:"verses"`
}

// Fetch requests ref in translation and returns the service's verse text.
func (c *Client) Fetch(ctx context.Context, ref reference.Reference, translation string) (string, error) {
	endpoint, err := c.endpoint(ref, translation)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build verse request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request verse %q: %w", ref.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("verse service HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload verseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Verses == nil {
		return "", fmt.Errorf("%w: missing verses field", ErrMalformedResponse)
	}
	return *payload.Verses, nil
}

// endpoint encodes reference and translation as query parameters, spaces as %20.
func (c *Client) endpoint(ref reference.Reference, translation string) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("verse api url is empty")
	}
	base, err := url.Parse(c.baseURL + VersePath)
	if err != nil {
		return "", fmt.Errorf("parse verse api url: %w", err)
	}
	base.RawQuery = "reference=" + escapeComponent(ref.String()) + "&translation=" + escapeComponent(translation)
	return base.String(), nil
}

func escapeComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
