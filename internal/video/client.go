// Package video provides the highlight-search provider adapter.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/huddleai/huddle/internal/httpkit"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// externalSearchURL is the degraded path when the API quota is
	// exhausted: hand the user a direct search link instead of failing.
	externalSearchURL = "https://www.youtube.com/results"
)

// Result is one found highlight video.
type Result struct {
	Title    string `json:"title"`
	VideoID  string `json:"video_id"`
	URL      string `json:"url"`
	EmbedURL string `json:"embed_url"`
	Channel  string `json:"channel,omitempty"`
}

// Outcome is the result of a highlight search. Exactly one of Video and
// FallbackLink is set; FallbackLink carries a direct external search URL
// when the provider quota is exhausted or nothing matched.
type Outcome struct {
	Video        *Result
	FallbackLink string
}

// Client searches the video provider for game highlights.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a video search client. An empty API key is allowed;
// every search then degrades immediately to the fallback link.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.With("provider", "video"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10 * time.Second),
		),
	}
}

type wireSearch struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
	Error struct {
		Code   int `json:"code"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search looks up highlight footage for the query terms.
//
// Quota exhaustion is not an error: the adapter degrades to a direct
// external search link so the tool call, and the turn, still succeed.
func (c *Client) Search(ctx context.Context, queryTerms string) (*Outcome, error) {
	query := strings.TrimSpace(queryTerms)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	query += " highlights"

	if c.apiKey == "" {
		return &Outcome{FallbackLink: fallbackLink(query)}, nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var wire wireSearch
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("video quota exhausted, degrading to search link", "status", resp.StatusCode)
		return &Outcome{FallbackLink: fallbackLink(query)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video provider error %d", resp.StatusCode)
	}

	if len(wire.Items) == 0 {
		return &Outcome{FallbackLink: fallbackLink(query)}, nil
	}

	item := wire.Items[0]
	return &Outcome{
		Video: &Result{
			Title:    item.Snippet.Title,
			VideoID:  item.ID.VideoID,
			URL:      "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			EmbedURL: "https://www.youtube.com/embed/" + item.ID.VideoID,
			Channel:  item.Snippet.ChannelTitle,
		},
	}, nil
}

func fallbackLink(query string) string {
	params := url.Values{}
	params.Set("search_query", query)
	return externalSearchURL + "?" + params.Encode()
}
