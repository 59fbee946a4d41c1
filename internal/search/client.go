// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search provides web search augmentation for chat turns.
//
// The client queries a Tavily-style search API and returns result snippets
// that can be appended to the outbound model prompt. Search is strictly
// best-effort: any failure (missing key, transport error, non-200 response)
// degrades to an empty result list and never aborts the chat turn.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/usharma123/chatbot/internal/util"
)

// Configuration constants for the search API.
const (
	// DefaultBaseURL is the Tavily search endpoint.
	DefaultBaseURL = "https://api.tavily.com"

	// DefaultMaxResults is the number of results requested per query.
	DefaultMaxResults = 5

	// DefaultTimeout bounds a single search call. A slow search must not
	// stall the chat turn longer than this.
	DefaultTimeout = 10 * time.Second

	// MaxSummaryLength is the maximum summary length in runes.
	MaxSummaryLength = 300

	// maxResponseSize limits the response body read (5MB).
	maxResponseSize = 5 * 1024 * 1024
)

// Result represents a single web search result.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Summary       string `json:"summary"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Client is a client for the search API.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	timeout    time.Duration
	httpClient *http.Client

	// limiter throttles outbound search calls so rapid submissions
	// don't hammer the API.
	limiter *rate.Limiter
}

// NewClient creates a search client with the given API key.
// An empty key produces a client whose searches always degrade to no results.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		maxResults: DefaultMaxResults,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		// One query per second with a small burst for back-to-back turns.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithMaxResults sets the number of results requested per query (1-10).
func (c *Client) WithMaxResults(n int) *Client {
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	c.maxResults = n
	return c
}

// WithTimeout sets the search timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// searchRequest is the Tavily-style request payload.
type searchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// searchResponse is the Tavily-style response payload.
type searchResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// Search performs a web search for the given query.
//
// Failures never propagate to the caller: a missing key, rate limiting,
// transport error, or non-200 response all degrade to an empty result
// list with a logged warning, and the turn proceeds without sources.
func (c *Client) Search(ctx context.Context, query string) []Result {
	if !c.IsConfigured() || strings.TrimSpace(query) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		log.Printf("search: rate limit wait aborted: %v", err)
		return nil
	}

	results, err := c.search(ctx, query)
	if err != nil {
		log.Printf("search: degrading to no sources: %v", err)
		return nil
	}
	return results
}

// search performs the actual API call.
func (c *Client) search(ctx context.Context, query string) ([]Result, error) {
	reqBody := searchRequest{
		APIKey:            c.apiKey,
		Query:             query,
		MaxResults:        c.maxResults,
		IncludeAnswer:     false,
		IncludeRawContent: false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatbot/0.1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		if r.Title == "" || r.URL == "" {
			continue
		}
		results = append(results, Result{
			Title: r.Title,
			URL:   r.URL,
			// UNICODE: Rune-aware truncation preserves multi-byte characters
			Summary:       util.TruncateRunes(strings.TrimSpace(r.Content), MaxSummaryLength),
			PublishedDate: r.PublishedDate,
		})
		if len(results) >= c.maxResults {
			break
		}
	}

	return results, nil
}
