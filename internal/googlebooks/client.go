// Package googlebooks searches the Google Books volumes API.
package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/httpx"
)

const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// Volume is a search hit.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type VolumeInfo struct {
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle"`
	Authors       []string   `json:"authors"`
	PublishedDate string     `json:"publishedDate"`
	Description   string     `json:"description"`
	ImageLinks    ImageLinks `json:"imageLinks"`
	AverageRating float64    `json:"averageRating"`
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// Author returns the first listed author.
func (v VolumeInfo) Author() string {
	if len(v.Authors) == 0 {
		return ""
	}
	return v.Authors[0]
}

// Cover prefers the larger thumbnail.
func (v VolumeInfo) Cover() string {
	if v.ImageLinks.Thumbnail != "" {
		return v.ImageLinks.Thumbnail
	}
	return v.ImageLinks.SmallThumbnail
}

type searchResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Client queries Google Books. The API key is optional.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

func New(apiKey, baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: 5,
		httpClient: httpx.NewClient(httpx.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchBooks runs a free-text volume search.
func (c *Client) SearchBooks(ctx context.Context, query string) ([]Volume, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var payload searchResponse
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/volumes?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("google books search: %w", err)
	}
	return payload.Items, nil
}
