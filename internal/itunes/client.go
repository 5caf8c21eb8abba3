// Package itunes searches the iTunes Search API for audiobooks.
package itunes

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

const DefaultBaseURL = "https://itunes.apple.com"

// Item is a single audiobook result.
type Item struct {
	CollectionID   int64  `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	ArtistName     string `json:"artistName"`
	Description    string `json:"description"`
	ArtworkURL100  string `json:"artworkUrl100"`
	ReleaseDate    string `json:"releaseDate"`
}

// Artwork returns the 600x600 variant of the artwork URL.
func (i Item) Artwork() string {
	return strings.Replace(i.ArtworkURL100, "100x100", "600x600", 1)
}

// Year parses the release year.
func (i Item) Year() (int, bool) {
	if len(i.ReleaseDate) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(i.ReleaseDate[:4])
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

type searchResponse struct {
	ResultCount int    `json:"resultCount"`
	Results     []Item `json:"results"`
}

type Client struct {
	baseURL    string
	country    string
	limit      int
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

func New(baseURL, country string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		country:    strings.TrimSpace(country),
		limit:      5,
		httpClient: httpx.NewClient(httpx.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAudiobooks searches the audiobook catalog.
func (c *Client) SearchAudiobooks(ctx context.Context, query string) ([]Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "audiobook")
	params.Set("entity", "audiobook")
	params.Set("limit", strconv.Itoa(c.limit))
	if c.country != "" {
		params.Set("country", c.country)
	}

	var payload searchResponse
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/search?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("itunes search: %w", err)
	}
	return payload.Results, nil
}
