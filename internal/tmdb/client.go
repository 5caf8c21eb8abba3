// Package tmdb is a small client for the TMDB v3 search and TV endpoints.
package tmdb

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

const DefaultBaseURL = "https://api.themoviedb.org/3"

// Result is a single movie or TV search match.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
}

// DisplayTitle returns Title for movies and Name for TV shows.
func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Year extracts the year from the release or first-air date.
func (r Result) Year() (int, bool) {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	return YearOf(date)
}

// Response is the paginated search payload.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

// Episode is a single TV episode.
type Episode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	AirDate       string `json:"air_date"`
}

// SeasonDetails is a season with its full episode list.
type SeasonDetails struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// Episode returns the episode with the given number, or nil.
func (s *SeasonDetails) Episode(number int) *Episode {
	if s == nil {
		return nil
	}
	for i := range s.Episodes {
		if s.Episodes[i].EpisodeNumber == number {
			return &s.Episodes[i]
		}
	}
	return nil
}

// YearOf parses the leading YYYY of a date string.
func YearOf(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: httpx.NewClient(httpx.Options{}),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMovie searches movies by title, narrowed by year when year > 0.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) ([]Result, error) {
	params := url.Values{}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/movie", query, params)
}

// SearchTV searches TV shows by title.
func (c *Client) SearchTV(ctx context.Context, query string) ([]Result, error) {
	return c.search(ctx, "/search/tv", query, url.Values{})
}

func (c *Client) search(ctx context.Context, path, query string, params url.Values) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params.Set("query", query)

	var payload Response
	if err := httpx.GetJSON(ctx, c.httpClient, c.endpoint(path, params), &payload); err != nil {
		return nil, fmt.Errorf("tmdb %s: %w", path, err)
	}
	return payload.Results, nil
}

// GetEpisode fetches a single episode. A missing episode returns nil, nil.
func (c *Client) GetEpisode(ctx context.Context, showID string, season, episode int) (*Episode, error) {
	if strings.TrimSpace(showID) == "" {
		return nil, errors.New("show id must not be empty")
	}
	path := fmt.Sprintf("/tv/%s/season/%d/episode/%d", url.PathEscape(showID), season, episode)

	var ep Episode
	if err := httpx.GetJSON(ctx, c.httpClient, c.endpoint(path, url.Values{}), &ep); err != nil {
		if httpx.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmdb episode: %w", err)
	}
	return &ep, nil
}

// GetSeason fetches a season with all of its episodes.
func (c *Client) GetSeason(ctx context.Context, showID string, season int) (*SeasonDetails, error) {
	if strings.TrimSpace(showID) == "" {
		return nil, errors.New("show id must not be empty")
	}
	path := fmt.Sprintf("/tv/%s/season/%d", url.PathEscape(showID), season)

	var details SeasonDetails
	if err := httpx.GetJSON(ctx, c.httpClient, c.endpoint(path, url.Values{}), &details); err != nil {
		return nil, fmt.Errorf("tmdb season: %w", err)
	}
	return &details, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	return c.baseURL + path + "?" + params.Encode()
}
