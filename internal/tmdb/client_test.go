package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbruxvoort/file-renamer/internal/tmdb"
)

func newClient(t *testing.T, handler http.HandlerFunc) *tmdb.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US", tmdb.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := tmdb.New("  ", "", "en-US")
	assert.Error(t, err)
}

func TestSearchMovieSendsYearAndKey(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "The Matrix", r.URL.Query().Get("query"))
		assert.Equal(t, "1999", r.URL.Query().Get("year"))
		w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30","poster_path":"/m.jpg"}]}`))
	})

	results, err := client.SearchMovie(context.Background(), "The Matrix", 1999)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Matrix", results[0].DisplayTitle())

	year, ok := results[0].Year()
	assert.True(t, ok)
	assert.Equal(t, 1999, year)
}

func TestSearchTVUsesName(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("year"))
		w.Write([]byte(`{"results":[{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20"}]}`))
	})

	results, err := client.SearchTV(context.Background(), "Breaking Bad")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Breaking Bad", results[0].DisplayTitle())
	year, _ := results[0].Year()
	assert.Equal(t, 2008, year)
}

func TestSearchEmptyQuery(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.SearchTV(context.Background(), "  ")
	assert.Error(t, err)
}

func TestGetEpisodeNotFoundReturnsNil(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1396/season/5/episode/99", r.URL.Path)
		http.NotFound(w, r)
	})

	ep, err := client.GetEpisode(context.Background(), "1396", 5, 99)
	require.NoError(t, err)
	assert.Nil(t, ep)
}

func TestGetSeason(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/1396/season/5", r.URL.Path)
		w.Write([]byte(`{"season_number":5,"episodes":[
			{"episode_number":13,"name":"To'hajiilee","air_date":"2013-09-08"},
			{"episode_number":14,"name":"Ozymandias","air_date":"2013-09-15"}]}`))
	})

	season, err := client.GetSeason(context.Background(), "1396", 5)
	require.NoError(t, err)

	ep := season.Episode(14)
	require.NotNil(t, ep)
	assert.Equal(t, "Ozymandias", ep.Name)
	assert.Nil(t, season.Episode(20))
}

func TestGetSeasonServerError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.GetSeason(context.Background(), "1396", 1)
	assert.Error(t, err)
}

func TestYearOf(t *testing.T) {
	year, ok := tmdb.YearOf("2013-09-15")
	assert.True(t, ok)
	assert.Equal(t, 2013, year)

	_, ok = tmdb.YearOf("")
	assert.False(t, ok)
	_, ok = tmdb.YearOf("n/a")
	assert.False(t, ok)
}
