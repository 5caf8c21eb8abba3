package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dune frank herbert", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Write([]byte(`{"totalItems":1,"items":[{"id":"B1","volumeInfo":{
			"title":"Dune","authors":["Frank Herbert","Someone Else"],
			"publishedDate":"1965-08-01","description":"<p>Desert <b>planet</b></p>",
			"imageLinks":{"smallThumbnail":"http://s","thumbnail":"http://t"}}}]}`))
	}))
	t.Cleanup(server.Close)

	client := New("secret", server.URL, WithHTTPClient(server.Client()))
	vols, err := client.SearchBooks(context.Background(), "dune frank herbert")
	require.NoError(t, err)
	require.Len(t, vols, 1)

	info := vols[0].VolumeInfo
	assert.Equal(t, "Dune", info.Title)
	assert.Equal(t, "Frank Herbert", info.Author())
	assert.Equal(t, "http://t", info.Cover())
}

func TestSearchBooksWithoutKeyOmitsParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["key"]
		assert.False(t, ok)
		w.Write([]byte(`{"totalItems":0}`))
	}))
	t.Cleanup(server.Close)

	client := New("", server.URL, WithHTTPClient(server.Client()))
	vols, err := client.SearchBooks(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, vols)
}

func TestVolumeInfoFallbacks(t *testing.T) {
	info := VolumeInfo{ImageLinks: ImageLinks{SmallThumbnail: "small"}}
	assert.Equal(t, "", info.Author())
	assert.Equal(t, "small", info.Cover())
}
