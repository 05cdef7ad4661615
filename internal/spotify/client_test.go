package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsumugi/pkg/retrylimit"
)

func newFakeSpotify(t *testing.T, search http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		id, secret, ok := r.BasicAuth()
		if !ok {
			require.NoError(t, r.ParseForm())
			id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
		}
		assert.Equal(t, "id", id)
		assert.Equal(t, "secret", secret)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /v1/search", search)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		ClientID:     "id",
		ClientSecret: "secret",
		Market:       "JP",
		TokenURL:     srv.URL + "/token",
		APIURL:       srv.URL + "/v1",
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Options{ClientID: "id"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSearchTracks(t *testing.T) {
	c := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "夜に駆ける", q.Get("q"))
		assert.Equal(t, "track", q.Get("type"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "JP", q.Get("market"))

		_, _ = w.Write([]byte(`{"tracks":{"items":[{
			"name":"夜に駆ける",
			"artists":[{"name":"YOASOBI"},{"name":"Ayase"}],
			"album":{"name":"THE BOOK"},
			"external_urls":{"spotify":"https://open.spotify.com/track/1"}
		}]}}`))
	})

	tracks, err := c.SearchTracks(context.Background(), "夜に駆ける", 0)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "夜に駆ける", tracks[0].Name)
	assert.Equal(t, "YOASOBI, Ayase", tracks[0].ArtistLine())
	assert.Equal(t, "THE BOOK", tracks[0].Album)
	assert.Equal(t, "https://open.spotify.com/track/1", tracks[0].URL)
}

func TestSearchTracksNoResults(t *testing.T) {
	c := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":{"items":[]}}`))
	})

	tracks, err := c.SearchTracks(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSearchTracksClientError(t *testing.T) {
	c := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":400}}`, http.StatusBadRequest)
	})

	_, err := c.SearchTracks(context.Background(), "q", 5)
	var statusErr *retrylimit.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestSearchTracksEmptyQuery(t *testing.T) {
	c := newFakeSpotify(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.SearchTracks(context.Background(), "  ", 5)
	require.Error(t, err)
}
