// Package spotify searches the Spotify Web API catalog with client credentials.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"tsumugi/internal/metrics"
	"tsumugi/pkg/retrylimit"
)

const (
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com/v1"
	DefaultLimit    = 5
)

var ErrNotConfigured = errors.New("spotify credentials are not configured")

type Options struct {
	ClientID     string
	ClientSecret string
	Market       string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration
}

type Track struct {
	Name    string
	Artists []string
	Album   string
	URL     string
}

// ArtistLine joins the artist names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

type Client struct {
	apiURL  string
	market  string
	http    *http.Client
	limiter *retrylimit.AdaptiveLimiter
	log     zerolog.Logger
}

// New builds a client whose HTTP transport fetches and refreshes the app token.
func New(opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	creds := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}
	httpClient := creds.Client(context.Background())
	httpClient.Timeout = opts.Timeout

	return &Client{
		apiURL:  strings.TrimRight(opts.APIURL, "/"),
		market:  opts.Market,
		http:    httpClient,
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5),
		log:     logger,
	}, nil
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
		} `json:"items"`
	} `json:"tracks"`
}

// SearchTracks returns up to limit tracks for query. limit <= 0 means 5.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(limit))
	if c.market != "" {
		q.Set("market", c.market)
	}
	endpoint := c.apiURL + "/search?" + q.Encode()

	var parsed searchResponse
	err := retrylimit.WithRetryMax(ctx, func() error {
		parsed = searchResponse{}
		return c.get(ctx, endpoint, &parsed)
	}, c.limiter, 3)
	metrics.RecordUpstream("spotify", err)
	if err != nil {
		return nil, fmt.Errorf("spotify search failed: %w", err)
	}

	tracks := make([]Track, 0, len(parsed.Tracks.Items))
	for _, item := range parsed.Tracks.Items {
		t := Track{Name: item.Name, Album: item.Album.Name, URL: item.ExternalURLs.Spotify}
		for _, a := range item.Artists {
			t.Artists = append(t.Artists, a.Name)
		}
		tracks = append(tracks, t)
	}
	c.log.Debug().Str("query", query).Int("results", len(tracks)).Msg("spotify search")
	return tracks, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retrylimit.Fatal(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &retrylimit.StatusError{Service: "spotify", Code: resp.StatusCode, Body: string(data)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return retrylimit.Fatal(statusErr)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retrylimit.Fatal(fmt.Errorf("failed to decode spotify response: %w", err))
	}
	return nil
}
