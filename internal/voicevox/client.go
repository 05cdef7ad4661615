// Package voicevox is a client for a VOICEVOX engine over its HTTP API.
package voicevox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"tsumugi/internal/metrics"
	"tsumugi/internal/voice"
)

var ErrEmptyText = errors.New("text is empty")

type Options struct {
	BaseURL string
	ModelID string
	StyleID int
	Timeout time.Duration
}

// Client synthesizes speech with one fixed voice style. It must be initialized
// before Synthesize is called.
type Client struct {
	baseURL string
	modelID string
	styleID int
	http    *http.Client
	log     zerolog.Logger

	ready   atomic.Bool
	version atomic.Value // string
}

func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		modelID: opts.ModelID,
		styleID: opts.StyleID,
		http:    &http.Client{Timeout: opts.Timeout},
		log:     logger,
	}
}

func (c *Client) Ready() bool { return c.ready.Load() }

func (c *Client) StyleID() int    { return c.styleID }
func (c *Client) ModelID() string { return c.modelID }

// EngineVersion is the version reported by the engine, or "" before Initialize.
func (c *Client) EngineVersion() string {
	v, _ := c.version.Load().(string)
	return v
}

// Initialize checks the engine is reachable and loads the configured style.
func (c *Client) Initialize(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodGet, "/version", nil, nil)
	if err != nil {
		return fmt.Errorf("voicevox engine unreachable: %w", err)
	}
	version := strings.Trim(strings.TrimSpace(string(body)), `"`)
	c.version.Store(version)

	q := url.Values{}
	q.Set("speaker", strconv.Itoa(c.styleID))
	q.Set("skip_reinit", "true")
	if _, err := c.do(ctx, http.MethodPost, "/initialize_speaker", q, nil); err != nil {
		return fmt.Errorf("failed to initialize voicevox style %d: %w", c.styleID, err)
	}

	c.ready.Store(true)
	c.log.Info().
		Str("engine_version", version).
		Str("model_id", c.modelID).
		Int("style_id", c.styleID).
		Msg("voicevox engine initialized")
	return nil
}

// Synthesize returns WAV audio for text. It never retries.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Ready() {
		return nil, voice.ErrEngineNotReady
	}
	if strings.TrimSpace(text) == "" {
		return nil, voice.NewSynthesisError(text, ErrEmptyText)
	}

	speaker := strconv.Itoa(c.styleID)

	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", speaker)
	query, err := c.do(ctx, http.MethodPost, "/audio_query", q, nil)
	if err != nil {
		metrics.RecordUpstream("voicevox", err)
		return nil, voice.NewSynthesisError(text, fmt.Errorf("audio_query: %w", err))
	}

	q = url.Values{}
	q.Set("speaker", speaker)
	audio, err := c.do(ctx, http.MethodPost, "/synthesis", q, query)
	if err == nil && len(audio) == 0 {
		err = errors.New("engine returned empty audio")
	}
	metrics.RecordUpstream("voicevox", err)
	if err != nil {
		return nil, voice.NewSynthesisError(text, fmt.Errorf("synthesis: %w", err))
	}
	return audio, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("voicevox http %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
