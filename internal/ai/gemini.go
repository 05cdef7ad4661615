package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tsumugi/internal/metrics"
	"tsumugi/pkg/retrylimit"
)

const summaryPrompt = `この YouTube 動画の内容を日本語で要約してください。

要約の要件:
- 主要なポイントを3-5つの箇条書きで整理
- 各ポイントは簡潔で分かりやすく
- 動画の内容を的確に表現
- 日本語で出力`

type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// MaxAttempts bounds retries on 429 and 5xx. Zero means 3.
	MaxAttempts int
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int
	http        *http.Client
	limiter     *retrylimit.AdaptiveLimiter
	log         zerolog.Logger
}

func NewGemini(opts GeminiOptions, logger zerolog.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Gemini{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		maxAttempts: opts.MaxAttempts,
		http:        &http.Client{Timeout: opts.Timeout},
		limiter:     retrylimit.NewAdaptiveLimiter(2, 1, 5, 1, 0.5),
		log:         logger,
	}, nil
}

func (g *Gemini) Model() string { return g.model }

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mime_type,omitempty"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []geminiPart{{Text: prompt}})
}

// SummarizeVideo hands the video URL to the model as file data.
func (g *Gemini) SummarizeVideo(ctx context.Context, videoURL string) (string, error) {
	return g.generate(ctx, []geminiPart{
		{Text: summaryPrompt},
		{FileData: &geminiFileData{FileURI: videoURL}},
	})
}

func (g *Gemini) generate(ctx context.Context, parts []geminiPart) (string, error) {
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("failed to encode gemini request: %w", err)
	}

	var parsed geminiResponse
	start := time.Now()
	err = retrylimit.WithRetryMax(ctx, func() error {
		parsed = geminiResponse{}
		return g.post(ctx, body, &parsed)
	}, g.limiter, g.maxAttempts)
	metrics.RecordUpstream("gemini", err)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	g.log.Debug().Str("model", g.model).Dur("latency", time.Since(start)).Msg("gemini response received")

	if reason := parsed.PromptFeedback.BlockReason; reason != "" {
		return "", &BlockedError{Reason: reason}
	}

	var sb strings.Builder
	for _, c := range parsed.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}

	reply := cleanReply(sb.String())
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}

func (g *Gemini) post(ctx context.Context, body []byte, out *geminiResponse) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return retrylimit.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &retrylimit.StatusError{Service: "gemini", Code: resp.StatusCode, Body: truncate(data)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return retrylimit.Fatal(statusErr)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return retrylimit.Fatal(fmt.Errorf("failed to decode gemini response: %w", err))
	}
	if out.Error.Message != "" {
		return retrylimit.Fatal(fmt.Errorf("gemini error %d: %s", out.Error.Code, out.Error.Message))
	}
	return nil
}
