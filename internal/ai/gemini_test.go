package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsumugi/pkg/retrylimit"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGemini(GeminiOptions{APIKey: "k", Model: "test-model", BaseURL: srv.URL, MaxAttempts: 2}, zerolog.Nop())
	require.NoError(t, err)
	return g
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(GeminiOptions{}, zerolog.Nop())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "質問", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"こんにちは"},{"text":"！"}]}}]}`))
	})

	reply, err := g.Generate(context.Background(), "質問")
	require.NoError(t, err)
	assert.Equal(t, "こんにちは！", reply)
}

func TestGenerateTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	g, err := NewGemini(GeminiOptions{APIKey: "secret-key", Model: "test-model", BaseURL: baseURL, MaxAttempts: 1}, zerolog.Nop())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestGenerateBlocked(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := g.Generate(context.Background(), "q")
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "SAFETY", blocked.Reason)
}

func TestGenerateEmpty(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Generate(context.Background(), "q")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"code":400,"message":"bad"}}`, http.StatusBadRequest)
	})

	_, err := g.Generate(context.Background(), "q")
	var statusErr *retrylimit.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok now"}]}}]}`))
	})

	reply, err := g.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok now", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSummarizeVideoSendsFileData(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		require.NotNil(t, parts[1].FileData)
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", parts[1].FileData.FileURI)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"- 要点"}]}}]}`))
	})

	summary, err := g.SummarizeVideo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "- 要点", summary)
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "答え", cleanReply("<think>hmm</think>\n「答え」"))
	assert.Equal(t, `"a" and "b"`, cleanReply(`"a" and "b"`))
	assert.Equal(t, "quoted", cleanReply(`"quoted"`))
	assert.Equal(t, "plain", cleanReply("  plain "))
}

func TestPersonaPrompt(t *testing.T) {
	assert.Equal(t, "q", PersonaPrompt("", "q"))
	assert.Equal(t, "P\n\nユーザーからの質問:\nq", PersonaPrompt("P", "q"))
}
