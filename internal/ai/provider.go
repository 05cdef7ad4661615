package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotConfigured = errors.New("generative language client is not configured")
	ErrEmptyResponse = errors.New("model returned no usable text")
)

// BlockedError reports a prompt refused by the model's safety filters.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("response blocked: %s", e.Reason)
}

// Provider generates a text answer for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VideoSummarizer summarizes a video reachable at a public URL.
type VideoSummarizer interface {
	SummarizeVideo(ctx context.Context, videoURL string) (string, error)
}
