package audio

import (
	"context"
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFFmpeg(t *testing.T, name string) {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available", name)
	}
	prev := FFmpegPath
	FFmpegPath = path
	t.Cleanup(func() { FFmpegPath = prev })
}

func TestDecodeReportsFailedExit(t *testing.T) {
	withFFmpeg(t, "false")

	pcm, cleanup, err := Decode(context.Background(), []byte("not a wav"))
	require.NoError(t, err)

	data, err := io.ReadAll(pcm)
	require.NoError(t, err)
	assert.Empty(t, data)

	err = cleanup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg failed")
}

func TestDecodeCleanExit(t *testing.T) {
	withFFmpeg(t, "true")

	pcm, cleanup, err := Decode(context.Background(), nil)
	require.NoError(t, err)

	_, err = io.ReadAll(pcm)
	require.NoError(t, err)
	assert.NoError(t, cleanup())
}

func TestDecodeCleanupBeforeEOFIsSilent(t *testing.T) {
	withFFmpeg(t, "sleep")

	_, cleanup, err := Decode(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, cleanup())
}
