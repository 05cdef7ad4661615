// Package audio turns synthesized audio into 20ms Opus frames for a Discord voice connection.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz

	frameBytes = FrameSize * Channels * 2
)

// FFmpegPath is the binary used by Decode.
var FFmpegPath = "ffmpeg"

// Decode starts ffmpeg to convert an encoded buffer (WAV from the engine) into raw
// s16le PCM at 48kHz stereo. cleanup must always be called. It kills ffmpeg if the
// output was not read to the end, and otherwise reports how ffmpeg exited.
func Decode(ctx context.Context, encoded []byte) (pcm io.Reader, cleanup func() error, err error) {
	cmd := exec.CommandContext(ctx, FFmpegPath,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(encoded)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	out := &eofReader{r: reader}
	cleanup = func() error {
		if !out.eof {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil
		}
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
				return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
			}
			return fmt.Errorf("ffmpeg failed: %w", err)
		}
		return nil
	}
	return out, cleanup, nil
}

// eofReader remembers whether the stream was read to the end.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		e.eof = true
	}
	return n, err
}
