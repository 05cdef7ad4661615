package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"layeh.com/gopus"
)

// Encoder is satisfied by *gopus.Encoder.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

func NewOpusEncoder() (*gopus.Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}
	return enc, nil
}

// Stream reads PCM frame by frame, encodes each one and sends it to out until the
// input ends or ctx is cancelled. A short last frame is padded with silence.
func Stream(ctx context.Context, pcm io.Reader, enc Encoder, out chan<- []byte) error {
	pcmBuf := make([]byte, frameBytes)
	samples := make([]int16, FrameSize*Channels)

	for {
		more, err := readFrame(pcm, pcmBuf)
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}
		if !more {
			return nil
		}

		toSamples(pcmBuf, samples)
		packet, err := enc.Encode(samples, FrameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- packet:
		}
	}
}

// readFrame fills buf with one frame. It reports false once the input is exhausted.
func readFrame(r io.Reader, buf []byte) (bool, error) {
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, io.EOF):
		return false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		clear(buf[n:])
		return true, nil
	default:
		return false, err
	}
}

func toSamples(pcm []byte, samples []int16) {
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
}
