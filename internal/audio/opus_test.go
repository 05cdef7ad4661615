package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEncoder "encodes" a frame as its first and last samples.
type recordingEncoder struct {
	frames int
	err    error
}

func (e *recordingEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.frames++
	out := make([]byte, 4)
	binary.LittleEndian.PutUint16(out[0:], uint16(pcm[0]))
	binary.LittleEndian.PutUint16(out[2:], uint16(pcm[len(pcm)-1]))
	return out, nil
}

func pcmOfSamples(n int, value int16) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return buf
}

func TestStreamSplitsAndPadsFrames(t *testing.T) {
	samplesPerFrame := FrameSize * Channels
	input := pcmOfSamples(samplesPerFrame+samplesPerFrame/2, 7)

	out := make(chan []byte, 4)
	enc := &recordingEncoder{}
	require.NoError(t, Stream(context.Background(), bytes.NewReader(input), enc, out))
	close(out)

	var packets [][]byte
	for p := range out {
		packets = append(packets, p)
	}
	require.Len(t, packets, 2)
	assert.Equal(t, 2, enc.frames)

	assert.Equal(t, int16(7), int16(binary.LittleEndian.Uint16(packets[0][2:])))
	assert.Equal(t, int16(7), int16(binary.LittleEndian.Uint16(packets[1][0:])))
	assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(packets[1][2:])), "tail is padded with silence")
}

func TestStreamEmptyInput(t *testing.T) {
	out := make(chan []byte, 1)
	require.NoError(t, Stream(context.Background(), bytes.NewReader(nil), &recordingEncoder{}, out))
	assert.Empty(t, out)
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan []byte)
	err := Stream(ctx, bytes.NewReader(pcmOfSamples(FrameSize*Channels, 1)), &recordingEncoder{}, out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStreamEncodeError(t *testing.T) {
	boom := errors.New("boom")
	out := make(chan []byte, 1)
	err := Stream(context.Background(), bytes.NewReader(pcmOfSamples(FrameSize*Channels, 1)), &recordingEncoder{err: boom}, out)
	require.ErrorIs(t, err, boom)
}
