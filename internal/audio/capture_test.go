package audio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkSize(t *testing.T) {
	require.Equal(t, 640, ChunkSize(16000))
	require.Equal(t, 1920, ChunkSize(48000))
	require.Equal(t, 640, ChunkSize(0))
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestCaptureOnPCMChunkingAndStopFlushesPending(t *testing.T) {
	capture := newCapture(Device{}, CaptureOptions{SampleRate: 16000, RetainPCM: true})
	chunkSize := ChunkSize(16000)

	input := make([]byte, chunkSize+111)
	for i := range input {
		input[i] = byte(i % 255)
	}

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), capture.BytesCaptured())
	require.Equal(t, len(input), len(capture.RawPCM()))

	firstChunk := <-capture.Chunks()
	require.Len(t, firstChunk, chunkSize)
	require.Equal(t, input[:chunkSize], firstChunk)

	require.NoError(t, capture.Stop())

	remaining, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Len(t, remaining, 111)

	_, ok = <-capture.Chunks()
	require.False(t, ok)
}

func TestCaptureDoesNotRetainPCMByDefault(t *testing.T) {
	capture := newCapture(Device{}, CaptureOptions{SampleRate: 16000})

	_, err := capture.onPCM(make([]byte, 100))
	require.NoError(t, err)
	require.Empty(t, capture.RawPCM())
	require.Equal(t, int64(100), capture.BytesCaptured())
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := newCapture(Device{}, CaptureOptions{})
	close(capture.stopCh)

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.BytesCaptured())
}

func TestCaptureStopIsIdempotent(t *testing.T) {
	capture := newCapture(Device{ID: "mic-1", Description: "Mic"}, CaptureOptions{})
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	require.NoError(t, capture.Stop())
	_, ok := <-capture.Chunks()
	require.False(t, ok)
}
