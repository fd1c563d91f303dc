package capture

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLineSourceUnsupportedWithoutReader(t *testing.T) {
	src := NewLineSource(nil, nil)
	require.False(t, src.Supported())
	require.ErrorIs(t, src.StartContinuous(context.Background()), ErrUnsupported)
	require.False(t, src.Listening())
}

func TestLineSourceAccumulatesWhileListening(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	src := NewLineSource(pr, nil)
	require.True(t, src.Supported())
	require.NoError(t, src.StartContinuous(context.Background()))
	require.True(t, src.Listening())

	_, err := io.WriteString(pw, "please turn to\n")
	require.NoError(t, err)
	require.Equal(t, "please turn to", receive(t, src.Updates()))

	_, err = io.WriteString(pw, "  Romans   8:28 \n")
	require.NoError(t, err)
	require.Equal(t, "please turn to Romans 8:28", receive(t, src.Updates()))
	require.Equal(t, "please turn to Romans 8:28", src.Transcript())
}

func TestLineSourceDiscardsLinesWhenStopped(t *testing.T) {
	src := NewLineSource(strings.NewReader(""), nil)
	require.NoError(t, src.StartContinuous(context.Background()))
	src.accept("kept")
	require.Equal(t, "kept", receive(t, src.Updates()))

	require.NoError(t, src.Stop())
	require.False(t, src.Listening())
	src.accept("dropped")
	require.Equal(t, "kept", src.Transcript())

	require.NoError(t, src.StartContinuous(context.Background()))
	src.accept("resumed")
	require.Equal(t, "kept resumed", receive(t, src.Updates()))
}

func TestLineSourceResetAndBlankLines(t *testing.T) {
	src := NewLineSource(strings.NewReader(""), nil)
	require.NoError(t, src.StartContinuous(context.Background()))

	src.accept("   ")
	require.Empty(t, src.Transcript())

	src.accept("John 3:16")
	require.Equal(t, "John 3:16", receive(t, src.Updates()))

	src.accept("Romans 8:28")
	src.ResetTranscript()
	require.Empty(t, src.Transcript())
	select {
	case stale := <-src.Updates():
		t.Fatalf("unexpected update after reset: %q", stale)
	default:
	}
}

func TestLineSourceResetDropsUnreadUpdates(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	src := NewLineSource(pr, nil)
	require.NoError(t, src.StartContinuous(context.Background()))

	_, err := io.WriteString(pw, "Romans 8:28\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return src.Transcript() == "Romans 8:28" }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, src.Stop())
	src.ResetTranscript()
	require.NoError(t, src.StartContinuous(context.Background()))

	require.Empty(t, src.Transcript())
	select {
	case stale := <-src.Updates():
		t.Fatalf("unexpected update after reset: %q", stale)
	default:
	}

	_, err = io.WriteString(pw, "John 3:16\n")
	require.NoError(t, err)
	require.Equal(t, "John 3:16", receive(t, src.Updates()))
}

func TestLineSourceKeepsLatestUnreadUpdate(t *testing.T) {
	src := NewLineSource(strings.NewReader(""), nil)
	require.NoError(t, src.StartContinuous(context.Background()))

	src.accept("please turn")
	src.accept("to Romans 8:28")
	require.Equal(t, "please turn to Romans 8:28", receive(t, src.Updates()))

	select {
	case extra := <-src.Updates():
		t.Fatalf("unexpected extra update: %q", extra)
	default:
	}
}

func TestLineSourceDoneAfterEOF(t *testing.T) {
	src := NewLineSource(strings.NewReader("one\n"), nil)
	require.NoError(t, src.StartContinuous(context.Background()))

	require.Equal(t, "one", receive(t, src.Updates()))
	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reader exhaustion")
	}
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript update")
		return ""
	}
}
