package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendRoundTrip(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "versecatch.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			require.Equal(t, "translation", req.Command)
			require.Equal(t, "KJV", req.Arg)
			return Response{
				OK:          true,
				State:       "listening",
				Message:     "ok",
				Reference:   "Romans 8:28",
				Translation: req.Arg,
				Quote:       "And we know",
				Loading:     true,
			}
		}))
	}()

	resp, err := Send(context.Background(), socketPath, Request{Command: "translation", Arg: "KJV"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "listening", resp.State)
	require.Equal(t, "ok", resp.Message)
	require.Equal(t, "Romans 8:28", resp.Reference)
	require.Equal(t, "KJV", resp.Translation)
	require.Equal(t, "And we know", resp.Quote)
	require.True(t, resp.Loading)
	require.Nil(t, resp.Supported)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestSendDecodeResponseError(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "versecatch.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		_, _ = reader.ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "versecatch.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "versecatch.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, _ Request) Response {
			return Response{OK: true}
		}))
	}()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestProbe(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "versecatch.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			if req.Command == "status" {
				return Response{OK: true, State: "idle"}
			}
			return Response{OK: false, Error: "bad"}
		}))
	}()

	alive, probeErr := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}

func TestForwardClassifiesOwnerAndRemoteErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "versecatch.sock")

	_, err := Forward(context.Background(), socketPath, Request{Command: "status"}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoOwner)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			if req.Command == "pause" {
				return Response{OK: false, State: "idle", Error: "invalid transition"}
			}
			return Response{OK: true, State: "idle", Message: req.Command}
		}))
	}()

	resp, err := Forward(context.Background(), socketPath, Request{Command: "  status \n"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "status", resp.Message)

	resp, err = Forward(context.Background(), socketPath, Request{Command: "pause"}, 200*time.Millisecond)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, "pause", remote.Command)
	require.Equal(t, "invalid transition", err.Error())
	require.Equal(t, "idle", resp.State)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestForwardStaleSocketFileIsNoOwner(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "versecatch.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, err := Forward(context.Background(), socketPath, Request{Command: "status"}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoOwner)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestForwardWrapsReadFailures(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "versecatch.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, err = Forward(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoOwner)
	require.Contains(t, err.Error(), `forward command "status":`)
}
