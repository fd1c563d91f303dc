package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestRecordMessageTracksPartialThenFinal(t *testing.T) {
	s := newStream(nil, nil)

	s.recordMessage([]byte(`{"partial": "romans eight"}`))
	require.Equal(t, "romans eight", s.lastInterim)
	require.Empty(t, s.segments)
	require.Equal(t, []string{"romans eight"}, s.Segments())

	s.recordMessage([]byte(`{"text": "romans 8:28", "result": []}`))
	require.Empty(t, s.lastInterim)
	require.Equal(t, []string{"romans 8:28"}, s.segments)
}

func TestRecordMessageCommitsDivergentPartial(t *testing.T) {
	s := newStream(nil, nil)

	s.recordMessage([]byte(`{"partial": "good morning church"}`))
	s.recordMessage([]byte(`{"partial": "please open your bibles"}`))

	require.Equal(t, []string{"good morning church"}, s.segments)
	require.Equal(t, "please open your bibles", s.lastInterim)
	require.Equal(t, []string{"good morning church", "please open your bibles"}, s.Segments())
}

func TestRecordMessageSignalsChanges(t *testing.T) {
	s := newStream(nil, nil)

	s.recordMessage([]byte(`{"partial": ""}`))
	select {
	case <-s.Changes():
		t.Fatal("empty partial should not signal a change")
	default:
	}

	s.recordMessage([]byte(`{"partial": "john"}`))
	s.recordMessage([]byte(`{"partial": "john three"}`))
	select {
	case <-s.Changes():
	default:
		t.Fatal("expected change signal")
	}

	s.recordMessage([]byte(`not json`))
	require.Equal(t, []string{"john three"}, s.Segments())
}

func TestRecordMessageWritesDebugSink(t *testing.T) {
	var sink bytes.Buffer
	s := newStream(nil, &sink)

	s.recordMessage([]byte(`{"partial": "hi"}`))
	require.Equal(t, "{\"partial\": \"hi\"}\n", sink.String())
}

// fakeRecognizer answers each audio chunk with a growing partial and the final text at eof.
func fakeRecognizer(t *testing.T, words []string, gotRate chan<- int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var init configMessage
		if err := conn.ReadJSON(&init); err != nil {
			return
		}
		gotRate <- init.Config.SampleRate

		heard := 0
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				if heard < len(words) {
					heard++
				}
				partial := strings.Join(words[:heard], " ")
				if err := conn.WriteJSON(map[string]string{"partial": partial}); err != nil {
					return
				}
				continue
			}

			var eof eofMessage
			if json.Unmarshal(data, &eof) == nil && eof.EOF == 1 {
				_ = conn.WriteJSON(map[string]string{"text": strings.Join(words, " ")})
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialStreamEndToEnd(t *testing.T) {
	gotRate := make(chan int, 1)
	server := fakeRecognizer(t, []string{"turn", "to", "john", "3:16"}, gotRate)
	defer server.Close()

	var sink bytes.Buffer
	stream, err := DialStream(context.Background(), StreamConfig{
		Endpoint:              wsURL(server),
		SampleRate:            16000,
		DebugResponseSinkJSON: &sink,
	})
	require.NoError(t, err)
	require.Equal(t, 16000, <-gotRate)

	for i := 0; i < 2; i++ {
		require.NoError(t, stream.SendAudio(make([]byte, 320)))
	}
	require.Eventually(t, func() bool {
		return strings.Join(stream.Segments(), " ") == "turn to"
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	segments, _, err := stream.CloseAndCollect(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"turn to john 3:16"}, segments)
	require.Contains(t, sink.String(), `"text":"turn to john 3:16"`)

	require.Error(t, stream.SendAudio([]byte{1, 2}))
}

func TestDialStreamEmptyEndpoint(t *testing.T) {
	_, err := DialStream(context.Background(), StreamConfig{Endpoint: "  "})
	require.ErrorContains(t, err, "endpoint is empty")
}

func TestDialStreamUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := DialStream(context.Background(), StreamConfig{Endpoint: wsURL(server), DialTimeout: time.Second})
	require.ErrorContains(t, err, "dial asr websocket")
}

func TestSendAudioIgnoresEmptyChunk(t *testing.T) {
	s := newStream(nil, nil)
	require.NoError(t, s.SendAudio(nil))
}
