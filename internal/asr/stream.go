// Package asr streams PCM audio to a websocket speech recognizer speaking the
// Vosk server protocol and assembles its partial and final results.
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig controls stream initialization.
type StreamConfig struct {
	Endpoint              string
	SampleRate            int
	DialTimeout           time.Duration
	DebugResponseSinkJSON io.Writer
}

type configMessage struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

type eofMessage struct {
	EOF int `json:"eof"`
}

// result is one recognizer response. Partial results carry "partial", finals carry "text".
type result struct {
	Partial *string `json:"partial"`
	Text    *string `json:"text"`
}

// Stream wraps one recognizer websocket session.
type Stream struct {
	conn *websocket.Conn

	writeMu  sync.Mutex
	recvDone chan struct{}
	changes  chan struct{}

	mu            sync.Mutex
	segments      []string // committed final and superseded partial segments
	lastInterim   string
	recvErr       error
	closedSend    bool
	debugSinkJSON io.Writer
}

// DialStream connects, sends the recognizer config, and starts the receive loop.
func DialStream(ctx context.Context, cfg StreamConfig) (*Stream, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("asr endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial asr websocket %q: %w", endpoint, err)
	}

	var init configMessage
	init.Config.SampleRate = cfg.SampleRate
	if err := conn.WriteJSON(init); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send recognizer config: %w", err)
	}

	s := newStream(conn, cfg.DebugResponseSinkJSON)
	go s.recvLoop()
	return s, nil
}

func newStream(conn *websocket.Conn, debugSink io.Writer) *Stream {
	return &Stream{
		conn:          conn,
		recvDone:      make(chan struct{}),
		changes:       make(chan struct{}, 1),
		debugSinkJSON: debugSink,
	}
}

// recvLoop receives recognizer results until the server closes or the stream is canceled.
func (s *Stream) recvLoop() {
	defer close(s.recvDone)

	for {
		_, data, err := s.conn.ReadMessage()
		if err == nil {
			s.recordMessage(data)
			continue
		}

		s.mu.Lock()
		if !s.closedSend && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			s.recvErr = err
		}
		s.mu.Unlock()
		return
	}
}

// recordMessage merges one partial or final result into stream state.
func (s *Stream) recordMessage(data []byte) {
	if sink := s.debugSinkJSON; sink != nil {
		_, _ = sink.Write(append(append([]byte(nil), data...), '\n'))
	}

	var res result
	if err := json.Unmarshal(data, &res); err != nil {
		return
	}

	s.mu.Lock()
	changed := false
	switch {
	case res.Text != nil:
		if text := cleanSegment(*res.Text); text != "" {
			s.segments = appendSegment(s.segments, text)
			changed = true
		}
		if s.lastInterim != "" {
			changed = true
		}
		s.lastInterim = ""
	case res.Partial != nil:
		partial := cleanSegment(*res.Partial)
		if partial == "" || partial == s.lastInterim {
			break
		}
		if s.lastInterim != "" && !isInterimContinuation(s.lastInterim, partial) {
			s.segments = appendSegment(s.segments, s.lastInterim)
		}
		s.lastInterim = partial
		changed = true
	}
	s.mu.Unlock()

	if changed {
		select {
		case s.changes <- struct{}{}:
		default:
		}
	}
}

// Changes signals, coalesced, that Segments may have changed.
func (s *Stream) Changes() <-chan struct{} {
	return s.changes
}

// Segments returns committed segments plus the pending partial.
func (s *Stream) Segments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collectSegments(s.segments, s.lastInterim)
}

// SendAudio sends one chunk of PCM audio over the active stream.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	recvErr := s.recvErr
	s.mu.Unlock()

	if closed {
		return errors.New("stream already closed for sending")
	}
	if recvErr != nil {
		return fmt.Errorf("stream receive loop failed: %w", recvErr)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// CloseAndCollect signals end of audio, waits for the final result, and returns merged segments.
func (s *Stream) CloseAndCollect(ctx context.Context) ([]string, time.Duration, error) {
	closedAt := time.Now()

	s.mu.Lock()
	alreadyClosed := s.closedSend
	s.closedSend = true
	s.mu.Unlock()

	if !alreadyClosed {
		s.writeMu.Lock()
		err := s.conn.WriteJSON(eofMessage{EOF: 1})
		s.writeMu.Unlock()
		if err != nil {
			_ = s.conn.Close()
			<-s.recvDone
			return s.Segments(), 0, fmt.Errorf("send end of audio: %w", err)
		}
	}

	select {
	case <-s.recvDone:
	case <-ctx.Done():
		_ = s.conn.Close()
		<-s.recvDone
		return s.Segments(), 0, ctx.Err()
	}
	latency := time.Since(closedAt)
	_ = s.conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recvErr != nil {
		return nil, latency, s.recvErr
	}
	return collectSegments(s.segments, s.lastInterim), latency, nil
}

// Cancel aborts the stream and closes the websocket.
func (s *Stream) Cancel() error {
	s.mu.Lock()
	s.closedSend = true
	s.mu.Unlock()
	return s.conn.Close()
}
