package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LineSource treats each line read from an upstream recognizer as newly recognized speech.
//
// Lines that arrive while not listening are discarded, matching a microphone that is off.
type LineSource struct {
	logger *slog.Logger

	mu         sync.Mutex
	reader     *bufio.Scanner
	readerOnce sync.Once
	listening  bool
	transcript string

	updates chan string
	done    chan struct{}
}

// NewLineSource wraps r. A nil reader yields an unsupported capability.
func NewLineSource(r io.Reader, logger *slog.Logger) *LineSource {
	s := &LineSource{
		logger:  logger,
		updates: make(chan string, 1),
		done:    make(chan struct{}),
	}
	if r != nil {
		s.reader = bufio.NewScanner(r)
	}
	return s
}

// Supported reports whether an upstream reader is attached.
func (s *LineSource) Supported() bool {
	return s.reader != nil
}

// StartContinuous begins accepting lines. The reader goroutine starts on first use.
func (s *LineSource) StartContinuous(context.Context) error {
	if !s.Supported() {
		return ErrUnsupported
	}

	s.mu.Lock()
	s.listening = true
	s.mu.Unlock()

	s.readerOnce.Do(func() { go s.readLoop() })
	return nil
}

// Stop discards lines until the next StartContinuous.
func (s *LineSource) Stop() error {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
	return nil
}

// ResetTranscript clears the cumulative transcript and any unread update.
func (s *LineSource) ResetTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = ""
	select {
	case <-s.updates:
	default:
	}
}

// Transcript returns the cumulative transcript.
func (s *LineSource) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Listening reports whether lines are currently accepted.
func (s *LineSource) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Updates delivers the latest cumulative transcript. Unread intermediate values are replaced.
func (s *LineSource) Updates() <-chan string {
	return s.updates
}

// Done is closed when the upstream reader is exhausted.
func (s *LineSource) Done() <-chan struct{} {
	return s.done
}

func (s *LineSource) readLoop() {
	defer close(s.done)

	for s.reader.Scan() {
		s.accept(s.reader.Text())
	}
	if s.logger == nil {
		return
	}
	if err := s.reader.Err(); err != nil {
		s.logger.Warn("transcript source read failed", "error", err.Error())
		return
	}
	s.logger.Info("transcript source closed")
}

// accept appends one line when listening and publishes the new cumulative transcript.
// The publish happens under mu so a reset never races a pending snapshot.
func (s *LineSource) accept(line string) {
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return
	}

	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	if s.transcript == "" {
		s.transcript = line
	} else {
		s.transcript = fmt.Sprintf("%s %s", s.transcript, line)
	}
	s.publishLocked(s.transcript)
	s.mu.Unlock()
}

// publishLocked replaces any unread update. Callers hold mu, so the send never blocks.
func (s *LineSource) publishLocked(text string) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- text
}
