// Package pipeline wires Pulse capture to a streaming recognizer as a session capture capability.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/versecatch/internal/asr"
	"github.com/rbright/versecatch/internal/audio"
	"github.com/rbright/versecatch/internal/config"
	"github.com/rbright/versecatch/internal/transcript"
)

const (
	dialTimeout    = 3 * time.Second
	collectTimeout = 10 * time.Second
	probeTimeout   = 3 * time.Second
)

type captureClient interface {
	Stop() error
	Chunks() <-chan []byte
	BytesCaptured() int64
	RawPCM() []byte
}

type streamClient interface {
	SendAudio([]byte) error
	Segments() []string
	Changes() <-chan struct{}
	CloseAndCollect(context.Context) ([]string, time.Duration, error)
	Cancel() error
}

// Speech captures microphone audio continuously and keeps a cumulative transcript.
//
// Each StartContinuous opens a fresh recognizer stream; transcripts from earlier streams
// in the same session are kept until ResetTranscript.
type Speech struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice func(context.Context, string, string) (audio.Selection, error)
	dialStream   func(context.Context, asr.StreamConfig) (streamClient, error)
	startCapture func(context.Context, audio.Device, audio.CaptureOptions) (captureClient, error)

	probeOnce sync.Once
	supported bool

	mu           sync.Mutex
	listening    bool
	selection    audio.Selection
	capture      captureClient
	stream       streamClient
	sendErrCh    chan error
	watchStop    chan struct{}
	watchDone    chan struct{}
	committed    []string
	transcript   string
	debugASRFile *os.File

	publishMu sync.Mutex
	updates   chan string
}

// NewSpeech constructs the microphone capture capability from runtime config.
func NewSpeech(cfg config.Config, logger *slog.Logger) *Speech {
	return &Speech{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		dialStream: func(ctx context.Context, streamCfg asr.StreamConfig) (streamClient, error) {
			stream, err := asr.DialStream(ctx, streamCfg)
			if err != nil {
				return nil, err
			}
			return stream, nil
		},
		startCapture: func(ctx context.Context, device audio.Device, opts audio.CaptureOptions) (captureClient, error) {
			capture, err := audio.StartCapture(ctx, device, opts)
			if err != nil {
				return nil, err
			}
			return capture, nil
		},
		updates: make(chan string, 1),
	}
}

// Supported reports whether an input device can be selected. The probe runs once.
func (s *Speech) Supported() bool {
	s.probeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		_, err := s.selectDevice(ctx, s.cfg.Audio.Input, s.cfg.Audio.Fallback)
		s.supported = err == nil
		if err != nil {
			s.logWarn("speech capture unavailable", "error", err.Error())
		}
	})
	return s.supported
}

// StartContinuous selects a device, opens a recognizer stream, and starts capture.
func (s *Speech) StartContinuous(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return nil
	}

	selection, err := s.selectDevice(ctx, s.cfg.Audio.Input, s.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	s.selection = selection
	if selection.Warning != "" {
		s.logWarn(selection.Warning)
	}

	var sink io.Writer
	if s.cfg.Debug.EnableASRDump {
		file, ferr := createDebugFile("asr", "jsonl")
		if ferr != nil {
			return ferr
		}
		s.debugASRFile = file
		sink = file
	}

	stream, err := s.dialStream(ctx, asr.StreamConfig{
		Endpoint:              s.cfg.Capture.ASRURL,
		SampleRate:            s.sampleRate(),
		DialTimeout:           dialTimeout,
		DebugResponseSinkJSON: sink,
	})
	if err != nil {
		s.closeDebugArtifactsLocked()
		return err
	}

	capture, err := s.startCapture(ctx, selection.Device, audio.CaptureOptions{
		SampleRate: s.sampleRate(),
		RetainPCM:  s.cfg.Debug.EnableAudioDump,
	})
	if err != nil {
		_ = stream.Cancel()
		s.closeDebugArtifactsLocked()
		return err
	}

	s.capture = capture
	s.stream = stream
	s.sendErrCh = make(chan error, 1)
	s.watchStop = make(chan struct{})
	s.watchDone = make(chan struct{})
	s.listening = true

	go sendLoop(capture, stream, s.sendErrCh)
	go s.watch(stream, s.watchStop, s.watchDone)

	s.logInfo("speech capture started", "device", describeDevice(selection.Device), "asr_url", s.cfg.Capture.ASRURL)
	return nil
}

// Stop halts capture, waits for the recognizer's final result, and keeps the transcript.
func (s *Speech) Stop() error {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = false
	capture, stream := s.capture, s.stream
	sendErrCh, watchStop, watchDone := s.sendErrCh, s.watchStop, s.watchDone
	selection := s.selection
	s.capture, s.stream = nil, nil
	s.mu.Unlock()

	_ = capture.Stop()
	sendErr := <-sendErrCh
	close(watchStop)
	<-watchDone

	var (
		segments []string
		err      error
	)
	if sendErr != nil {
		segments = stream.Segments()
		_ = stream.Cancel()
		err = fmt.Errorf("send audio stream: %w", sendErr)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
		defer cancel()

		var latency time.Duration
		segments, latency, err = stream.CloseAndCollect(ctx)
		if err != nil {
			segments = stream.Segments()
			err = fmt.Errorf("collect final transcript: %w", err)
		} else if s.logger != nil {
			s.logger.Debug("recognizer final result collected", "latency_ms", latency.Milliseconds())
		}
	}

	s.mu.Lock()
	s.committed = append(s.committed, segments...)
	s.mu.Unlock()
	s.refresh(nil)

	s.writeDebugAudio(capture.RawPCM())
	s.closeDebugArtifacts()

	s.logInfo("speech capture stopped",
		"device", describeDevice(selection.Device),
		"bytes_captured", capture.BytesCaptured(),
	)
	return err
}

// ResetTranscript clears the cumulative transcript and any unread update.
func (s *Speech) ResetTranscript() {
	s.mu.Lock()
	s.committed = nil
	s.transcript = ""
	s.mu.Unlock()

	s.publishMu.Lock()
	select {
	case <-s.updates:
	default:
	}
	s.publishMu.Unlock()
}

// Transcript returns the cumulative transcript.
func (s *Speech) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// Listening reports whether capture is active.
func (s *Speech) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Updates delivers the latest cumulative transcript. Unread intermediate values are replaced.
func (s *Speech) Updates() <-chan string {
	return s.updates
}

// watch republishes the transcript whenever the live stream reports new results.
func (s *Speech) watch(stream streamClient, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-stream.Changes():
			s.refresh(stream.Segments())
		}
	}
}

// refresh rebuilds the transcript from committed plus live segments and publishes changes.
func (s *Speech) refresh(live []string) {
	s.mu.Lock()
	segments := append(append([]string(nil), s.committed...), live...)
	text := transcript.Assemble(segments, transcript.Options{SpokenReferences: true})
	changed := text != s.transcript
	s.transcript = text
	s.mu.Unlock()

	if changed {
		s.publish(text)
	}
}

// publish replaces any unread update so the consumer always sees the newest transcript.
func (s *Speech) publish(text string) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	select {
	case <-s.updates:
	default:
	}
	s.updates <- text
}

// sendLoop forwards capture chunks to the recognizer and reports the first send failure.
func sendLoop(capture captureClient, stream streamClient, errCh chan<- error) {
	for chunk := range capture.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := stream.SendAudio(chunk); err != nil {
			_ = capture.Stop()
			for range capture.Chunks() {
			}
			errCh <- err
			return
		}
	}
	errCh <- nil
}

func (s *Speech) sampleRate() int {
	if s.cfg.Capture.SampleRate <= 0 {
		return 16000
	}
	return s.cfg.Capture.SampleRate
}

// describeDevice formats device metadata for logs.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (s *Speech) logInfo(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg, args...)
}

func (s *Speech) logWarn(msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, args...)
}
