package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/versecatch/internal/capture"
	"github.com/rbright/versecatch/internal/fsm"
	"github.com/rbright/versecatch/internal/reference"
)

// FetchErrorText replaces the quote when a verse lookup fails.
const FetchErrorText = "Error fetching verse. Please try again later."

var (
	// ErrUnsupported is returned by every control when capture cannot run here.
	ErrUnsupported = capture.ErrUnsupported
	// ErrUnknownTranslation rejects translation codes outside the configured list.
	ErrUnknownTranslation = errors.New("unknown translation")
	// ErrNotRunning is returned when the orchestrator loop has exited.
	ErrNotRunning = errors.New("session orchestrator is not running")
)

// Ordering selects which verse fetch completion is allowed to update the quote.
type Ordering string

const (
	// OrderLatestIssued applies only the completion of the most recently issued fetch.
	OrderLatestIssued Ordering = "latest"
	// OrderLastCompleted applies every completion, so the last one to finish wins.
	OrderLastCompleted Ordering = "completion"
)

// Fetcher resolves a reference to verse text.
type Fetcher interface {
	Fetch(ctx context.Context, ref reference.Reference, translation string) (string, error)
}

// Indicator receives user-visible session cues. Implementations must not block for long.
type Indicator interface {
	ShowListening(context.Context)
	ShowPaused(context.Context)
	ShowStopped(context.Context)
	ShowVerse(ctx context.Context, ref reference.Reference, translation string, text string)
	ShowError(ctx context.Context, message string)
}

// Snapshot is the published session state read by presentation surfaces.
type Snapshot struct {
	State          fsm.State           `json:"state"`
	SessionID      string              `json:"session_id,omitempty"`
	Supported      bool                `json:"supported"`
	Reference      reference.Reference `json:"reference"`
	Translation    string              `json:"translation"`
	Quote          string              `json:"quote"`
	Loading        bool                `json:"loading"`
	Transcript     string              `json:"transcript"`
	FetchesIssued  uint64              `json:"fetches_issued"`
	ResultsDropped uint64              `json:"results_dropped"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// HasReference reports whether a verse reference has been detected.
func (s Snapshot) HasReference() bool {
	return !s.Reference.IsZero()
}

// Options configures an Orchestrator.
type Options struct {
	Logger       *slog.Logger
	Translation  string
	Translations []string
	Ordering     Ordering
	Indicator    Indicator
	// Extract overrides reference extraction. Defaults to reference.Extract.
	Extract func(string) (reference.Reference, bool)
}

type commandKind int

const (
	commandStart commandKind = iota + 1
	commandPause
	commandStop
	commandTranslation
)

type command struct {
	kind  commandKind
	arg   string
	reply chan error
}

type fetchResult struct {
	seq         uint64
	ref         reference.Reference
	translation string
	text        string
	err         error
}

// Orchestrator wires capture transcripts to extraction, fetches, and the published snapshot.
//
// All snapshot mutation happens on the Run goroutine. Fetches run concurrently and post
// their completions back to the loop.
type Orchestrator struct {
	logger       *slog.Logger
	controller   *Controller
	capture      capture.Capability
	fetcher      Fetcher
	indicator    Indicator
	extract      func(string) (reference.Reference, bool)
	ordering     Ordering
	translations []string

	commands chan command
	results  chan fetchResult
	done     chan struct{}
	runOnce  sync.Once

	mu   sync.RWMutex
	snap Snapshot

	// loop-owned
	seq          uint64
	candidate    reference.Reference
	hasCandidate bool
}

// NewOrchestrator constructs an orchestrator over capability and fetcher.
func NewOrchestrator(capability capture.Capability, fetcher Fetcher, opts Options) *Orchestrator {
	extract := opts.Extract
	if extract == nil {
		extract = reference.Extract
	}
	indicator := opts.Indicator
	if indicator == nil {
		indicator = noopIndicator{}
	}
	ordering := opts.Ordering
	if ordering == "" {
		ordering = OrderLatestIssued
	}

	return &Orchestrator{
		logger:       opts.Logger,
		controller:   NewController(opts.Logger, capability),
		capture:      capability,
		fetcher:      fetcher,
		indicator:    indicator,
		extract:      extract,
		ordering:     ordering,
		translations: append([]string(nil), opts.Translations...),
		commands:     make(chan command),
		results:      make(chan fetchResult),
		done:         make(chan struct{}),
		snap: Snapshot{
			State:       fsm.StateIdle,
			Supported:   capability.Supported(),
			Translation: opts.Translation,
			UpdatedAt:   time.Now(),
		},
	}
}

// Snapshot returns a copy of the published state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snap
}

// Run processes transcripts, commands, and fetch completions until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := false
	o.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("session orchestrator already running")
	}
	defer close(o.done)

	updates := o.capture.Updates()
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case text := <-updates:
			o.onTranscript(ctx, text)
		case cmd := <-o.commands:
			cmd.reply <- o.apply(ctx, cmd)
		case res := <-o.results:
			o.onFetchComplete(ctx, res)
		}
	}
}

// Start begins or resumes listening.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.do(ctx, commandStart, "")
}

// Pause stops listening and keeps the transcript.
func (o *Orchestrator) Pause(ctx context.Context) error {
	return o.do(ctx, commandPause, "")
}

// Stop ends the capture session.
func (o *Orchestrator) Stop(ctx context.Context) error {
	return o.do(ctx, commandStop, "")
}

// SetTranslation switches the active translation and refetches the current reference.
func (o *Orchestrator) SetTranslation(ctx context.Context, code string) error {
	return o.do(ctx, commandTranslation, code)
}

func (o *Orchestrator) do(ctx context.Context, kind commandKind, arg string) error {
	reply := make(chan error, 1)
	select {
	case o.commands <- command{kind: kind, arg: arg, reply: reply}:
	case <-o.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) apply(ctx context.Context, cmd command) error {
	if !o.Snapshot().Supported {
		return ErrUnsupported
	}

	switch cmd.kind {
	case commandStart:
		fresh, err := o.controller.Start(ctx)
		if err != nil {
			return err
		}
		o.update(func(s *Snapshot) {
			if fresh {
				s.Quote = ""
				s.Transcript = ""
			}
			s.State = o.controller.State()
			s.SessionID = o.controller.SessionID()
		})
		if fresh {
			o.candidate = reference.Reference{}
			o.hasCandidate = false
		}
		o.indicator.ShowListening(ctx)
		return nil
	case commandPause:
		if err := o.controller.Pause(); err != nil {
			return err
		}
		o.update(func(s *Snapshot) { s.State = o.controller.State() })
		o.indicator.ShowPaused(ctx)
		return nil
	case commandStop:
		if err := o.controller.Stop(); err != nil {
			return err
		}
		o.update(func(s *Snapshot) { s.State = o.controller.State() })
		o.indicator.ShowStopped(ctx)
		return nil
	case commandTranslation:
		return o.setTranslation(ctx, cmd.arg)
	default:
		return fmt.Errorf("unknown session command %d", cmd.kind)
	}
}

func (o *Orchestrator) setTranslation(ctx context.Context, code string) error {
	canonical, ok := o.lookupTranslation(code)
	if !ok {
		return fmt.Errorf("%w %q (available: %s)", ErrUnknownTranslation, strings.TrimSpace(code), strings.Join(o.translations, ", "))
	}

	current := o.Snapshot()
	if canonical == current.Translation {
		return nil
	}

	o.update(func(s *Snapshot) { s.Translation = canonical })
	o.logf("translation changed", "from", current.Translation, "to", canonical)

	if current.HasReference() {
		o.issueFetch(ctx, current.Reference, canonical)
	}
	return nil
}

func (o *Orchestrator) lookupTranslation(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	for _, candidate := range o.translations {
		if strings.EqualFold(candidate, code) {
			return candidate, true
		}
	}
	return "", false
}

func (o *Orchestrator) onTranscript(ctx context.Context, text string) {
	if text != "" {
		if ref, ok := o.extract(text); ok && !(o.hasCandidate && ref == o.candidate) {
			o.candidate = ref
			o.hasCandidate = true
			translation := o.Snapshot().Translation
			o.update(func(s *Snapshot) { s.Reference = ref })
			o.logf("verse reference detected", "reference", ref.String(), "translation", translation)
			o.issueFetch(ctx, ref, translation)
		}
	}

	o.update(func(s *Snapshot) { s.Transcript = text })
}

func (o *Orchestrator) issueFetch(ctx context.Context, ref reference.Reference, translation string) {
	o.seq++
	seq := o.seq
	o.update(func(s *Snapshot) {
		s.Loading = true
		s.FetchesIssued = seq
	})

	go func() {
		text, err := o.fetcher.Fetch(ctx, ref, translation)
		select {
		case o.results <- fetchResult{seq: seq, ref: ref, translation: translation, text: text, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (o *Orchestrator) onFetchComplete(ctx context.Context, res fetchResult) {
	if o.ordering == OrderLatestIssued && res.seq != o.seq {
		o.update(func(s *Snapshot) { s.ResultsDropped++ })
		if o.logger != nil {
			o.logger.Debug("superseded verse result dropped", "seq", res.seq, "latest", o.seq, "reference", res.ref.String())
		}
		return
	}

	quote := res.text
	if res.err != nil {
		quote = FetchErrorText
		if o.logger != nil {
			o.logger.Error("verse fetch failed", "reference", res.ref.String(), "translation", res.translation, "error", res.err.Error())
		}
	}

	o.update(func(s *Snapshot) {
		s.Quote = quote
		s.Loading = false
	})

	if res.err != nil {
		o.indicator.ShowError(ctx, FetchErrorText)
		return
	}
	o.indicator.ShowVerse(ctx, res.ref, res.translation, quote)
}

func (o *Orchestrator) shutdown() {
	if !fsm.Capturing(o.controller.State()) {
		return
	}
	if err := o.controller.Stop(); err != nil && o.logger != nil {
		o.logger.Warn("stop on shutdown failed", "error", err.Error())
	}
	o.update(func(s *Snapshot) { s.State = o.controller.State() })
}

func (o *Orchestrator) update(mutate func(*Snapshot)) {
	o.mu.Lock()
	mutate(&o.snap)
	o.snap.UpdatedAt = time.Now()
	o.mu.Unlock()
}

func (o *Orchestrator) logf(msg string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Info(msg, args...)
}

type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)                                 {}
func (noopIndicator) ShowPaused(context.Context)                                    {}
func (noopIndicator) ShowStopped(context.Context)                                   {}
func (noopIndicator) ShowVerse(context.Context, reference.Reference, string, string) {}
func (noopIndicator) ShowError(context.Context, string)                             {}
