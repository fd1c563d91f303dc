package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/versecatch/internal/reference"
)

type fakeCapture struct {
	supported bool
	startErr  error

	mu         sync.Mutex
	listening  bool
	transcript string

	starts atomic.Int32
	stops  atomic.Int32
	resets atomic.Int32

	updates chan string
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{supported: true, updates: make(chan string)}
}

func (f *fakeCapture) Supported() bool { return f.supported }

func (f *fakeCapture) StartContinuous(context.Context) error {
	f.starts.Add(1)
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.listening = true
	f.mu.Unlock()
	return nil
}

func (f *fakeCapture) Stop() error {
	f.stops.Add(1)
	f.mu.Lock()
	f.listening = false
	f.mu.Unlock()
	return nil
}

func (f *fakeCapture) ResetTranscript() {
	f.resets.Add(1)
	f.mu.Lock()
	f.transcript = ""
	f.mu.Unlock()
}

func (f *fakeCapture) Transcript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcript
}

func (f *fakeCapture) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

func (f *fakeCapture) Updates() <-chan string { return f.updates }

// hear simulates recognized speech and blocks until the orchestrator loop takes it.
func (f *fakeCapture) hear(t *testing.T, text string) {
	t.Helper()
	f.mu.Lock()
	if f.transcript == "" {
		f.transcript = text
	} else {
		f.transcript += " " + text
	}
	snapshot := f.transcript
	f.mu.Unlock()

	select {
	case f.updates <- snapshot:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out delivering transcript update")
	}
}

type pendingFetch struct {
	ref         reference.Reference
	translation string
	reply       chan fetchReply
}

type fetchReply struct {
	text string
	err  error
}

// fakeFetcher parks every fetch until the test resolves it.
type fakeFetcher struct {
	pending chan pendingFetch
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pending: make(chan pendingFetch, 16)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref reference.Reference, translation string) (string, error) {
	p := pendingFetch{ref: ref, translation: translation, reply: make(chan fetchReply, 1)}
	f.pending <- p
	select {
	case r := <-p.reply:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeFetcher) next(t *testing.T) pendingFetch {
	t.Helper()
	select {
	case p := <-f.pending:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verse fetch")
		return pendingFetch{}
	}
}

func (p pendingFetch) resolve(text string) {
	p.reply <- fetchReply{text: text}
}

func (p pendingFetch) fail() {
	p.reply <- fetchReply{err: errors.New("verse service HTTP 503")}
}

type fakeIndicator struct {
	listening atomic.Int32
	paused    atomic.Int32
	stopped   atomic.Int32
	verses    atomic.Int32
	errors    atomic.Int32
}

func (f *fakeIndicator) ShowListening(context.Context) { f.listening.Add(1) }
func (f *fakeIndicator) ShowPaused(context.Context)    { f.paused.Add(1) }
func (f *fakeIndicator) ShowStopped(context.Context)   { f.stopped.Add(1) }
func (f *fakeIndicator) ShowVerse(context.Context, reference.Reference, string, string) {
	f.verses.Add(1)
}
func (f *fakeIndicator) ShowError(context.Context, string) { f.errors.Add(1) }
