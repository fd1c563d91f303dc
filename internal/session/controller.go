// Package session coordinates capture lifecycle state, verse detection, and verse fetches.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rbright/versecatch/internal/capture"
	"github.com/rbright/versecatch/internal/fsm"
)

// Controller owns the capture lifecycle state and issues capture commands.
//
// Mutating methods are called only from the orchestrator loop; State and SessionID are safe
// from any goroutine.
type Controller struct {
	logger  *slog.Logger
	capture capture.Capability

	mu        sync.RWMutex
	state     fsm.State
	sessionID string
}

// NewController constructs an idle controller over capability.
func NewController(logger *slog.Logger, capability capture.Capability) *Controller {
	return &Controller{
		logger:  logger,
		capture: capability,
		state:   fsm.StateIdle,
	}
}

// State returns the current lifecycle state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID identifies the capture session begun by the last fresh start.
func (c *Controller) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Start begins or resumes capture. fresh is true when the start came from idle, in which case
// the transcript buffer was reset. A fresh start that fails to begin capture leaves the state
// idle but the buffer already cleared.
func (c *Controller) Start(ctx context.Context) (fresh bool, err error) {
	if !c.capture.Supported() {
		return false, capture.ErrUnsupported
	}

	current := c.State()
	next, err := fsm.Transition(current, fsm.EventStart)
	if err != nil {
		return false, err
	}

	fresh = current == fsm.StateIdle
	if fresh {
		c.capture.ResetTranscript()
	}
	if err := c.capture.StartContinuous(ctx); err != nil {
		return false, fmt.Errorf("start capture: %w", err)
	}

	c.mu.Lock()
	c.state = next
	if fresh {
		c.sessionID = uuid.NewString()
	}
	id := c.sessionID
	c.mu.Unlock()

	c.log("session transition", "event", fsm.EventStart, "from", current, "to", next, "session_id", id)
	return fresh, nil
}

// Pause stops capture while retaining the transcript.
func (c *Controller) Pause() error {
	return c.halt(fsm.EventPause)
}

// Stop ends the capture session.
func (c *Controller) Stop() error {
	return c.halt(fsm.EventStop)
}

// halt applies pause or stop. Both use the same capture stop primitive.
func (c *Controller) halt(event fsm.Event) error {
	current := c.State()
	next, err := fsm.Transition(current, event)
	if err != nil {
		return err
	}

	if fsm.Capturing(current) {
		if err := c.capture.Stop(); err != nil && c.logger != nil {
			c.logger.Warn("stop capture failed", "event", event, "error", err.Error())
		}
	}

	c.mu.Lock()
	c.state = next
	id := c.sessionID
	c.mu.Unlock()

	c.log("session transition", "event", event, "from", current, "to", next, "session_id", id)
	return nil
}

func (c *Controller) log(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}
