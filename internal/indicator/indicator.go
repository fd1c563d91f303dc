// Package indicator surfaces session state through desktop notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/versecatch/internal/config"
	"github.com/rbright/versecatch/internal/reference"
)

const (
	stateTimeoutMS = 4000
	errorTimeoutMS = 3000
)

// Desktop is the runtime indicator. It keeps a single replaceable notification on screen.
type Desktop struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	cue      func(context.Context, cueKind) error

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
}

// NewDesktop creates an indicator from config.
func NewDesktop(cfg config.IndicatorConfig, logger *slog.Logger) *Desktop {
	return &Desktop{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		cue:      emitCue,
	}
}

// ShowListening signals capture start and emits the start cue.
func (d *Desktop) ShowListening(ctx context.Context) {
	d.playCue(cueStart)
	if !d.cfg.Enable {
		return
	}
	d.run(ctx, func(ctx context.Context) error {
		return d.notify(ctx, d.messages.listening, "", stateTimeoutMS)
	})
}

// ShowPaused signals a paused capture.
func (d *Desktop) ShowPaused(ctx context.Context) {
	d.playCue(cuePause)
	if !d.cfg.Enable {
		return
	}
	d.run(ctx, func(ctx context.Context) error {
		return d.notify(ctx, d.messages.paused, "", stateTimeoutMS)
	})
}

// ShowStopped emits the stop cue and dismisses the notification.
func (d *Desktop) ShowStopped(ctx context.Context) {
	d.playCue(cueStop)
	if !d.cfg.Enable {
		return
	}
	d.run(ctx, d.dismiss)
}

// ShowVerse displays the fetched verse under its uppercase citation.
func (d *Desktop) ShowVerse(ctx context.Context, ref reference.Reference, translation string, text string) {
	d.playCue(cueVerse)
	if !d.cfg.Enable {
		return
	}
	timeout := d.cfg.VerseTimeoutMS
	if timeout <= 0 {
		timeout = 8000
	}
	d.run(ctx, func(ctx context.Context) error {
		return d.notify(ctx, ref.Citation(translation), text, timeout)
	})
}

// ShowError displays an error notification.
func (d *Desktop) ShowError(ctx context.Context, text string) {
	if !d.cfg.Enable {
		return
	}
	if text == "" {
		text = d.messages.errorText
	}
	d.run(ctx, func(ctx context.Context) error {
		return d.notify(ctx, d.messages.errorText, text, errorTimeoutMS)
	})
}

// notify sends a replaceable desktop notification and stores its ID.
func (d *Desktop) notify(ctx context.Context, summary string, body string, timeoutMS int) error {
	d.mu.Lock()
	replaceID := d.notificationID
	d.mu.Unlock()

	appName := strings.TrimSpace(d.cfg.DesktopAppName)
	if appName == "" {
		appName = "versecatch"
	}

	id, err := desktopNotify(ctx, notification{
		appName:   appName,
		replaceID: replaceID,
		summary:   summary,
		body:      body,
		timeoutMS: timeoutMS,
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.notificationID = id
	d.mu.Unlock()
	return nil
}

// dismiss closes the current notification when present.
func (d *Desktop) dismiss(ctx context.Context) error {
	d.mu.Lock()
	id := d.notificationID
	d.notificationID = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (d *Desktop) playCue(kind cueKind) {
	if !d.cfg.SoundEnable {
		return
	}
	go func() {
		d.soundMu.Lock()
		defer d.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := d.cue(ctx, kind); err != nil {
			d.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (d *Desktop) log(message string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(message, "error", err.Error())
}
