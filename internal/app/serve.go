package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/versecatch/internal/capture"
	"github.com/rbright/versecatch/internal/config"
	"github.com/rbright/versecatch/internal/indicator"
	"github.com/rbright/versecatch/internal/ipc"
	"github.com/rbright/versecatch/internal/overlay"
	"github.com/rbright/versecatch/internal/pipeline"
	"github.com/rbright/versecatch/internal/session"
	"github.com/rbright/versecatch/internal/verse"
)

// commandServe owns the control socket and runs the session until ctx is canceled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			logger.Warn("serve refused", "socket", socketPath, "error", err.Error())
		}
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	capability := r.buildCapture(cfg, logger)
	orchestrator := session.NewOrchestrator(capability, verse.NewClient(cfg.Verse.APIURL, nil), session.Options{
		Logger:       logger,
		Translation:  cfg.Verse.Translation,
		Translations: cfg.Verse.Translations,
		Ordering:     session.Ordering(cfg.Verse.Ordering),
		Indicator:    indicator.NewDesktop(cfg.Indicator, logger),
	})

	snap := orchestrator.Snapshot()
	if !snap.Supported {
		fmt.Fprintf(r.Stderr, "warning: %v\n", capture.ErrUnsupported)
		logger.Warn("capture unsupported", "backend", cfg.Capture.Backend)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErrCh := make(chan error, 1)
	go func() { loopErrCh <- orchestrator.Run(runCtx) }()

	ipcErrCh := make(chan error, 1)
	go func() { ipcErrCh <- ipc.Serve(runCtx, listener, orchestrator) }()

	overlayErrCh := make(chan error, 1)
	if cfg.Overlay.Enable {
		go func() { overlayErrCh <- overlay.Serve(runCtx, cfg.Overlay.Addr, orchestrator, logger) }()
		fmt.Fprintf(r.Stdout, "overlay: http://%s\n", cfg.Overlay.Addr)
	}

	logger.Info("serve ready",
		"socket", socketPath,
		"backend", cfg.Capture.Backend,
		"translation", snap.Translation,
		"ordering", cfg.Verse.Ordering,
		"supported", snap.Supported,
	)
	fmt.Fprintf(r.Stdout, "versecatch serving on %s\n", socketPath)

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-ipcErrCh:
		if err == nil {
			err = errors.New("listener closed")
		}
		serveErr = fmt.Errorf("ipc server failed: %w", err)
		ipcErrCh <- nil
	case err := <-overlayErrCh:
		if err != nil {
			serveErr = fmt.Errorf("overlay server failed: %w", err)
		}
		overlayErrCh <- nil
	}

	cancel()
	<-loopErrCh
	if err := <-ipcErrCh; err != nil && serveErr == nil {
		serveErr = fmt.Errorf("ipc server failed: %w", err)
	}
	if cfg.Overlay.Enable {
		if err := <-overlayErrCh; err != nil && serveErr == nil {
			serveErr = fmt.Errorf("overlay server failed: %w", err)
		}
	}

	final := orchestrator.Snapshot()
	logger.Info("serve stopped",
		"state", final.State,
		"reference", final.Reference.String(),
		"fetches_issued", final.FetchesIssued,
		"results_dropped", final.ResultsDropped,
	)

	if serveErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", serveErr)
		return 1
	}
	return 0
}

// buildCapture selects the capture backend named in config.
func (r Runner) buildCapture(cfg config.Config, logger *slog.Logger) capture.Capability {
	switch cfg.Capture.Backend {
	case config.BackendStdin:
		return capture.NewLineSource(r.Stdin, logger)
	default:
		return pipeline.NewSpeech(cfg, logger)
	}
}
