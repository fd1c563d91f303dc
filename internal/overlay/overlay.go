// Package overlay serves the published verse and session controls over HTTP for a browser source.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rbright/versecatch/internal/capture"
	"github.com/rbright/versecatch/internal/fsm"
	"github.com/rbright/versecatch/internal/session"
)

const (
	// DefaultTitle is shown before any reference has been detected.
	DefaultTitle = "ROMANS 8:28 (WEB)"
	// Placeholder is shown while no quote is available.
	Placeholder = "And we know that in all things God works for the good of those who love him, who have been called according to his purpose."
	// LoadingText is shown while a fetch is in flight.
	LoadingText = "Loading..."
)

// Session is the control surface the overlay drives.
type Session interface {
	Snapshot() session.Snapshot
	Start(context.Context) error
	Pause(context.Context) error
	Stop(context.Context) error
	SetTranslation(context.Context, string) error
}

// Router builds the overlay HTTP routes.
func Router(sess Session) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", handleDisplay(sess))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "ok")
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", handleState(sess))
		r.Post("/session/{action}", handleSession(sess))
		r.Post("/translation", handleTranslation(sess))
	})
	return r
}

// Serve listens on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, sess Session, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen overlay %s: %w", addr, err)
	}
	return ServeListener(ctx, listener, sess, logger)
}

// ServeListener serves the overlay on an existing listener until ctx is canceled.
func ServeListener(ctx context.Context, listener net.Listener, sess Session, logger *slog.Logger) error {
	server := &http.Server{
		Handler:           Router(sess),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("overlay listening", "url", "http://"+listener.Addr().String())
	}
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve overlay: %w", err)
	}
	return nil
}

// Render returns the plain-text display for a snapshot: title line, blank line, body.
func Render(snap session.Snapshot) string {
	return Title(snap) + "\n\n" + Body(snap) + "\n"
}

// Title is the uppercase citation of the current reference, or DefaultTitle.
func Title(snap session.Snapshot) string {
	if !snap.HasReference() {
		return DefaultTitle
	}
	return snap.Reference.Citation(snap.Translation)
}

// Body picks the text under the title.
func Body(snap session.Snapshot) string {
	switch {
	case !snap.Supported:
		return capture.ErrUnsupported.Error()
	case snap.Loading:
		return LoadingText
	case snap.Quote != "":
		return snap.Quote
	default:
		return Placeholder
	}
}

func handleDisplay(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		fmt.Fprint(w, Render(sess.Snapshot()))
	}
}

func handleState(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func handleSession(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		switch action := chi.URLParam(r, "action"); action {
		case "start":
			err = sess.Start(r.Context())
		case "pause":
			err = sess.Pause(r.Context())
		case "stop":
			err = sess.Stop(r.Context())
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown session action %q", action))
			return
		}
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

type translationRequest struct {
	Translation string `json:"translation"`
}

func handleTranslation(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req translationRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode translation request: %w", err))
			return
		}
		if err := sess.SetTranslation(r.Context(), req.Translation); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

// statusFor maps session errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnsupported):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrUnknownTranslation):
		return http.StatusBadRequest
	case errors.Is(err, fsm.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
