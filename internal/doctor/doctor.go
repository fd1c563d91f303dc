// Package doctor runs runtime readiness diagnostics for config, audio, ASR, and the verse service.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rbright/versecatch/internal/audio"
	"github.com/rbright/versecatch/internal/config"
	"github.com/rbright/versecatch/internal/reference"
	"github.com/rbright/versecatch/internal/verse"
)

const probeTimeout = 2 * time.Second

// probeReference is looked up to confirm the verse service answers.
var probeReference = reference.Reference{Book: "John", Chapter: "3", Verse: "16"}

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	switch cfg.Config.Capture.Backend {
	case config.BackendStdin:
		checks = append(checks, Check{Name: "capture.backend", Pass: true, Message: "transcript lines read from stdin"})
	default:
		checks = append(checks, Check{Name: "capture.backend", Pass: true, Message: "speech capture"})
		checks = append(checks, checkAudioSelection(cfg.Config))
		checks = append(checks, checkASRReady(cfg.Config))
	}

	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications"))
		checks = append(checks, checkEnv("DBUS_SESSION_BUS_ADDRESS", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "session bus address set", "DBUS_SESSION_BUS_ADDRESS is empty"))
	}

	if cfg.Config.Overlay.Enable {
		checks = append(checks, checkOverlayAddr(cfg.Config))
	}

	checks = append(checks, checkVerseService(cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkASRReady completes a websocket handshake with the configured recognizer.
func checkASRReady(cfg config.Config) Check {
	endpoint := strings.TrimSpace(cfg.Capture.ASRURL)
	if endpoint == "" {
		return Check{Name: "asr.ready", Pass: false, Message: "capture.asr_url is empty"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: probeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return Check{Name: "asr.ready", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
		}
		return Check{Name: "asr.ready", Pass: false, Message: fmt.Sprintf("dial failed: %v", err)}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	return Check{Name: "asr.ready", Pass: true, Message: fmt.Sprintf("handshake ok at %s", endpoint)}
}

// checkVerseService performs one real lookup against the configured verse service.
func checkVerseService(cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Verse.APIURL)
	if base == "" {
		return Check{Name: "verse.api", Pass: false, Message: "verse.api_url is empty"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := verse.NewClient(base, &http.Client{Timeout: probeTimeout})
	text, err := client.Fetch(ctx, probeReference, cfg.Verse.Translation)
	if err != nil {
		return Check{Name: "verse.api", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "verse.api",
		Pass:    true,
		Message: fmt.Sprintf("%s resolved at %s (%d chars)", probeReference.Citation(cfg.Verse.Translation), base, len(text)),
	}
}

// checkOverlayAddr verifies the overlay address can be bound.
func checkOverlayAddr(cfg config.Config) Check {
	addr := strings.TrimSpace(cfg.Overlay.Addr)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{Name: "overlay.addr", Pass: false, Message: fmt.Sprintf("cannot listen on %q: %v", addr, err)}
	}
	_ = listener.Close()
	return Check{Name: "overlay.addr", Pass: true, Message: fmt.Sprintf("%s available", addr)}
}
