// Package app dispatches parsed CLI commands to the versecatch runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rbright/versecatch/internal/audio"
	"github.com/rbright/versecatch/internal/capture"
	"github.com/rbright/versecatch/internal/cli"
	"github.com/rbright/versecatch/internal/config"
	"github.com/rbright/versecatch/internal/doctor"
	"github.com/rbright/versecatch/internal/ipc"
	"github.com/rbright/versecatch/internal/logging"
	"github.com/rbright/versecatch/internal/reference"
	"github.com/rbright/versecatch/internal/transcript"
	"github.com/rbright/versecatch/internal/verse"
	"github.com/rbright/versecatch/internal/version"
)

const (
	binaryName     = "versecatch"
	forwardTimeout = 15 * time.Second
	lookupTimeout  = 15 * time.Second
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	cfg := cfgLoaded.Config
	if parsed.Translation != "" {
		code, ok := matchTranslation(cfg.Verse.Translations, parsed.Translation)
		if !ok {
			fmt.Fprintf(r.Stderr, "error: unknown translation %q (available: %s)\n", parsed.Translation, strings.Join(cfg.Verse.Translations, ", "))
			return 2
		}
		cfg.Verse.Translation = code
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart, cli.CommandPause, cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command)})
	case cli.CommandTranslation:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command), Arg: parsed.Args[0]})
	case cli.CommandLookup:
		return r.commandLookup(ctx, cfg, parsed.Args, logger)
	case cli.CommandServe:
		return r.commandServe(ctx, cfg, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		fmt.Fprintln(r.Stdout, device.String())
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, err := ipc.Forward(ctx, socketPath, ipc.Request{Command: "status"}, forwardTimeout)
	if errors.Is(err, ipc.ErrNoOwner) {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprint(r.Stdout, formatStatus(resp))
	return 0
}

// formatStatus renders a status response one field per line; an empty state renders as idle.
func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Translation == "" && resp.Reference == "" && resp.Supported == nil {
		return state + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", state)
	if resp.Supported != nil && !*resp.Supported {
		fmt.Fprintf(&b, "capture: %s\n", capture.ErrUnsupported)
	}
	if resp.Translation != "" {
		fmt.Fprintf(&b, "translation: %s\n", resp.Translation)
	}
	if resp.Reference != "" {
		fmt.Fprintf(&b, "reference: %s\n", resp.Reference)
	}
	switch {
	case resp.Loading:
		b.WriteString("quote: (loading)\n")
	case resp.Quote != "":
		fmt.Fprintf(&b, "quote: %s\n", resp.Quote)
	}
	return b.String()
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := ipc.Forward(ctx, socketPath, req, forwardTimeout)
	if errors.Is(err, ipc.ErrNoOwner) {
		fmt.Fprintf(r.Stderr, "error: %v (start one with `%s serve`)\n", err, binaryName)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandLookup extracts one reference from the argument text and prints its verse.
func (r Runner) commandLookup(ctx context.Context, cfg config.Config, args []string, logger *slog.Logger) int {
	ref, err := reference.Parse(transcript.NormalizeSpokenReferences(strings.Join(args, " ")))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	client := verse.NewClient(cfg.Verse.APIURL, &http.Client{Timeout: lookupTimeout})
	quote, err := client.Fetch(ctx, ref, cfg.Verse.Translation)
	if err != nil {
		logger.Error("verse lookup failed", "reference", ref.String(), "translation", cfg.Verse.Translation, "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("verse lookup complete", "reference", ref.String(), "translation", cfg.Verse.Translation)
	fmt.Fprintln(r.Stdout, ref.Citation(cfg.Verse.Translation))
	fmt.Fprintln(r.Stdout, strings.TrimSpace(quote))
	return 0
}

func matchTranslation(available []string, code string) (string, bool) {
	code = strings.TrimSpace(code)
	for _, candidate := range available {
		if strings.EqualFold(candidate, code) {
			return candidate, true
		}
	}
	return "", false
}
