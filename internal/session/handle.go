package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/versecatch/internal/ipc"
)

// Handle executes one IPC command against the orchestrator.
func (o *Orchestrator) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		err     error
		message string
	)

	switch strings.TrimSpace(req.Command) {
	case "status":
	case "start":
		err = o.Start(ctx)
		message = "listening"
	case "pause":
		err = o.Pause(ctx)
		message = "paused"
	case "stop":
		err = o.Stop(ctx)
		message = "stopped"
	case "translation":
		err = o.SetTranslation(ctx, req.Arg)
		message = "translation " + o.Snapshot().Translation
	default:
		err = fmt.Errorf("unknown command %q", req.Command)
	}

	resp := ResponseFromSnapshot(o.Snapshot())
	if err != nil {
		resp.OK = false
		resp.Error = err.Error()
		return resp
	}
	resp.Message = message
	return resp
}

// ResponseFromSnapshot renders a snapshot into an IPC response.
func ResponseFromSnapshot(snap Snapshot) ipc.Response {
	supported := snap.Supported
	return ipc.Response{
		OK:          true,
		State:       string(snap.State),
		Reference:   snap.Reference.String(),
		Translation: snap.Translation,
		Quote:       snap.Quote,
		Loading:     snap.Loading,
		Supported:   &supported,
	}
}
