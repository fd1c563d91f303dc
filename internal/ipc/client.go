package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// ErrNoOwner means nothing is listening on the control socket.
var ErrNoOwner = errors.New("no running versecatch server")

// RemoteError is a failure reported by the socket owner in Response.Error.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Send performs one request/response roundtrip over path with a deadline.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Forward sends req to the socket owner.
//
// A missing socket or refused connection yields ErrNoOwner. A response with OK=false yields
// a *RemoteError alongside the response, so callers still see the reported state.
func Forward(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	resp, err := Send(ctx, path, req, timeout)
	if err != nil {
		if isSocketMissing(err) || isConnectionRefused(err) {
			return Response{}, ErrNoOwner
		}
		return Response{}, fmt.Errorf("forward command %q: %w", req.Command, err)
	}
	if !resp.OK {
		return resp, &RemoteError{Command: req.Command, Message: resp.Error}
	}
	return resp, nil
}

// Probe checks whether a responsive owner is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Forward(ctx, path, Request{Command: "status"}, timeout)
	var remote *RemoteError
	switch {
	case err == nil, errors.As(err, &remote):
		return true, nil
	case errors.Is(err, ErrNoOwner):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// isConnectionRefused reports no-listener failures, including a stale socket file that is not a socket.
func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
