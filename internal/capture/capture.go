// Package capture defines the speech capture capability consumed by sessions.
package capture

import (
	"context"
	"errors"
)

// ErrUnsupported indicates capture cannot run in the current environment.
var ErrUnsupported = errors.New("speech capture is not supported in this environment")

// Capability is the capture surface a session drives.
//
// Transcript is cumulative since the last ResetTranscript. Updates delivers the cumulative
// transcript after every change and is never closed while the capability is in use.
type Capability interface {
	Supported() bool
	StartContinuous(context.Context) error
	Stop() error
	ResetTranscript()
	Transcript() string
	Listening() bool
	Updates() <-chan string
}
