package fsm

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every rejected lifecycle event.
var ErrInvalidTransition = errors.New("invalid transition")

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StatePaused    State = "paused"
)

const (
	EventStart Event = "start"
	EventPause Event = "pause"
	EventStop  Event = "stop"
)

// Transition applies one lifecycle event. Capture is active only in StateListening.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventPause:
			return StatePaused, nil
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventStart:
			return StateListening, nil
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Capturing reports whether the capture capability should be receiving audio in state.
func Capturing(state State) bool {
	return state == StateListening
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, state, event)
}
