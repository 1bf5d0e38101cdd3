package dispatch

import (
	"fmt"

	"handoff/internal/arrival"
)

// Kind classifies the outcome of one exchange.
type Kind int

const (
	KindNone Kind = iota
	KindProtocolError
	KindInvalidRequestShape
	KindNotFoundOrEmpty
	KindMoveFailed
	KindInternalError
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindProtocolError:
		return "protocol_error"
	case KindInvalidRequestShape:
		return "invalid_request_shape"
	case KindNotFoundOrEmpty:
		return "not_found_or_empty"
	case KindMoveFailed:
		return "move_failed"
	case KindInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func kindFromArrival(err error) Kind {
	kind, ok := arrival.KindOf(err)
	if !ok {
		return KindInternalError
	}
	switch kind {
	case arrival.KindNotFoundOrEmpty:
		return KindNotFoundOrEmpty
	case arrival.KindMoveFailed:
		return KindMoveFailed
	default:
		return KindInternalError
	}
}

// State is the lifecycle of a Dispatcher.
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
