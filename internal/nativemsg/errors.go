package nativemsg

import (
	"errors"
	"fmt"
)

// ErrMessageTooLarge reports a frame whose declared length exceeds the limit.
var ErrMessageTooLarge = errors.New("message exceeds size limit")

// ErrInvalidUTF8 reports a payload that is not valid UTF-8 text.
var ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")

// ErrInvalidJSON reports a payload that is not a valid JSON value.
var ErrInvalidJSON = errors.New("payload is not valid JSON")

// ProtocolError describes a malformed, truncated or oversized inbound frame.
// The channel remains usable after a ProtocolError unless the underlying
// stream has ended.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsProtocolError reports whether err is, or wraps, a *ProtocolError.
func IsProtocolError(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}

func protocolError(op string, err error) error {
	return &ProtocolError{Op: op, Err: err}
}
