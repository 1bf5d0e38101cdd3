package nativemsg

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"
)

const (
	// headerLength is the size of the length prefix.
	headerLength = 4

	// DefaultMaxInbound matches the largest message a browser will send to a
	// native host (64 MiB).
	DefaultMaxInbound = 64 << 20

	// MaxOutbound is the largest message a browser accepts from a native host.
	MaxOutbound = 1 << 20
)

// Conn is a framed JSON channel over a reader/writer pair, typically the
// process's stdin and stdout.
//
// Receive and ReadFrame must be called from a single goroutine. Send and
// WriteFrame may be called concurrently; whole frames are written under a
// mutex and flushed before the lock is released.
type Conn struct {
	r          io.Reader
	maxInbound uint32

	mu sync.Mutex
	w  *bufio.Writer
}

// Option customizes a Conn.
type Option func(*Conn)

// WithMaxInbound sets the largest accepted inbound payload. Values outside
// (0, 2^32) leave the default in place.
func WithMaxInbound(limit int) Option {
	return func(c *Conn) {
		if limit > 0 && uint64(limit) <= uint64(^uint32(0)) {
			c.maxInbound = uint32(limit)
		}
	}
}

// NewConn returns a channel reading frames from r and writing frames to w.
func NewConn(r io.Reader, w io.Writer, opts ...Option) *Conn {
	c := &Conn{
		r:          r,
		w:          bufio.NewWriterSize(w, 4096),
		maxInbound: DefaultMaxInbound,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadFrame reads one length-prefixed payload. It returns io.EOF when the
// stream ends before any header byte arrives, which callers treat as a clean
// shutdown. Truncated and oversized frames produce a *ProtocolError;
// oversized payloads are drained first so the next frame starts on a header.
func (c *Conn) ReadFrame() ([]byte, error) {
	var header [headerLength]byte
	n, err := io.ReadFull(c.r, header[:])
	if err != nil {
		switch {
		case n == 0 && (errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)):
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, protocolError("read message header", fmt.Errorf("truncated after %d of %d bytes: %w", n, headerLength, err))
		default:
			return nil, fmt.Errorf("read message header: %w", err)
		}
	}

	length := binary.NativeEndian.Uint32(header[:])
	if length > c.maxInbound {
		discarded, err := io.CopyN(io.Discard, c.r, int64(length))
		if err != nil {
			return nil, protocolError("discard oversized payload",
				fmt.Errorf("%w: declared %d bytes, stream ended after %d: %v", ErrMessageTooLarge, length, discarded, err))
		}
		return nil, protocolError("read message payload",
			fmt.Errorf("%w: %d bytes exceeds %d", ErrMessageTooLarge, length, c.maxInbound))
	}

	payload := make([]byte, length)
	if length > 0 {
		if n, err := io.ReadFull(c.r, payload); err != nil {
			return nil, protocolError("read message payload",
				fmt.Errorf("truncated after %d of %d bytes: %w", n, length, err))
		}
	}
	return payload, nil
}

// Receive reads one frame and checks that it holds UTF-8 JSON. The raw JSON is
// returned for the caller to decode into whatever shape it expects.
func (c *Conn) Receive() (json.RawMessage, error) {
	payload, err := c.ReadFrame()
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(payload) {
		return nil, protocolError("decode message", ErrInvalidUTF8)
	}
	if !json.Valid(payload) {
		return nil, protocolError("decode message", ErrInvalidJSON)
	}
	return json.RawMessage(payload), nil
}

// Send JSON-encodes v and writes it as a single flushed frame.
func (c *Conn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.WriteFrame(payload)
}

// WriteFrame writes the length prefix and payload, then flushes so the peer
// sees the message immediately. Payloads above MaxOutbound are refused
// without writing anything.
func (c *Conn) WriteFrame(payload []byte) error {
	if len(payload) > MaxOutbound {
		return fmt.Errorf("write message: %w: %d bytes exceeds %d", ErrMessageTooLarge, len(payload), MaxOutbound)
	}

	var header [headerLength]byte
	binary.NativeEndian.PutUint32(header[:], uint32(len(payload)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(header[:]); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if _, err := c.w.Write(payload); err != nil {
		return fmt.Errorf("write message payload: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("flush message: %w", err)
	}
	return nil
}
