package nativemsg_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"handoff/internal/nativemsg"
)

func frame(payload string) []byte {
	buf := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	return buf
}

func TestSendWritesNativeEndianFrame(t *testing.T) {
	var out bytes.Buffer
	conn := nativemsg.NewConn(strings.NewReader(""), &out)

	if err := conn.Send(map[string]string{"status": "success"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := frame(`{"status":"success"}`)
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("unexpected frame bytes:\n got %v\nwant %v", out.Bytes(), want)
	}
}

func TestReceiveRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	writer := nativemsg.NewConn(strings.NewReader(""), &wire)
	request := map[string]string{"filename": "report.csv", "fullDestinationPath": "/data/out/report.csv"}
	if err := writer.Send(request); err != nil {
		t.Fatalf("Send: %v", err)
	}

	reader := nativemsg.NewConn(&wire, io.Discard)
	raw, err := reader.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["filename"] != "report.csv" || got["fullDestinationPath"] != "/data/out/report.csv" {
		t.Fatalf("unexpected message %v", got)
	}
	if _, err := reader.Receive(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReceiveEmptyStreamIsCleanEOF(t *testing.T) {
	conn := nativemsg.NewConn(bytes.NewReader(nil), io.Discard)
	_, err := conn.Receive()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if nativemsg.IsProtocolError(err) {
		t.Fatal("clean EOF must not be a protocol error")
	}
}

func TestReceiveMalformedFrames(t *testing.T) {
	truncatedPayload := frame(`{"filename":"a"}`)
	truncatedPayload = truncatedPayload[:len(truncatedPayload)-3]

	cases := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{name: "partial header", input: []byte{0x05, 0x00}, wantErr: io.ErrUnexpectedEOF},
		{name: "truncated payload", input: truncatedPayload, wantErr: io.ErrUnexpectedEOF},
		{name: "invalid json", input: frame(`{"filename":`), wantErr: nativemsg.ErrInvalidJSON},
		{name: "empty payload", input: frame(""), wantErr: nativemsg.ErrInvalidJSON},
		{name: "invalid utf8", input: frame("\"\xff\xfe\""), wantErr: nativemsg.ErrInvalidUTF8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := nativemsg.NewConn(bytes.NewReader(tc.input), io.Discard)
			_, err := conn.Receive()
			if !nativemsg.IsProtocolError(err) {
				t.Fatalf("expected protocol error, got %v", err)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v in chain, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReceiveSkipsOversizedFrame(t *testing.T) {
	var input bytes.Buffer
	input.Write(frame(`{"filename":"this payload is far too long"}`))
	input.Write(frame(`{"ok":1}`))

	conn := nativemsg.NewConn(&input, io.Discard, nativemsg.WithMaxInbound(16))
	_, err := conn.Receive()
	if !errors.Is(err, nativemsg.ErrMessageTooLarge) || !nativemsg.IsProtocolError(err) {
		t.Fatalf("expected oversized protocol error, got %v", err)
	}

	raw, err := conn.Receive()
	if err != nil {
		t.Fatalf("expected next frame to decode after oversized one, got %v", err)
	}
	if string(raw) != `{"ok":1}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestReceiveOversizedFrameCutShort(t *testing.T) {
	input := frame(`{"filename":"this payload is far too long"}`)
	input = input[:10]

	conn := nativemsg.NewConn(bytes.NewReader(input), io.Discard, nativemsg.WithMaxInbound(8))
	_, err := conn.Receive()
	if !errors.Is(err, nativemsg.ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
	if _, err := conn.Receive(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after drained stream, got %v", err)
	}
}

func TestSendRefusesOversizedPayload(t *testing.T) {
	var out bytes.Buffer
	conn := nativemsg.NewConn(strings.NewReader(""), &out)

	big := strings.Repeat("x", nativemsg.MaxOutbound)
	err := conn.Send(map[string]string{"message": big})
	if !errors.Is(err, nativemsg.ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing written, got %d bytes", out.Len())
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	out := &lockedBuffer{}
	conn := nativemsg.NewConn(strings.NewReader(""), out)

	const senders = 32
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := map[string]string{"status": "error", "message": fmt.Sprintf("message %02d %s", i, strings.Repeat("y", 500))}
			if err := conn.Send(msg); err != nil {
				t.Errorf("Send: %v", err)
			}
		}(i)
	}
	wg.Wait()

	reader := nativemsg.NewConn(bytes.NewReader(out.buf.Bytes()), io.Discard)
	seen := 0
	for {
		raw, err := reader.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("frame %d: %v", seen, err)
		}
		var msg map[string]string
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("frame %d decode: %v", seen, err)
		}
		seen++
	}
	if seen != senders {
		t.Fatalf("expected %d frames, got %d", senders, seen)
	}
}
