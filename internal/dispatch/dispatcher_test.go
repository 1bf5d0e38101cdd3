package dispatch_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"handoff/internal/arrival"
	"handoff/internal/dispatch"
	"handoff/internal/nativemsg"
)

func frame(payload string) []byte {
	buf := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	return buf
}

func readResponses(t *testing.T, out []byte) []dispatch.Response {
	t.Helper()
	conn := nativemsg.NewConn(bytes.NewReader(out), io.Discard)
	var responses []dispatch.Response
	for {
		raw, err := conn.Receive()
		if errors.Is(err, io.EOF) {
			return responses
		}
		if err != nil {
			t.Fatalf("response %d: %v", len(responses), err)
		}
		var resp dispatch.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		responses = append(responses, resp)
	}
}

type stubLocator struct {
	calls []dispatch.Request
	fn    func(filename, destination string) (arrival.Moved, error)
}

func (s *stubLocator) LocateAndMove(_ context.Context, filename, destination string) (arrival.Moved, error) {
	s.calls = append(s.calls, dispatch.Request{Filename: filename, FullDestinationPath: destination})
	if s.fn != nil {
		return s.fn(filename, destination)
	}
	return arrival.Moved{From: "/downloads/" + filename, To: destination}, nil
}

type memoryRecorder struct {
	outcomes []dispatch.Outcome
	err      error
}

func (r *memoryRecorder) Record(_ context.Context, outcome dispatch.Outcome) error {
	r.outcomes = append(r.outcomes, outcome)
	return r.err
}

func serve(t *testing.T, input []byte, locator dispatch.Locator, recorder dispatch.Recorder) ([]dispatch.Response, *dispatch.Dispatcher, error) {
	t.Helper()
	var out bytes.Buffer
	opts := dispatch.Options{
		Channel: nativemsg.NewConn(bytes.NewReader(input), &out),
		Locator: locator,
	}
	if recorder != nil {
		opts.Recorder = recorder
	}
	d, err := dispatch.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	serveErr := d.Serve(context.Background())
	return readResponses(t, out.Bytes()), d, serveErr
}

func TestServeGoodMalformedGood(t *testing.T) {
	var input bytes.Buffer
	input.Write(frame(`{"filename":"a.txt","fullDestinationPath":"/out/a.txt"}`))
	input.Write(frame(`{"filename":`))
	input.Write(frame(`{"filename":"b.txt","fullDestinationPath":"/out/b.txt"}`))

	locator := &stubLocator{}
	responses, d, err := serve(t, input.Bytes(), locator, nil)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if d.State() != dispatch.StateTerminated {
		t.Fatalf("expected terminated, got %s", d.State())
	}
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	if responses[0].Status != "success" || responses[0].MovedTo != "/out/a.txt" {
		t.Fatalf("first response %+v", responses[0])
	}
	if responses[1].Status != "error" || !strings.HasPrefix(responses[1].Message, "Daemon internal error: ") {
		t.Fatalf("second response %+v", responses[1])
	}
	if responses[2].Status != "success" || responses[2].MovedFrom != "/downloads/b.txt" {
		t.Fatalf("third response %+v", responses[2])
	}
	if len(locator.calls) != 2 {
		t.Fatalf("expected 2 locator calls, got %d", len(locator.calls))
	}
}

func TestServeEmptyInputTerminatesCleanly(t *testing.T) {
	responses, d, err := serve(t, nil, &stubLocator{}, nil)
	if err != nil {
		t.Fatalf("expected nil on clean EOF, got %v", err)
	}
	if len(responses) != 0 || d.Handled() != 0 {
		t.Fatalf("expected no exchanges, got %d responses", len(responses))
	}
}

func TestServeInvalidRequestShape(t *testing.T) {
	cases := []string{
		`{"filename":"a.txt"}`,
		`{"fullDestinationPath":"/out/a.txt"}`,
		`{"filename":"","fullDestinationPath":"/out/a.txt"}`,
		`{"filename":null,"fullDestinationPath":"/out/a.txt"}`,
		`{"filename":42,"fullDestinationPath":"/out/a.txt"}`,
		`["a.txt","/out/a.txt"]`,
		`null`,
		`"a.txt"`,
	}
	var input bytes.Buffer
	for _, c := range cases {
		input.Write(frame(c))
	}

	locator := &stubLocator{}
	responses, _, err := serve(t, input.Bytes(), locator, nil)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(responses) != len(cases) {
		t.Fatalf("expected %d responses, got %d", len(cases), len(responses))
	}
	for i, resp := range responses {
		if resp.Status != "error" || resp.Message != "Invalid message format" {
			t.Fatalf("case %q: unexpected response %+v", cases[i], resp)
		}
	}
	if len(locator.calls) != 0 {
		t.Fatal("locator must not run for invalid requests")
	}
}

func TestServeMapsWatcherErrors(t *testing.T) {
	var input bytes.Buffer
	input.Write(frame(`{"filename":"gone.txt","fullDestinationPath":"/out/gone.txt"}`))
	input.Write(frame(`{"filename":"boom.txt","fullDestinationPath":"/out/boom.txt"}`))

	locator := &stubLocator{fn: func(filename, _ string) (arrival.Moved, error) {
		if filename == "boom.txt" {
			panic("unexpected nil")
		}
		return arrival.Moved{}, &arrival.Error{Kind: arrival.KindNotFoundOrEmpty, Path: "/downloads/gone.txt"}
	}}
	recorder := &memoryRecorder{}
	responses, _, err := serve(t, input.Bytes(), locator, recorder)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if responses[0].Message != "File did not appear or was empty: /downloads/gone.txt" {
		t.Fatalf("unexpected first response %+v", responses[0])
	}
	if responses[1].Status != "error" || !strings.Contains(responses[1].Message, "panic: unexpected nil") {
		t.Fatalf("unexpected second response %+v", responses[1])
	}
	if len(recorder.outcomes) != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", len(recorder.outcomes))
	}
	if recorder.outcomes[0].Kind != dispatch.KindNotFoundOrEmpty || recorder.outcomes[1].Kind != dispatch.KindInternalError {
		t.Fatalf("unexpected kinds %s, %s", recorder.outcomes[0].Kind, recorder.outcomes[1].Kind)
	}
	if recorder.outcomes[0].RequestID != 1 || recorder.outcomes[1].RequestID != 2 {
		t.Fatal("request ids must increase per exchange")
	}
}

func TestServeRecorderFailureDoesNotAffectResponse(t *testing.T) {
	input := frame(`{"filename":"a.txt","fullDestinationPath":"/out/a.txt"}`)
	responses, _, err := serve(t, input, &stubLocator{}, &memoryRecorder{err: errors.New("disk full")})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(responses) != 1 || responses[0].Status != "success" {
		t.Fatalf("unexpected responses %+v", responses)
	}
}

func TestServeOversizedResponseFallsBack(t *testing.T) {
	huge := strings.Repeat("n", nativemsg.MaxOutbound)
	input := frame(`{"filename":"a.txt","fullDestinationPath":"/out/a.txt"}`)
	locator := &stubLocator{fn: func(string, string) (arrival.Moved, error) {
		return arrival.Moved{}, &arrival.Error{Kind: arrival.KindNotFoundOrEmpty, Path: huge}
	}}
	responses, _, err := serve(t, input, locator, nil)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(responses) != 1 || !strings.Contains(responses[0].Message, "size limit") {
		t.Fatalf("unexpected responses %+v", responses)
	}
}

type failingReader struct{ reads int }

func (r *failingReader) Read([]byte) (int, error) {
	r.reads++
	return 0, os.ErrPermission
}

func TestServeStopsAfterRepeatedStreamFailures(t *testing.T) {
	var out bytes.Buffer
	reader := &failingReader{}
	d, err := dispatch.New(dispatch.Options{
		Channel:       nativemsg.NewConn(reader, &out),
		Locator:       &stubLocator{},
		MaxIOFailures: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Serve(context.Background()); !errors.Is(err, os.ErrPermission) {
		t.Fatalf("expected stream failure, got %v", err)
	}
	if reader.reads != 3 {
		t.Fatalf("expected 3 read attempts, got %d", reader.reads)
	}
	if got := len(readResponses(t, out.Bytes())); got != 3 {
		t.Fatalf("expected an error response per failure, got %d", got)
	}
}

func TestServeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := dispatch.New(dispatch.Options{
		Channel: nativemsg.NewConn(bytes.NewReader(frame(`{}`)), io.Discard),
		Locator: &stubLocator{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// TestServeWithWatcher runs the full request path against a real watcher
// and temporary directories.
func TestServeWithWatcher(t *testing.T) {
	root := t.TempDir()
	watchDir := filepath.Join(root, "downloads")
	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(watchDir, "report.csv"), bytes.Repeat([]byte("r"), 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	watcher, err := arrival.New(arrival.Options{WatchDir: watchDir, PollInterval: time.Millisecond, MaxAttempts: 5})
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(root, "data", "out", "report.csv")
	request, _ := json.Marshal(dispatch.Request{Filename: "report.csv", FullDestinationPath: dest})
	responses, _, err := serve(t, frame(string(request)), watcher, nil)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	want := dispatch.Response{Status: "success", MovedFrom: filepath.Join(watchDir, "report.csv"), MovedTo: dest}
	if len(responses) != 1 || responses[0] != want {
		t.Fatalf("unexpected responses %+v", responses)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}
