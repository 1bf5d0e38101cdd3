package arrival

import (
	"errors"
	"fmt"
)

// Kind classifies a failed watch.
type Kind int

const (
	// KindNotFoundOrEmpty means the file never appeared or stayed empty.
	KindNotFoundOrEmpty Kind = iota + 1
	// KindMoveFailed means the file arrived but could not be relocated.
	KindMoveFailed
	// KindInternal covers every other failure, including cancellation.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFoundOrEmpty:
		return "not_found_or_empty"
	case KindMoveFailed:
		return "move_failed"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrNotFoundOrEmpty matches errors of KindNotFoundOrEmpty.
	ErrNotFoundOrEmpty = errors.New("file did not appear or was empty")
	// ErrMoveFailed matches errors of KindMoveFailed.
	ErrMoveFailed = errors.New("move failed")
	// ErrInternal matches errors of KindInternal.
	ErrInternal = errors.New("internal error")

	errDestinationExists   = errors.New("destination already exists")
	errDestinationRelative = errors.New("destination path must be absolute")
)

// Error is returned by LocateAndMove. Its message is the text reported back
// to the browser.
type Error struct {
	Kind Kind
	// Path is the resolved source path for NotFoundOrEmpty and the
	// destination for MoveFailed.
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindNotFoundOrEmpty:
		return "File did not appear or was empty: " + e.Path
	case KindMoveFailed:
		return "Failed to move file: " + causeText(e.Err)
	default:
		return "Daemon internal error: " + causeText(e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match an *Error against the package sentinels.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNotFoundOrEmpty:
		return e.Kind == KindNotFoundOrEmpty
	case ErrMoveFailed:
		return e.Kind == KindMoveFailed
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

// KindOf extracts the Kind from err, reporting false when err is not an
// *Error.
func KindOf(err error) (Kind, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind, true
	}
	return 0, false
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func notFoundOrEmpty(path string) error {
	return &Error{Kind: KindNotFoundOrEmpty, Path: path}
}

func moveFailed(path string, err error) error {
	return &Error{Kind: KindMoveFailed, Path: path, Err: err}
}

func internal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}
