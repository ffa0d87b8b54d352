package telegram

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPattern  = errors.New("[InvalidPattern] listener pattern can never match")
	ErrRegistryClosed  = errors.New("[RegistryClosed] client is stopped, no new listeners accepted")
	ErrDuplicateListen = errors.New("[DuplicateListener] listener is already registered")
	ErrListenerStopped = errors.New("[ListenerStopped] listener was stopped before a match")
	ErrNoTransport     = errors.New("[NoTransport] client has no transport for this operation")
	ErrNoMedia         = errors.New("[NoMedia] message does not contain downloadable media")
	ErrUnknownFileSize = errors.New("[UnknownFileSize] negative offsets need a known file size, pass a message or media instead of a file id")
	ErrInvalidChunk    = errors.New("[InvalidChunk] chunk limit and size must not be negative")
)

// ListenerTimeoutError is returned by Result.Err when a listener's deadline
// elapsed before anything matched.
type ListenerTimeoutError struct {
	Timeout time.Duration
}

func (e *ListenerTimeoutError) Error() string {
	if e.Timeout <= 0 {
		return "[ListenerTimeout] listener deadline elapsed"
	}
	return fmt.Sprintf("[ListenerTimeout] no matching update within %s", e.Timeout)
}

// IsTimeout reports whether err (or anything it wraps) is a listener timeout.
func IsTimeout(err error) bool {
	var te *ListenerTimeoutError
	return errors.As(err, &te)
}
