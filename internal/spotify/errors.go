package spotify

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies upstream failures for the retry wrapper.
type Kind int

const (
	// KindNetwork covers transport-level failures. Retryable.
	KindNetwork Kind = iota
	// KindServer covers 5xx responses. Retryable.
	KindServer
	// KindRateLimited covers 429; RetryAfter carries the server hint.
	KindRateLimited
	// KindUnauthorized covers 401; the token guard gets one refresh attempt.
	KindUnauthorized
	// KindFatal covers the remaining 4xx. Not retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindRateLimited:
		return "rate-limited"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "fatal"
	}
}

// Error is a classified upstream failure.
type Error struct {
	Kind       Kind
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("spotify: %s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("spotify: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the retry wrapper should attempt the call again.
// Unauthorized is handled separately (refresh once, then retry).
func Retryable(err error) bool {
	var serr *Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Kind {
	case KindNetwork, KindServer, KindRateLimited:
		return true
	default:
		return false
	}
}
