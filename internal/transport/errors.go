package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTimeout marks a request that outlived its hold time. For long-poll
	// fetches this means the server had nothing new to report.
	ErrTimeout = errors.New("request timed out")
	// ErrCancelled marks a request abandoned by the caller, usually because a
	// newer request superseded it.
	ErrCancelled = errors.New("request cancelled")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %s", e.URL, e.Status)
}

// IsTimeout reports whether err was classified as a hold-time expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled reports whether err was classified as caller cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// classify maps a raw client error onto the timeout/cancel sentinels. parent
// is the caller's context, reqCtx the per-request context carrying the hold
// time.
func classify(parent, reqCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) || IsCancelled(err) {
		return err
	}
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
