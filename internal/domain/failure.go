package domain

import (
	"errors"
	"fmt"
)

var ErrNotConnected = errors.New("not connected")

// InitializationFailure means a vendor could not be brought up at startup:
// missing or invalid credentials, an unknown vendor or a failed probe.
// The exchange flow stays disabled while it is in effect.
type InitializationFailure struct {
	Vendor     string
	Diagnostic string
	Err        error
}

func (f *InitializationFailure) Error() string {
	return fmt.Sprintf("%s: not connected: %s", f.Vendor, f.Diagnostic)
}

func (f *InitializationFailure) Unwrap() []error {
	if f.Err == nil {
		return []error{ErrNotConnected}
	}
	return []error{ErrNotConnected, f.Err}
}

// ExchangeFailure is a recoverable error from a single Respond call.
type ExchangeFailure struct {
	Vendor     string
	Diagnostic string
	Err        error
}

func (f *ExchangeFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Vendor, f.Diagnostic)
}

func (f *ExchangeFailure) Unwrap() error {
	return f.Err
}

// Diagnostic returns the user-facing text for err, unwrapping the typed
// failures when present. An InitializationFailure wins over the exchange
// failure it may wrap.
func Diagnostic(err error) string {
	var initErr *InitializationFailure
	if errors.As(err, &initErr) {
		return initErr.Diagnostic
	}
	var exch *ExchangeFailure
	if errors.As(err, &exch) {
		return exch.Diagnostic
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
