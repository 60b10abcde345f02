package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AdapterError is a failed provider call. Status is the HTTP status code, or
// zero when the request never got a response.
type AdapterError struct {
	Provider  string
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	prefix := "adapter error"
	if e.Provider != "" {
		prefix = e.Provider + " API error"
	}
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("%s (status %d): %v", prefix, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return fmt.Sprintf("%s (status %d)", prefix, e.Status)
	}
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// providerError wraps err from provider. status is zero when unknown.
func providerError(provider string, status int, err error) error {
	return &AdapterError{Provider: provider, Status: status, Err: err}
}

// IsTransient reports whether a call that failed with err may succeed if retried:
// timeouts, rate limits and server errors. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Temporary || retryableStatus(adapterErr.Status)
	}
	return false
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}
