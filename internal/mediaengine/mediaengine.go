// Package mediaengine defines the Media Engine Client contract (spec §6)
// and its collaborators: an HTTP-JSON implementation and a circuit breaker
// adapted from the teacher's engine failure tracker.
package mediaengine

import (
	"context"
	"errors"

	"github.com/streamforge/channelctl/internal/channel"
)

// Client is the remote channel lifecycle contract the Provisioner depends
// on (spec §6 Engine client operations).
type Client interface {
	CreateChannel(ctx context.Context, req channel.ProvisioningRequest) (channel.ProvisioningResult, error)
	DeleteChannel(ctx context.Context, channelID string) error
	RotateIngestKey(ctx context.Context, channelID string) error
}

// TransientError wraps an engine failure the retry envelope should keep
// retrying. Errors that are not TransientError are treated as terminal on
// first occurrence (spec §7 error taxonomy, engine errors).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "mediaengine: transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError, or returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a
// TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
