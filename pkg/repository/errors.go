// Package repository defines the content repository collaborator and its raw data model
package repository

import (
	"context"
	"errors"

	"github.com/nainya/contentmcp/pkg/faults"
)

var (
	// ErrNotFound indicates the node does not exist
	ErrNotFound = errors.New("repository: node not found")

	// ErrUnavailable indicates a connectivity or server-side failure
	ErrUnavailable = errors.New("repository: unavailable")

	// ErrUnauthorized indicates rejected credentials
	ErrUnauthorized = errors.New("repository: unauthorized")

	// ErrTimeout indicates the backend did not answer in time
	ErrTimeout = errors.New("repository: timeout")

	// ErrOutcomeUnknown indicates a mutation may or may not have been applied
	ErrOutcomeUnknown = errors.New("repository: outcome unknown")

	// ErrLocked indicates the node is locked by someone
	ErrLocked = errors.New("repository: node locked")

	// ErrNotLocked indicates an unlock on a node without a lock
	ErrNotLocked = errors.New("repository: node not locked")

	// ErrNotSupported indicates the node cannot take the operation
	ErrNotSupported = errors.New("repository: operation not supported")

	// ErrConflict indicates a name clash in the target folder
	ErrConflict = errors.New("repository: name conflict")

	// ErrInvalidRequest indicates the backend rejected the request as malformed
	ErrInvalidRequest = errors.New("repository: invalid request")
)

// Uncertain reports whether err leaves the outcome of a mutation unknown
func Uncertain(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOutcomeUnknown)
}

// AsFault classifies a collaborator error for the given operation and node.
// Callers that need lifecycle-specific kinds handle those sentinels first.
func AsFault(op string, ref NodeRef, err error) error {
	if err == nil {
		return nil
	}
	var fe *faults.Error
	if errors.As(err, &fe) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return faults.NodeNotFound(ref.String(), err)
	case errors.Is(err, ErrConflict):
		return faults.Validation("%s: an item with that name already exists", op).WithDetails(err.Error())
	case errors.Is(err, ErrInvalidRequest):
		return faults.Validation("%s: request rejected by the repository", op).WithDetails(err.Error())
	case errors.Is(err, ErrLocked):
		return faults.AlreadyCheckedOut(ref.String(), "").WithDetails(err.Error())
	case errors.Is(err, ErrNotSupported):
		return faults.Validation("%s: operation not supported for node %s", op, ref).WithDetails(err.Error())
	default:
		return faults.BackendUnavailable(op, err)
	}
}
