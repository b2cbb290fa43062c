// ABOUTME: HTTP status classification for the REST repository client
// ABOUTME: Maps API failures onto repository sentinels while keeping the raw body

package rest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/nainya/contentmcp/pkg/repository"
)

// errNotSent marks request construction failures
var errNotSent = errors.New("request not sent")

// APIError is a non-2xx answer from the repository
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Key        string
	Summary    string
	sentinel   error
}

func (e *APIError) Error() string {
	msg := e.Summary
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.sentinel
}

// ClientError reports a 4xx answer, which never counts against the breaker
func (e *APIError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type errorBody struct {
	Error struct {
		ErrorKey     string `json:"errorKey"`
		StatusCode   int    `json:"statusCode"`
		BriefSummary string `json:"briefSummary"`
	} `json:"error"`
}

// newAPIError decodes the standard error envelope, tolerating any body.
// lockOp selects the lock-specific meaning of 409, 422 and 423.
func newAPIError(method, path string, status int, body []byte, lockOp bool) *APIError {
	e := &APIError{Method: method, Path: path, StatusCode: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		e.Key = eb.Error.ErrorKey
		e.Summary = eb.Error.BriefSummary
	}
	if e.Summary == "" && len(body) > 0 && len(body) < 512 {
		e.Summary = string(body)
	}
	e.sentinel = sentinelFor(status, lockOp)
	return e
}

func sentinelFor(status int, lockOp bool) error {
	switch {
	case status == http.StatusNotFound:
		return repository.ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return repository.ErrUnauthorized
	case status == http.StatusLocked:
		return repository.ErrLocked
	case lockOp && (status == http.StatusConflict || status == http.StatusUnprocessableEntity):
		return repository.ErrLocked
	case status == http.StatusConflict:
		return repository.ErrConflict
	case status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented:
		return repository.ErrNotSupported
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return repository.ErrTimeout
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity ||
		status == http.StatusRequestEntityTooLarge:
		return repository.ErrInvalidRequest
	default:
		return repository.ErrUnavailable
	}
}

// transportError classifies a failure that produced no HTTP status. A
// mutation that may have reached the server reports ErrOutcomeUnknown. Only
// failures to connect are definite.
func transportError(r request, err error) error {
	method, path := r.method, r.path
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", method, path, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s %s: circuit open: %w", method, path, repository.ErrUnavailable)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, repository.ErrTimeout)
	}
	if !r.idempotent && !notSent(err) {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, repository.ErrOutcomeUnknown)
	}
	return fmt.Errorf("%s %s: %v: %w", method, path, err, repository.ErrUnavailable)
}

// notSent reports failures that happen before the request reaches the server
func notSent(err error) bool {
	if errors.Is(err, errNotSent) {
		return true
	}
	var op *net.OpError
	if errors.As(err, &op) && op.Op == "dial" {
		return true
	}
	var dns *net.DNSError
	if errors.As(err, &dns) {
		return true
	}
	var cert *tls.CertificateVerificationError
	return errors.As(err, &cert)
}
