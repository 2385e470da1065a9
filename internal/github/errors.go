package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v60/github"
)

// ErrorKind is the closed taxonomy of fetch failures. Classification
// happens once at the transport boundary; downstream logic switches on
// the kind, never on message substrings.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindRateLimitExceeded  ErrorKind = "rate_limit_exceeded"
	KindAccessForbidden    ErrorKind = "access_forbidden"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindValidation         ErrorKind = "validation_error"
	KindNetwork            ErrorKind = "network_error"
	KindCancelled          ErrorKind = "cancelled"
)

// kindMessages maps each kind to its fixed user-facing message.
var kindMessages = map[ErrorKind]string{
	KindNotFound:           "repository or resource not found",
	KindRateLimitExceeded:  "API rate limit exceeded",
	KindAccessForbidden:    "access forbidden, check token permissions",
	KindServiceUnavailable: "service temporarily unavailable",
	KindValidation:         "invalid request parameters",
	KindNetwork:            "network error while reaching the API",
	KindCancelled:          "request cancelled",
}

// Error is a classified fetch failure. Context is a caller-supplied
// fragment such as "while fetching branches".
type Error struct {
	Kind      ErrorKind
	Context   string
	RateReset time.Time // set for rate-limit errors
	cause     error
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if e.Context != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Context)
	}
	if e.Kind == KindRateLimitExceeded && !e.RateReset.IsZero() {
		msg = fmt.Sprintf("%s (resets at %s)", msg, e.RateReset.Format(time.RFC3339))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the failure is worth retrying. Only
// transient server and transport failures qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindServiceUnavailable || e.Kind == KindNetwork
}

// KindOf extracts the kind from a classified error, or KindNetwork for
// anything that escaped classification.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}

// ContextError returns the classified cancellation error when ctx is
// already done, or nil. Callers use it to bail out before issuing any
// network call.
func ContextError(ctx context.Context, opContext string) error {
	if err := ctx.Err(); err != nil {
		return classify(ctx, err, opContext)
	}
	return nil
}

// classify maps a raw go-github or transport failure into the taxonomy.
// Cancellation wins a race against any in-flight classification.
func classify(ctx context.Context, err error, opContext string) *Error {
	var clsErr *Error
	if errors.As(err, &clsErr) {
		return clsErr
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCancelled, Context: opContext, cause: err}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &Error{
			Kind:      KindRateLimitExceeded,
			Context:   opContext,
			RateReset: rateErr.Rate.Reset.Time,
			cause:     err,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		e := &Error{Kind: KindRateLimitExceeded, Context: opContext, cause: err}
		if abuseErr.RetryAfter != nil {
			e.RateReset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return e
	}

	// Stats endpoints answer 202 while the data is being computed.
	var acceptedErr *github.AcceptedError
	if errors.As(err, &acceptedErr) {
		return &Error{Kind: KindServiceUnavailable, Context: opContext, cause: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == 404:
			return &Error{Kind: KindNotFound, Context: opContext, cause: err}
		case code == 403:
			return &Error{Kind: KindAccessForbidden, Context: opContext, cause: err}
		case code == 422:
			return &Error{Kind: KindValidation, Context: opContext, cause: err}
		case code >= 500:
			return &Error{Kind: KindServiceUnavailable, Context: opContext, cause: err}
		}
	}

	return &Error{Kind: KindNetwork, Context: opContext, cause: err}
}
