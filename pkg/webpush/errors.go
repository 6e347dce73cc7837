package webpush

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrSubscriptionExpired = errors.New("subscription no longer valid")
	ErrPayloadTooLarge     = errors.New("payload too large")
	ErrRateLimited         = errors.New("too many requests")
	ErrBadRequest          = errors.New("bad request")
	ErrUnexpectedStatus    = errors.New("unexpected response status")
)

// PushError is returned when the push service rejects a message.
type PushError struct {
	StatusCode int    `json:"status"`
	Endpoint   string `json:"-"`
	Body       string `json:"body,omitempty"`
	kind       error
}

func newPushError(resp *http.Response, endpoint string, body []byte) *PushError {
	e := &PushError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Body:       string(body),
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		e.kind = ErrBadRequest
	case http.StatusNotFound, http.StatusGone:
		e.kind = ErrSubscriptionExpired
	case http.StatusRequestEntityTooLarge:
		e.kind = ErrPayloadTooLarge
	case http.StatusTooManyRequests:
		e.kind = ErrRateLimited
	default:
		e.kind = ErrUnexpectedStatus
	}
	return e
}

func (e *PushError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service responded %d: %s", e.StatusCode, e.kind)
	}
	return fmt.Sprintf("push service responded %d: %s: %s", e.StatusCode, e.kind, e.Body)
}

func (e *PushError) Unwrap() error {
	return e.kind
}

// Expired reports whether the subscription should be deleted.
func (e *PushError) Expired() bool {
	return e.kind == ErrSubscriptionExpired
}

// Temporary reports whether sending again later may succeed.
func (e *PushError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
