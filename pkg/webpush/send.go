package webpush

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/ksuid"
)

// error bodies of push services are short, anything longer is cut
const maxErrorBody = 4096

// Response describes an accepted message.
type Response struct {
	// local id used for logging
	ID         string
	StatusCode int
	// push service message resource, if returned
	Location string
	Attempts int
}

// Send encrypts, signs and posts the message. Rate limiting and server
// errors are retried with exponential backoff, honoring Retry-After. All
// other rejections are returned as *PushError right away.
func (c *Client) Send(ctx context.Context, sub *Subscription, payload []byte, opts *SendOptions) (*Response, error) {
	id := ksuid.New().String()

	p, err := c.prepare(sub, payload, opts)
	if err != nil {
		return nil, err
	}

	logger := slog.With("id", id, "endpoint", sub.Endpoint)
	logger.Debug("Sending push message", "payload_size", len(payload), "body_size", len(p.body), "envelope", p.envelope)

	retryAfter := &retryAfterBackOff{
		BackOff: backoff.WithMaxRetries(c.newBackOff(), c.maxRetries),
	}
	policy := backoff.WithContext(retryAfter, ctx)

	result := &Response{ID: id}
	operation := func() error {
		result.Attempts++
		resp, err := c.post(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			result.StatusCode = resp.StatusCode
			result.Location = resp.Header.Get("Location")
			return nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		pushErr := newPushError(resp, sub.Endpoint, body)
		if !pushErr.Temporary() {
			return backoff.Permanent(pushErr)
		}
		retryAfter.wait = parseRetryAfter(resp.Header.Get("Retry-After"))
		return pushErr
	}

	err = backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		logger.Warn("Push service not available, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		var pushErr *PushError
		if errors.As(err, &pushErr) && pushErr.Expired() {
			logger.Info("Subscription expired", "status", pushErr.StatusCode)
		} else {
			logger.Error("Push message rejected", "error", err, "attempts", result.Attempts)
		}
		return nil, err
	}

	logger.Debug("Push message accepted", "status", result.StatusCode, "attempts", result.Attempts)
	return result, nil
}

func (c *Client) post(ctx context.Context, p *pushRequest) (*http.Response, error) {
	req, err := p.httpRequest(ctx)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxElapsedTime = 0
	return b
}

// retryAfterBackOff prefers the wait time the push service asked for.
type retryAfterBackOff struct {
	backoff.BackOff
	wait time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.wait <= 0 {
		return next
	}
	wait := b.wait
	b.wait = 0
	return wait
}

// parseRetryAfter understands delta seconds and HTTP dates.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
