// Package webpush sends encrypted messages to browser push services.
//
// A Client is configured once and then only read, so it can be shared
// between goroutines. Per message settings are passed as SendOptions and
// never leak into other messages.
package webpush

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/vapid"
)

const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second
)

type Client struct {
	httpClient *http.Client
	signer     *vapid.Signer
	gcmAPIKey  string
	ttl        time.Duration
	encoding   ece.Encoding
	scheme     vapid.Scheme
	maxRetries uint64
	retryWait  time.Duration
	// VAPID token lifetime, the signer default applies when zero
	vapidLifetime time.Duration
}

type Option func(*Client) error

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// WithVAPID validates the details and signs every message with them.
func WithVAPID(details vapid.Details) Option {
	return func(c *Client) error {
		signer, err := vapid.NewSigner(details)
		if err != nil {
			return fmt.Errorf("vapid details: %w", err)
		}
		c.signer = signer
		return nil
	}
}

func WithSigner(signer *vapid.Signer) Option {
	return func(c *Client) error {
		c.signer = signer
		return nil
	}
}

// WithVAPIDLifetime issues every token valid for d from the time of sending.
func WithVAPIDLifetime(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("vapid lifetime must not be negative: %s", d)
		}
		c.vapidLifetime = d
		return nil
	}
}

// WithGCMAPIKey sets the legacy key used for GCM endpoints.
func WithGCMAPIKey(key string) Option {
	return func(c *Client) error {
		c.gcmAPIKey = key
		return nil
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		if ttl < 0 {
			return fmt.Errorf("ttl must not be negative: %s", ttl)
		}
		c.ttl = ttl
		return nil
	}
}

func WithContentEncoding(enc ece.Encoding) Option {
	return func(c *Client) error {
		if !enc.Valid() {
			return fmt.Errorf("unsupported content encoding %q", enc)
		}
		c.encoding = enc
		return nil
	}
}

func WithAuthScheme(scheme vapid.Scheme) Option {
	return func(c *Client) error {
		if !scheme.Valid() {
			return fmt.Errorf("unsupported authorization scheme %q", scheme)
		}
		c.scheme = scheme
		return nil
	}
}

// WithRetries sets how often 429 and 5xx responses are retried and the
// initial wait between attempts.
func WithRetries(maxRetries uint64, initialWait time.Duration) Option {
	return func(c *Client) error {
		c.maxRetries = maxRetries
		if initialWait > 0 {
			c.retryWait = initialWait
		}
		return nil
	}
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		ttl:        DefaultTTL,
		encoding:   ece.AESGCM,
		scheme:     vapid.SchemeWebPush,
		maxRetries: DefaultMaxRetries,
		retryWait:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// VAPIDPublicKey returns the application server key browsers subscribe with,
// or an empty string when the client does not sign messages.
func (c *Client) VAPIDPublicKey() string {
	if c.signer == nil {
		return ""
	}
	return c.signer.PublicKey()
}
