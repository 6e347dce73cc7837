package webpush

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/vapid"
)

// Urgency directly impacts battery life.
//
// https://www.rfc-editor.org/rfc/rfc8030.html#section-5.3
type Urgency string

const (
	UrgencyVeryLow Urgency = "very-low"
	UrgencyLow     Urgency = "low"
	UrgencyNormal  Urgency = "normal"
	UrgencyHigh    Urgency = "high"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyVeryLow, UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}
	return false
}

// DefaultTTL is four weeks, the longest time push services keep a message.
const DefaultTTL = 4 * 7 * 24 * time.Hour

// SendOptions override the client defaults for a single message. Zero
// values keep the client setting.
type SendOptions struct {
	// nil keeps the client TTL, a zero duration asks for immediate delivery or none
	TTL     *time.Duration
	Topic   string
	Urgency Urgency
	// extra headers, applied last
	Headers http.Header
	// replaces the client VAPID details for this message
	VAPID           *vapid.Details
	VAPIDExpiration time.Time
	GCMAPIKey       string
	ContentEncoding ece.Encoding
	AuthScheme      vapid.Scheme
}

// Duration returns a pointer for SendOptions.TTL.
func Duration(d time.Duration) *time.Duration {
	return &d
}

// settings are the effective options of one message.
type settings struct {
	ttl             time.Duration
	topic           string
	urgency         Urgency
	headers         http.Header
	signer          *vapid.Signer
	vapidExpiration time.Time
	// client token lifetime, only for the client signer
	vapidLifetime time.Duration
	gcmAPIKey       string
	encoding        ece.Encoding
	scheme          vapid.Scheme
}

// resolve copies the client defaults and applies the overrides. The client
// itself is never modified.
func (c *Client) resolve(opts *SendOptions) (*settings, error) {
	s := &settings{
		ttl:           c.ttl,
		signer:        c.signer,
		vapidLifetime: c.vapidLifetime,
		gcmAPIKey:     c.gcmAPIKey,
		encoding:      c.encoding,
		scheme:        c.scheme,
	}
	if opts == nil {
		return s, nil
	}

	if opts.TTL != nil {
		if *opts.TTL < 0 {
			return nil, fmt.Errorf("ttl must not be negative: %s", *opts.TTL)
		}
		s.ttl = *opts.TTL
	}
	if opts.Topic != "" {
		s.topic = opts.Topic
	}
	if opts.Urgency != "" {
		if !opts.Urgency.Valid() {
			return nil, fmt.Errorf("invalid urgency %q", opts.Urgency)
		}
		s.urgency = opts.Urgency
	}
	s.headers = opts.Headers
	if opts.VAPID != nil {
		signer, err := vapid.NewSigner(*opts.VAPID)
		if err != nil {
			return nil, fmt.Errorf("vapid details: %w", err)
		}
		s.signer = signer
		s.vapidLifetime = 0
	}
	s.vapidExpiration = opts.VAPIDExpiration
	if opts.GCMAPIKey != "" {
		s.gcmAPIKey = opts.GCMAPIKey
	}
	if opts.ContentEncoding != "" {
		if !opts.ContentEncoding.Valid() {
			return nil, fmt.Errorf("unsupported content encoding %q", opts.ContentEncoding)
		}
		s.encoding = opts.ContentEncoding
	}
	if opts.AuthScheme != "" {
		if !opts.AuthScheme.Valid() {
			return nil, fmt.Errorf("unsupported authorization scheme %q", opts.AuthScheme)
		}
		s.scheme = opts.AuthScheme
	}
	return s, nil
}
