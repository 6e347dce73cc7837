package webpush

import (
	"fmt"
	"net/url"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/p256"
)

// Keys are the base64url values from PushSubscription.getKey(). They are only
// needed to send a payload.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the JSON form of a browser PushSubscription.
type Subscription struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     Keys   `json:"keys"`
}

func (s *Subscription) endpointURL() (*url.URL, error) {
	if s.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidSubscription)
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubscription, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q is not an absolute http(s) URL", ErrInvalidSubscription, s.Endpoint)
	}
	return u, nil
}

// keyMaterial decodes the subscriber keys. Both are required once a payload
// is sent.
func (s *Subscription) keyMaterial() (publicKey, authSecret []byte, err error) {
	if s.Keys.P256dh == "" || s.Keys.Auth == "" {
		return nil, nil, fmt.Errorf("%w: p256dh and auth keys are required to send a payload", ErrInvalidSubscription)
	}
	publicKey, err = p256.Decode(s.Keys.P256dh)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: p256dh: %w", ErrInvalidSubscription, err)
	}
	if len(publicKey) != p256.PublicKeyLen {
		return nil, nil, fmt.Errorf("%w: p256dh must be %d bytes, got %d", ErrInvalidSubscription, p256.PublicKeyLen, len(publicKey))
	}
	authSecret, err = p256.Decode(s.Keys.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: auth: %w", ErrInvalidSubscription, err)
	}
	if len(authSecret) != ece.AuthSecretLen {
		return nil, nil, fmt.Errorf("%w: auth must be %d bytes, got %d", ErrInvalidSubscription, ece.AuthSecretLen, len(authSecret))
	}
	return publicKey, authSecret, nil
}
