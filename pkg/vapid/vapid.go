// Implementation of https://www.rfc-editor.org/rfc/rfc8292.html
package vapid

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gematik/zero-webpush/pkg/p256"
)

const (
	DefaultTokenLifetime = 12 * time.Hour
	// Push services reject tokens valid for longer than this.
	MaxTokenLifetime = 24 * time.Hour
)

var (
	ErrInvalidKey     = p256.ErrInvalidKey
	ErrInvalidSubject = errors.New("invalid subject")
	ErrSigningFailure = errors.New("signing failure")
)

// Details identify the application server towards push services.
type Details struct {
	// mailto: address or https: URL of the operator
	Subject string `yaml:"subject" json:"subject" validate:"required"`
	// base64url uncompressed P-256 point
	PublicKey string `yaml:"public_key" json:"public_key" validate:"required"`
	// base64url raw P-256 scalar
	PrivateKey string `yaml:"private_key" json:"private_key" validate:"required"`
	// zero means DefaultTokenLifetime from the time of signing
	Expiration time.Time `yaml:"-" json:"-"`
}

// Keys is a freshly generated VAPID key pair in its external encoding.
type Keys struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// GenerateKeys creates a new VAPID key pair. Store it in the configuration,
// the public key is handed to browsers as applicationServerKey.
func GenerateKeys() (*Keys, error) {
	prk, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}
	raw := prk.Bytes()
	defer p256.Zero(raw)

	return &Keys{
		PublicKey:  p256.Encode(prk.PublicKey().Bytes()),
		PrivateKey: p256.Encode(raw),
	}, nil
}

// ValidateSubject accepts mailto: addresses and absolute https: URLs.
func ValidateSubject(subject string) error {
	if strings.HasPrefix(subject, "mailto:") {
		if len(subject) == len("mailto:") {
			return fmt.Errorf("%w: empty mailto address", ErrInvalidSubject)
		}
		return nil
	}
	if strings.HasPrefix(subject, "https:") {
		u, err := url.Parse(subject)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSubject, err)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidSubject, subject)
		}
		return nil
	}
	return fmt.Errorf("%w: %q must be a mailto: or https: URI", ErrInvalidSubject, subject)
}

// Audience reduces a push endpoint to the origin the token is issued for.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint: %q", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}
