package vapid

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// Scheme is the Authorization header scheme expected by a push service.
type Scheme string

const (
	// WebPush <jwt> together with Crypto-Key: p256ecdsa=<key>
	SchemeWebPush Scheme = "WebPush"
	// Bearer <jwt>, legacy variant of SchemeWebPush
	SchemeBearer Scheme = "Bearer"
	// vapid t=<jwt>, k=<key> as of RFC 8292
	SchemeVAPID Scheme = "vapid"
)

func (s Scheme) Valid() bool {
	switch s {
	case SchemeWebPush, SchemeBearer, SchemeVAPID:
		return true
	}
	return false
}

// Claims of a VAPID token. Field order is the serialization order.
type Claims struct {
	Audience   string `json:"aud"`
	Expiration int64  `json:"exp"`
	Subject    string `json:"sub"`
}

// Headers are produced per call and consumed by the request builder.
type Headers struct {
	Token string
	// p256ecdsa=<base64url public key>
	CryptoKey string
	PublicKey string
}

// Authorization formats the Authorization header value for the scheme.
func (h *Headers) Authorization(scheme Scheme) string {
	switch scheme {
	case SchemeBearer:
		return "Bearer " + h.Token
	case SchemeVAPID:
		return "vapid t=" + h.Token + ", k=" + h.PublicKey
	default:
		return "WebPush " + h.Token
	}
}

// Signer issues VAPID tokens. It holds no mutable state and can be shared.
type Signer struct {
	subject    string
	publicKey  string
	key        jwk.Key
	expiration time.Time
	now        func() time.Time
}

// NewSigner validates the details and prepares the signing key.
func NewSigner(details Details) (*Signer, error) {
	if err := ValidateSubject(details.Subject); err != nil {
		return nil, err
	}

	publicKey, err := p256.Decode(details.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("vapid public key: %w", err)
	}
	privateKey, err := p256.Decode(details.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("vapid private key: %w", err)
	}
	defer p256.Zero(privateKey)

	ecdsaPrK, err := p256.ECDSAPrivateKey(publicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("vapid key pair: %w", err)
	}

	key, err := jwk.FromRaw(ecdsaPrK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return &Signer{
		subject:    details.Subject,
		publicKey:  p256.Encode(publicKey),
		key:        key,
		expiration: details.Expiration,
		now:        time.Now,
	}, nil
}

// PublicKey returns the base64url application server key.
func (s *Signer) PublicKey() string {
	return s.publicKey
}

func (s *Signer) Subject() string {
	return s.subject
}

// Sign issues a token for the audience. A zero expiration falls back to the
// one configured in Details and then to DefaultTokenLifetime.
func (s *Signer) Sign(audience string, expiration time.Time) (*Headers, error) {
	if audience == "" {
		return nil, fmt.Errorf("%w: audience is required", ErrSigningFailure)
	}

	now := s.now()
	if expiration.IsZero() {
		expiration = s.expiration
	}
	if expiration.IsZero() {
		expiration = now.Add(DefaultTokenLifetime)
	}
	if expiration.Sub(now) > MaxTokenLifetime {
		slog.Warn("VAPID expiration exceeds 24 hours, push services may reject the token", "audience", audience, "exp", expiration.Unix())
	}

	token, err := s.sign(Claims{
		Audience:   audience,
		Expiration: expiration.Unix(),
		Subject:    s.subject,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Signed VAPID token", "audience", audience, "exp", expiration.Unix())

	return &Headers{
		Token:     token,
		CryptoKey: "p256ecdsa=" + s.publicKey,
		PublicKey: s.publicKey,
	}, nil
}

func (s *Signer) sign(claims Claims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("%w: encoding claims: %w", ErrSigningFailure, err)
	}

	headers := jws.NewHeaders()
	if err := headers.Set(jws.TypeKey, "JWT"); err != nil {
		return "", fmt.Errorf("%w: setting header: %w", ErrSigningFailure, err)
	}

	// ES256 signatures are the fixed size r || s form, not ASN.1
	signed, err := jws.Sign(payload, jws.WithKey(jwa.ES256, s.key, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}
	return string(signed), nil
}
