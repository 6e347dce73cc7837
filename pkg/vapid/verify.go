package vapid

import (
	"encoding/json"
	"fmt"

	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// Verify checks a token against a base64url VAPID public key and returns
// its claims. This is what a push service does on receipt.
func Verify(token string, publicKey string) (*Claims, error) {
	raw, err := p256.Decode(publicKey)
	if err != nil {
		return nil, err
	}
	ecdsaPuK, err := p256.ECDSAPublicKey(raw)
	if err != nil {
		return nil, err
	}

	payload, err := jws.Verify([]byte(token), jws.WithKey(jwa.ES256, ecdsaPuK))
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	claims := new(Claims)
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("decoding claims: %w", err)
	}
	return claims, nil
}
