package ece

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/gematik/zero-webpush/pkg/p256"
)

// Agreement is the outcome of one ECDH exchange with a subscriber.
type Agreement struct {
	// raw X coordinate of the shared point
	SharedSecret []byte
	// uncompressed ephemeral public key of the application server
	PublicKey []byte
}

// Zero wipes the shared secret.
func (a *Agreement) Zero() {
	p256.Zero(a.SharedSecret)
}

// Agree generates an ephemeral P-256 key pair and computes the shared secret
// with the given uncompressed subscriber public key.
func Agree(subscriberPublicKey []byte) (*Agreement, error) {
	return agree(rand.Reader, subscriberPublicKey)
}

func agree(random io.Reader, subscriberPublicKey []byte) (*Agreement, error) {
	uaPuK, err := p256.ParsePublicKey(subscriberPublicKey)
	if err != nil {
		return nil, fmt.Errorf("subscriber public key: %w", err)
	}

	asPrK, err := ecdh.P256().GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral key pair: %w", err)
	}

	ss, err := asPrK.ECDH(uaPuK)
	if err != nil {
		return nil, fmt.Errorf("%w: computing shared secret: %w", ErrInvalidKey, err)
	}

	return &Agreement{
		SharedSecret: ss,
		PublicKey:    asPrK.PublicKey().Bytes(),
	}, nil
}
