// Package p256 decodes and validates the P-256 key material exchanged with
// user agents and configured for VAPID.
//
// Public keys travel as uncompressed points (0x04 || X || Y, 65 bytes),
// private keys as raw big-endian scalars (32 bytes). Both are usually
// base64url encoded without padding, but user agents and configuration
// files are not always consistent about that.
package p256

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

const (
	PublicKeyLen  = 65
	PrivateKeyLen = 32
	// uncompressed point marker
	pointUncompressed = 0x04
)

var ErrInvalidKey = errors.New("invalid key")

// ParsePublicKey validates an uncompressed P-256 point.
func ParsePublicKey(raw []byte) (*ecdh.PublicKey, error) {
	if len(raw) != PublicKeyLen {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKey, PublicKeyLen, len(raw))
	}
	if raw[0] != pointUncompressed {
		return nil, fmt.Errorf("%w: public key is not an uncompressed point", ErrInvalidKey)
	}
	key, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}

// ParsePrivateKey validates a raw P-256 scalar.
func ParsePrivateKey(raw []byte) (*ecdh.PrivateKey, error) {
	if len(raw) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, PrivateKeyLen, len(raw))
	}
	key, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}

// ECDSAPrivateKey turns a raw key pair into an ECDSA signing key. The public
// key must belong to the private scalar.
func ECDSAPrivateKey(publicKey, privateKey []byte) (*ecdsa.PrivateKey, error) {
	ecdhPuK, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	ecdhPrK, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	if !ecdhPrK.PublicKey().Equal(ecdhPuK) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}

	point := ecdhPuK.Bytes()
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1:33]),
			Y:     new(big.Int).SetBytes(point[33:]),
		},
		D: new(big.Int).SetBytes(ecdhPrK.Bytes()),
	}, nil
}

// ECDSAPublicKey converts an uncompressed point into an ECDSA verification key.
func ECDSAPublicKey(publicKey []byte) (*ecdsa.PublicKey, error) {
	ecdhPuK, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	point := ecdhPuK.Bytes()
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(point[1:33]),
		Y:     new(big.Int).SetBytes(point[33:]),
	}, nil
}

// Encode uses base64url without padding, the only form written to the wire.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode accepts url and standard alphabets, with or without padding.
func Decode(s string) ([]byte, error) {
	data, err := encodingFor(s).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return data, nil
}

func encodingFor(s string) *base64.Encoding {
	padded := len(s) > 0 && s[len(s)-1] == '='
	isURL := true
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '-', '_':
			isURL = true
		case '+', '/':
			isURL = false
		default:
			continue
		}
		break
	}

	switch {
	case isURL && padded:
		return base64.URLEncoding
	case isURL:
		return base64.RawURLEncoding
	case padded:
		return base64.StdEncoding
	default:
		return base64.RawStdEncoding
	}
}

// Zero wipes key material once it is no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
