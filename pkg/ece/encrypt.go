package ece

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/gematik/zero-webpush/pkg/p256"
)

type options struct {
	encoding Encoding
	random   io.Reader
}

type Option func(*options) error

// WithEncoding selects the content encoding, aesgcm by default.
func WithEncoding(enc Encoding) Option {
	return func(o *options) error {
		if !enc.Valid() {
			return invalidEncoding(enc)
		}
		o.encoding = enc
		return nil
	}
}

// Encrypt seals plaintext for the subscriber identified by its uncompressed
// P-256 public key and 16 byte auth secret. A fresh salt and ephemeral key
// pair are generated for every call.
func Encrypt(plaintext, subscriberPublicKey, authSecret []byte, opts ...Option) (*Envelope, error) {
	o := &options{encoding: AESGCM, random: rand.Reader}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if len(plaintext) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(authSecret) != AuthSecretLen {
		return nil, fmt.Errorf("%w: auth secret must be %d bytes, got %d", ErrInvalidKey, AuthSecretLen, len(authSecret))
	}

	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(o.random, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	agreement, err := agree(o.random, subscriberPublicKey)
	if err != nil {
		return nil, err
	}
	defer agreement.Zero()

	keys, err := DeriveKeys(o.encoding, agreement.SharedSecret, salt, authSecret, subscriberPublicKey, agreement.PublicKey)
	if err != nil {
		return nil, err
	}
	defer keys.Zero()

	ciphertext, err := seal(keys, pad(o.encoding, plaintext))
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		Encoding:       o.encoding,
		Salt:           salt,
		LocalPublicKey: agreement.PublicKey,
		Ciphertext:     ciphertext,
	}
	if o.encoding == AES128GCM {
		env.RecordSize = RecordSize
	}
	return env, nil
}

// pad builds the plaintext record. aesgcm prefixes a two byte big endian
// padding length (always zero), aes128gcm appends the last-record delimiter.
func pad(enc Encoding, plaintext []byte) []byte {
	if enc == AES128GCM {
		record := make([]byte, 0, len(plaintext)+1)
		record = append(record, plaintext...)
		return append(record, 0x02)
	}
	record := make([]byte, 2, len(plaintext)+2)
	return append(record, plaintext...)
}

func seal(keys *DerivedKeys, record []byte) ([]byte, error) {
	aead, err := newGCM(keys.ContentEncryptionKey)
	if err != nil {
		return nil, err
	}
	// the tag is appended to the ciphertext, no additional data
	ciphertext := aead.Seal(nil, keys.Nonce, record, nil)
	p256.Zero(record)
	return ciphertext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating AES cipher: %w", ErrEncryptionFailure, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating AES-GCM: %w", ErrEncryptionFailure, err)
	}
	return aead, nil
}
