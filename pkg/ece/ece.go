// Package ece implements the encrypted content encodings used to deliver
// Web Push payloads.
//
// The default encoding is "aesgcm": the ciphertext travels as the request
// body, salt and ephemeral public key travel in the Encryption and Crypto-Key
// headers. The "aes128gcm" encoding of RFC 8291 is supported as well and packs
// salt and key into a record header in front of the ciphertext.
//
// All functions are safe for concurrent use. Key agreement, salts and
// derived keys are fresh per call and never shared.
package ece

import (
	"errors"
	"fmt"

	"github.com/gematik/zero-webpush/pkg/p256"
)

type Encoding string

const (
	AESGCM    Encoding = "aesgcm"
	AES128GCM Encoding = "aes128gcm"
)

func (e Encoding) Valid() bool {
	switch e {
	case AESGCM, AES128GCM:
		return true
	}
	return false
}

const (
	SaltLen       = 16
	AuthSecretLen = 16
	KeyLen        = 16
	NonceLen      = 12
	TagLen        = 16

	// Push services are not required to accept more than one 4096 byte record.
	RecordSize = 4096

	// salt || rs || idlen || keyid
	recordHeaderLen = SaltLen + 4 + 1 + p256.PublicKeyLen

	// MaxPlaintextAESGCM leaves room for the padding length prefix and the tag.
	MaxPlaintextAESGCM = RecordSize - 2 - TagLen
	// MaxPlaintextAES128GCM leaves room for the record header, delimiter and tag.
	MaxPlaintextAES128GCM = RecordSize - recordHeaderLen - 1 - TagLen
)

// MaxPlaintext returns the largest payload that fits into a single record.
func (e Encoding) MaxPlaintext() int {
	if e == AES128GCM {
		return MaxPlaintextAES128GCM
	}
	return MaxPlaintextAESGCM
}

var (
	ErrInvalidKey        = p256.ErrInvalidKey
	ErrEmptyPayload      = errors.New("empty payload")
	ErrEncryptionFailure = errors.New("encryption failure")
	ErrDecryptionFailure = errors.New("decryption failure")
)

func invalidEncoding(e Encoding) error {
	return fmt.Errorf("unsupported content encoding %q", string(e))
}
