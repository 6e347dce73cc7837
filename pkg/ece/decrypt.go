package ece

import (
	"crypto/ecdh"
	"encoding/binary"
	"fmt"

	"github.com/gematik/zero-webpush/pkg/p256"
)

// Decrypt is the user agent side of Encrypt. It recovers the plaintext from
// an envelope using the subscriber private key and auth secret.
func Decrypt(env *Envelope, subscriberPrivateKey *ecdh.PrivateKey, authSecret []byte) ([]byte, error) {
	record, err := open(env, subscriberPrivateKey, authSecret)
	if err != nil {
		return nil, err
	}
	return unpad(env.Encoding, record)
}

// open returns the decrypted but still padded record.
func open(env *Envelope, subscriberPrivateKey *ecdh.PrivateKey, authSecret []byte) ([]byte, error) {
	if !env.Encoding.Valid() {
		return nil, invalidEncoding(env.Encoding)
	}
	asPuK, err := p256.ParsePublicKey(env.LocalPublicKey)
	if err != nil {
		return nil, fmt.Errorf("sender public key: %w", err)
	}

	ss, err := subscriberPrivateKey.ECDH(asPuK)
	if err != nil {
		return nil, fmt.Errorf("%w: computing shared secret: %w", ErrInvalidKey, err)
	}
	defer p256.Zero(ss)

	keys, err := DeriveKeys(env.Encoding, ss, env.Salt, authSecret, subscriberPrivateKey.PublicKey().Bytes(), env.LocalPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}
	defer keys.Zero()

	aead, err := newGCM(keys.ContentEncryptionKey)
	if err != nil {
		return nil, err
	}
	record, err := aead.Open(nil, keys.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailure, err)
	}
	return record, nil
}

func unpad(enc Encoding, record []byte) ([]byte, error) {
	if enc == AES128GCM {
		i := len(record) - 1
		for i >= 0 && record[i] == 0 {
			i--
		}
		if i < 0 || record[i] != 0x02 {
			return nil, fmt.Errorf("%w: missing record delimiter", ErrDecryptionFailure)
		}
		return record[:i], nil
	}

	if len(record) < 2 {
		return nil, fmt.Errorf("%w: record too short", ErrDecryptionFailure)
	}
	padLen := int(binary.BigEndian.Uint16(record))
	if len(record) < 2+padLen {
		return nil, fmt.Errorf("%w: invalid padding length %d", ErrDecryptionFailure, padLen)
	}
	for _, b := range record[2 : 2+padLen] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero padding", ErrDecryptionFailure)
		}
	}
	return record[2+padLen:], nil
}
