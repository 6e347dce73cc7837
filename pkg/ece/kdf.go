package ece

import (
	"crypto/sha256"
	"fmt"
	"io"
	"slices"

	"github.com/gematik/zero-webpush/pkg/p256"
	"golang.org/x/crypto/hkdf"
)

var (
	webPushInfo   = []byte("WebPush: info\x00")
	aesgcmInfo    = []byte("Content-Encoding: aesgcm\x00")
	aes128gcmInfo = []byte("Content-Encoding: aes128gcm\x00")
	nonceInfo     = []byte("Content-Encoding: nonce\x00")
)

const ikmLen = 32

// DerivedKeys holds the content encryption key and nonce of one message.
type DerivedKeys struct {
	ContentEncryptionKey []byte
	Nonce                []byte
}

// Zero wipes the key and nonce.
func (k *DerivedKeys) Zero() {
	p256.Zero(k.ContentEncryptionKey)
	p256.Zero(k.Nonce)
}

// DeriveKeys runs the HKDF-SHA256 chain from the ECDH shared secret to the
// content encryption key and nonce.
//
//	PRK1  = Extract(authSecret, sharedSecret)
//	IKM   = Expand(PRK1, "WebPush: info\0" || ua_public || as_public, 32)
//	PRK2  = Extract(salt, IKM)
//	CEK   = Expand(PRK2, "Content-Encoding: <enc>\0", 16)
//	NONCE = Expand(PRK2, "Content-Encoding: nonce\0", 12)
//
// The result is a pure function of its inputs.
func DeriveKeys(enc Encoding, sharedSecret, salt, authSecret, subscriberPublicKey, localPublicKey []byte) (*DerivedKeys, error) {
	var cekInfo []byte
	switch enc {
	case AESGCM:
		cekInfo = aesgcmInfo
	case AES128GCM:
		cekInfo = aes128gcmInfo
	default:
		return nil, invalidEncoding(enc)
	}
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltLen, len(salt))
	}
	if len(authSecret) != AuthSecretLen {
		return nil, fmt.Errorf("%w: auth secret must be %d bytes, got %d", ErrInvalidKey, AuthSecretLen, len(authSecret))
	}
	if len(subscriberPublicKey) != p256.PublicKeyLen || len(localPublicKey) != p256.PublicKeyLen {
		return nil, fmt.Errorf("%w: public keys must be %d bytes", ErrInvalidKey, p256.PublicKeyLen)
	}

	prk1 := hkdf.Extract(sha256.New, sharedSecret, authSecret)
	defer p256.Zero(prk1)

	authInfo := slices.Concat(webPushInfo, subscriberPublicKey, localPublicKey)
	ikm, err := expand(prk1, authInfo, ikmLen)
	if err != nil {
		return nil, err
	}
	defer p256.Zero(ikm)

	prk2 := hkdf.Extract(sha256.New, ikm, salt)
	defer p256.Zero(prk2)

	cek, err := expand(prk2, cekInfo, KeyLen)
	if err != nil {
		return nil, err
	}
	nonce, err := expand(prk2, nonceInfo, NonceLen)
	if err != nil {
		p256.Zero(cek)
		return nil, err
	}

	return &DerivedKeys{ContentEncryptionKey: cek, Nonce: nonce}, nil
}

func expand(prk, info []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}
