package ece

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gematik/zero-webpush/pkg/p256"
)

// Envelope carries everything the receiver needs to decrypt a message.
// It is never modified after Encrypt returns it.
type Envelope struct {
	Encoding       Encoding `cbor:"enc" json:"encoding"`
	Salt           []byte   `cbor:"salt" json:"salt"`
	LocalPublicKey []byte   `cbor:"dh" json:"dh"`
	// AEAD output with the 16 byte tag appended
	Ciphertext []byte `cbor:"ct" json:"ciphertext"`
	RecordSize uint32 `cbor:"rs,omitempty" json:"rs,omitempty"`
}

// Body returns the request body. For aes128gcm the record header
// (salt || rs || idlen || keyid) precedes the ciphertext.
func (e *Envelope) Body() []byte {
	if e.Encoding != AES128GCM {
		return e.Ciphertext
	}
	body := make([]byte, 0, recordHeaderLen+len(e.Ciphertext))
	body = append(body, e.Salt...)
	body = binary.BigEndian.AppendUint32(body, e.recordSize())
	body = append(body, byte(len(e.LocalPublicKey)))
	body = append(body, e.LocalPublicKey...)
	return append(body, e.Ciphertext...)
}

// EncryptionHeader is the value of the Encryption header (aesgcm only).
func (e *Envelope) EncryptionHeader() string {
	return "salt=" + p256.Encode(e.Salt)
}

// CryptoKeyDH is the dh entry of the Crypto-Key header (aesgcm only).
func (e *Envelope) CryptoKeyDH() string {
	return "dh=" + p256.Encode(e.LocalPublicKey)
}

// ToLog leaves out the ciphertext.
func (e *Envelope) ToLog() any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"encoding":    e.Encoding,
		"salt":        p256.Encode(e.Salt),
		"dh":          p256.Encode(e.LocalPublicKey),
		"ciphertext":  len(e.Ciphertext),
		"record_size": e.recordSize(),
	}
}

func (e *Envelope) recordSize() uint32 {
	if e.RecordSize == 0 {
		return RecordSize
	}
	return e.RecordSize
}

// ParseRecord splits an aes128gcm body into its envelope parts.
func ParseRecord(body []byte) (*Envelope, error) {
	if len(body) < SaltLen+5 {
		return nil, fmt.Errorf("%w: record too short", ErrDecryptionFailure)
	}
	idLen := int(body[SaltLen+4])
	if idLen != p256.PublicKeyLen || len(body) < SaltLen+5+idLen+TagLen {
		return nil, fmt.Errorf("%w: invalid record header", ErrDecryptionFailure)
	}
	return &Envelope{
		Encoding:       AES128GCM,
		Salt:           body[:SaltLen],
		RecordSize:     binary.BigEndian.Uint32(body[SaltLen : SaltLen+4]),
		LocalPublicKey: body[SaltLen+5 : SaltLen+5+idLen],
		Ciphertext:     body[SaltLen+5+idLen:],
	}, nil
}

// CBOR encodes the envelope for offline delivery and debugging.
func (e *Envelope) CBOR() ([]byte, error) {
	return cbor.Marshal(e)
}

func ParseCBOR(data []byte) (*Envelope, error) {
	env := new(Envelope)
	if err := cbor.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if !env.Encoding.Valid() {
		return nil, invalidEncoding(env.Encoding)
	}
	return env, nil
}
