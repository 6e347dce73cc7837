package ece

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddedRecord(t *testing.T) {
	uaPrK, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	authSecret := bytes.Repeat([]byte{0x11}, AuthSecretLen)

	for i := 0; i < 2; i++ {
		env, err := Encrypt([]byte("Hello"), uaPrK.PublicKey().Bytes(), authSecret)
		require.NoError(t, err)

		record, err := open(env, uaPrK, authSecret)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x00\x00Hello"), record)
	}
}

func TestPad(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 'a'}, pad(AESGCM, []byte("a")))
	assert.Equal(t, []byte{'a', 0x02}, pad(AES128GCM, []byte("a")))
}

func TestUnpad(t *testing.T) {
	plaintext, err := unpad(AESGCM, []byte{0, 2, 0, 0, 'h', 'i'})
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), plaintext)

	_, err = unpad(AESGCM, []byte{0, 2, 0, 1, 'h', 'i'})
	assert.ErrorIs(t, err, ErrDecryptionFailure)

	_, err = unpad(AESGCM, []byte{0, 9, 'h'})
	assert.ErrorIs(t, err, ErrDecryptionFailure)

	_, err = unpad(AESGCM, []byte{0})
	assert.ErrorIs(t, err, ErrDecryptionFailure)

	plaintext, err = unpad(AES128GCM, []byte{'h', 'i', 0x02, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), plaintext)

	_, err = unpad(AES128GCM, []byte{'h', 'i', 0x01})
	assert.ErrorIs(t, err, ErrDecryptionFailure)

	_, err = unpad(AES128GCM, []byte{0, 0})
	assert.ErrorIs(t, err, ErrDecryptionFailure)
}

func TestEncryptFailsWithoutRandomness(t *testing.T) {
	uaPrK, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	authSecret := bytes.Repeat([]byte{0x22}, AuthSecretLen)

	failing := func(o *options) error {
		o.random = bytes.NewReader(nil)
		return nil
	}
	_, err = Encrypt([]byte("Hello"), uaPrK.PublicKey().Bytes(), authSecret, failing)
	assert.Error(t, err)
}
