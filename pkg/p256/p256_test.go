package p256_test

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublicKey(t *testing.T) {
	prk, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	raw := prk.PublicKey().Bytes()

	_, err = p256.ParsePublicKey(raw)
	assert.NoError(t, err)

	_, err = p256.ParsePublicKey(raw[1:])
	assert.ErrorIs(t, err, p256.ErrInvalidKey)

	_, err = p256.ParsePublicKey(raw[:33])
	assert.ErrorIs(t, err, p256.ErrInvalidKey)

	compressedMarker := append([]byte{0x02}, raw[1:]...)
	_, err = p256.ParsePublicKey(compressedMarker)
	assert.ErrorIs(t, err, p256.ErrInvalidKey)
}

func TestParsePrivateKey(t *testing.T) {
	prk, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	parsed, err := p256.ParsePrivateKey(prk.Bytes())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(prk))

	_, err = p256.ParsePrivateKey(prk.Bytes()[:31])
	assert.ErrorIs(t, err, p256.ErrInvalidKey)

	_, err = p256.ParsePrivateKey(make([]byte, 32))
	assert.ErrorIs(t, err, p256.ErrInvalidKey)
}

func TestECDSAKeys(t *testing.T) {
	prk, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	public := prk.PublicKey().Bytes()

	signingKey, err := p256.ECDSAPrivateKey(public, prk.Bytes())
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("payload"))
	sig, err := ecdsa.SignASN1(rand.Reader, signingKey, digest[:])
	require.NoError(t, err)

	verifyKey, err := p256.ECDSAPublicKey(public)
	require.NoError(t, err)
	assert.True(t, ecdsa.VerifyASN1(verifyKey, digest[:], sig))

	other, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = p256.ECDSAPrivateKey(other.PublicKey().Bytes(), prk.Bytes())
	assert.ErrorIs(t, err, p256.ErrInvalidKey)
}

func TestDecode(t *testing.T) {
	data := []byte{0xfb, 0xff, 0xfe, 0x01}
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		decoded, err := p256.Decode(enc.EncodeToString(data))
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}

	_, err := p256.Decode("not base64!")
	assert.ErrorIs(t, err, p256.ErrInvalidKey)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "-__-AQ", p256.Encode([]byte{0xfb, 0xff, 0xfe, 0x01}))
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	p256.Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
