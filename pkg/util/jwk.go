package util

import (
	"crypto"
	"encoding/base64"
	"encoding/json"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Jwk makes jwk.Key usable as a JSON field.
type Jwk struct {
	Key jwk.Key
}

// NewJwk wraps a raw crypto key and sets its thumbprint as key id.
func NewJwk(raw any) (*Jwk, error) {
	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	j := &Jwk{Key: key}
	kid, err := j.ThumbprintString(crypto.SHA256)
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Jwk) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Key)
}

func (j *Jwk) UnmarshalJSON(data []byte) error {
	key, err := jwk.ParseKey(data)
	if err != nil {
		return err
	}
	j.Key = key
	return nil
}

func (j *Jwk) ThumbprintString(hf crypto.Hash) (string, error) {
	t, err := j.Key.Thumbprint(hf)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(t), nil
}
