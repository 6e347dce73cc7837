package webpush

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/vapid"
)

const gcmEndpoint = "https://android.googleapis.com/gcm/send"

// pushRequest is a fully prepared message. It can be turned into any number
// of identical http requests, which retries rely on.
type pushRequest struct {
	endpoint string
	header   http.Header
	body     []byte
	envelope *ece.Envelope
}

func (p *pushRequest) httpRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(p.body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = p.header.Clone()
	return req, nil
}

// NewRequest encrypts the payload and signs the request without sending it.
// An empty payload produces a message without body, which push services
// deliver as a tickle.
func (c *Client) NewRequest(ctx context.Context, sub *Subscription, payload []byte, opts *SendOptions) (*http.Request, error) {
	p, err := c.prepare(sub, payload, opts)
	if err != nil {
		return nil, err
	}
	return p.httpRequest(ctx)
}

func (c *Client) prepare(sub *Subscription, payload []byte, opts *SendOptions) (*pushRequest, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: subscription is required", ErrInvalidSubscription)
	}
	endpoint, err := sub.endpointURL()
	if err != nil {
		return nil, err
	}
	s, err := c.resolve(opts)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("TTL", strconv.FormatInt(int64(s.ttl.Seconds()), 10))
	if s.topic != "" {
		header.Set("Topic", s.topic)
	}
	if s.urgency != "" {
		header.Set("Urgency", string(s.urgency))
	}

	var cryptoKey []string
	p := &pushRequest{endpoint: sub.Endpoint, header: header}

	if len(payload) > 0 {
		if limit := s.encoding.MaxPlaintext(); len(payload) > limit {
			return nil, fmt.Errorf("%w: %d bytes exceed the %d bytes a single %s record can carry", ErrPayloadTooLarge, len(payload), limit, s.encoding)
		}
		publicKey, authSecret, err := sub.keyMaterial()
		if err != nil {
			return nil, err
		}
		env, err := ece.Encrypt(payload, publicKey, authSecret, ece.WithEncoding(s.encoding))
		if err != nil {
			return nil, fmt.Errorf("encrypting payload: %w", err)
		}

		header.Set("Content-Type", "application/octet-stream")
		header.Set("Content-Encoding", string(env.Encoding))
		if env.Encoding == ece.AESGCM {
			header.Set("Encryption", env.EncryptionHeader())
			cryptoKey = append(cryptoKey, env.CryptoKeyDH())
		}
		p.body = env.Body()
		p.envelope = env
	}

	if strings.HasPrefix(sub.Endpoint, gcmEndpoint) {
		if s.gcmAPIKey != "" {
			header.Set("Authorization", "key="+s.gcmAPIKey)
		}
	} else if s.signer != nil {
		audience := endpoint.Scheme + "://" + endpoint.Host
		expiration := s.vapidExpiration
		if expiration.IsZero() && s.vapidLifetime > 0 {
			expiration = time.Now().Add(s.vapidLifetime)
		}
		vapidHeaders, err := s.signer.Sign(audience, expiration)
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", vapidHeaders.Authorization(s.scheme))
		if s.scheme != vapid.SchemeVAPID {
			cryptoKey = append(cryptoKey, vapidHeaders.CryptoKey)
		}
	}

	if len(cryptoKey) > 0 {
		header.Set("Crypto-Key", strings.Join(cryptoKey, ";"))
	}

	for name, values := range s.headers {
		header.Del(name)
		for _, v := range values {
			header.Add(name, v)
		}
	}

	return p, nil
}
