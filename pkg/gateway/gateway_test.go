package gateway_test

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/gateway"
	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/gematik/zero-webpush/pkg/vapid"
	"github.com/gematik/zero-webpush/pkg/webpush"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	header http.Header
	body   []byte
}

func newPushService(t *testing.T, status int) (*httptest.Server, chan received) {
	t.Helper()
	ch := make(chan received, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- received{header: r.Header.Clone(), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

type fixture struct {
	e          *echo.Echo
	privateKey *ecdh.PrivateKey
	authSecret []byte
	vapidKey   string
}

func newFixture(t *testing.T, apiKey string, opts ...webpush.Option) *fixture {
	t.Helper()
	keys, err := vapid.GenerateKeys()
	require.NoError(t, err)

	opts = append([]webpush.Option{
		webpush.WithVAPID(vapid.Details{
			Subject:    "mailto:ops@example.com",
			PublicKey:  keys.PublicKey,
			PrivateKey: keys.PrivateKey,
		}),
		webpush.WithContentEncoding(ece.AES128GCM),
		webpush.WithRetries(0, 0),
	}, opts...)
	client, err := webpush.NewClient(opts...)
	require.NoError(t, err)

	srv, err := gateway.New(client, &webpush.GatewayConfig{Address: "localhost:0", APIKey: apiKey})
	require.NoError(t, err)

	e := echo.New()
	e.Validator = gateway.NewValidator()
	srv.MountRoutes(e.Group(""))

	prk, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, ece.AuthSecretLen)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return &fixture{e: e, privateKey: prk, authSecret: auth, vapidKey: keys.PublicKey}
}

func (f *fixture) request(endpoint string, extra map[string]any) map[string]any {
	req := map[string]any{
		"subscription": map[string]any{
			"endpoint": endpoint,
			"keys": map[string]string{
				"p256dh": p256.Encode(f.privateKey.PublicKey().Bytes()),
				"auth":   p256.Encode(f.authSecret),
			},
		},
	}
	for k, v := range extra {
		req[k] = v
	}
	return req
}

func (f *fixture) post(t *testing.T, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(string(data)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestPostNotification(t *testing.T) {
	push, ch := newPushService(t, http.StatusCreated)
	f := newFixture(t, "")

	rec := f.post(t, f.request(push.URL+"/sub/1", map[string]any{
		"payload": "Hello",
		"ttl":     60,
		"urgency": "high",
		"topic":   "inbox",
	}), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp gateway.NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, resp.Attempts)

	got := <-ch
	assert.Equal(t, "60", got.header.Get("TTL"))
	assert.Equal(t, "high", got.header.Get("Urgency"))
	assert.Equal(t, "inbox", got.header.Get("Topic"))

	env, err := ece.ParseRecord(got.body)
	require.NoError(t, err)
	plaintext, err := ece.Decrypt(env, f.privateKey, f.authSecret)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(plaintext))
}

func TestPostNotificationBinaryPayload(t *testing.T) {
	push, ch := newPushService(t, http.StatusCreated)
	f := newFixture(t, "")

	rec := f.post(t, f.request(push.URL, map[string]any{
		"payload_base64": p256.Encode([]byte{0x00, 0xff, 0x10}),
	}), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := <-ch
	env, err := ece.ParseRecord(got.body)
	require.NoError(t, err)
	plaintext, err := ece.Decrypt(env, f.privateKey, f.authSecret)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, plaintext)
}

func TestPostNotificationWithoutKeys(t *testing.T) {
	push, ch := newPushService(t, http.StatusCreated)
	f := newFixture(t, "")

	rec := f.post(t, map[string]any{
		"subscription": map[string]any{"endpoint": push.URL + "/sub/2"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := <-ch
	assert.Empty(t, got.body)
	assert.Empty(t, got.header.Get("Content-Encoding"))

	// a payload still needs both keys
	rec = f.post(t, map[string]any{
		"subscription": map[string]any{"endpoint": push.URL + "/sub/2"},
		"payload":      "Hello",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostNotificationStatusMapping(t *testing.T) {
	tests := []struct {
		upstream int
		expected int
	}{
		{http.StatusGone, http.StatusGone},
		{http.StatusNotFound, http.StatusGone},
		{http.StatusTooManyRequests, http.StatusTooManyRequests},
		{http.StatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge},
		{http.StatusBadRequest, http.StatusBadGateway},
		{http.StatusInternalServerError, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.upstream), func(t *testing.T) {
			push, _ := newPushService(t, tt.upstream)
			f := newFixture(t, "")
			rec := f.post(t, f.request(push.URL, map[string]any{"payload": "Hello"}), nil)
			assert.Equal(t, tt.expected, rec.Code, rec.Body.String())
		})
	}
}

func TestPostNotificationRejectsInvalidInput(t *testing.T) {
	push, ch := newPushService(t, http.StatusCreated)
	f := newFixture(t, "")

	tests := map[string]any{
		"missing endpoint":  f.request("", map[string]any{"payload": "Hello"}),
		"relative endpoint": f.request("/push", map[string]any{"payload": "Hello"}),
		"two payloads":      f.request(push.URL, map[string]any{"payload": "a", "payload_base64": "YQ"}),
		"urgency":           f.request(push.URL, map[string]any{"urgency": "asap"}),
		"negative ttl":      f.request(push.URL, map[string]any{"ttl": -1}),
		"bad base64":        f.request(push.URL, map[string]any{"payload_base64": "!!"}),
		"payload too large": f.request(push.URL, map[string]any{
			"payload": strings.Repeat("a", ece.MaxPlaintextAES128GCM+1),
		}),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := f.post(t, body, nil)
			assert.GreaterOrEqual(t, rec.Code, 400)
			assert.Less(t, rec.Code, 500)
		})
	}
	assert.Empty(t, ch)
}

func TestPostNotificationAPIKey(t *testing.T) {
	push, _ := newPushService(t, http.StatusCreated)
	f := newFixture(t, "s3cret")
	body := f.request(push.URL, map[string]any{"payload": "Hello"})

	rec := f.post(t, body, nil)
	assert.NotEqual(t, http.StatusCreated, rec.Code)

	rec = f.post(t, body, http.Header{"Authorization": []string{"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.post(t, body, http.Header{"Authorization": []string{"Bearer s3cret"}})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetVAPID(t *testing.T) {
	f := newFixture(t, "s3cret")

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vapid", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gateway.VAPIDResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.vapidKey, resp.PublicKey)
}

func TestGetVAPIDNotConfigured(t *testing.T) {
	client, err := webpush.NewClient()
	require.NoError(t, err)
	srv, err := gateway.New(client, nil)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = gateway.NewValidator()
	srv.MountRoutes(e.Group(""))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vapid", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := gateway.New(nil, nil)
	assert.Error(t, err)
}
