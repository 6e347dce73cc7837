package webpush_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/vapid"
	"github.com/gematik/zero-webpush/pkg/webpush"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webpush.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	keys, err := vapid.GenerateKeys()
	require.NoError(t, err)
	t.Setenv("TEST_VAPID_PRIVATE_KEY", keys.PrivateKey)

	path := writeConfig(t, `
vapid:
  subject: mailto:ops@example.com
  public_key: `+keys.PublicKey+`
  private_key: ${TEST_VAPID_PRIVATE_KEY}
  expiration: 1h
ttl: 30m
content_encoding: aes128gcm
auth_scheme: vapid
max_retries: 1
timeout: 5s
gateway:
  address: localhost:8080
  api_key: secret
`)

	cfg, err := webpush.LoadConfigFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.VAPID)
	assert.Equal(t, keys.PrivateKey, cfg.VAPID.PrivateKey)
	assert.Equal(t, time.Hour, cfg.VAPID.Expiration)
	assert.Equal(t, 30*time.Minute, *cfg.TTL)
	assert.Equal(t, ece.AES128GCM, cfg.ContentEncoding)
	assert.Equal(t, vapid.SchemeVAPID, cfg.AuthScheme)
	assert.Equal(t, uint64(1), *cfg.MaxRetries)
	assert.Equal(t, "localhost:8080", cfg.Gateway.Address)

	client, err := webpush.NewClientFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, keys.PublicKey, client.VAPIDPublicKey())

	req, err := client.NewRequest(context.Background(), newUserAgent(t).subscription("https://push.example.com/1"), []byte("Hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "1800", req.Header.Get("TTL"))
	assert.Equal(t, "aes128gcm", req.Header.Get("Content-Encoding"))
	assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "vapid t="))
}

func TestLoadConfigFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"encoding", "content_encoding: aes256gcm\n", "content_encoding"},
		{"scheme", "auth_scheme: Basic\n", "auth_scheme"},
		{"vapid subject", "vapid:\n  public_key: a\n  private_key: b\n", "subject"},
		{"gateway address", "gateway:\n  api_key: x\n", "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := webpush.LoadConfigFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := webpush.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigRejectsBadVAPIDKeys(t *testing.T) {
	cfg, err := webpush.LoadConfigFile(writeConfig(t, `
vapid:
  subject: https://example.com/contact
  public_key: AAAA
  private_key: AAAA
`))
	require.NoError(t, err)

	_, err = webpush.NewClientFromConfig(cfg)
	assert.ErrorIs(t, err, vapid.ErrInvalidKey)
}
