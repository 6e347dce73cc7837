package webpush

import (
	"fmt"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/vapid"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	VAPID           *VAPIDConfig   `yaml:"vapid"`
	GCMAPIKey       string         `yaml:"gcm_api_key"`
	TTL             *time.Duration `yaml:"ttl" validate:"omitempty,min=0"`
	ContentEncoding ece.Encoding   `yaml:"content_encoding" validate:"omitempty,oneof=aesgcm aes128gcm"`
	AuthScheme      vapid.Scheme   `yaml:"auth_scheme" validate:"omitempty,oneof=WebPush Bearer vapid"`
	MaxRetries      *uint64        `yaml:"max_retries"`
	Timeout         time.Duration  `yaml:"timeout" validate:"omitempty,min=0"`
	Gateway         *GatewayConfig `yaml:"gateway"`
}

type VAPIDConfig struct {
	vapid.Details `yaml:",inline"`
	// token lifetime, tokens are issued per message
	Expiration time.Duration `yaml:"expiration" validate:"omitempty,min=0"`
}

type GatewayConfig struct {
	Address string `yaml:"address" validate:"required,hostname_port"`
	// bearer token clients of the gateway must present, none if empty
	APIKey string `yaml:"api_key"`
}

// LoadConfigFile reads a YAML config. Environment variables in the file are
// expanded, so keys can be kept out of it.
func LoadConfigFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := new(Config)
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(content))), cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Options translates the config into client options.
func (cfg *Config) Options() []Option {
	var opts []Option
	if cfg.VAPID != nil {
		opts = append(opts, WithVAPID(cfg.VAPID.Details))
		if cfg.VAPID.Expiration > 0 {
			opts = append(opts, WithVAPIDLifetime(cfg.VAPID.Expiration))
		}
	}
	if cfg.GCMAPIKey != "" {
		opts = append(opts, WithGCMAPIKey(cfg.GCMAPIKey))
	}
	if cfg.TTL != nil {
		opts = append(opts, WithTTL(*cfg.TTL))
	}
	if cfg.ContentEncoding != "" {
		opts = append(opts, WithContentEncoding(cfg.ContentEncoding))
	}
	if cfg.AuthScheme != "" {
		opts = append(opts, WithAuthScheme(cfg.AuthScheme))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, WithRetries(*cfg.MaxRetries, 0))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return opts
}

func NewClientFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	return NewClient(append(cfg.Options(), opts...)...)
}
