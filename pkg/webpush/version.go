package webpush

// Version is set at build time with -ldflags "-X github.com/gematik/zero-webpush/pkg/webpush.Version=..."
var Version = "0.1.0-dev"
