package cmd

import (
	"errors"
	"log/slog"

	"github.com/gematik/zero-webpush/pkg/gateway"
	"github.com/gematik/zero-webpush/pkg/util"
	"github.com/gematik/zero-webpush/pkg/webpush"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the push gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if config.Gateway == nil {
			config.Gateway = &webpush.GatewayConfig{
				Address: util.GetEnv("ZWP_GATEWAY_ADDRESS", ":8080"),
				APIKey:  util.GetEnv("ZWP_GATEWAY_API_KEY", ""),
			}
		}
		if config.VAPID == nil {
			return errors.New("vapid is not configured, set it in the config file or ZWP_VAPID_* variables")
		}

		client, err := webpush.NewClientFromConfig(config)
		if err != nil {
			return err
		}
		srv, err := gateway.New(client, config.Gateway)
		if err != nil {
			return err
		}

		e := echo.New()
		e.HideBanner = true
		e.Validator = gateway.NewValidator()
		e.Use(middleware.Recover())
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogStatus: true,
			LogURI:    true,
			LogMethod: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				slog.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status)
				return nil
			},
		}))

		srv.MountRoutes(e.Group(""))

		for _, route := range e.Routes() {
			slog.Info("Route", "method", route.Method, "path", route.Path)
		}

		if config.Gateway.APIKey == "" {
			slog.Warn("Gateway runs without API key, anyone can send notifications")
		}
		slog.Info("Starting push gateway", "version", webpush.Version, "address", config.Gateway.Address, "vapid_public_key", client.VAPIDPublicKey())
		return e.Start(config.Gateway.Address)
	},
}
