package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/gematik/zero-webpush/pkg/prettylog"
	"github.com/gematik/zero-webpush/pkg/vapid"
	"github.com/gematik/zero-webpush/pkg/webpush"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verbose = false

var (
	rootCmd = &cobra.Command{
		Use:   "zero-webpush",
		Short: "Web Push message encryption and VAPID signing",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			if os.Getenv("PRETTY_LOGS") != "false" {
				slog.SetDefault(slog.New(prettylog.NewHandler(os.Stderr, logLevel)))
			} else {
				slog.SetLogLoggerLevel(logLevel)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ZWP")
	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	persistentFlags.StringP("config-file", "f", "webpush.yaml", "config file")
	viper.BindPFlag("config_file", persistentFlags.Lookup("config-file"))
}

// loadConfig reads the config file. A missing default config file is not an
// error, VAPID details are then taken from ZWP_VAPID_* variables.
func loadConfig(cmd *cobra.Command) (*webpush.Config, error) {
	configFile := expandHome(viper.GetString("config_file"))
	config, err := webpush.LoadConfigFile(configFile)
	if err == nil {
		slog.Debug("Loaded config file", "path", configFile)
		return config, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config-file") {
		return nil, err
	}

	config = new(webpush.Config)
	if subject := viper.GetString("vapid_subject"); subject != "" {
		config.VAPID = &webpush.VAPIDConfig{
			Details: vapid.Details{
				Subject:    subject,
				PublicKey:  viper.GetString("vapid_public_key"),
				PrivateKey: viper.GetString("vapid_private_key"),
			},
		}
	}
	config.GCMAPIKey = viper.GetString("gcm_api_key")
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Expand ~ to $HOME
func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = strings.Replace(path, "~", home, 1)
	}
	return path
}
