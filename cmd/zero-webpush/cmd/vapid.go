package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/gematik/zero-webpush/pkg/util"
	"github.com/gematik/zero-webpush/pkg/vapid"
	"github.com/spf13/cobra"
)

var (
	vapidWithJwk    bool
	tokenExpiration time.Duration
	tokenScheme     string
	tokenInspect    bool
)

func init() {
	vapidCmd.AddCommand(vapidGenerateCmd)
	vapidCmd.AddCommand(vapidTokenCmd)
	rootCmd.AddCommand(vapidCmd)

	vapidGenerateCmd.Flags().BoolVar(&vapidWithJwk, "jwk", false, "also print the public key as JWK")

	vapidTokenCmd.Flags().DurationVar(&tokenExpiration, "exp", vapid.DefaultTokenLifetime, "token lifetime")
	vapidTokenCmd.Flags().StringVar(&tokenScheme, "scheme", string(vapid.SchemeWebPush), "authorization scheme: WebPush, Bearer or vapid")
	vapidTokenCmd.Flags().BoolVar(&tokenInspect, "inspect", false, "print the decoded token")
}

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Manage VAPID keys and tokens",
}

var vapidGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new VAPID key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := vapid.GenerateKeys()
		if err != nil {
			return err
		}

		output := map[string]any{
			"public_key":  keys.PublicKey,
			"private_key": keys.PrivateKey,
		}
		if vapidWithJwk {
			raw, err := p256.Decode(keys.PublicKey)
			if err != nil {
				return err
			}
			pub, err := p256.ECDSAPublicKey(raw)
			if err != nil {
				return err
			}
			jwk, err := util.NewJwk(pub)
			if err != nil {
				return fmt.Errorf("converting to JWK: %w", err)
			}
			output["jwk"] = jwk
		}
		return printJSON(output)
	},
}

var vapidTokenCmd = &cobra.Command{
	Use:   "token <endpoint>",
	Short: "Sign a VAPID token for a push service endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if config.VAPID == nil {
			return errors.New("vapid is not configured, set it in the config file or ZWP_VAPID_* variables")
		}
		scheme := vapid.Scheme(tokenScheme)
		if !scheme.Valid() {
			return fmt.Errorf("unsupported authorization scheme %q", tokenScheme)
		}

		signer, err := vapid.NewSigner(config.VAPID.Details)
		if err != nil {
			return err
		}
		audience, err := vapid.Audience(args[0])
		if err != nil {
			return err
		}
		headers, err := signer.Sign(audience, time.Now().Add(tokenExpiration))
		if err != nil {
			return err
		}

		fmt.Printf("Authorization: %s\n", headers.Authorization(scheme))
		if scheme != vapid.SchemeVAPID {
			fmt.Printf("Crypto-Key: %s\n", headers.CryptoKey)
		}
		if tokenInspect {
			fmt.Print(util.JWSToText(headers.Token))
		}
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
