package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/p256"
	"github.com/spf13/cobra"
)

var (
	encryptP256dh   string
	encryptAuth     string
	encryptEncoding string
	envelopeFormat  string

	decryptPrivateKey string
	decryptAuth       string
)

func init() {
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)

	encryptCmd.Flags().StringVar(&encryptP256dh, "p256dh", "", "subscriber public key (base64url)")
	encryptCmd.Flags().StringVar(&encryptAuth, "auth", "", "subscriber auth secret (base64url)")
	encryptCmd.Flags().StringVar(&encryptEncoding, "encoding", string(ece.AESGCM), "content encoding: aesgcm or aes128gcm")
	encryptCmd.Flags().StringVar(&envelopeFormat, "format", "json", "output format: json, cbor or headers")
	encryptCmd.MarkFlagRequired("p256dh")
	encryptCmd.MarkFlagRequired("auth")

	decryptCmd.Flags().StringVar(&decryptPrivateKey, "private-key", "", "subscriber private key (base64url)")
	decryptCmd.Flags().StringVar(&decryptAuth, "auth", "", "subscriber auth secret (base64url)")
	decryptCmd.Flags().StringVar(&envelopeFormat, "format", "json", "input format: json or cbor")
	decryptCmd.MarkFlagRequired("private-key")
	decryptCmd.MarkFlagRequired("auth")
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [message]",
	Short: "Encrypt a message for a subscription, reads stdin without argument",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plaintext, err := readInput(args)
		if err != nil {
			return err
		}
		publicKey, err := p256.Decode(encryptP256dh)
		if err != nil {
			return fmt.Errorf("p256dh: %w", err)
		}
		authSecret, err := p256.Decode(encryptAuth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}

		env, err := ece.Encrypt(plaintext, publicKey, authSecret, ece.WithEncoding(ece.Encoding(encryptEncoding)))
		if err != nil {
			return err
		}

		switch envelopeFormat {
		case "json":
			return printJSON(env)
		case "cbor":
			data, err := env.CBOR()
			if err != nil {
				return err
			}
			fmt.Println(p256.Encode(data))
			return nil
		case "headers":
			fmt.Printf("Content-Encoding: %s\n", env.Encoding)
			if env.Encoding == ece.AESGCM {
				fmt.Printf("Encryption: %s\n", env.EncryptionHeader())
				fmt.Printf("Crypto-Key: %s\n", env.CryptoKeyDH())
			}
			fmt.Printf("\n%s\n", p256.Encode(env.Body()))
			return nil
		default:
			return fmt.Errorf("unsupported format %q", envelopeFormat)
		}
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [envelope]",
	Short: "Decrypt an envelope produced by encrypt, reads stdin without argument",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args)
		if err != nil {
			return err
		}

		var env *ece.Envelope
		switch envelopeFormat {
		case "json":
			env = new(ece.Envelope)
			if err := json.Unmarshal(input, env); err != nil {
				return fmt.Errorf("decoding envelope: %w", err)
			}
		case "cbor":
			data, err := p256.Decode(strings.TrimSpace(string(input)))
			if err != nil {
				return err
			}
			if env, err = ece.ParseCBOR(data); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported format %q", envelopeFormat)
		}

		rawKey, err := p256.Decode(decryptPrivateKey)
		if err != nil {
			return fmt.Errorf("private key: %w", err)
		}
		defer p256.Zero(rawKey)
		privateKey, err := p256.ParsePrivateKey(rawKey)
		if err != nil {
			return err
		}
		authSecret, err := p256.Decode(decryptAuth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}

		plaintext, err := ece.Decrypt(env, privateKey, authSecret)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(plaintext)
		return err
	},
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("no input")
	}
	return data, nil
}
