package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gematik/zero-webpush/pkg/ece"
	"github.com/gematik/zero-webpush/pkg/util"
	"github.com/gematik/zero-webpush/pkg/webpush"
	"github.com/spf13/cobra"
)

var sendFlags struct {
	subscription string
	topic        string
	urgency      string
	encoding     string
}

func init() {
	rootCmd.AddCommand(sendCmd)

	flags := sendCmd.Flags()
	flags.StringVarP(&sendFlags.subscription, "subscription", "s", "", "subscription JSON file as returned by PushSubscription.toJSON()")
	flags.Duration("ttl", webpush.DefaultTTL, "time the push service keeps the message")
	flags.StringVar(&sendFlags.topic, "topic", "", "replace pending messages with the same topic")
	flags.StringVar(&sendFlags.urgency, "urgency", "", "very-low, low, normal or high")
	flags.StringVar(&sendFlags.encoding, "encoding", "", "content encoding: aesgcm or aes128gcm")
	sendCmd.MarkFlagRequired("subscription")
}

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a push message, without message a tickle is sent",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := webpush.NewClientFromConfig(config)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(sendFlags.subscription)
		if err != nil {
			return fmt.Errorf("reading subscription: %w", err)
		}
		sub, err := util.DecodeStruct[webpush.Subscription](data)
		if err != nil {
			return fmt.Errorf("%w: %w", webpush.ErrInvalidSubscription, err)
		}

		opts := &webpush.SendOptions{
			Topic:           sendFlags.topic,
			Urgency:         webpush.Urgency(sendFlags.urgency),
			ContentEncoding: ece.Encoding(sendFlags.encoding),
		}
		if cmd.Flags().Changed("ttl") {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			opts.TTL = &ttl
		}

		var payload []byte
		if len(args) == 1 {
			payload = []byte(args[0])
		}

		resp, err := client.Send(cmd.Context(), sub, payload, opts)
		if err != nil {
			var pushErr *webpush.PushError
			if errors.As(err, &pushErr) && pushErr.Expired() {
				slog.Warn("Subscription expired, remove it", "endpoint", sub.Endpoint)
			}
			return err
		}
		return printJSON(resp)
	},
}
