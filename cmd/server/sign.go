package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/verification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/config"
)

// signCmd computes the signatures the gateway would send, for local testing.
func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute payment or webhook signatures with the configured secrets",
	}

	var orderID, paymentID string
	payment := &cobra.Command{
		Use:   "payment",
		Short: "Sign an order id and payment id pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			sig := verification.PaymentSignature([]byte(cfg.Razorpay.KeySecret.Reveal()), orderID, paymentID)
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	payment.Flags().StringVar(&orderID, "order", "", "gateway order id")
	payment.Flags().StringVar(&paymentID, "payment", "", "gateway payment id")
	_ = payment.MarkFlagRequired("order")
	_ = payment.MarkFlagRequired("payment")

	var file string
	webhook := &cobra.Command{
		Use:   "webhook",
		Short: "Sign a webhook body read from a file, or stdin with -",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var body []byte
			if file == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			sig := verification.WebhookSignature([]byte(cfg.Razorpay.WebhookSecret.Reveal()), body)
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	webhook.Flags().StringVarP(&file, "file", "f", "-", "file containing the exact webhook body")

	cmd.AddCommand(payment, webhook)
	return cmd
}
