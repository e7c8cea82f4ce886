package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kyc-gate",
	Short: "KYC navigation gate for the storefront",
	Long: `kyc-gate keeps retailer, wholesaler and sales accounts on the onboarding
flow until their KYC status is approved.

Example usage:
  kyc-gate                      # Start the HTTP server (same as serve)
  kyc-gate healthcheck          # Check the local /health endpoint
  kyc-gate evaluate --type retailer --kyc-status pending --path /catalog`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, healthcheckCmd, evaluateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kyc-gate: %v\n", err)
		os.Exit(1)
	}
}
