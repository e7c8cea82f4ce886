package main

import (
	"encoding/json"
	"fmt"
	"io"

	"kyc-gate/internal/domain"

	"github.com/spf13/cobra"
)

type evaluateOptions struct {
	accountType    string
	kycStatus      string
	path           string
	onboardingPath string
	anonymous      bool
}

type evaluateResult struct {
	Path     string `json:"path"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
	Redirect string `json:"redirect,omitempty"`
}

var evalOpts evaluateOptions

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the gate for an identity offline",
	Long: `Run the KYC gate evaluator without contacting any identity provider.

Examples:
  kyc-gate evaluate --type retailer --kyc-status pending --path /catalog
  kyc-gate evaluate --anonymous --path /orders`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEvaluate(cmd.OutOrStdout(), evalOpts)
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evalOpts.accountType, "type", "", "account type (retailer, wholesaler, sales, ...)")
	f.StringVar(&evalOpts.kycStatus, "kyc-status", "", "KYC status reported for the account")
	f.StringVar(&evalOpts.path, "path", "/", "path being navigated to")
	f.StringVar(&evalOpts.onboardingPath, "onboarding-path", domain.DefaultOnboardingPath, "path exempt from gating")
	f.BoolVar(&evalOpts.anonymous, "anonymous", false, "evaluate with no resolved identity")
}

func runEvaluate(out io.Writer, opts evaluateOptions) error {
	policy := domain.NewPolicy(opts.onboardingPath)

	var identity *domain.Identity
	if !opts.anonymous {
		identity = &domain.Identity{
			ID:        "cli",
			Type:      opts.accountType,
			KYCStatus: domain.KYCStatus(opts.kycStatus),
		}
	}

	decision := policy.Evaluate(identity, opts.path)
	result := evaluateResult{
		Path:     domain.NormalizePath(opts.path),
		Approved: decision.Approved,
		Reason:   string(decision.Reason),
	}
	if !decision.Approved {
		result.Redirect = policy.OnboardingPath
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
