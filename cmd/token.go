package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"support-agent/internal/auth"
)

var (
	tokenAgent    string
	tokenBusiness string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an agent token for local testing",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenAgent, "agent", "", "agent id")
	tokenCmd.Flags().StringVar(&tokenBusiness, "business", "", "business id")
	_ = tokenCmd.MarkFlagRequired("agent")
	_ = tokenCmd.MarkFlagRequired("business")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	token, err := signer.Sign(tokenAgent, tokenBusiness)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
