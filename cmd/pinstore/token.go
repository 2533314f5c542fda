package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abduss/pinstore/internal/auth"
	"github.com/abduss/pinstore/internal/config"
)

var (
	tokenAddress string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenAddress, "address", "", "sender address the token identifies")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to PINSTORE_TOKEN_TTL)")
	_ = tokenCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed bearer token for an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		token, expiresAt, err := auth.NewService(cfg.Auth).IssueToken(tokenAddress, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}
