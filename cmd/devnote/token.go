package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/devnote/internal/auth"
)

type tokenFlags struct {
	ttl time.Duration
}

func newTokenCmd(global *globalFlags) *cobra.Command {
	flags := &tokenFlags{}

	cmd := &cobra.Command{
		Use:   "token <owner>",
		Short: "Issue an API token for an owner",
		Long: `Sign a JWT for the configured secret (auth.jwt-secret or JWT_SECRET).
Send it as "Authorization: Bearer <token>" or in the "token" cookie.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("no JWT secret configured: set auth.jwt-secret or JWT_SECRET")
			}
			ttl := cfg.Auth.TokenTTL
			if flags.ttl > 0 {
				ttl = flags.ttl
			}
			tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := tokens.Generate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&flags.ttl, "ttl", 0, "token lifetime (default auth.token-ttl)")
	return cmd
}
