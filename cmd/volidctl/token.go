package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "volid/internal/jwt_token"
	"volid/pkg/requestcontext"
)

const (
	jwtIssuer   = "volid"
	jwtAudience = "volid-api"
)

type tokenOptions struct {
	userID string
	email  string
	admin  bool
	ttl    time.Duration
}

// tokenCmd mints access tokens signed with the service key. Real tokens come
// from the identity provider; this is for local development.
func tokenCmd(app *appContext) *cobra.Command {
	opts := tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg.Environment == "production" {
				return fmt.Errorf("refusing to mint tokens in production")
			}
			role := requestcontext.RoleUser
			if opts.admin {
				role = requestcontext.RoleAdmin
			}
			svc := jwttoken.NewJWTService(app.cfg.JWTSigningKey, jwtIssuer, jwtAudience)
			tok, err := svc.GenerateAccessToken(opts.userID, opts.email, string(role), opts.ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "", "subject user id")
	cmd.Flags().StringVar(&opts.email, "email", "", "email claim")
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
