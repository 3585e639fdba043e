package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"turbo-delete/web/backend/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		user   string
		roles  []string
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ValidateRoles(roles); err != nil {
				return err
			}
			if !cmd.Flags().Changed("expiry") {
				expiry = a.cfg.Server.JWTExpiry
			}

			m, err := auth.NewJWTManager(a.cfg.Server.JWTSecret, expiry)
			if err != nil {
				return fmt.Errorf("%w: set server.jwt_secret or TURBO_DELETE_JWT_SECRET", err)
			}
			tok, expiresAt, err := m.GenerateToken(user, roles)
			if err != nil {
				return err
			}

			a.logger.Debug().Str("user", user).Strs("roles", roles).Time("expires_at", expiresAt).Msg("token issued")
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "admin", "subject of the token")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleOperator}, "roles to grant (admin, operator, viewer)")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime, 0 for none (default: server.jwt_expiry)")
	return cmd
}
