package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/auth"
)

var knownRoles = []string{auth.RoleSuperAdmin, auth.RoleAdmin, auth.RoleTeacher, auth.RoleParent}

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		email   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: `Mint a bearer token for calling the API, signed with JWT_SECRET and
issued by JWT_ISSUER (default "roster").

Example:
  rosterctl token --sub ops-1 --role admin --ttl 15m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := firstEnv("JWT_SECRET")
			if len(secret) < 32 {
				return errors.New("JWT_SECRET must be set to at least 32 characters")
			}
			if !slices.Contains(knownRoles, role) {
				return fmt.Errorf("unknown role %q", role)
			}

			issuer := firstEnv("JWT_ISSUER")
			if issuer == "" {
				issuer = "roster"
			}

			token, err := auth.NewGuard(secret, issuer, ttl).Issue(auth.Principal{
				Subject: subject,
				Role:    role,
				Email:   email,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "token subject (user id)")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "role claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}
