package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/auth"
)

type tokenReport struct {
	State     string       `json:"state"`
	Type      string       `json:"type,omitempty"`
	Claims    *auth.Claims `json:"claims,omitempty"`
	ExpiresAt string       `json:"expires_at,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func inspectTokenCmd(g *globals) *cobra.Command {
	var want string
	cmd := &cobra.Command{
		Use:   "inspect-token <token>",
		Short: "Verify a token with the configured secret and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("missing secret: set ENTERPRISE_AUTH_SECRET")
			}
			tokens, err := auth.NewTokenService(cfg.Auth.Secret,
				auth.WithIssuer(cfg.Auth.Issuer),
				auth.WithAccessTTL(cfg.Auth.AccessTTL),
				auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
			)
			if err != nil {
				return err
			}

			var claims *auth.Claims
			switch want {
			case "":
				claims, err = tokens.Verify(args[0])
			case string(auth.TokenAccess), string(auth.TokenRefresh):
				claims, err = tokens.VerifyAs(args[0], auth.TokenType(want))
			default:
				return fmt.Errorf("unknown token type %q", want)
			}

			state := auth.StateOf(err)
			report := tokenReport{State: state.String(), Claims: claims}
			if err != nil {
				report.Error = err.Error()
			}
			if claims != nil {
				report.Type = string(claims.Type)
				if claims.ExpiresAt != nil {
					report.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if state != auth.StateValid {
				return errors.New("token is not valid")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&want, "type", "", "Expected token type (access or refresh)")
	return cmd
}
