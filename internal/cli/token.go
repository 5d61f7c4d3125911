package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Secret string
	TTL    time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user",
		Long: `Mint a signed bearer token for the given user id.

The token is signed locally with the server's SECRET, no request is made.
The backend accepts it as long as both sides share the same secret.

Example:
  fbctl token 1 --secret change-me --ttl 720h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mintToken(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", "", "signing secret shared with the server (required)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 720*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func mintToken(opts *TokenOptions, rawID string, cmd *cobra.Command) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", rawID, err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(id, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(opts.Secret))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
