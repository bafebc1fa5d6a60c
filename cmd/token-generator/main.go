// Command token-generator issues bearer tokens for the studio API. It signs
// with the same configuration the server loads, so STUDIO_AUTH_JWT_SECRET
// (or auth.jwt_secret in config.yaml) must be set.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "token-generator: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("token-generator", pflag.ContinueOnError)
	subject := flags.StringP("subject", "s", "operator", "subject the token is issued to")
	lifetime := flags.DurationP("lifetime", "l", 0, "token lifetime (defaults to auth.token_lifetime)")
	configFile := flags.StringP("config", "c", "", "path to a config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !cfg.Auth.Enabled() {
		return fmt.Errorf("auth is disabled: set STUDIO_AUTH_JWT_SECRET")
	}
	if *lifetime > 0 {
		cfg.Auth.TokenLifetime = *lifetime
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}
	token, err := tokens.GenerateToken(context.Background(), *subject)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Subject: %s\nExpires: %s\nToken: %s\n",
		*subject, time.Now().Add(cfg.Auth.TokenLifetime).UTC().Format(time.RFC3339), token)
	return nil
}
