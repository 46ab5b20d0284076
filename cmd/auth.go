package cmd

import (
	"context"
	"fmt"

	"toot-importer/core/config"
	"toot-importer/core/logger"
	"toot-importer/core/mastodon"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// authCmd runs the authorization flow without migrating anything.
var authCmd = &cobra.Command{
	Use:   "auth ARCHIVE",
	Short: "Authorize against the destination server",
	Long: `Auth runs the OAuth flow for the configured server and stores the resulting
credential as import_auth.json inside ARCHIVE, where migrate will find it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuth,
}

func init() {
	RootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	client := mastodon.NewClient(cfg.Server)
	authorization, err := mastodon.NewAuthenticator(args[0], client).Obtain(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	client.SetAuthorization(authorization)

	account, err := client.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}
	l.Info("authorized", zap.String("account_id", account.ID), zap.String("host", client.Host()))
	return nil
}
