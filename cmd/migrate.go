package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"toot-importer/core/config"
	"toot-importer/core/identity"
	"toot-importer/core/logger"
	"toot-importer/core/mastodon"
	"toot-importer/core/media"
	"toot-importer/core/oplog"
	"toot-importer/core/storage"
	"toot-importer/feature/archive"
	"toot-importer/feature/migrate"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for migrate command
	editsEnabled bool
	debugLogging bool
)

// migrateCmd walks the archive and interactively posts its tweets.
var migrateCmd = &cobra.Command{
	Use:   "migrate ARCHIVE",
	Short: "Review archived tweets and post them to the destination server",
	Long: `Migrate walks the Twitter archive at ARCHIVE in chronological order and asks,
tweet by tweet, whether to post it. Decisions are recorded in the archive's
import_log.txt so a later run resumes exactly where this one stopped.

Examples:
  # Review tweets never posted before
  toot-importer migrate ~/twitter-archive

  # Also diff already-posted tweets against the live status and offer edits
  toot-importer migrate ~/twitter-archive --edits`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&editsEnabled, "edits", false, "Diff already-posted tweets against their live status and offer edits")
	migrateCmd.Flags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")

	RootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debugLogging {
		cfg.Log.Level = "debug"
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	arc := archive.Open(args[0])
	tweets, err := arc.LoadTweets()
	if err != nil {
		return fmt.Errorf("failed to load archive: %w", err)
	}
	archive.SortTweets(tweets)
	l.Info("archive loaded", zap.Int("tweets", len(tweets)))

	client := mastodon.NewClient(cfg.Server)
	authorization, err := mastodon.NewAuthenticator(arc.Dir(), client).Obtain(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	client.SetAuthorization(authorization)

	mapping, err := identity.Load(cfg.Identity)
	if err != nil {
		return err
	}

	resolver := media.NewResolver(cfg.Media, filepath.Join(arc.Dir(), "import-media"), arc.MediaDir(), client, l)
	if cfg.Storage.Enabled {
		mirror, err := newMirror(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		resolver.WithMirror(mirror, cfg.Storage.Bucket)
	}

	runner := &migrate.Runner{
		Log:      oplog.New(filepath.Join(arc.Dir(), "import_log.txt")),
		API:      client,
		Resolver: resolver,
		Prompter: migrate.NewConsolePrompter(os.Stdin, os.Stdout),
		Mapping:  mapping,
		Logger:   l,
		Options: migrate.Options{
			Edits:      editsEnabled,
			IgnoredIDs: cfg.Tweets.IgnoredIDs,
		},
	}
	return runner.Run(ctx, tweets)
}

// newMirror connects to the media mirror bucket, creating it on first use.
func newMirror(ctx context.Context, cfg storage.Config) (storage.Client, error) {
	client, err := storage.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return client, nil
}
