/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfmyers9/spinpost/internal/config"
	"github.com/jfmyers9/spinpost/internal/runner"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	logFile  string
	logLevel string
	dbPath   string

	postBluesky  bool
	postMastodon bool
	ingestOnly   bool
	dryRun       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spinpost",
	Short: "Post your weekly Spotify listening summary to Bluesky and Mastodon",
	Long: `spinpost ingests your Spotify recently-played history into a local SQLite
database and posts a summary of the last 7 days (top tracks, top album and
top playlist) to Bluesky and/or Mastodon.

Run it on a schedule (see 'spinpost install'); Spotify only reports the
last 50 plays, so ingest at least daily for complete stats.

With no platform flags, every configured platform is posted to.

Exit codes:
  0 - Ingestion completed and at least one platform was posted to
  1 - Spotify authentication failed, no platform could be used, or every post failed`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
	RunE:         runPost,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides SQLITE_PATH)")

	rootCmd.Flags().BoolVar(&postBluesky, "bluesky", false, "Post to Bluesky")
	rootCmd.Flags().BoolVar(&postMastodon, "mastodon", false, "Post to Mastodon")
	rootCmd.Flags().BoolVar(&ingestOnly, "ingest-only", false, "Ingest listening history into SQLite but do not post")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the posts instead of publishing them")
}

func runPost(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logFile, logLevel)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if dbPath != "" {
		cfg.SQLitePath = dbPath
	}
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(app.ingester, app.stats, app.posters(cfg), cmd.OutOrStdout(), logger)
	report, err := r.Run(ctx, runner.Options{
		IngestOnly: ingestOnly,
		Platforms:  requestedPlatforms(),
		DryRun:     dryRun,
		TopN:       cfg.MaxTopTracks,
	})

	printReport(cmd, report, dryRun)
	return err
}

// requestedPlatforms turns the platform flags into poster names
func requestedPlatforms() []string {
	var names []string
	if postBluesky {
		names = append(names, "bluesky")
	}
	if postMastodon {
		names = append(names, "mastodon")
	}
	return names
}

func printReport(cmd *cobra.Command, report runner.Report, dryRun bool) {
	out := cmd.OutOrStdout()

	if report.IngestErr == nil {
		_, _ = fmt.Fprintf(out, "✓ Ingested %d new plays\n", report.Inserted)
	}

	for _, o := range report.Outcomes {
		switch {
		case o.Err != nil:
			_, _ = fmt.Fprintf(out, "✗ %s: %v\n", o.Poster, o.Err)
		case dryRun:
			_, _ = fmt.Fprintf(out, "✓ Rendered %s post (dry run)\n", o.Poster)
		case o.Result.URL != "":
			_, _ = fmt.Fprintf(out, "✓ Posted to %s: %s\n", o.Poster, o.Result.URL)
		default:
			_, _ = fmt.Fprintf(out, "✓ Posted to %s\n", o.Poster)
		}
	}
}
