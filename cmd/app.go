package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jfmyers9/spinpost/internal/config"
	"github.com/jfmyers9/spinpost/internal/ingest"
	"github.com/jfmyers9/spinpost/internal/poster"
	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/jfmyers9/spinpost/internal/store"
	"github.com/jfmyers9/spinpost/pkg/spotify"
	"github.com/rs/zerolog"
)

// app holds the components shared by the commands that read listening history
type app struct {
	store    *store.Store
	client   *spotify.Client
	ingester *ingest.Ingester
	stats    *stats.Aggregator
	logger   zerolog.Logger
}

// newApp opens the database and builds the Spotify client from the cached
// token. A missing token is not an error here; ingestion will report it.
func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client, err := newSpotifyClient(cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	token, err := spotify.LoadToken(cfg.Spotify.TokenCache)
	switch {
	case errors.Is(err, spotify.ErrTokenNotFound):
		logger.Warn().Str("path", cfg.Spotify.TokenCache).Msg("No cached Spotify token, run 'spinpost auth'")
	case err != nil:
		logger.Warn().Err(err).Msg("Ignoring unreadable Spotify token cache")
	default:
		client.SetToken(token)
	}

	ing := ingest.New(
		ingest.NewSpotifySource(client),
		st,
		time.Duration(cfg.LookbackHours)*time.Hour,
		logger,
	)

	agg := stats.New(st, logger,
		stats.WithAlbumLookup(st),
		stats.WithPlaylistResolver(ing),
	)

	return &app{
		store:    st,
		client:   client,
		ingester: ing,
		stats:    agg,
		logger:   logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// posters returns every supported platform, configured or not
func (a *app) posters(cfg *config.Config) []poster.Poster {
	return []poster.Poster{
		poster.NewBluesky(poster.BlueskyConfig{
			Handle:   cfg.Bluesky.Handle,
			Password: cfg.Bluesky.Password,
			Service:  cfg.Bluesky.Service,
		}, a.logger),
		poster.NewMastodon(poster.MastodonConfig{
			Instance:    cfg.Mastodon.Instance,
			AccessToken: cfg.Mastodon.AccessToken,
		}, a.logger),
	}
}

// newSpotifyClient builds an SDK client that writes refreshed tokens back to
// the cache
func newSpotifyClient(cfg *config.Config, logger zerolog.Logger) (*spotify.Client, error) {
	cachePath := cfg.Spotify.TokenCache
	return spotify.NewClient(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
		BaseURL:      cfg.Spotify.APIURL,
		AccountsURL:  cfg.Spotify.AccountsURL,
		Logger:       sdkLogger{logger},
		OnTokenRefresh: func(t *spotify.Token) {
			if err := spotify.SaveToken(cachePath, t); err != nil {
				logger.Error().Err(err).Msg("Failed to save refreshed Spotify token")
			}
		},
	})
}

// sdkLogger adapts zerolog to the SDK's Debugf logger
type sdkLogger struct {
	l zerolog.Logger
}

func (s sdkLogger) Debugf(format string, args ...interface{}) {
	s.l.Debug().Msgf(format, args...)
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
