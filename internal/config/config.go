package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfmyers9/spinpost/internal/apperr"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Spotify  SpotifyConfig
	Bluesky  BlueskyConfig
	Mastodon MastodonConfig

	// SQLite database holding the listening history
	// Default: spotify_listening.sqlite3
	SQLitePath string

	// How far back to ask Spotify for plays, in hours
	LookbackHours int

	// Number of tracks in a post
	MaxTopTracks int
}

// SpotifyConfig holds Spotify application credentials
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenCache   string

	// Endpoint overrides, empty for the public Spotify services
	APIURL      string
	AccountsURL string
}

// BlueskyConfig holds Bluesky credentials
type BlueskyConfig struct {
	Handle   string
	Password string
	Service  string
}

// MastodonConfig holds Mastodon credentials
type MastodonConfig struct {
	Instance    string
	AccessToken string
}

// envNames maps config keys to the environment variables that set them
var envNames = map[string]string{
	"spotify.client_id":     "SPOTIFY_CLIENT_ID",
	"spotify.client_secret": "SPOTIFY_CLIENT_SECRET",
	"spotify.redirect_uri":  "SPOTIFY_REDIRECT_URI",
	"spotify.token_cache":   "SPOTIFY_TOKEN_CACHE",
	"spotify.api_url":       "SPOTIFY_API_URL",
	"spotify.accounts_url":  "SPOTIFY_ACCOUNTS_URL",
	"bluesky.handle":        "BSKY_HANDLE",
	"bluesky.password":      "BSKY_PASSWORD",
	"bluesky.service":       "BSKY_SERVICE",
	"mastodon.instance":     "MASTODON_INSTANCE",
	"mastodon.access_token": "MASTODON_ACCESS_TOKEN",
	"sqlite_path":           "SQLITE_PATH",
	"ingest_lookback_hours": "INGEST_LOOKBACK_HOURS",
	"max_top_tracks":        "MAX_TOP_TRACKS",
}

// Load reads configuration from config.yaml, a .env file in the working
// directory and the environment, in increasing order of precedence
func Load() (*Config, error) {
	return load([]string{getConfigDir(), "."}, ".env")
}

func load(configPaths []string, envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.SetDefault("spotify.token_cache", ".spotify_token_cache")
	v.SetDefault("bluesky.service", "https://bsky.social")
	v.SetDefault("sqlite_path", "spotify_listening.sqlite3")
	v.SetDefault("ingest_lookback_hours", 26)
	v.SetDefault("max_top_tracks", 3)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return nil, err
		}
	}

	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
			RedirectURI:  v.GetString("spotify.redirect_uri"),
			TokenCache:   v.GetString("spotify.token_cache"),
			APIURL:       v.GetString("spotify.api_url"),
			AccountsURL:  v.GetString("spotify.accounts_url"),
		},
		Bluesky: BlueskyConfig{
			Handle:   v.GetString("bluesky.handle"),
			Password: v.GetString("bluesky.password"),
			Service:  v.GetString("bluesky.service"),
		},
		Mastodon: MastodonConfig{
			Instance:    v.GetString("mastodon.instance"),
			AccessToken: v.GetString("mastodon.access_token"),
		},
		SQLitePath:    v.GetString("sqlite_path"),
		LookbackHours: v.GetInt("ingest_lookback_hours"),
		MaxTopTracks:  v.GetInt("max_top_tracks"),
	}

	return cfg, nil
}

// readDotEnv parses a .env file into a nested config map without touching
// the process environment. A missing file yields an empty map.
func readDotEnv(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	out := make(map[string]any)
	for key, env := range envNames {
		val, ok := vars[env]
		if !ok {
			continue
		}
		setNested(out, strings.Split(key, "."), val)
	}
	return out, nil
}

func setNested(m map[string]any, path []string, val string) {
	if len(path) == 1 {
		m[path[0]] = val
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[path[0]] = child
	}
	setNested(child, path[1:], val)
}

// RequireSpotify returns a ConfigError naming any missing Spotify settings
func (c *Config) RequireSpotify() error {
	var missing []string
	if c.Spotify.ClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if c.Spotify.RedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return &apperr.ConfigError{Service: "spotify", Missing: missing}
	}
	return nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "spinpost")

	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes the Spotify application credentials to config.yaml so the
// auth command only has to ask for them once
func (c *Config) Save() error {
	return c.saveTo(getConfigDir())
}

func (c *Config) saveTo(dir string) error {
	v := viper.New()
	configFile := filepath.Join(dir, "config.yaml")

	// Keep whatever else is already in the file
	v.SetConfigFile(configFile)
	_ = v.ReadInConfig()

	v.Set("spotify.client_id", c.Spotify.ClientID)
	v.Set("spotify.client_secret", c.Spotify.ClientSecret)
	v.Set("spotify.redirect_uri", c.Spotify.RedirectURI)

	return v.WriteConfigAs(configFile)
}
