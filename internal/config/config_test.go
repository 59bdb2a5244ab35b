package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jfmyers9/spinpost/internal/apperr"
)

// clearEnv blanks every variable Load reads; viper treats empty as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envNames {
		t.Setenv(env, "")
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := load([]string{dir}, filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.SQLitePath != "spotify_listening.sqlite3" {
		t.Errorf("unexpected sqlite path %q", cfg.SQLitePath)
	}
	if cfg.Spotify.TokenCache != ".spotify_token_cache" {
		t.Errorf("unexpected token cache %q", cfg.Spotify.TokenCache)
	}
	if cfg.LookbackHours != 26 || cfg.MaxTopTracks != 3 {
		t.Errorf("unexpected numeric defaults: lookback=%d top=%d", cfg.LookbackHours, cfg.MaxTopTracks)
	}
	if cfg.Bluesky.Service != "https://bsky.social" {
		t.Errorf("unexpected bluesky service %q", cfg.Bluesky.Service)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "config.yaml"), `
spotify:
  client_id: from-yaml
  client_secret: yaml-secret
max_top_tracks: 5
`)
	writeFile(t, filepath.Join(dir, ".env"), `
SPOTIFY_CLIENT_ID=from-dotenv
BSKY_HANDLE=me.bsky.social
INGEST_LOOKBACK_HOURS=48
UNRELATED=ignored
`)
	t.Setenv("BSKY_HANDLE", "from-env.bsky.social")
	t.Setenv("MASTODON_INSTANCE", "https://mastodon.social")
	t.Setenv("SPOTIFY_API_URL", "http://127.0.0.1:9999/v1")

	cfg, err := load([]string{dir}, filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"dotenv overrides yaml", cfg.Spotify.ClientID, "from-dotenv"},
		{"yaml used when nothing else set", cfg.Spotify.ClientSecret, "yaml-secret"},
		{"environment overrides dotenv", cfg.Bluesky.Handle, "from-env.bsky.social"},
		{"environment only", cfg.Mastodon.Instance, "https://mastodon.social"},
		{"endpoint override", cfg.Spotify.APIURL, "http://127.0.0.1:9999/v1"},
		{"dotenv numeric", cfg.LookbackHours, 48},
		{"yaml numeric", cfg.MaxTopTracks, 5},
	}
	for _, tt := range tests {
		if !reflect.DeepEqual(tt.got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	// The .env file must not leak into the process environment
	if v := os.Getenv("UNRELATED"); v != "" {
		t.Errorf("dotenv values leaked into environment: UNRELATED=%q", v)
	}
}

func TestRequireSpotify(t *testing.T) {
	cfg := &Config{Spotify: SpotifyConfig{ClientID: "id"}}

	err := cfg.RequireSpotify()
	if !apperr.IsConfig(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	ce := err.(*apperr.ConfigError)
	want := []string{"SPOTIFY_CLIENT_SECRET", "SPOTIFY_REDIRECT_URI"}
	if !reflect.DeepEqual(ce.Missing, want) {
		t.Errorf("missing = %v, want %v", ce.Missing, want)
	}

	cfg.Spotify.ClientSecret = "secret"
	cfg.Spotify.RedirectURI = "http://127.0.0.1:8888/callback"
	if err := cfg.RequireSpotify(); err != nil {
		t.Errorf("expected complete config, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "max_top_tracks: 4\n")

	cfg := &Config{Spotify: SpotifyConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:8888/callback",
	}}
	if err := cfg.saveTo(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := load([]string{dir}, "")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Spotify != (SpotifyConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://127.0.0.1:8888/callback", TokenCache: ".spotify_token_cache"}) {
		t.Errorf("unexpected spotify config after save: %+v", loaded.Spotify)
	}
	if loaded.MaxTopTracks != 4 {
		t.Errorf("existing settings should survive save, got max_top_tracks=%d", loaded.MaxTopTracks)
	}
}
