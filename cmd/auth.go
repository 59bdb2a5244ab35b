package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jfmyers9/spinpost/internal/config"
	"github.com/jfmyers9/spinpost/pkg/spotify"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Spotify",
	Long: `Authenticate with Spotify so spinpost can read your listening history.

This command will guide you through the Spotify authorization flow:
1. You'll be prompted for your Spotify app's client id, secret and redirect URI
   (unless they are already set in the environment, .env or config file)
2. A browser URL will be provided for you to authorize the application
3. Paste the URL you were redirected to; the token is cached locally
   (SPOTIFY_TOKEN_CACHE) and refreshed automatically afterwards

You can create an app at: https://developer.spotify.com/dashboard`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Spotify Authentication")
	fmt.Println("======================")
	fmt.Println()

	prompted := false
	prompt := func(label string, value *string) error {
		if *value != "" {
			return nil
		}
		fmt.Printf("Enter your Spotify %s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", label, err)
		}
		*value = strings.TrimSpace(line)
		prompted = true
		return nil
	}

	if err := prompt("client id", &cfg.Spotify.ClientID); err != nil {
		return err
	}
	if err := prompt("client secret", &cfg.Spotify.ClientSecret); err != nil {
		return err
	}
	if err := prompt("redirect URI", &cfg.Spotify.RedirectURI); err != nil {
		return err
	}
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}

	if prompted {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("✓ Credentials saved to %s/config.yaml\n", config.GetConfigDir())
	}

	logger := setupLogger(logFile, logLevel)
	client, err := newSpotifyClient(cfg, logger)
	if err != nil {
		return err
	}

	state := uuid.NewString()

	fmt.Println("\nPlease visit this URL to authorize spinpost:")
	fmt.Printf("\n  %s\n\n", client.Auth().AuthURL(state))
	fmt.Print("Paste the URL you were redirected to: ")

	redirect, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read redirect URL: %w", err)
	}
	if got := stateFromRedirect(redirect); got != "" && got != state {
		return fmt.Errorf("state mismatch in redirect URL")
	}

	code, err := spotify.CodeFromRedirect(redirect)
	if err != nil {
		return err
	}

	fmt.Println("Exchanging authorization code...")
	token, err := client.Auth().Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := spotify.SaveToken(cfg.Spotify.TokenCache, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Printf("\n✓ Authentication successful!\n")
	fmt.Printf("✓ Token saved to %s\n", cfg.Spotify.TokenCache)
	fmt.Println("\nYou can now run 'spinpost --ingest-only' to start collecting plays.")

	return nil
}

// stateFromRedirect returns the state parameter of a pasted redirect URL, or
// "" when the input is a bare code
func stateFromRedirect(input string) string {
	_, query, ok := strings.Cut(strings.TrimSpace(input), "?")
	if !ok {
		return ""
	}
	for _, kv := range strings.Split(query, "&") {
		if v, found := strings.CutPrefix(kv, "state="); found {
			return v
		}
	}
	return ""
}
