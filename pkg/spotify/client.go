package spotify

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Config holds client configuration.
type Config struct {
	ClientID     string       // Required: Spotify application client id
	ClientSecret string       // Required: Spotify application client secret
	RedirectURI  string       // Required for the authorization-code flow
	Token        *Token       // Optional: previously obtained token
	HTTPClient   *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL      string       // Optional: Web API base URL (used for testing)
	AccountsURL  string       // Optional: accounts service base URL (used for testing)
	Logger       Logger       // Optional: Logger interface for debug logging

	// OnTokenRefresh is called after the access token has been refreshed,
	// so callers can persist it.
	OnTokenRefresh func(*Token)
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Spotify Web API operations.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
	baseURL      string
	accountsURL  string
	logger       Logger
	onRefresh    func(*Token)
	now          func() time.Time

	mu    sync.Mutex
	token *Token

	auth      *AuthService
	player    *PlayerService
	playlists *PlaylistService
}

const (
	// DefaultBaseURL is the default Spotify Web API endpoint.
	DefaultBaseURL = "https://api.spotify.com/v1"

	// DefaultAccountsURL is the default Spotify accounts service endpoint.
	DefaultAccountsURL = "https://accounts.spotify.com"
)

// NewClient creates a new Spotify API client.
//
// Returns an error if required configuration (ClientID, ClientSecret) is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("spotify: ClientID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify: ClientSecret is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	accountsURL := cfg.AccountsURL
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}

	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		httpClient:   httpClient,
		baseURL:      baseURL,
		accountsURL:  accountsURL,
		logger:       cfg.Logger,
		onRefresh:    cfg.OnTokenRefresh,
		now:          time.Now,
		token:        cfg.Token,
	}

	c.auth = &AuthService{client: c}
	c.player = &PlayerService{client: c}
	c.playlists = &PlaylistService{client: c}

	return c, nil
}

// Auth returns the OAuth service.
func (c *Client) Auth() *AuthService {
	return c.auth
}

// Player returns the player (listening history) service.
func (c *Client) Player() *PlayerService {
	return c.player
}

// Playlists returns the playlist service.
func (c *Client) Playlists() *PlaylistService {
	return c.playlists
}

// SetToken replaces the token used for API requests.
func (c *Client) SetToken(t *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = t
}

// Token returns the current token, or nil when none is set.
func (c *Client) Token() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
