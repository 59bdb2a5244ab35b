package poster

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jfmyers9/spinpost/internal/content"
	"github.com/jfmyers9/spinpost/internal/stats"
	"github.com/rs/zerolog"
)

// MastodonConfig holds Mastodon credentials
type MastodonConfig struct {
	Instance    string // e.g. https://mastodon.social
	AccessToken string
	HTTPClient  *http.Client
}

// Mastodon posts plain text statuses; the server linkifies bare URLs
type Mastodon struct {
	cfg        MastodonConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewMastodon creates a Mastodon poster
func NewMastodon(cfg MastodonConfig, logger zerolog.Logger) *Mastodon {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Mastodon{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "mastodon").Logger(),
	}
}

func (m *Mastodon) Name() string { return "mastodon" }

func (m *Mastodon) IsConfigured() bool { return len(m.Missing()) == 0 }

// Missing lists the unset environment variables
func (m *Mastodon) Missing() []string {
	var missing []string
	if m.cfg.Instance == "" {
		missing = append(missing, "MASTODON_INSTANCE")
	}
	if m.cfg.AccessToken == "" {
		missing = append(missing, "MASTODON_ACCESS_TOKEN")
	}
	return missing
}

func (m *Mastodon) BuildContent(s stats.Summary) content.Post {
	return content.PlainText(s)
}

type status struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Post creates a public status
func (m *Mastodon) Post(ctx context.Context, p content.Post) (Result, error) {
	form := url.Values{}
	form.Set("status", p.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := send(m.httpClient, req, m.Name())
	if err != nil {
		return Result{}, err
	}

	var st status
	if err := decode(body, &st, m.Name()); err != nil {
		return Result{}, err
	}

	m.logger.Debug().Str("id", st.ID).Msg("Created status")
	return Result{ID: st.ID, URL: st.URL}, nil
}

// endpoint accepts instances given with or without a scheme
func (m *Mastodon) endpoint() string {
	base := strings.TrimRight(m.cfg.Instance, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + "/api/v1/statuses"
}
