package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, serverURL string, token *Token) *Client {
	t.Helper()

	client, err := NewClient(Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://127.0.0.1:8888/callback",
		Token:        token,
		BaseURL:      serverURL + "/v1",
		AccountsURL:  serverURL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing client id", cfg: Config{ClientSecret: "s"}},
		{name: "missing client secret", cfg: Config{ClientID: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestAuthService_AuthURL tests the authorization URL.
func TestAuthService_AuthURL(t *testing.T) {
	client := newTestClient(t, "https://accounts.example.com", nil)

	raw := client.Auth().AuthURL("xyz")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid auth url %q: %v", raw, err)
	}

	if u.Path != "/authorize" {
		t.Errorf("expected /authorize path, got %s", u.Path)
	}

	q := u.Query()
	checks := map[string]string{
		"client_id":     "test-client-id",
		"response_type": "code",
		"redirect_uri":  "http://127.0.0.1:8888/callback",
		"state":         "xyz",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("expected %s=%s, got %s", k, want, got)
		}
	}
	if !strings.Contains(q.Get("scope"), "user-read-recently-played") {
		t.Errorf("expected recently-played scope, got %q", q.Get("scope"))
	}
}

// TestAuthService_Exchange tests the code-for-token exchange.
func TestAuthService_Exchange(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		response    string
		wantErr     bool
		wantUnauth  bool
		wantRefresh string
	}{
		{
			name:        "success",
			statusCode:  http.StatusOK,
			response:    `{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-1","scope":"user-read-recently-played"}`,
			wantRefresh: "rt-1",
		},
		{
			name:       "invalid grant",
			statusCode: http.StatusBadRequest,
			response:   `{"error":"invalid_grant","error_description":"Invalid authorization code"}`,
			wantErr:    true,
			wantUnauth: true,
		},
		{
			name:       "server error",
			statusCode: http.StatusInternalServerError,
			response:   `oops`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST request, got %s", r.Method)
				}
				if r.URL.Path != "/api/token" {
					t.Errorf("expected /api/token, got %s", r.URL.Path)
				}

				user, pass, ok := r.BasicAuth()
				if !ok || user != "test-client-id" || pass != "test-client-secret" {
					t.Errorf("expected client basic auth, got %q/%q", user, pass)
				}

				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if gt := r.FormValue("grant_type"); gt != "authorization_code" {
					t.Errorf("expected grant_type authorization_code, got %s", gt)
				}
				if code := r.FormValue("code"); code != "the-code" {
					t.Errorf("expected code the-code, got %s", code)
				}

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, nil)
			now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
			client.now = func() time.Time { return now }

			token, err := client.Auth().Exchange(context.Background(), "the-code")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var spErr *Error
				if !errors.As(err, &spErr) {
					t.Fatalf("expected *Error, got %T", err)
				}
				if spErr.Unauthorized() != tt.wantUnauth {
					t.Errorf("Unauthorized() = %v, want %v", spErr.Unauthorized(), tt.wantUnauth)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.RefreshToken != tt.wantRefresh {
				t.Errorf("expected refresh token %s, got %s", tt.wantRefresh, token.RefreshToken)
			}
			if !token.Expiry.Equal(now.Add(time.Hour)) {
				t.Errorf("expected expiry one hour out, got %v", token.Expiry)
			}
			if client.Token() != token {
				t.Error("expected exchanged token to be installed on the client")
			}
		})
	}
}

func TestAuthService_RefreshKeepsRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if gt := r.FormValue("grant_type"); gt != "refresh_token" {
			t.Errorf("expected grant_type refresh_token, got %s", gt)
		}
		if rt := r.FormValue("refresh_token"); rt != "rt-old" {
			t.Errorf("expected refresh_token rt-old, got %s", rt)
		}
		_, _ = w.Write([]byte(`{"access_token":"at-new","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	token, err := client.Auth().Refresh(context.Background(), "rt-old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "at-new" {
		t.Errorf("expected at-new, got %s", token.AccessToken)
	}
	if token.RefreshToken != "rt-old" {
		t.Errorf("expected refresh token to be carried over, got %q", token.RefreshToken)
	}
}

func TestCodeFromRedirect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare code", input: "  abc123\n", want: "abc123"},
		{name: "redirect url", input: "http://127.0.0.1:8888/callback?code=abc123&state=x", want: "abc123"},
		{name: "denied", input: "http://127.0.0.1:8888/callback?error=access_denied", wantErr: true},
		{name: "url without code", input: "http://127.0.0.1:8888/callback", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CodeFromRedirect(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got code %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTokenValid(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token *Token
		want  bool
	}{
		{name: "nil", token: nil, want: false},
		{name: "empty access token", token: &Token{RefreshToken: "rt"}, want: false},
		{name: "no expiry", token: &Token{AccessToken: "at"}, want: true},
		{name: "fresh", token: &Token{AccessToken: "at", Expiry: now.Add(time.Hour)}, want: true},
		{name: "inside leeway", token: &Token{AccessToken: "at", Expiry: now.Add(10 * time.Second)}, want: false},
		{name: "expired", token: &Token{AccessToken: "at", Expiry: now.Add(-time.Minute)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".spotify_token_cache")

	if _, err := LoadToken(path); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	want := &Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC),
	}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken failed: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func ExampleAuthService_AuthURL() {
	client, err := NewClient(Config{
		ClientID:     "your-client-id",
		ClientSecret: "your-client-secret",
		RedirectURI:  "http://127.0.0.1:8888/callback",
	})
	if err != nil {
		return
	}

	fmt.Println(strings.HasPrefix(client.Auth().AuthURL("state"), DefaultAccountsURL+"/authorize?"))
	// Output: true
}
