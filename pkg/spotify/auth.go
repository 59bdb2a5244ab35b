package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Scopes requested by the authorization flow.
var Scopes = []string{
	"user-read-recently-played",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// AuthService provides the OAuth authorization-code flow.
type AuthService struct {
	client *Client
}

// AuthURL returns the URL where the user authorizes the application.
//
// After approving, Spotify redirects to the configured redirect URI with a
// "code" query parameter that Exchange turns into a token.
func (a *AuthService) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", a.client.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", a.client.redirectURI)
	q.Set("scope", strings.Join(Scopes, " "))
	if state != "" {
		q.Set("state", state)
	}
	return strings.TrimRight(a.client.accountsURL, "/") + "/authorize?" + q.Encode()
}

// Exchange trades an authorization code for a token and installs it on the client.
func (a *AuthService) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, fmt.Errorf("spotify: authorization code is empty")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.client.redirectURI)

	var token Token
	if err := a.client.postForm(ctx, "/api/token", form, &token); err != nil {
		return nil, err
	}

	a.stamp(&token)
	a.client.SetToken(&token)
	return &token, nil
}

// Refresh obtains a new access token from a refresh token.
//
// Spotify may omit the refresh token in the response, in which case the old
// one stays valid and is carried over.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var token Token
	if err := a.client.postForm(ctx, "/api/token", form, &token); err != nil {
		return nil, err
	}

	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	a.stamp(&token)
	return &token, nil
}

func (a *AuthService) stamp(t *Token) {
	if t.ExpiresIn > 0 {
		t.Expiry = a.client.now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
}

// CodeFromRedirect extracts the authorization code from either a bare code or
// the full URL the browser was redirected to.
func CodeFromRedirect(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("spotify: empty redirect")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("spotify: invalid redirect URL: %w", err)
	}
	if e := u.Query().Get("error"); e != "" {
		return "", fmt.Errorf("spotify: authorization denied: %s", e)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("spotify: redirect URL has no code parameter")
	}
	return code, nil
}
