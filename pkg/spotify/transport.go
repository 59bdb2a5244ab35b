package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// webAPIError is the error envelope of the Web API.
type webAPIError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// accountsError is the error envelope of the accounts service.
type accountsError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// get performs an authenticated GET against the Web API and decodes the JSON
// response into out.
//
// An expired token is refreshed before the request. A 401 response triggers a
// single refresh-and-resend when a refresh token is available; there is no
// other retry.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.validToken(ctx)
	if err != nil {
		return err
	}

	status, body, err := c.doGet(ctx, path, query, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && token.RefreshToken != "" {
		c.logDebugf("spotify: %s returned 401, refreshing token", path)
		token, err = c.refresh(ctx, token)
		if err != nil {
			return err
		}
		status, body, err = c.doGet(ctx, path, query, token)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return parseWebAPIError(status, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	c.logDebugf("spotify: GET %s succeeded", path)
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, token *Token) (int, []byte, error) {
	u := strings.TrimRight(c.baseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "spinpost/1.0")

	c.logDebugf("spotify: GET %s", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// postForm sends a client-authenticated form POST to the accounts service.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	u := strings.TrimRight(c.accountsURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "spinpost/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ae accountsError
		_ = json.Unmarshal(body, &ae)
		return &Error{
			StatusCode: resp.StatusCode,
			Code:       ae.Error,
			Message:    ae.ErrorDescription,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func parseWebAPIError(status int, body []byte) error {
	var we webAPIError
	if err := json.Unmarshal(body, &we); err != nil || we.Error.Message == "" {
		return &Error{StatusCode: status, Message: http.StatusText(status)}
	}
	return &Error{StatusCode: status, Message: we.Error.Message}
}

// validToken returns a usable token, refreshing it first when it has expired.
func (c *Client) validToken(ctx context.Context) (*Token, error) {
	token := c.Token()
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return nil, ErrNoToken
	}

	if token.Valid(c.now()) {
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, ErrNoToken
	}

	c.logDebugf("spotify: access token expired, refreshing")
	return c.refresh(ctx, token)
}

func (c *Client) refresh(ctx context.Context, old *Token) (*Token, error) {
	fresh, err := c.auth.Refresh(ctx, old.RefreshToken)
	if err != nil {
		return nil, err
	}

	c.SetToken(fresh)
	if c.onRefresh != nil {
		c.onRefresh(fresh)
	}
	return fresh, nil
}
