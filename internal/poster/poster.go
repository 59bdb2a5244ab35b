// Package poster publishes rendered summaries to social platforms.
package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jfmyers9/spinpost/internal/apperr"
	"github.com/jfmyers9/spinpost/internal/content"
	"github.com/jfmyers9/spinpost/internal/stats"
)

// Poster is a platform adapter that renders and publishes a summary
type Poster interface {
	// Name is the lowercase platform name, also used as its CLI flag
	Name() string

	// IsConfigured reports whether credentials are present. It never makes
	// network calls.
	IsConfigured() bool

	// BuildContent renders the summary for this platform
	BuildContent(s stats.Summary) content.Post

	// Post publishes content. Failures are *apperr.AuthError or
	// *apperr.TransportError; there is no retry.
	Post(ctx context.Context, p content.Post) (Result, error)
}

// Result describes a published post
type Result struct {
	ID  string
	URL string
}

// missingReporter is implemented by posters that can name their missing settings
type missingReporter interface {
	Missing() []string
}

// Select picks the posters to run. With no requested names every configured
// poster is returned. Requested names must each match a configured poster.
func Select(all []Poster, requested []string) ([]Poster, error) {
	if len(requested) == 0 {
		var out []Poster
		for _, p := range all {
			if p.IsConfigured() {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, &apperr.ConfigError{Service: "posters", Msg: "no platforms configured"}
		}
		return out, nil
	}

	byName := make(map[string]Poster, len(all))
	for _, p := range all {
		byName[p.Name()] = p
	}

	var out []Poster
	seen := make(map[string]bool)
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		p, ok := byName[name]
		if !ok {
			return nil, &apperr.ConfigError{Service: name, Msg: "unknown platform"}
		}
		if !p.IsConfigured() {
			ce := &apperr.ConfigError{Service: name, Msg: "requested but not configured"}
			if mr, ok := p.(missingReporter); ok {
				ce.Missing = mr.Missing()
			}
			return nil, ce
		}
		out = append(out, p)
	}
	return out, nil
}

// send performs a request and returns the response body, mapping
// failures onto the error taxonomy for service
func send(client *http.Client, req *http.Request, service string) ([]byte, error) {
	req.Header.Set("User-Agent", "spinpost/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &apperr.TransportError{Service: service, Err: fmt.Errorf("http request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.TransportError{Service: service, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.FromStatus(service, resp.StatusCode, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		})
	}

	return body, nil
}

// StatusError is a non-2xx response from a platform API
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// errorMessage pulls a message out of the error envelopes used by XRPC
// ({"error","message"}) and Mastodon ({"error"})
func errorMessage(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch {
	case env.Error != "" && env.Message != "":
		return env.Error + ": " + env.Message
	case env.Message != "":
		return env.Message
	default:
		return env.Error
	}
}

func decode(body []byte, out any, service string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &apperr.TransportError{Service: service, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}
