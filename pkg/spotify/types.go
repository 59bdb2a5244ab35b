package spotify

import (
	"strings"
	"time"
)

// Token is an OAuth token issued by the accounts service.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresIn    int64     `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expires_at"`
}

// expiryLeeway refreshes tokens slightly before Spotify would reject them.
const expiryLeeway = 30 * time.Second

// Valid reports whether the access token can still be used at now.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return now.Add(expiryLeeway).Before(t.Expiry)
}

// ExternalURLs holds the public links Spotify attaches to objects.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Artist is a simplified artist object.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is a simplified album object.
type Album struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Track is a full track object as embedded in play history.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        *Album       `json:"album"`
	DurationMs   int64        `json:"duration_ms"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Context describes what the user was playing from (playlist, album, artist).
type Context struct {
	Type         string       `json:"type"`
	URI          string       `json:"uri"`
	Href         string       `json:"href"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// PlaylistID returns the playlist id for playlist contexts, or "" otherwise.
func (c *Context) PlaylistID() string {
	if c == nil || c.Type != "playlist" {
		return ""
	}
	return ParsePlaylistURI(c.URI)
}

// ParsePlaylistURI extracts the id from a "spotify:playlist:<id>" URI.
func ParsePlaylistURI(uri string) string {
	const prefix = "spotify:playlist:"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}

// PlayHistory is one item of the recently-played endpoint.
type PlayHistory struct {
	Track    *Track    `json:"track"`
	PlayedAt time.Time `json:"played_at"`
	Context  *Context  `json:"context"`
}

// Cursors are the paging cursors of the recently-played endpoint.
type Cursors struct {
	After  string `json:"after"`
	Before string `json:"before"`
}

// RecentlyPlayedPage is the response of GET /me/player/recently-played.
type RecentlyPlayedPage struct {
	Items   []PlayHistory `json:"items"`
	Next    string        `json:"next"`
	Cursors *Cursors      `json:"cursors"`
	Limit   int           `json:"limit"`
}

// Playlist is a simplified playlist object.
type Playlist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// PlaylistPage is one page of GET /me/playlists.
type PlaylistPage struct {
	Items  []Playlist `json:"items"`
	Next   string     `json:"next"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
	Total  int        `json:"total"`
}
