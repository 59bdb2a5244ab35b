package ingest

import (
	"context"
	"time"

	"github.com/jfmyers9/spinpost/internal/apperr"
	"github.com/jfmyers9/spinpost/pkg/spotify"
)

// Source is the listening-history API the ingester reads from
type Source interface {
	RecentlyPlayed(ctx context.Context, after time.Time) ([]spotify.PlayHistory, error)
	MyPlaylists(ctx context.Context) ([]spotify.Playlist, error)
	Playlist(ctx context.Context, id string) (*spotify.Playlist, error)
}

// SpotifySource adapts the Spotify SDK client to Source and maps its errors
// onto AuthError and TransportError
type SpotifySource struct {
	client *spotify.Client
}

// NewSpotifySource wraps an SDK client
func NewSpotifySource(client *spotify.Client) *SpotifySource {
	return &SpotifySource{client: client}
}

func (s *SpotifySource) RecentlyPlayed(ctx context.Context, after time.Time) ([]spotify.PlayHistory, error) {
	page, err := s.client.Player().RecentlyPlayed(ctx, spotify.MaxRecentlyPlayed, after)
	if err != nil {
		return nil, classify(err)
	}
	return page.Items, nil
}

func (s *SpotifySource) MyPlaylists(ctx context.Context) ([]spotify.Playlist, error) {
	playlists, err := s.client.Playlists().Mine(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return playlists, nil
}

func (s *SpotifySource) Playlist(ctx context.Context, id string) (*spotify.Playlist, error) {
	pl, err := s.client.Playlists().Get(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return pl, nil
}

func classify(err error) error {
	return apperr.FromStatus("spotify", spotify.StatusCode(err), err)
}
