// Package ingest pulls recently played tracks from Spotify into the local store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/spinpost/internal/store"
	"github.com/jfmyers9/spinpost/pkg/spotify"
	"github.com/rs/zerolog"
)

const (
	unknownTrack  = "Unknown track"
	unknownArtist = "Unknown artist"
)

// Store is the subset of the local store the ingester writes to
type Store interface {
	HasPlay(ctx context.Context, playedAt time.Time) (bool, error)
	InsertPlay(ctx context.Context, p store.PlayEvent) (bool, error)
	UpsertPlaylist(ctx context.Context, p store.Playlist) error
	Playlist(ctx context.Context, id string) (*store.Playlist, error)
}

// Ingester copies listening history from a Source into a Store
type Ingester struct {
	source   Source
	store    Store
	lookback time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates an Ingester. lookback bounds how far back each fetch reaches;
// zero fetches the latest plays regardless of age.
func New(source Source, st Store, lookback time.Duration, logger zerolog.Logger) *Ingester {
	return &Ingester{
		source:   source,
		store:    st,
		lookback: lookback,
		now:      time.Now,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// IngestRecentlyPlayed fetches the latest plays and stores those not seen before.
// Returns the number of rows inserted.
func (i *Ingester) IngestRecentlyPlayed(ctx context.Context) (int, error) {
	var after time.Time
	if i.lookback > 0 {
		after = i.now().Add(-i.lookback)
	}

	items, err := i.source.RecentlyPlayed(ctx, after)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch recently played: %w", err)
	}

	i.logger.Debug().Int("items", len(items)).Time("after", after).Msg("Fetched recently played")

	inserted := 0
	for _, item := range items {
		play, ok := Normalize(item)
		if !ok {
			i.logger.Debug().Msg("Skipping play without timestamp or track id")
			continue
		}

		exists, err := i.store.HasPlay(ctx, play.PlayedAt)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}

		added, err := i.store.InsertPlay(ctx, play)
		if err != nil {
			return inserted, err
		}
		if added {
			inserted++
			i.logger.Debug().
				Str("track", play.TrackName).
				Str("artist", play.ArtistName).
				Time("played_at", play.PlayedAt).
				Msg("Stored play")
		}
	}

	return inserted, nil
}

// CachePlaylists refreshes cached metadata for all of the user's playlists.
// Returns the number of playlists written.
func (i *Ingester) CachePlaylists(ctx context.Context) (int, error) {
	playlists, err := i.source.MyPlaylists(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	n := 0
	for _, pl := range playlists {
		if pl.ID == "" {
			continue
		}
		if err := i.store.UpsertPlaylist(ctx, toStorePlaylist(pl)); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

// ResolvePlaylist returns display metadata for a playlist id, using the cache
// first and falling back to the API (caching the answer).
// Returns nil without error when the playlist is not accessible.
func (i *Ingester) ResolvePlaylist(ctx context.Context, id string) (*store.Playlist, error) {
	cached, err := i.store.Playlist(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	pl, err := i.source.Playlist(ctx, id)
	if err != nil {
		if errors.Is(err, spotify.ErrNotFound) {
			i.logger.Debug().Str("playlist", id).Msg("Playlist not accessible")
			return nil, nil
		}
		return nil, err
	}

	resolved := toStorePlaylist(*pl)
	if resolved.ID == "" {
		resolved.ID = id
	}
	if err := i.store.UpsertPlaylist(ctx, resolved); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// Normalize converts an API play into a PlayEvent.
// Returns false for items missing a timestamp or track id.
func Normalize(item spotify.PlayHistory) (store.PlayEvent, bool) {
	if item.PlayedAt.IsZero() || item.Track == nil || item.Track.ID == "" {
		return store.PlayEvent{}, false
	}

	track := item.Track
	p := store.PlayEvent{
		PlayedAt:   item.PlayedAt.UTC(),
		TrackID:    track.ID,
		TrackName:  track.Name,
		ArtistName: unknownArtist,
	}

	if p.TrackName == "" {
		p.TrackName = unknownTrack
	}
	if len(track.Artists) > 0 && track.Artists[0].Name != "" {
		p.ArtistName = track.Artists[0].Name
	}
	if track.Album != nil && track.Album.ID != "" {
		p.AlbumID = track.Album.ID
		p.AlbumName = track.Album.Name
		p.AlbumArtist = p.ArtistName
		if len(track.Album.Artists) > 0 && track.Album.Artists[0].Name != "" {
			p.AlbumArtist = track.Album.Artists[0].Name
		}
	}
	if item.Context != nil {
		p.ContextType = item.Context.Type
		p.ContextURI = item.Context.URI
		p.PlaylistID = item.Context.PlaylistID()
	}

	return p, true
}

func toStorePlaylist(pl spotify.Playlist) store.Playlist {
	name := pl.Name
	if name == "" {
		name = "Unnamed playlist"
	}
	return store.Playlist{ID: pl.ID, Name: name, URL: pl.ExternalURLs.Spotify}
}
