// Package stats computes the rolling weekly listening summary.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jfmyers9/spinpost/internal/store"
	"github.com/rs/zerolog"
)

// Window is the trailing period the summary covers
const Window = 7 * 24 * time.Hour

const openSpotify = "https://open.spotify.com"

// PlaysReader reads stored plays
type PlaysReader interface {
	PlaysSince(ctx context.Context, since time.Time) ([]store.PlayEvent, error)
}

// AlbumLookup returns the canonical album record, or nil if unknown
type AlbumLookup interface {
	Album(ctx context.Context, id string) (*store.Album, error)
}

// PlaylistResolver returns display metadata for a playlist, or nil if it is
// not accessible
type PlaylistResolver interface {
	ResolvePlaylist(ctx context.Context, id string) (*store.Playlist, error)
}

// TopTrack is a track ranked by plays in the window
type TopTrack struct {
	ID         string
	Name       string
	Artist     string
	Plays      int
	LastPlayed time.Time
	URL        string
}

// Label is the display name "Track — Artist"
func (t TopTrack) Label() string {
	return t.Name + " — " + t.Artist
}

// TopAlbum is the most played album in the window
type TopAlbum struct {
	ID         string
	Name       string
	Artist     string
	Plays      int
	LastPlayed time.Time
	URL        string
}

// Label is the display name "Album — Artist"
func (a TopAlbum) Label() string {
	return a.Name + " — " + a.Artist
}

// TopPlaylist is the most played playlist context in the window
type TopPlaylist struct {
	ID         string
	Name       string
	Plays      int
	LastPlayed time.Time
	URL        string
}

// Summary bundles everything a post is built from
type Summary struct {
	Tracks   []TopTrack
	Album    *TopAlbum
	Playlist *TopPlaylist
}

// Empty reports whether there is nothing to show besides the header
func (s Summary) Empty() bool {
	return len(s.Tracks) == 0 && s.Album == nil && s.Playlist == nil
}

// Aggregator answers top-N questions over the trailing window
type Aggregator struct {
	plays    PlaysReader
	albums   AlbumLookup
	resolver PlaylistResolver
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithAlbumLookup uses the stored album table for album names
func WithAlbumLookup(l AlbumLookup) Option {
	return func(a *Aggregator) { a.albums = l }
}

// WithPlaylistResolver resolves playlist names and links
func WithPlaylistResolver(r PlaylistResolver) Option {
	return func(a *Aggregator) { a.resolver = r }
}

// WithClock overrides the current time (used by tests)
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator over the given plays
func New(plays PlaysReader, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		plays:  plays,
		now:    time.Now,
		logger: logger.With().Str("component", "stats").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) window(ctx context.Context) ([]store.PlayEvent, error) {
	since := a.now().Add(-Window)
	plays, err := a.plays.PlaysSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read plays since %s: %w", since.Format(time.RFC3339), err)
	}
	return plays, nil
}

// TopTracks returns at most n tracks ordered by play count, then recency
func (a *Aggregator) TopTracks(ctx context.Context, n int) ([]TopTrack, error) {
	plays, err := a.window(ctx)
	if err != nil {
		return nil, err
	}
	return RankTracks(plays, n), nil
}

// TopAlbum returns the most played album, or nil if no album was played
func (a *Aggregator) TopAlbum(ctx context.Context) (*TopAlbum, error) {
	plays, err := a.window(ctx)
	if err != nil {
		return nil, err
	}
	return a.topAlbum(ctx, plays)
}

func (a *Aggregator) topAlbum(ctx context.Context, plays []store.PlayEvent) (*TopAlbum, error) {
	album := RankAlbum(plays)
	if album == nil || a.albums == nil {
		return album, nil
	}

	stored, err := a.albums.Album(ctx, album.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		album.Name = stored.Name
		album.Artist = stored.ArtistName
	}
	return album, nil
}

// TopPlaylist returns the most played playlist that can be resolved to a
// name, or nil if no play was attributed to an accessible playlist
func (a *Aggregator) TopPlaylist(ctx context.Context) (*TopPlaylist, error) {
	plays, err := a.window(ctx)
	if err != nil {
		return nil, err
	}
	return a.topPlaylist(ctx, plays), nil
}

func (a *Aggregator) topPlaylist(ctx context.Context, plays []store.PlayEvent) *TopPlaylist {
	for _, candidate := range RankPlaylists(plays) {
		if a.resolver == nil {
			c := candidate
			return &c
		}

		meta, err := a.resolver.ResolvePlaylist(ctx, candidate.ID)
		if err != nil {
			a.logger.Warn().Err(err).Str("playlist", candidate.ID).Msg("Could not resolve playlist, trying next")
			continue
		}
		if meta == nil {
			continue
		}

		candidate.Name = meta.Name
		if meta.URL != "" {
			candidate.URL = meta.URL
		}
		return &candidate
	}
	return nil
}

// Summary runs all three queries over a single read of the window
func (a *Aggregator) Summary(ctx context.Context, n int) (Summary, error) {
	plays, err := a.window(ctx)
	if err != nil {
		return Summary{}, err
	}

	album, err := a.topAlbum(ctx, plays)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Tracks:   RankTracks(plays, n),
		Album:    album,
		Playlist: a.topPlaylist(ctx, plays),
	}

	a.logger.Debug().
		Int("plays", len(plays)).
		Int("tracks", len(s.Tracks)).
		Bool("album", s.Album != nil).
		Bool("playlist", s.Playlist != nil).
		Msg("Computed summary")

	return s, nil
}

// group is a running tally for one id
type group struct {
	id     string
	count  int
	last   time.Time
	latest store.PlayEvent // most recent play, used for display fields
}

// tally groups plays by key, skipping empty keys
func tally(plays []store.PlayEvent, key func(store.PlayEvent) string) []*group {
	byID := make(map[string]*group)
	var order []*group

	for _, p := range plays {
		k := key(p)
		if k == "" {
			continue
		}
		g, ok := byID[k]
		if !ok {
			g = &group{id: k, latest: p}
			byID[k] = g
			order = append(order, g)
		}
		g.count++
		if p.PlayedAt.After(g.last) {
			g.last = p.PlayedAt
			g.latest = p
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return ranksBefore(order[i], order[j])
	})
	return order
}

// ranksBefore orders by count desc, then most recent play desc, then id
func ranksBefore(a, b *group) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	if !a.last.Equal(b.last) {
		return a.last.After(b.last)
	}
	return a.id < b.id
}

// RankTracks returns at most n tracks ordered by play count, then recency
func RankTracks(plays []store.PlayEvent, n int) []TopTrack {
	if n <= 0 {
		return nil
	}

	groups := tally(plays, func(p store.PlayEvent) string { return p.TrackID })
	if len(groups) > n {
		groups = groups[:n]
	}

	tracks := make([]TopTrack, 0, len(groups))
	for _, g := range groups {
		tracks = append(tracks, TopTrack{
			ID:         g.id,
			Name:       g.latest.TrackName,
			Artist:     g.latest.ArtistName,
			Plays:      g.count,
			LastPlayed: g.last,
			URL:        openSpotify + "/track/" + g.id,
		})
	}
	return tracks
}

// RankAlbum returns the most played album, or nil when no play has an album
func RankAlbum(plays []store.PlayEvent) *TopAlbum {
	albums := RankAlbums(plays, 1)
	if len(albums) == 0 {
		return nil
	}
	return &albums[0]
}

// RankAlbums returns at most n albums in ranking order
func RankAlbums(plays []store.PlayEvent, n int) []TopAlbum {
	if n <= 0 {
		return nil
	}

	groups := tally(plays, func(p store.PlayEvent) string { return p.AlbumID })
	if len(groups) > n {
		groups = groups[:n]
	}

	albums := make([]TopAlbum, 0, len(groups))
	for _, g := range groups {
		albums = append(albums, TopAlbum{
			ID:         g.id,
			Name:       g.latest.AlbumName,
			Artist:     g.latest.ArtistName,
			Plays:      g.count,
			LastPlayed: g.last,
			URL:        openSpotify + "/album/" + g.id,
		})
	}
	return albums
}

// RankPlaylists returns every playlist context in ranking order. Plays with
// no playlist attribution are ignored.
func RankPlaylists(plays []store.PlayEvent) []TopPlaylist {
	groups := tally(plays, func(p store.PlayEvent) string { return p.PlaylistID })

	playlists := make([]TopPlaylist, 0, len(groups))
	for _, g := range groups {
		playlists = append(playlists, TopPlaylist{
			ID:         g.id,
			Name:       g.id,
			Plays:      g.count,
			LastPlayed: g.last,
			URL:        openSpotify + "/playlist/" + g.id,
		})
	}
	return playlists
}
