package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the local listening history backed by SQLite
type Store struct {
	db *sql.DB
}

// PlayEvent is one recorded play of a track
type PlayEvent struct {
	ID          int64
	PlayedAt    time.Time
	TrackID     string
	TrackName   string
	ArtistName  string
	AlbumID     string // empty when the API reported no album
	AlbumName   string
	AlbumArtist string // album's primary artist; stored on the album row only
	ContextType string // "playlist", "album", "artist" or empty
	ContextURI  string
	PlaylistID  string // set only for plays attributed to a playlist context
}

// Album is the denormalized album record kept alongside plays
type Album struct {
	ID         string
	Name       string
	ArtistName string
}

// Playlist is cached playlist metadata used to label playlist contexts
type Playlist struct {
	ID   string
	Name string
	URL  string
}

// Open opens (or creates) the database at path and ensures the schema exists
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent across queries
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS albums (
			album_id TEXT PRIMARY KEY,
			album_name TEXT NOT NULL,
			artist_name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			played_at INTEGER NOT NULL UNIQUE,
			track_id TEXT NOT NULL,
			track_name TEXT NOT NULL,
			artist_name TEXT NOT NULL,
			album_id TEXT REFERENCES albums(album_id),
			album_name TEXT,
			context_type TEXT,
			context_uri TEXT,
			playlist_id TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at);

		CREATE TABLE IF NOT EXISTS playlists (
			playlist_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertPlay records a play and its album in one transaction.
// Returns false without error when a play with the same PlayedAt already exists.
func (s *Store) InsertPlay(ctx context.Context, p PlayEvent) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if p.AlbumID != "" {
		albumArtist := p.AlbumArtist
		if albumArtist == "" {
			albumArtist = p.ArtistName
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO albums (album_id, album_name, artist_name)
			VALUES (?, ?, ?)
			ON CONFLICT(album_id) DO UPDATE SET
				album_name = excluded.album_name,
				artist_name = excluded.artist_name
		`, p.AlbumID, p.AlbumName, albumArtist)
		if err != nil {
			return false, fmt.Errorf("failed to upsert album %s: %w", p.AlbumID, err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO plays (played_at, track_id, track_name, artist_name, album_id, album_name,
			context_type, context_uri, playlist_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(played_at) DO NOTHING
	`,
		p.PlayedAt.UnixMilli(),
		p.TrackID,
		p.TrackName,
		p.ArtistName,
		nullable(p.AlbumID),
		nullable(p.AlbumName),
		nullable(p.ContextType),
		nullable(p.ContextURI),
		nullable(p.PlaylistID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert play: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rows == 1, nil
}

// HasPlay reports whether a play with the given timestamp is already stored
func (s *Store) HasPlay(ctx context.Context, playedAt time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM plays WHERE played_at = ?", playedAt.UnixMilli()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up play: %w", err)
	}
	return n > 0, nil
}

// PlaysSince returns all plays at or after since, newest first
func (s *Store) PlaysSince(ctx context.Context, since time.Time) ([]PlayEvent, error) {
	return s.queryPlays(ctx, `
		SELECT id, played_at, track_id, track_name, artist_name, COALESCE(album_id, ''),
			COALESCE(album_name, ''), COALESCE(context_type, ''), COALESCE(context_uri, ''),
			COALESCE(playlist_id, '')
		FROM plays
		WHERE played_at >= ?
		ORDER BY played_at DESC
	`, since.UnixMilli())
}

// RecentPlays returns the latest plays, newest first.
// A limit <= 0 returns everything.
func (s *Store) RecentPlays(ctx context.Context, limit int) ([]PlayEvent, error) {
	query := `
		SELECT id, played_at, track_id, track_name, artist_name, COALESCE(album_id, ''),
			COALESCE(album_name, ''), COALESCE(context_type, ''), COALESCE(context_uri, ''),
			COALESCE(playlist_id, '')
		FROM plays
		ORDER BY played_at DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.queryPlays(ctx, query)
}

func (s *Store) queryPlays(ctx context.Context, query string, args ...any) ([]PlayEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []PlayEvent
	for rows.Next() {
		var p PlayEvent
		var playedAtMillis int64

		err := rows.Scan(
			&p.ID,
			&playedAtMillis,
			&p.TrackID,
			&p.TrackName,
			&p.ArtistName,
			&p.AlbumID,
			&p.AlbumName,
			&p.ContextType,
			&p.ContextURI,
			&p.PlaylistID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}

		p.PlayedAt = time.UnixMilli(playedAtMillis).UTC()
		plays = append(plays, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}

	return plays, nil
}

// Count returns the number of stored plays
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plays").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// Album looks up an album by id. Returns nil when it is unknown.
func (s *Store) Album(ctx context.Context, id string) (*Album, error) {
	var a Album
	err := s.db.QueryRowContext(ctx,
		"SELECT album_id, album_name, artist_name FROM albums WHERE album_id = ?", id,
	).Scan(&a.ID, &a.Name, &a.ArtistName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up album %s: %w", id, err)
	}
	return &a, nil
}

// UpsertPlaylist caches playlist metadata, replacing name and URL if present
func (s *Store) UpsertPlaylist(ctx context.Context, p Playlist) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playlists (playlist_id, name, url)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url
	`, p.ID, p.Name, p.URL)
	if err != nil {
		return fmt.Errorf("failed to upsert playlist %s: %w", p.ID, err)
	}
	return nil
}

// Playlist looks up cached playlist metadata. Returns nil when it is unknown.
func (s *Store) Playlist(ctx context.Context, id string) (*Playlist, error) {
	var p Playlist
	err := s.db.QueryRowContext(ctx,
		"SELECT playlist_id, name, COALESCE(url, '') FROM playlists WHERE playlist_id = ?", id,
	).Scan(&p.ID, &p.Name, &p.URL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up playlist %s: %w", id, err)
	}
	return &p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
