package spotify

import (
	"context"
	"net/url"
	"strconv"
)

const playlistPageSize = 50

// PlaylistService provides playlist lookups.
type PlaylistService struct {
	client *Client
}

// Mine returns every playlist owned or followed by the current user,
// following pagination until Spotify reports no next page.
func (p *PlaylistService) Mine(ctx context.Context) ([]Playlist, error) {
	var all []Playlist
	offset := 0

	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(playlistPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page PlaylistPage
		if err := p.client.get(ctx, "/me/playlists", q, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		if page.Next == "" || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return all, nil
}

// Get fetches the name and link of a single playlist. This also works for
// Spotify-generated playlists (Discover Weekly, Daily Mix) the user does not own.
func (p *PlaylistService) Get(ctx context.Context, id string) (*Playlist, error) {
	q := url.Values{}
	q.Set("fields", "id,name,external_urls")

	var pl Playlist
	if err := p.client.get(ctx, "/playlists/"+url.PathEscape(id), q, &pl); err != nil {
		return nil, err
	}
	if pl.ID == "" {
		pl.ID = id
	}
	return &pl, nil
}
