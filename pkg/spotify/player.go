package spotify

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// MaxRecentlyPlayed is the largest page the recently-played endpoint returns.
const MaxRecentlyPlayed = 50

// PlayerService provides access to the user's listening history.
type PlayerService struct {
	client *Client
}

// RecentlyPlayed returns up to limit plays that happened after the given time.
// A zero after returns the most recent plays.
func (p *PlayerService) RecentlyPlayed(ctx context.Context, limit int, after time.Time) (*RecentlyPlayedPage, error) {
	if limit <= 0 || limit > MaxRecentlyPlayed {
		limit = MaxRecentlyPlayed
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if !after.IsZero() {
		q.Set("after", strconv.FormatInt(after.UnixMilli(), 10))
	}

	var page RecentlyPlayedPage
	if err := p.client.get(ctx, "/me/player/recently-played", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
